// Package ethclient provides a testify mock of ethclient.EthClient.
package ethclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

// MockEthClient is a mock type for the EthClient type.
type MockEthClient struct {
	mock.Mock
}

type MockEthClient_Expecter struct {
	mock *mock.Mock
}

func (_m *MockEthClient) EXPECT() *MockEthClient_Expecter {
	return &MockEthClient_Expecter{mock: &_m.Mock}
}

// NewMockEthClient creates a new MockEthClient and registers a cleanup that asserts expectations.
func NewMockEthClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEthClient {
	m := &MockEthClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func bytesResult(args mock.Arguments, i int) []byte {
	if v := args.Get(i); v != nil {
		return v.([]byte)
	}
	return nil
}

func bigResult(args mock.Arguments, i int) *big.Int {
	if v := args.Get(i); v != nil {
		return v.(*big.Int)
	}
	return nil
}

func (_m *MockEthClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	args := _m.Called(ctx, call, blockNumber)
	return bytesResult(args, 0), args.Error(1)
}

type MockEthClient_CallContract_Call struct {
	*mock.Call
}

func (_e *MockEthClient_Expecter) CallContract(ctx interface{}, call interface{}, blockNumber interface{}) *MockEthClient_CallContract_Call {
	return &MockEthClient_CallContract_Call{Call: _e.mock.On("CallContract", ctx, call, blockNumber)}
}

func (_c *MockEthClient_CallContract_Call) Return(result []byte, err error) *MockEthClient_CallContract_Call {
	_c.Call.Return(result, err)
	return _c
}

func (_c *MockEthClient_CallContract_Call) Once() *MockEthClient_CallContract_Call {
	_c.Call.Once()
	return _c
}

func (_m *MockEthClient) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	args := _m.Called(ctx, contract, blockNumber)
	return bytesResult(args, 0), args.Error(1)
}

type MockEthClient_CodeAt_Call struct {
	*mock.Call
}

func (_e *MockEthClient_Expecter) CodeAt(ctx interface{}, contract interface{}, blockNumber interface{}) *MockEthClient_CodeAt_Call {
	return &MockEthClient_CodeAt_Call{Call: _e.mock.On("CodeAt", ctx, contract, blockNumber)}
}

func (_c *MockEthClient_CodeAt_Call) Return(code []byte, err error) *MockEthClient_CodeAt_Call {
	_c.Call.Return(code, err)
	return _c
}

func (_m *MockEthClient) ChainID(ctx context.Context) (*big.Int, error) {
	args := _m.Called(ctx)
	return bigResult(args, 0), args.Error(1)
}

type MockEthClient_ChainID_Call struct {
	*mock.Call
}

func (_e *MockEthClient_Expecter) ChainID(ctx interface{}) *MockEthClient_ChainID_Call {
	return &MockEthClient_ChainID_Call{Call: _e.mock.On("ChainID", ctx)}
}

func (_c *MockEthClient_ChainID_Call) Return(id *big.Int, err error) *MockEthClient_ChainID_Call {
	_c.Call.Return(id, err)
	return _c
}

func (_m *MockEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	args := _m.Called(ctx, number)
	if v := args.Get(0); v != nil {
		return v.(*types.Header), args.Error(1)
	}
	return nil, args.Error(1)
}

func (_m *MockEthClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	args := _m.Called(ctx, account)
	return bytesResult(args, 0), args.Error(1)
}

func (_m *MockEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	args := _m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (_m *MockEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	args := _m.Called(ctx)
	return bigResult(args, 0), args.Error(1)
}

func (_m *MockEthClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	args := _m.Called(ctx)
	return bigResult(args, 0), args.Error(1)
}

func (_m *MockEthClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	args := _m.Called(ctx, call)
	return args.Get(0).(uint64), args.Error(1)
}

func (_m *MockEthClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	args := _m.Called(ctx, tx)
	return args.Error(0)
}

func (_m *MockEthClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	args := _m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.([]types.Log), args.Error(1)
	}
	return nil, args.Error(1)
}

func (_m *MockEthClient) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	args := _m.Called(ctx, query, ch)
	if v := args.Get(0); v != nil {
		return v.(ethereum.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (_m *MockEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	args := _m.Called(ctx, txHash)
	if v := args.Get(0); v != nil {
		return v.(*types.Receipt), args.Error(1)
	}
	return nil, args.Error(1)
}
