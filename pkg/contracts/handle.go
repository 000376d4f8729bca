package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

// ErrReverted is returned by WaitMined when the transaction was mined but failed.
var ErrReverted = errors.New("transaction reverted")

// Handle is a resolved contract ready to call: address and ABI fixed at
// resolution, plus the connection calls go through. Handles are immutable;
// rebinding yields a new Handle that shares the ABI.
type Handle struct {
	name    string
	chainID uint64
	address common.Address
	abi     *abi.ABI
	conn    *Connection
	log     *zap.Logger
}

func (h *Handle) Name() string            { return h.name }
func (h *Handle) ChainID() uint64         { return h.chainID }
func (h *Handle) Address() common.Address { return h.address }
func (h *Handle) ABI() *abi.ABI           { return h.abi }
func (h *Handle) Connection() *Connection { return h.conn }

// withConnection returns a copy of h bound to conn.
func (h *Handle) withConnection(conn *Connection) *Handle {
	rebound := *h
	rebound.conn = conn
	return &rebound
}

func (h *Handle) logger() *zap.Logger {
	if h.log == nil {
		return zap.NewNop()
	}
	return h.log
}

func (h *Handle) backend() (bind.ContractBackend, error) {
	if h.conn == nil || h.conn.backend == nil {
		return nil, fmt.Errorf("%s: connection has no backend: %w", h.name, sdkerr.ErrInvalidParameter)
	}
	return h.conn.backend, nil
}

// Pack encodes a call to method with args.
func (h *Handle) Pack(method string, args ...any) ([]byte, error) {
	data, err := h.abi.Pack(method, args...)
	if err != nil {
		h.logger().Error("Failed to pack data", zap.String("contract", h.name), zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("failed to pack data for %s.%s: %w", h.name, method, err)
	}
	return data, nil
}

func (h *Handle) call(ctx context.Context, method string, args []any) ([]byte, error) {
	backend, err := h.backend()
	if err != nil {
		return nil, err
	}
	data, err := h.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		From: h.conn.From(),
		To:   &h.address,
		Data: data,
	}
	result, err := backend.CallContract(ctx, msg, nil)
	if err != nil {
		h.logger().Error("Failed to call contract",
			zap.String("contract", h.name),
			zap.String("method", method),
			zap.String("contractAddress", h.address.Hex()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to call %s.%s at %s: %w", h.name, method, h.address.Hex(), err)
	}
	return result, nil
}

// Call invokes a view function and returns its decoded outputs.
func (h *Handle) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	result, err := h.call(ctx, method, args)
	if err != nil {
		return nil, err
	}
	out, err := h.abi.Unpack(method, result)
	if err != nil {
		h.logger().Error("Failed to unpack result", zap.String("contract", h.name), zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("failed to unpack %s.%s result: %w", h.name, method, err)
	}
	return out, nil
}

// CallInto invokes a view function and decodes its outputs into v.
func (h *Handle) CallInto(ctx context.Context, v any, method string, args ...any) error {
	result, err := h.call(ctx, method, args)
	if err != nil {
		return err
	}
	if err := h.abi.UnpackIntoInterface(v, method, result); err != nil {
		h.logger().Error("Failed to unpack result", zap.String("contract", h.name), zap.String("method", method), zap.Error(err))
		return fmt.Errorf("failed to unpack %s.%s result: %w", h.name, method, err)
	}
	return nil
}

// Transact submits a state-changing call through the connection's signer.
func (h *Handle) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	return h.TransactWithValue(ctx, nil, method, args...)
}

// TransactWithValue is Transact for payable functions.
func (h *Handle) TransactWithValue(ctx context.Context, value *big.Int, method string, args ...any) (*types.Transaction, error) {
	backend, err := h.backend()
	if err != nil {
		return nil, err
	}
	if h.conn.IsReadOnly() {
		return nil, fmt.Errorf("%s.%s: %w", h.name, method, sdkerr.ErrReadOnly)
	}

	opts := *h.conn.signer
	opts.Context = ctx
	if value != nil {
		opts.Value = value
	}

	bound := bind.NewBoundContract(h.address, *h.abi, backend, backend, backend)
	tx, err := bound.Transact(&opts, method, args...)
	if err != nil {
		h.logger().Error("Failed to submit transaction",
			zap.String("contract", h.name),
			zap.String("method", method),
			zap.String("contractAddress", h.address.Hex()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to submit %s.%s: %w", h.name, method, err)
	}
	return tx, nil
}

// WaitMined blocks until tx is mined and returns its receipt. A mined but
// failed transaction returns the receipt together with ErrReverted.
func (h *Handle) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	backend, err := h.backend()
	if err != nil {
		return nil, err
	}
	deployBackend, ok := backend.(bind.DeployBackend)
	if !ok {
		return nil, fmt.Errorf("%s: backend cannot fetch receipts: %w", h.name, sdkerr.ErrInvalidParameter)
	}

	receipt, err := bind.WaitMined(ctx, deployBackend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%s: %w", tx.Hash().Hex(), ErrReverted)
	}
	return receipt, nil
}
