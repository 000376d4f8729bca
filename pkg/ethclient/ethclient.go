// Package ethclient defines the chain backend a contract connection is built on.
package ethclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	goethclient "github.com/ethereum/go-ethereum/ethclient"
)

// EthClient is the subset of *ethclient.Client the SDK uses: contract calls,
// transaction submission, receipt polling and chain id discovery.
type EthClient interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

var _ EthClient = (*goethclient.Client)(nil)

// Dial connects to the JSON-RPC endpoint at rawurl.
func Dial(ctx context.Context, rawurl string) (*goethclient.Client, error) {
	client, err := goethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc provider %s: %w", rawurl, err)
	}
	return client, nil
}
