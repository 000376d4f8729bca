package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Connection is the chain access a handle is bound to: a backend for reads,
// optionally paired with a caller-owned signing identity for writes. The SDK
// never creates or inspects keys; it only forwards calls to the signer.
//
// Connections are compared by pointer. Passing a different *Connection for an
// already resolved contract rebinds the handle without re-resolving it.
type Connection struct {
	backend bind.ContractBackend
	signer  *bind.TransactOpts
}

// ReadOnly returns a connection that can call view functions only.
func ReadOnly(backend bind.ContractBackend) *Connection {
	return &Connection{backend: backend}
}

// WithSigner returns a connection that submits state-changing calls through signer.
func WithSigner(backend bind.ContractBackend, signer *bind.TransactOpts) *Connection {
	return &Connection{backend: backend, signer: signer}
}

func (c *Connection) Backend() bind.ContractBackend {
	return c.backend
}

func (c *Connection) Signer() *bind.TransactOpts {
	return c.signer
}

// IsReadOnly reports whether the connection lacks a signing identity.
func (c *Connection) IsReadOnly() bool {
	return c.signer == nil
}

// From returns the signer's account, or the zero address for read-only connections.
func (c *Connection) From() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.From
}
