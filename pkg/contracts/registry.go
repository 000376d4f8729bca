// Package contracts resolves logical contract names into callable handles.
//
// A Registry fetches contract metadata and ABIs through a Source, caches them
// in a shared cache.Store and keeps its own map of instantiated handles keyed
// by (name, chain id, address). Requesting a cached handle with a different
// Connection rebinds it without touching the Source.
package contracts

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fxnlabs/marketplace-sdk/pkg/cache"
	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/network"
	"github.com/fxnlabs/marketplace-sdk/pkg/registry"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

const (
	DefaultABITTL = 5 * time.Minute

	abiPrefix     = "abi"
	addressPrefix = "address"
	defaultSlot   = "default"
)

// Source is the remote registry the Registry resolves against.
// *registry.Client implements it.
type Source interface {
	GetContractMetadata(ctx context.Context, name string, chainID uint64) (*registry.ContractMetadata, error)
	GetAbiByID(ctx context.Context, id string) (*registry.AbiDescriptor, error)
	GetDeployedAddress(ctx context.Context, name string, chainID uint64) (string, error)
}

var _ Source = (*registry.Client)(nil)

// resolvedContract is the cached result of the metadata then ABI lookup.
type resolvedContract struct {
	metadata registry.ContractMetadata
	abi      *abi.ABI
}

type Registry struct {
	source   Source
	store    *cache.Store
	resolver *network.Resolver
	abiTTL   time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	handles  map[string]*Handle
	inflight singleflight.Group
}

type Option func(*Registry)

// WithABITTL sets how long resolved metadata, ABIs and addresses stay fresh.
func WithABITTL(ttl time.Duration) Option {
	return func(r *Registry) { r.abiTTL = ttl }
}

// WithResolver replaces the network name resolver.
func WithResolver(resolver *network.Resolver) Option {
	return func(r *Registry) {
		if resolver != nil {
			r.resolver = resolver
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log.Named("contracts")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns a Registry reading from source. A nil store gets a
// private cache.Store with default settings.
func NewRegistry(source Source, store *cache.Store, opts ...Option) *Registry {
	if store == nil {
		store = cache.New()
	}
	r := &Registry{
		source:   source,
		store:    store,
		resolver: network.Default,
		abiTTL:   DefaultABITTL,
		log:      zap.NewNop(),
		handles:  make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type handleOptions struct {
	address string
}

// HandleOption customizes a GetHandle call.
type HandleOption func(*handleOptions)

// AtAddress uses address instead of the registered deployment address. No
// address lookup is made, but the address is still validated.
func AtAddress(address string) HandleOption {
	return func(o *handleOptions) { o.address = address }
}

func abiKey(name string, chainID uint64) string {
	return cache.Key(abiPrefix, name, strconv.FormatUint(chainID, 10))
}

func addressKey(name string, chainID uint64) string {
	return cache.Key(addressPrefix, name, strconv.FormatUint(chainID, 10))
}

// handleKey names the handle slot. The zero address stands for the
// registered deployment address.
func handleKey(name string, chainID uint64, address common.Address) string {
	slot := defaultSlot
	if address != (common.Address{}) {
		slot = address.Hex()
	}
	return cache.Key(name, strconv.FormatUint(chainID, 10), slot)
}

// GetHandle returns a handle for the logical contract name on network, bound to conn.
//
// network may be a well-known name or a numeric chain id; spellings of the same
// chain share cache entries. Concurrent calls for the same key share one
// resolution.
func (r *Registry) GetHandle(ctx context.Context, name, networkID string, conn *Connection, opts ...HandleOption) (*Handle, error) {
	var o handleOptions
	for _, opt := range opts {
		opt(&o)
	}

	chainID, err := r.resolver.Resolve(networkID)
	if err != nil {
		r.metrics.HandleResolution("failed")
		return nil, err
	}
	var explicit common.Address
	if o.address != "" {
		if explicit, err = parseAddress(o.address); err != nil {
			r.metrics.HandleResolution("failed")
			return nil, fmt.Errorf("%s on chain %d: %w", name, chainID, err)
		}
	}
	key := handleKey(name, chainID, explicit)

	if h, ok := r.cachedHandle(key, conn); ok {
		return h, nil
	}

	ch := r.inflight.DoChan(key, func() (any, error) {
		return r.resolveHandle(context.WithoutCancel(ctx), key, name, chainID, explicit, conn)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		r.metrics.HandleResolution("failed")
		return nil, res.Err
	}

	h := res.Val.(*Handle)
	if h.conn != conn {
		h = h.withConnection(conn)
	}
	r.metrics.HandleResolution("resolved")
	return h, nil
}

// cachedHandle returns the handle stored under key, rebound to conn if needed.
func (r *Registry) cachedHandle(key string, conn *Connection) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[key]
	if !ok {
		return nil, false
	}
	if h.conn == conn {
		r.metrics.HandleResolution("cached")
		return h, true
	}

	rebound := h.withConnection(conn)
	r.handles[key] = rebound
	r.metrics.HandleResolution("rebound")
	r.log.Debug("Rebound contract handle", zap.String("key", key))
	return rebound, true
}

// resolveHandle builds the handle for key. A zero explicit address means the
// registered deployment address from the metadata.
func (r *Registry) resolveHandle(ctx context.Context, key, name string, chainID uint64, explicit common.Address, conn *Connection) (*Handle, error) {
	rc, err := r.resolveABI(ctx, name, chainID)
	if err != nil {
		return nil, err
	}

	address := explicit
	if address == (common.Address{}) {
		if address, err = parseAddress(rc.metadata.DeployedAddress); err != nil {
			return nil, fmt.Errorf("%s on chain %d: %w", name, chainID, err)
		}
	}
	if isEmptyABI(rc.abi) {
		return nil, fmt.Errorf("%s on chain %d: abi %q has no entries: %w", name, chainID, rc.metadata.AbiID, sdkerr.ErrInvalidAbi)
	}

	h := &Handle{
		name:    name,
		chainID: chainID,
		address: address,
		abi:     rc.abi,
		conn:    conn,
		log:     r.log,
	}

	r.mu.Lock()
	r.handles[key] = h
	r.mu.Unlock()

	r.log.Info("Resolved contract",
		zap.String("name", name),
		zap.Uint64("chain_id", chainID),
		zap.String("address", address.Hex()),
		zap.String("abi_id", rc.metadata.AbiID))
	return h, nil
}

// resolveABI returns the metadata and parsed ABI for name, fetching both on a cache miss.
func (r *Registry) resolveABI(ctx context.Context, name string, chainID uint64) (*resolvedContract, error) {
	return cache.Fetch(ctx, r.store, abiKey(name, chainID), r.abiTTL, func(ctx context.Context) (*resolvedContract, error) {
		md, err := r.source.GetContractMetadata(ctx, name, chainID)
		if err != nil {
			return nil, err
		}
		desc, err := r.source.GetAbiByID(ctx, md.AbiID)
		if err != nil {
			return nil, err
		}
		parsed, err := abi.JSON(bytes.NewReader(desc.ABI))
		if err != nil {
			return nil, fmt.Errorf("failed to parse abi %q: %v: %w", md.AbiID, err, sdkerr.ErrInvalidAbi)
		}
		return &resolvedContract{metadata: *md, abi: &parsed}, nil
	})
}

// IsAbiCached reports whether the ABI for name on network is in the cache. It never fetches.
func (r *Registry) IsAbiCached(name, networkID string) bool {
	chainID, err := r.resolver.Resolve(networkID)
	if err != nil {
		return false
	}
	return r.store.Has(abiKey(name, chainID))
}

// Prefetch resolves the ABIs for names concurrently. The first failure is returned.
func (r *Registry) Prefetch(ctx context.Context, names []string, networkID string) error {
	chainID, err := r.resolver.Resolve(networkID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			if _, err := r.resolveABI(gctx, name, chainID); err != nil {
				return fmt.Errorf("prefetch %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.log.Debug("Prefetched contract ABIs", zap.Strings("names", names), zap.Uint64("chain_id", chainID))
	return nil
}

// ClearCache drops every cached ABI, address and handle. Resolutions already in
// flight are not cancelled and repopulate the cache when they finish.
func (r *Registry) ClearCache() {
	removed := r.store.Invalidate(cache.Key(abiPrefix, ""))
	removed += r.store.Invalidate(cache.Key(addressPrefix, ""))

	r.mu.Lock()
	handles := len(r.handles)
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	r.log.Info("Cleared contract cache", zap.Int("entries", removed), zap.Int("handles", handles))
}

// ResolveAddress returns the registered deployment address of name on network.
func (r *Registry) ResolveAddress(ctx context.Context, name, networkID string) (common.Address, error) {
	chainID, err := r.resolver.Resolve(networkID)
	if err != nil {
		return common.Address{}, err
	}
	raw, err := cache.Fetch(ctx, r.store, addressKey(name, chainID), r.abiTTL, func(ctx context.Context) (string, error) {
		return r.source.GetDeployedAddress(ctx, name, chainID)
	})
	if err != nil {
		return common.Address{}, err
	}
	address, err := parseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s on chain %d: %w", name, chainID, err)
	}
	return address, nil
}

// parseAddress accepts 0x-prefixed or bare 20-byte hex and rejects the zero address.
func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%q is not an account address: %w", raw, sdkerr.ErrInvalidAddress)
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address: %w", sdkerr.ErrInvalidAddress)
	}
	return address, nil
}

func isEmptyABI(parsed *abi.ABI) bool {
	return parsed == nil || len(parsed.Methods)+len(parsed.Events)+len(parsed.Errors) == 0
}
