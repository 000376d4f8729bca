// Package network maps network identifiers to numeric chain ids.
//
// An identifier is either a well-known short name ("sepolia", "ethereum") or a
// raw chain id ("11155111", "0xaa36a7"). Resolution is pure: it performs no I/O
// and always returns the same id for equivalent spellings, so caches key on the
// returned id rather than on the identifier the caller typed.
package network

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

// Well-known chain ids.
const (
	Ethereum        uint64 = 1
	Optimism        uint64 = 10
	Polygon         uint64 = 137
	Base            uint64 = 8453
	Arbitrum        uint64 = 42161
	PolygonAmoy     uint64 = 80002
	BaseSepolia     uint64 = 84532
	ArbitrumSepolia uint64 = 421614
	Sepolia         uint64 = 11155111
	OptimismSepolia uint64 = 11155420
	Holesky         uint64 = 17000
)

var wellKnown = map[string]uint64{
	"ethereum":         Ethereum,
	"mainnet":          Ethereum,
	"eth":              Ethereum,
	"optimism":         Optimism,
	"polygon":          Polygon,
	"matic":            Polygon,
	"base":             Base,
	"arbitrum":         Arbitrum,
	"arbitrum-one":     Arbitrum,
	"amoy":             PolygonAmoy,
	"polygon-amoy":     PolygonAmoy,
	"base-sepolia":     BaseSepolia,
	"arbitrum-sepolia": ArbitrumSepolia,
	"sepolia":          Sepolia,
	"optimism-sepolia": OptimismSepolia,
	"holesky":          Holesky,
}

// Resolver resolves identifiers against the well-known table plus any extra names.
// The zero value is not usable; use NewResolver or Default.
type Resolver struct {
	names map[string]uint64
}

// NewResolver returns a resolver that knows the well-known names and extra.
// Extra names override well-known ones.
func NewResolver(extra map[string]uint64) *Resolver {
	names := make(map[string]uint64, len(wellKnown)+len(extra))
	for name, id := range wellKnown {
		names[name] = id
	}
	for name, id := range extra {
		names[normalize(name)] = id
	}
	return &Resolver{names: names}
}

// Default resolves only the well-known names.
var Default = NewResolver(nil)

// Resolve returns the numeric chain id for identifier.
func (r *Resolver) Resolve(identifier string) (uint64, error) {
	id := normalize(identifier)
	if id == "" {
		return 0, fmt.Errorf("empty network identifier: %w", sdkerr.ErrUnsupportedNetwork)
	}
	if chainID, ok := parseNumeric(id); ok {
		return chainID, nil
	}
	if chainID, ok := r.names[id]; ok {
		return chainID, nil
	}
	return 0, fmt.Errorf("network %q: %w", identifier, sdkerr.ErrUnsupportedNetwork)
}

// Name returns the canonical short name for chainID, or its decimal form when unnamed.
func (r *Resolver) Name(chainID uint64) string {
	var candidates []string
	for name, id := range r.names {
		if id == chainID {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return strconv.FormatUint(chainID, 10)
	}
	// Prefer the longest descriptive alias ("ethereum" over "eth").
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) > len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// Resolve resolves identifier with the Default resolver.
func Resolve(identifier string) (uint64, error) {
	return Default.Resolve(identifier)
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func parseNumeric(id string) (uint64, bool) {
	if strings.HasPrefix(id, "0x") {
		v, err := strconv.ParseUint(id[2:], 16, 64)
		return v, err == nil && v != 0
	}
	v, err := strconv.ParseUint(id, 10, 64)
	return v, err == nil && v != 0
}
