package contracts

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/fixtures"
)

type TokenStandard string

const (
	ERC721  TokenStandard = "ERC721"
	ERC1155 TokenStandard = "ERC1155"
	Unknown TokenStandard = "unknown"
)

var erc165ABI = func() *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(fixtures.ERC165ABI))
	if err != nil {
		panic(err)
	}
	return &parsed
}()

type tokenProbe struct {
	interfaceID [4]byte
	standard    TokenStandard
}

// tokenProbes are tried in order; the first supported interface wins.
var tokenProbes = []tokenProbe{
	{interfaceID: [4]byte{0x80, 0xac, 0x58, 0xcd}, standard: ERC721},
	{interfaceID: [4]byte{0xd9, 0xb6, 0x7a, 0x26}, standard: ERC1155},
}

// ResolveTokenStandard detects whether address is an ERC-721 or ERC-1155
// collection through ERC-165 supportsInterface. Any probe failure, including a
// target without supportsInterface, counts as not supported; when no probe
// succeeds the result is Unknown.
func (r *Registry) ResolveTokenStandard(ctx context.Context, address string, conn *Connection) TokenStandard {
	standard := r.probeTokenStandard(ctx, address, conn)
	r.metrics.TokenProbe(string(standard))
	return standard
}

func (r *Registry) probeTokenStandard(ctx context.Context, address string, conn *Connection) TokenStandard {
	target, err := parseAddress(address)
	if err != nil {
		r.log.Debug("Token standard probe skipped", zap.String("address", address), zap.Error(err))
		return Unknown
	}

	h := &Handle{name: "ERC165", address: target, abi: erc165ABI, conn: conn}
	for _, probe := range tokenProbes {
		var supported bool
		if err := h.CallInto(ctx, &supported, "supportsInterface", probe.interfaceID); err != nil {
			r.log.Debug("Token standard probe failed",
				zap.String("address", target.Hex()),
				zap.String("standard", string(probe.standard)),
				zap.Error(err))
			continue
		}
		if supported {
			return probe.standard
		}
	}
	return Unknown
}
