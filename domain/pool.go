package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Protocol identifies the AMM protocol of a pool or route.
type Protocol string

const (
	ProtocolV2    Protocol = "v2"
	ProtocolV3    Protocol = "v3"
	ProtocolV4    Protocol = "v4"
	ProtocolMixed Protocol = "mixed"
)

// ParseProtocols parses a comma-separated protocol list.
func ParseProtocols(s string) ([]Protocol, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	protocols := make([]Protocol, 0, len(parts))
	for _, p := range parts {
		switch Protocol(strings.ToLower(strings.TrimSpace(p))) {
		case ProtocolV2:
			protocols = append(protocols, ProtocolV2)
		case ProtocolV3:
			protocols = append(protocols, ProtocolV3)
		case ProtocolV4:
			protocols = append(protocols, ProtocolV4)
		case ProtocolMixed:
			protocols = append(protocols, ProtocolMixed)
		default:
			return nil, fmt.Errorf("unknown protocol (%s)", p)
		}
	}
	return protocols, nil
}

// HooksOption controls V4 hook filtering during pool discovery.
type HooksOption string

const (
	HooksInclusive HooksOption = "HOOKS_INCLUSIVE"
	HooksOnly      HooksOption = "HOOKS_ONLY"
	NoHooks        HooksOption = "NO_HOOKS"
)

// FakeTickSpacing is the sentinel tick spacing of the synthetic V4
// native/wrapped-native pool inserted during mixed-route enumeration.
// Pools carrying it are stripped from responses.
const FakeTickSpacing int32 = 887273

// Pool is a tagged variant over the supported AMM protocols.
// Token0 and Token1 are ordered such that Token0 < Token1 lexicographically
// over the lowercase hex form. Protocol selects which extension fields are
// meaningful.
type Pool struct {
	Protocol Protocol       `json:"protocol"`
	Address  common.Address `json:"address"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`

	// V2 extension.
	Reserve0 *uint256.Int `json:"reserve0,omitempty"`
	Reserve1 *uint256.Int `json:"reserve1,omitempty"`

	// V3/V4 extension.
	Fee          uint32       `json:"fee,omitempty"`
	Liquidity    *uint256.Int `json:"liquidity,omitempty"`
	SqrtPriceX96 *uint256.Int `json:"sqrtPriceX96,omitempty"`
	TickCurrent  int32        `json:"tickCurrent,omitempty"`

	// V4 extension.
	TickSpacing int32          `json:"tickSpacing,omitempty"`
	Hooks       common.Address `json:"hooks,omitempty"`
	PoolID      common.Hash    `json:"poolId,omitempty"`
}

// HasToken returns true if the pool contains the given token.
func (p Pool) HasToken(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// OtherToken returns the counterpart token of the given one. The second
// return is false if the token is not in the pool. Note the zero address is
// a legitimate token for V4 native-currency pools.
func (p Pool) OtherToken(token common.Address) (common.Address, bool) {
	switch token {
	case p.Token0:
		return p.Token1, true
	case p.Token1:
		return p.Token0, true
	default:
		return common.Address{}, false
	}
}

// HasHooks returns true for V4 pools with a non-zero hooks address.
func (p Pool) HasHooks() bool {
	return p.Hooks != (common.Address{})
}

// IsSynthetic reports whether the pool is the fake native/wrapped connector
// inserted during mixed-route search.
func (p Pool) IsSynthetic() bool {
	return p.Protocol == ProtocolV4 && p.TickSpacing == FakeTickSpacing
}

// Key returns the canonical identity of the pool used for conflict
// detection and dedup: the lowercase address, or the pool ID for V4.
func (p Pool) Key() string {
	if p.Protocol == ProtocolV4 {
		return strings.ToLower(p.PoolID.Hex())
	}
	return strings.ToLower(p.Address.Hex())
}

// Validate checks the structural pool invariants.
func (p Pool) Validate() error {
	if strings.ToLower(p.Token0.Hex()) >= strings.ToLower(p.Token1.Hex()) {
		return PoolTokenOrderError{Token0: p.Token0, Token1: p.Token1}
	}

	switch p.Protocol {
	case ProtocolV2:
		if p.Reserve0 == nil || p.Reserve1 == nil {
			return fmt.Errorf("v2 pool (%s) is missing reserves", p.Address)
		}
	case ProtocolV3:
		// Nil liquidity means not yet observed (synthesised direct pools);
		// observed zero liquidity is unroutable.
		if p.Liquidity != nil && p.Liquidity.IsZero() {
			return PoolNoLiquidityError{Address: p.Address}
		}
	case ProtocolV4:
		if p.Liquidity != nil && p.Liquidity.IsZero() && !p.HasHooks() {
			return PoolNoLiquidityError{Address: p.Address}
		}
	default:
		return fmt.Errorf("pool (%s) has invalid protocol (%s)", p.Address, p.Protocol)
	}

	return nil
}

// PoolInfo is the cached projection of a pool used during discovery and
// top-pool selection. It is immutable once read; freshness of the chosen
// final routes is handled separately.
type PoolInfo struct {
	Pool

	// TVLETH and TVLUSD are the approximate pool TVL used for ranking.
	TVLETH float64 `json:"tvlEth"`
	TVLUSD float64 `json:"tvlUsd"`
}

// SortPoolsByTVLDesc sorts the pools by USD TVL, deepest first.
// The sort is stable so equal-TVL pools keep their discovery order.
func SortPoolsByTVLDesc(pools []PoolInfo) {
	sort.SliceStable(pools, func(i, j int) bool {
		return pools[i].TVLUSD > pools[j].TVLUSD
	})
}

// FilterPoolsByHooks applies the V4 hook filtering policy. Non-V4 pools
// pass through untouched.
func FilterPoolsByHooks(pools []PoolInfo, opt HooksOption) []PoolInfo {
	if opt == HooksInclusive || opt == "" {
		return pools
	}

	filtered := make([]PoolInfo, 0, len(pools))
	for _, p := range pools {
		if p.Protocol != ProtocolV4 {
			filtered = append(filtered, p)
			continue
		}
		switch opt {
		case HooksOnly:
			if p.HasHooks() {
				filtered = append(filtered, p)
			}
		case NoHooks:
			if !p.HasHooks() {
				filtered = append(filtered, p)
			}
		}
	}
	return filtered
}

// TokenPoolIndex maps each token to the indices of pools containing it.
// Built once per request to keep selection linear in the pool count.
type TokenPoolIndex map[common.Address][]int

// BuildTokenPoolIndex indexes the given pools by token.
func BuildTokenPoolIndex(pools []PoolInfo) TokenPoolIndex {
	index := make(TokenPoolIndex, len(pools)*2)
	for i, p := range pools {
		index[p.Token0] = append(index[p.Token0], i)
		index[p.Token1] = append(index[p.Token1], i)
	}
	return index
}

// OrderTokens returns the two addresses in canonical pool order.
func OrderTokens(a, b common.Address) (common.Address, common.Address) {
	if strings.ToLower(a.Hex()) < strings.ToLower(b.Hex()) {
		return a, b
	}
	return b, a
}
