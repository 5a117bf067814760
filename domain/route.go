package domain

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TradeType is the trade direction: amount fixed on input or on output.
type TradeType string

const (
	ExactIn  TradeType = "EXACT_IN"
	ExactOut TradeType = "EXACT_OUT"
)

// ParseTradeType parses the wire form of a trade type.
func ParseTradeType(s string) (TradeType, error) {
	switch TradeType(strings.ToUpper(s)) {
	case ExactIn:
		return ExactIn, nil
	case ExactOut:
		return ExactOut, nil
	default:
		return "", fmt.Errorf("unknown trade type (%s)", s)
	}
}

// QuoteType selects between the cached fast path and a fresh search.
type QuoteType string

const (
	QuoteFast  QuoteType = "FAST"
	QuoteFresh QuoteType = "FRESH"
)

// Route is an ordered list of pools whose tokens chain end-to-end from
// TokenIn to TokenOut. Percentage is the share of the trade assigned to the
// route during split search.
type Route struct {
	Pools      []Pool   `json:"pools"`
	Protocol   Protocol `json:"protocol"`
	Percentage int      `json:"percentage"`

	TokenIn  common.Address `json:"tokenIn"`
	TokenOut common.Address `json:"tokenOut"`
}

// Hops returns the pool count of the route.
func (r Route) Hops() int {
	return len(r.Pools)
}

// ContainsPoolKey returns true if any pool in the route has the given key.
func (r Route) ContainsPoolKey(key string) bool {
	for _, p := range r.Pools {
		if p.Key() == key {
			return true
		}
	}
	return false
}

// PoolKeys returns the identity keys of all pools on the route.
func (r Route) PoolKeys() []string {
	keys := make([]string, 0, len(r.Pools))
	for _, p := range r.Pools {
		keys = append(keys, p.Key())
	}
	return keys
}

// TouchesNative reports whether either endpoint is the native currency.
func (r Route) TouchesNative() bool {
	return IsNative(r.TokenIn) || IsNative(r.TokenOut)
}

// TouchesWrappedNative reports whether either endpoint is the chain's
// wrapped native token.
func (r Route) TouchesWrappedNative(chain ChainInfo) bool {
	return r.TokenIn == chain.WrappedNative || r.TokenOut == chain.WrappedNative
}

// DistinctProtocols returns the set of protocols on the route, ignoring the
// synthetic native/wrapped connector.
func (r Route) DistinctProtocols() []Protocol {
	seen := make(map[Protocol]struct{}, 2)
	protocols := make([]Protocol, 0, 2)
	for _, p := range r.Pools {
		if p.IsSynthetic() {
			continue
		}
		if _, ok := seen[p.Protocol]; !ok {
			seen[p.Protocol] = struct{}{}
			protocols = append(protocols, p.Protocol)
		}
	}
	return protocols
}

// IsMixed reports whether the route spans more than one protocol.
func (r Route) IsMixed() bool {
	return len(r.DistinctProtocols()) > 1
}

// String renders the route in the debug form
// tokenIn -> protocol(poolKey) -> ... -> tokenOut, followed by " [N%]" when
// the route carries a percentage strictly between 0 and 100.
func (r Route) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(r.TokenIn.Hex()))
	for _, p := range r.Pools {
		sb.WriteString(" -> ")
		sb.WriteString(string(p.Protocol))
		sb.WriteString("(")
		sb.WriteString(p.Key())
		sb.WriteString(")")
	}
	sb.WriteString(" -> ")
	sb.WriteString(strings.ToLower(r.TokenOut.Hex()))
	if r.Percentage > 0 && r.Percentage < 100 {
		sb.WriteString(fmt.Sprintf(" [%d%%]", r.Percentage))
	}
	return sb.String()
}

// GasDetails carries the gas model output for a single route.
type GasDetails struct {
	GasPriceWei *uint256.Int `json:"gasPriceWei"`
	GasCostWei  *big.Int     `json:"gasCostWei"`
	GasUse      uint64       `json:"gasUse"`
	GasCostETH  float64      `json:"gasCostEth"`

	// Populated by the gas converter.
	GasCostQuoteToken *big.Int `json:"gasCostQuoteToken,omitempty"`
	GasCostUSD        float64  `json:"gasCostUsd,omitempty"`
}

// Combine sums the execution and L1 components of a gas estimate under a
// shared gas price.
func (g GasDetails) Combine(other GasDetails) GasDetails {
	combined := GasDetails{
		GasPriceWei: g.GasPriceWei,
		GasUse:      g.GasUse + other.GasUse,
		GasCostETH:  g.GasCostETH + other.GasCostETH,
		GasCostWei:  new(big.Int),
	}
	if g.GasCostWei != nil {
		combined.GasCostWei.Add(combined.GasCostWei, g.GasCostWei)
	}
	if other.GasCostWei != nil {
		combined.GasCostWei.Add(combined.GasCostWei, other.GasCostWei)
	}
	return combined
}

// Quote is a priced route: the output amount for a specific input amount at
// the route's percentage, plus optional gas details and the opaque
// per-protocol quoter payload.
type Quote struct {
	Route     Route    `json:"route"`
	AmountIn  *big.Int `json:"amountIn"`
	AmountOut *big.Int `json:"amountOut"`

	Gas *GasDetails `json:"gas,omitempty"`

	// TicksCrossed lists, per V3/V4 hop, the initialised ticks crossed as
	// reported by the quoter.
	TicksCrossed []uint32 `json:"ticksCrossed,omitempty"`

	// QuoterPayload is the raw per-protocol quoter response.
	QuoterPayload []byte `json:"-"`
}

// AmountForTradeType returns the amount that ranking orders by: the output
// for EXACT_IN, the input for EXACT_OUT.
func (q Quote) AmountForTradeType(tradeType TradeType) *big.Int {
	if tradeType == ExactOut {
		return q.AmountIn
	}
	return q.AmountOut
}

// QuoteSplit is an ordered set of quotes whose route percentages sum to
// exactly 100.
type QuoteSplit struct {
	Quotes []Quote `json:"quotes"`
}

// TotalAmount sums the ranking amount over all legs.
func (s QuoteSplit) TotalAmount(tradeType TradeType) *big.Int {
	total := new(big.Int)
	for _, q := range s.Quotes {
		total.Add(total, q.AmountForTradeType(tradeType))
	}
	return total
}

// TotalPercentage sums the leg percentages.
func (s QuoteSplit) TotalPercentage() int {
	total := 0
	for _, q := range s.Quotes {
		total += q.Route.Percentage
	}
	return total
}

// Key returns a canonical dedup key over the split's (pools, percentage)
// legs, independent of leg order.
func (s QuoteSplit) Key() string {
	legs := make([]string, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		legs = append(legs, fmt.Sprintf("%s:%d", strings.Join(q.Route.PoolKeys(), "/"), q.Route.Percentage))
	}
	sort.Strings(legs)
	return strings.Join(legs, "|")
}

// Validate checks the split invariants: percentages sum to 100, every
// percentage is positive, no pool is shared between legs, and native and
// wrapped-native endpoint routes are not combined.
func (s QuoteSplit) Validate(chain ChainInfo) error {
	if s.TotalPercentage() != 100 {
		return fmt.Errorf("split percentages sum to %d, must be 100", s.TotalPercentage())
	}

	seenPools := make(map[string]struct{})
	touchesNative := false
	touchesWrapped := false
	for _, q := range s.Quotes {
		if q.Route.Percentage <= 0 {
			return fmt.Errorf("split leg has non-positive percentage (%d)", q.Route.Percentage)
		}
		for _, key := range q.Route.PoolKeys() {
			if _, ok := seenPools[key]; ok {
				return fmt.Errorf("split legs share pool (%s)", key)
			}
			seenPools[key] = struct{}{}
		}
		if q.Route.TouchesNative() {
			touchesNative = true
		}
		if q.Route.TouchesWrappedNative(chain) {
			touchesWrapped = true
		}
	}
	if touchesNative && touchesWrapped {
		return fmt.Errorf("split combines native and wrapped-native endpoint routes")
	}

	return nil
}

// MethodParameters is the calldata bundle ready for submission.
type MethodParameters struct {
	To       common.Address `json:"to"`
	Calldata []byte         `json:"calldata"`
	Value    *big.Int       `json:"value"`
}

// SimulationStatus reports the outcome of transaction simulation for the
// returned plan.
type SimulationStatus string

const (
	SimulationSucceeded   SimulationStatus = "SUCCEEDED"
	SimulationFailed      SimulationStatus = "FAILED"
	SimulationUnattempted SimulationStatus = "UNATTEMPTED"
)
