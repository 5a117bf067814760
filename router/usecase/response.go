package usecase

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/uniroute/uniroute/domain"
)

// assembleResponse renders the winning split into the wire shape.
func (r *routerUseCaseImpl) assembleResponse(state *requestState, winner domain.QuoteSplit, params *domain.MethodParameters, simStatus domain.SimulationStatus, simDescription string) (*domain.QuoteResponse, error) {
	quoteAmount := winner.TotalAmount(state.req.TradeType)
	gasAdjusted := GasAdjustedAmount(winner, state.req.TradeType)

	var totalGasUse uint64
	totalGasQuote := new(big.Int)
	var totalGasUSD float64
	for _, q := range winner.Quotes {
		if q.Gas == nil {
			continue
		}
		totalGasUse += q.Gas.GasUse
		if q.Gas.GasCostQuoteToken != nil {
			totalGasQuote.Add(totalGasQuote, q.Gas.GasCostQuoteToken)
		}
		totalGasUSD += q.Gas.GasCostUSD
	}

	// Portion arithmetic: on EXACT_IN the routed quote is untouched and the
	// portion is subtracted from the reported final output.
	portionAmount := new(big.Int)
	reportedQuote := new(big.Int).Set(quoteAmount)
	if state.req.PortionBips > 0 && state.req.TradeType == domain.ExactIn {
		portionAmount.Mul(quoteAmount, big.NewInt(int64(state.req.PortionBips)))
		portionAmount.Div(portionAmount, big.NewInt(10000))
		reportedQuote.Sub(reportedQuote, portionAmount)
	}

	legs, routeStrings := r.renderLegs(state, winner, portionAmount)

	response := &domain.QuoteResponse{
		QuoteAmount:         reportedQuote.String(),
		QuoteGasAdjusted:    gasAdjusted.String(),
		GasUseEstimate:      strconv.FormatUint(totalGasUse, 10),
		GasUseEstimateQuote: totalGasQuote.String(),
		GasUseEstimateUSD:   fmt.Sprintf("%.6f", totalGasUSD),
		RouteString:         strings.Join(routeStrings, ", "),
		Route:               legs,
		HitsCachedRoutes:    state.hitsCache,
		SimulationStatus:    simStatus,
		SimulationError:     simStatus == domain.SimulationFailed,
		SimulationDescription: simDescription,
		PriceImpact:         clampPriceImpact(r.priceImpact(state, winner)),
		QuoteID:             state.req.RequestID,
		USDBucket:           string(state.bucket),
	}

	if state.gasPriceWei != nil {
		response.GasPriceWei = state.gasPriceWei.Dec()
	} else {
		response.GasPriceWei = "0"
	}

	if state.blockNumber > 0 {
		response.BlockNumber = strconv.FormatUint(state.blockNumber, 10)
	}

	if state.req.PortionBips > 0 && state.req.TradeType == domain.ExactIn {
		response.PortionAmount = portionAmount.String()
	}

	if params != nil {
		response.MethodParameters = &domain.MethodParametersResponse{
			To:       params.To.Hex(),
			Calldata: hexutil.Encode(params.Calldata),
			Value:    params.Value.String(),
		}
	}

	return response, nil
}

// renderLegs projects each leg of the split into oriented PoolInRoute
// descriptors, stripping synthetic pools. AmountIn populates only on the
// first pool of a leg; AmountOut only on the last, net of the portion fee
// on the split's final leg.
func (r *routerUseCaseImpl) renderLegs(state *requestState, winner domain.QuoteSplit, portionAmount *big.Int) ([][]domain.PoolInRoute, []string) {
	legs := make([][]domain.PoolInRoute, 0, len(winner.Quotes))
	routeStrings := make([]string, 0, len(winner.Quotes))

	for legIdx, q := range winner.Quotes {
		pools := make([]domain.Pool, 0, len(q.Route.Pools))
		for _, p := range q.Route.Pools {
			if p.IsSynthetic() {
				continue
			}
			pools = append(pools, p)
		}
		if len(pools) == 0 {
			continue
		}

		current := r.legEntryToken(state, pools, q.Route)
		legPools := make([]domain.PoolInRoute, 0, len(pools))

		for i, p := range pools {
			next, ok := p.OtherToken(current)
			if !ok {
				// The synthetic hop changed the native form mid-path.
				if p.HasToken(state.chain.WrappedNative) {
					current = state.chain.WrappedNative
				} else {
					current = domain.NativeAddress
				}
				next, _ = p.OtherToken(current)
			}

			entry := r.poolInRoute(state, p, current, next)
			if i == 0 && q.AmountIn != nil {
				entry.AmountIn = q.AmountIn.String()
			}
			if i == len(pools)-1 && q.AmountOut != nil {
				amountOut := new(big.Int).Set(q.AmountOut)
				if legIdx == len(winner.Quotes)-1 && portionAmount.Sign() > 0 {
					amountOut.Sub(amountOut, portionAmount)
				}
				entry.AmountOut = amountOut.String()
			}
			legPools = append(legPools, entry)

			current = next
		}

		legs = append(legs, legPools)
		routeStrings = append(routeStrings, q.Route.String())
	}

	return legs, routeStrings
}

// legEntryToken resolves which form of the input token enters the leg's
// first pool. When the caller's token in is native or wrapped native and
// the leg has more than one pool, the ambiguity between native and wrapped
// resolves by inspecting which of the first pool's tokens chains into the
// second pool.
func (r *routerUseCaseImpl) legEntryToken(state *requestState, pools []domain.Pool, route domain.Route) common.Address {
	tokenIn := state.req.TokenIn
	if !state.chain.IsNativeOrWrapped(tokenIn) {
		return tokenIn
	}

	first := pools[0]
	if len(pools) > 1 {
		second := pools[1]
		for _, candidate := range []common.Address{first.Token0, first.Token1} {
			if !second.HasToken(candidate) {
				// The token not shared with the second pool must be the
				// entry side.
				if state.chain.IsNativeOrWrapped(candidate) || candidate == state.chain.WrapIfNative(tokenIn) {
					return candidate
				}
			}
		}
	}

	if first.HasToken(domain.NativeAddress) && state.req.TokenInIsETH {
		return domain.NativeAddress
	}
	return state.chain.WrappedNative
}

func (r *routerUseCaseImpl) poolInRoute(state *requestState, p domain.Pool, tokenIn, tokenOut common.Address) domain.PoolInRoute {
	entry := domain.PoolInRoute{
		Type:     string(p.Protocol) + "-pool",
		Address:  strings.ToLower(p.Address.Hex()),
		TokenIn:  r.tokenInRoute(state, tokenIn),
		TokenOut: r.tokenInRoute(state, tokenOut),
	}

	switch p.Protocol {
	case domain.ProtocolV2:
		if p.Reserve0 != nil {
			entry.Reserve0 = p.Reserve0.Dec()
		}
		if p.Reserve1 != nil {
			entry.Reserve1 = p.Reserve1.Dec()
		}
	default:
		if p.Liquidity != nil {
			entry.Liquidity = p.Liquidity.Dec()
		}
		entry.Fee = strconv.FormatUint(uint64(p.Fee), 10)
		entry.TickCurrent = strconv.FormatInt(int64(p.TickCurrent), 10)
		if p.SqrtPriceX96 != nil {
			entry.SqrtPriceX96 = p.SqrtPriceX96.Dec()
			entry.SqrtRatioX96 = p.SqrtPriceX96.Dec()
		}
		if p.Protocol == domain.ProtocolV4 {
			entry.TickSpacing = strconv.FormatInt(int64(p.TickSpacing), 10)
			entry.Hooks = strings.ToLower(p.Hooks.Hex())
			entry.Address = strings.ToLower(p.PoolID.Hex())
		}
	}

	return entry
}

// tokenInRoute fills token metadata from the endpoint lookups when the
// address matches; intermediate hop tokens carry address-only descriptors.
func (r *routerUseCaseImpl) tokenInRoute(state *requestState, addr common.Address) domain.TokenInRoute {
	entry := domain.TokenInRoute{
		Address: strings.ToLower(addr.Hex()),
		ChainID: uint64(state.req.ChainID),
	}

	for _, known := range []domain.TokenInfo{state.tokenIn, state.tokenOut} {
		if known.Address == addr {
			entry.Symbol = known.Symbol
			entry.Decimals = known.Decimals
			entry.BuyFeeBps = known.BuyFeeBps
			entry.SellFeeBps = known.SellFeeBps
			return entry
		}
	}

	if addr == state.chain.WrappedNative {
		entry.Symbol = "WETH"
		entry.Decimals = 18
	}
	if domain.IsNative(addr) {
		entry.Symbol = "ETH"
		entry.Decimals = 18
	}

	return entry
}

// priceImpact estimates the relative difference between the execution
// price and the pools' mid price, in percent. Legs without observable mid
// prices contribute nothing.
func (r *routerUseCaseImpl) priceImpact(state *requestState, winner domain.QuoteSplit) float64 {
	totalIn := new(big.Float)
	totalMidOut := new(big.Float)
	totalOut := new(big.Float)

	for _, q := range winner.Quotes {
		if q.AmountIn == nil || q.AmountOut == nil {
			continue
		}
		midOut, ok := midPriceOutput(state.chain, q.Route, q.AmountIn)
		if !ok {
			continue
		}
		totalIn.Add(totalIn, new(big.Float).SetInt(q.AmountIn))
		totalMidOut.Add(totalMidOut, midOut)
		totalOut.Add(totalOut, new(big.Float).SetInt(q.AmountOut))
	}

	if totalMidOut.Sign() == 0 {
		return 0
	}

	impact := new(big.Float).Sub(totalMidOut, totalOut)
	impact.Quo(impact, totalMidOut)
	result, _ := impact.Float64()
	return result * 100
}

// midPriceOutput walks the route multiplying per-pool mid prices.
func midPriceOutput(chain domain.ChainInfo, route domain.Route, amountIn *big.Int) (*big.Float, bool) {
	amount := new(big.Float).SetInt(amountIn)
	current := chain.WrapIfNative(route.TokenIn)
	if len(route.Pools) > 0 && !route.Pools[0].HasToken(current) && route.Pools[0].HasToken(domain.NativeAddress) {
		current = domain.NativeAddress
	}

	for _, p := range route.Pools {
		if p.IsSynthetic() {
			// ETH <-> WETH converts 1:1.
			if next, ok := p.OtherToken(current); ok {
				current = next
			}
			continue
		}

		next, ok := p.OtherToken(current)
		if !ok {
			return nil, false
		}

		price, ok := poolMidPrice(p, current)
		if !ok {
			return nil, false
		}
		amount.Mul(amount, price)
		current = next
	}

	return amount, true
}

// poolMidPrice returns the mid price of the pool quoting tokenIn into the
// counterpart token.
func poolMidPrice(p domain.Pool, tokenIn common.Address) (*big.Float, bool) {
	switch p.Protocol {
	case domain.ProtocolV2:
		if p.Reserve0 == nil || p.Reserve1 == nil || p.Reserve0.IsZero() || p.Reserve1.IsZero() {
			return nil, false
		}
		r0 := new(big.Float).SetInt(p.Reserve0.ToBig())
		r1 := new(big.Float).SetInt(p.Reserve1.ToBig())
		if tokenIn == p.Token0 {
			return new(big.Float).Quo(r1, r0), true
		}
		return new(big.Float).Quo(r0, r1), true
	default:
		if p.SqrtPriceX96 == nil || p.SqrtPriceX96.IsZero() {
			return nil, false
		}
		sqrt := new(big.Float).SetInt(p.SqrtPriceX96.ToBig())
		q96 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
		ratio := new(big.Float).Quo(sqrt, q96)
		price := new(big.Float).Mul(ratio, ratio)
		if tokenIn == p.Token0 {
			return price, true
		}
		one := big.NewFloat(1)
		return new(big.Float).Quo(one, price), true
	}
}

// clampPriceImpact bounds the reported impact to [-100, 100].
func clampPriceImpact(impact float64) string {
	if impact > 100 {
		impact = 100
	}
	if impact < -100 {
		impact = -100
	}
	return strconv.FormatFloat(impact, 'f', 4, 64)
}
