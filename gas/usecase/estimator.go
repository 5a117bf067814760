package usecase

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// gasEstimator computes per-route execution gas from the closed-form
// formulas and adds the rollup L1 data component where applicable.
type gasEstimator struct {
	config domain.GasConfig
	l1     *l1GasEstimator
	logger log.Logger
}

var _ mvc.GasEstimator = &gasEstimator{}

// NewGasEstimator creates the two-part estimator. The L1 clients may be
// nil, in which case the respective rollup component contributes zero.
func NewGasEstimator(config domain.GasConfig, opStack OPStackGasOracle, arbitrum ArbGasInfoReader, logger log.Logger) mvc.GasEstimator {
	return &gasEstimator{
		config: config,
		l1:     newL1GasEstimator(config, opStack, arbitrum, logger),
		logger: logger,
	}
}

func (e *gasEstimator) EstimateRouteGas(ctx context.Context, chain domain.ChainInfo, quote domain.Quote, gasPriceWei *uint256.Int) (domain.GasDetails, error) {
	gasUse := RouteGasUse(chain, quote)

	details := newGasDetails(gasUse, gasPriceWei)

	// L1 data gas on rollups. Failures yield a zero contribution, never a
	// failed estimate.
	if l1Details, ok := e.l1.estimate(ctx, chain, quote, gasPriceWei); ok {
		details = details.Combine(l1Details)
	}

	return details, nil
}

// RouteGasUse evaluates the closed-form execution gas formula for the
// route. Mixed routes partition into maximal monoprotocol runs, each run
// priced by its own formula.
func RouteGasUse(chain domain.ChainInfo, quote domain.Quote) uint64 {
	route := quote.Route

	if route.IsMixed() {
		var total uint64
		for _, run := range monoprotocolRuns(route, quote.TicksCrossed) {
			runQuote := quote
			runQuote.Route = run.route
			runQuote.TicksCrossed = run.ticksCrossed
			total += RouteGasUse(chain, runQuote)
		}
		return total
	}

	hops := realHops(route)
	if hops == 0 {
		return 0
	}

	switch route.Pools[firstRealPool(route)].Protocol {
	case domain.ProtocolV2:
		return baseSwapCostV2 + costPerExtraHopV2*uint64(hops-1)
	default:
		gas := baseSwapCost(chain) + costPerHop*uint64(hops)
		if hops == 1 {
			gas += singleHopOverhead
		}
		for _, crossed := range quote.TicksCrossed {
			if crossed > 1 {
				gas += costPerInitializedTick * uint64(crossed-1)
			}
		}
		gas += tokenOverhead(chain, route)
		return gas
	}
}

type protocolRun struct {
	route        domain.Route
	ticksCrossed []uint32
}

// monoprotocolRuns splits a mixed route's path into maximal runs of one
// protocol, distributing the per-hop tick counts to their runs. The tick
// list covers the route's V3/V4 hops in path order. Synthetic connector
// pools belong to no run.
func monoprotocolRuns(route domain.Route, ticksCrossed []uint32) []protocolRun {
	var runs []protocolRun
	var current []domain.Pool
	var currentTicks []uint32
	var currentProtocol domain.Protocol

	flush := func() {
		if len(current) == 0 {
			return
		}
		runs = append(runs, protocolRun{
			route:        domain.Route{Pools: current, Percentage: route.Percentage},
			ticksCrossed: currentTicks,
		})
		current = nil
		currentTicks = nil
	}

	tickIdx := 0
	for _, p := range route.Pools {
		if p.IsSynthetic() {
			continue
		}
		if len(current) > 0 && p.Protocol != currentProtocol {
			flush()
		}
		currentProtocol = p.Protocol
		current = append(current, p)
		if p.Protocol != domain.ProtocolV2 {
			if tickIdx < len(ticksCrossed) {
				currentTicks = append(currentTicks, ticksCrossed[tickIdx])
			}
			tickIdx++
		}
	}
	flush()

	return runs
}

func realHops(route domain.Route) int {
	hops := 0
	for _, p := range route.Pools {
		if !p.IsSynthetic() {
			hops++
		}
	}
	return hops
}

func firstRealPool(route domain.Route) int {
	for i, p := range route.Pools {
		if !p.IsSynthetic() {
			return i
		}
	}
	return 0
}

// newGasDetails prices a gas amount at the given gas price.
func newGasDetails(gasUse uint64, gasPriceWei *uint256.Int) domain.GasDetails {
	price := new(big.Int)
	if gasPriceWei != nil {
		price = gasPriceWei.ToBig()
	}

	costWei := new(big.Int).Mul(price, new(big.Int).SetUint64(gasUse))
	costETH, _ := new(big.Float).Quo(new(big.Float).SetInt(costWei), big.NewFloat(1e18)).Float64()

	return domain.GasDetails{
		GasPriceWei: gasPriceWei,
		GasUse:      gasUse,
		GasCostWei:  costWei,
		GasCostETH:  costETH,
	}
}

// logEstimateError is shared by the L1 estimators.
func logEstimateError(logger log.Logger, component string, err error) {
	domain.UniRouteL1GasErrorCounter.Inc()
	logger.Warn("l1 gas estimation failed, contributing zero",
		zap.String("component", component), zap.Error(err))
}
