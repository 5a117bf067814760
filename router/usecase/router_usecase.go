package usecase

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/domain/workerpool"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/router/usecase/route"
)

// routerUseCaseImpl sequences the quote pipeline: validation, token and
// chain lookups, cache consultation, pool discovery, route enumeration,
// sub-route pricing, gas modelling, split composition, ranking,
// simulation, and response assembly.
type routerUseCaseImpl struct {
	config domain.Config

	poolDiscoverer   mvc.PoolDiscoverer
	topPoolsSelector mvc.TopPoolsSelector
	routeFinder      *RouteFinder
	splitFinder      *SplitFinder
	quoteSelector    mvc.QuoteSelector

	quoteFetcher mvc.QuoteFetcher
	gasEstimator mvc.GasEstimator
	gasConverter mvc.GasConverter

	tokenProvider mvc.TokenProvider
	chainRepo     mvc.ChainRepository

	cachedRoutes mvc.CachedRoutesRepository

	calldataBuilder mvc.CalldataBuilder
	simulator       mvc.Simulator
	freshDetails    mvc.FreshPoolDetails

	logger log.Logger
}

var _ mvc.RouterUsecase = &routerUseCaseImpl{}
var _ mvc.RouteRefresher = &routerUseCaseImpl{}

// NewRouterUsecase wires the pipeline.
func NewRouterUsecase(
	config domain.Config,
	poolDiscoverer mvc.PoolDiscoverer,
	topPoolsSelector mvc.TopPoolsSelector,
	quoteFetcher mvc.QuoteFetcher,
	gasEstimator mvc.GasEstimator,
	gasConverter mvc.GasConverter,
	tokenProvider mvc.TokenProvider,
	chainRepo mvc.ChainRepository,
	cachedRoutes mvc.CachedRoutesRepository,
	calldataBuilder mvc.CalldataBuilder,
	simulator mvc.Simulator,
	freshDetails mvc.FreshPoolDetails,
	logger log.Logger,
) (mvc.RouterUsecase, error) {
	splitFinder, err := NewSplitFinder(*config.Router, logger)
	if err != nil {
		return nil, err
	}

	return &routerUseCaseImpl{
		config:           config,
		poolDiscoverer:   poolDiscoverer,
		topPoolsSelector: topPoolsSelector,
		routeFinder:      NewRouteFinder(*config.Router, logger),
		splitFinder:      splitFinder,
		quoteSelector:    NewQuoteSelector(logger),
		quoteFetcher:     quoteFetcher,
		gasEstimator:     gasEstimator,
		gasConverter:     gasConverter,
		tokenProvider:    tokenProvider,
		chainRepo:        chainRepo,
		cachedRoutes:     cachedRoutes,
		calldataBuilder:  calldataBuilder,
		simulator:        simulator,
		freshDetails:     freshDetails,
		logger:           logger,
	}, nil
}

// requestState accumulates the per-request working set of the pipeline.
type requestState struct {
	req   domain.QuoteRequest
	chain domain.ChainInfo

	tokenIn  domain.TokenInfo
	tokenOut domain.TokenInfo

	// routedAmount is the request amount after portion pre-inflation.
	routedAmount *big.Int

	gasPriceWei *uint256.Int
	blockNumber uint64

	bucket     domain.USDBucket
	fineBucket string
	cacheKey   string

	pools     []domain.PoolInfo
	hitsCache bool
}

func (r *routerUseCaseImpl) GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResponse, error) {
	chain, err := domain.GetChainInfo(req.ChainID)
	if err != nil {
		return nil, domain.ValidationError{Message: err.Error()}
	}

	state := &requestState{req: req, chain: chain}

	// Concurrent lookups: per-token metadata, block number when the
	// response demands it, and the current gas price.
	if err := r.lookupRequestState(ctx, state); err != nil {
		return nil, err
	}

	// Fee-on-transfer tokens are supported on V2 only.
	if state.tokenIn.IsFeeOnTransfer() || state.tokenOut.IsFeeOnTransfer() {
		state.req.Protocols = []domain.Protocol{domain.ProtocolV2}
	}

	// On EXACT_OUT a portion fee pre-inflates the requested amount so the
	// recipient still receives the full requested output.
	state.routedAmount = new(big.Int).Set(req.Amount)
	if req.TradeType == domain.ExactOut && req.PortionBips > 0 {
		inflated := new(big.Int).Mul(state.routedAmount, big.NewInt(int64(10000+req.PortionBips)))
		state.routedAmount = inflated.Div(inflated, big.NewInt(10000))
	}

	r.quantiseAmount(state)

	routes, err := r.resolveRoutes(ctx, state)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, domain.ErrNoRoutes
	}

	splits, err := r.runQuoteStrategy(ctx, state, routes)
	if err != nil {
		return nil, err
	}
	if len(splits) == 0 {
		return nil, domain.ErrNoRoutes
	}

	// Gas conversion on all candidates, then rank and keep the top N.
	for i := range splits {
		for j := range splits[i].Quotes {
			if err := r.gasConverter.ConvertGas(ctx, chain, state.tokenOut, state.pools, splits[i].Quotes[j].Gas); err != nil {
				r.logger.Warn("gas conversion error", zap.Error(err))
			}
		}
	}
	topN := r.config.Router.TopQuotesToSimulate
	candidates := r.quoteSelector.SelectBest(splits, req.TradeType, topN)

	winner, params, simStatus, simDescription := r.simulateCandidates(ctx, state, candidates)

	// Final-route pool details are re-read on demand; this is the only
	// place on-chain pool state refreshes.
	r.refreshWinnerDetails(ctx, state, &winner)

	// Write back cache-miss winners so the next request in the bucket hits.
	if !state.hitsCache && state.req.WantsAllProtocols() && simStatus != domain.SimulationFailed {
		legs := make([]domain.Route, 0, len(winner.Quotes))
		for _, q := range winner.Quotes {
			legs = append(legs, route.StripSynthetic(q.Route))
		}
		if err := r.cachedRoutes.SetRoutes(ctx, state.cacheKey, legs); err != nil {
			r.logger.Warn("route cache write failed", zap.String("key", state.cacheKey), zap.Error(err))
		}
	}

	return r.assembleResponse(state, winner, params, simStatus, simDescription)
}

// lookupRequestState fans out the independent lookups and joins.
func (r *routerUseCaseImpl) lookupRequestState(ctx context.Context, state *requestState) error {
	var wg sync.WaitGroup
	var tokenInErr, tokenOutErr, gasErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		state.tokenIn, tokenInErr = r.tokenProvider.GetToken(ctx, state.req.ChainID, state.chain.WrapIfNative(state.req.TokenIn))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		state.tokenOut, tokenOutErr = r.tokenProvider.GetToken(ctx, state.req.ChainID, state.chain.WrapIfNative(state.req.TokenOut))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		state.gasPriceWei, gasErr = r.chainRepo.GetGasPrice(ctx, state.req.ChainID)
	}()

	if r.config.Router.RequireBlockNumber {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blockNumber, err := r.chainRepo.GetBlockNumber(ctx, state.req.ChainID)
			if err != nil {
				r.logger.Warn("block number lookup failed", zap.Error(err))
				return
			}
			state.blockNumber = blockNumber
		}()
	}

	wg.Wait()

	if tokenInErr != nil {
		return domain.TokenNotFoundError{Address: state.req.TokenIn, ChainID: uint64(state.req.ChainID)}
	}
	if tokenOutErr != nil {
		return domain.TokenNotFoundError{Address: state.req.TokenOut, ChainID: uint64(state.req.ChainID)}
	}
	if gasErr != nil {
		r.logger.Warn("gas price lookup failed", zap.Error(gasErr))
		state.gasPriceWei = uint256.NewInt(0)
	}

	return nil
}

// quantiseAmount derives the coarse cache bucket and the fine metrics
// bucket from the trade's USD notional.
func (r *routerUseCaseImpl) quantiseAmount(state *requestState) {
	sizingToken := state.tokenIn
	if state.req.TradeType == domain.ExactOut {
		sizingToken = state.tokenOut
	}

	amountFloat, _ := new(big.Float).SetInt(state.routedAmount).Float64()
	scale := 1.0
	for i := 0; i < sizingToken.Decimals; i++ {
		scale *= 10
	}
	amountUSD := amountFloat / scale * sizingToken.PriceUSD

	state.bucket = domain.BucketForUSD(amountUSD)
	state.fineBucket = domain.FineBucketForUSD(amountUSD)

	r.logger.Debug("amount quantised",
		zap.String("bucket", string(state.bucket)),
		zap.String("fine_bucket", state.fineBucket),
	)

	state.cacheKey = domain.FormatCachedRoutesKey(
		state.req.ChainID,
		state.req.TradeType,
		normaliseForCacheKey(state.req.TokenIn, state.req.TokenInIsETH),
		normaliseForCacheKey(state.req.TokenOut, state.req.TokenOutIsETH),
		state.bucket,
	)
}

// normaliseForCacheKey maps the native currency to the zero address.
func normaliseForCacheKey(addr common.Address, isETH bool) common.Address {
	if isETH {
		return domain.NativeAddress
	}
	return addr
}

// resolveRoutes consults the cache on the fast path, falling back to full
// discovery. Routes failing structural validation are dropped.
func (r *routerUseCaseImpl) resolveRoutes(ctx context.Context, state *requestState) ([]domain.Route, error) {
	useCache := state.req.QuoteType == domain.QuoteFast &&
		state.req.WantsAllProtocols() &&
		state.req.Hooks == domain.HooksInclusive

	if useCache {
		cached, found, err := r.cachedRoutes.GetRoutes(ctx, state.cacheKey)
		if err != nil {
			r.logger.Warn("route cache read failed", zap.Error(err))
		}
		if found && len(cached) > 0 {
			domain.UniRouteCacheHitsCounter.WithLabelValues(string(state.bucket)).Inc()
			state.hitsCache = true

			// Cached routes still price against the current pool snapshot.
			if err := r.discoverPools(ctx, state); err != nil {
				return nil, err
			}
			return r.validRoutes(state, cached), nil
		}
		domain.UniRouteCacheMissesCounter.WithLabelValues(string(state.bucket)).Inc()
	}

	if err := r.discoverPools(ctx, state); err != nil {
		return nil, err
	}

	routes := r.routeFinder.FindRoutes(state.chain, state.pools, state.req.TokenIn, state.req.TokenOut, state.req.AllowsMixed())

	if state.req.ForceMixed {
		mixed := routes[:0]
		for _, candidate := range routes {
			if candidate.Protocol == domain.ProtocolMixed {
				mixed = append(mixed, candidate)
			}
		}
		routes = mixed
	}

	return r.validRoutes(state, routes), nil
}

// discoverPools runs the per-protocol discovery fan-out and top-pool
// selection once per request.
func (r *routerUseCaseImpl) discoverPools(ctx context.Context, state *requestState) error {
	if state.pools != nil {
		return nil
	}

	protocols := make([]domain.Protocol, 0, 3)
	for _, p := range state.req.Protocols {
		if p != domain.ProtocolMixed {
			protocols = append(protocols, p)
		}
	}

	skipTokenCache := state.req.QuoteType == domain.QuoteFresh

	tasks := make([]func() ([]domain.PoolInfo, error), 0, len(protocols))
	for _, protocol := range protocols {
		protocol := protocol
		tasks = append(tasks, func() ([]domain.PoolInfo, error) {
			return r.poolDiscoverer.GetPoolsForTokens(ctx, state.req.ChainID, protocol, state.req.TokenIn, state.req.TokenOut, state.req.Hooks, skipTokenCache)
		})
	}

	var pools []domain.PoolInfo
	for i, result := range workerpool.RunAll(ctx, len(tasks), tasks) {
		if result.Err != nil {
			r.logger.Warn("pool discovery failed",
				zap.String("protocol", string(protocols[i])), zap.Error(result.Err))
			continue
		}
		pools = append(pools, result.Result...)
	}
	if len(pools) == 0 {
		return domain.ErrNoRoutes
	}

	state.pools = r.topPoolsSelector.SelectTopPools(state.chain, pools, state.chain.WrapIfNative(state.req.TokenIn), state.chain.WrapIfNative(state.req.TokenOut))
	return nil
}

func (r *routerUseCaseImpl) validRoutes(state *requestState, routes []domain.Route) []domain.Route {
	valid := make([]domain.Route, 0, len(routes))
	for _, candidate := range routes {
		if err := route.Validate(state.chain, candidate); err != nil {
			r.logger.Debug("dropping invalid route", zap.String("route", candidate.String()), zap.Error(err))
			continue
		}
		valid = append(valid, candidate)
	}
	return valid
}

// runQuoteStrategy expands routes into percentage sub-routes, prices them,
// attaches gas details, and composes the best splits.
func (r *routerUseCaseImpl) runQuoteStrategy(ctx context.Context, state *requestState, routes []domain.Route) ([]domain.QuoteSplit, error) {
	allocated := AllocateRouteQuotes(routes, r.config.Router.PercentageStep)

	quotes, err := r.quoteFetcher.FetchQuotes(ctx, state.req.ChainID, state.req.TradeType, state.routedAmount, allocated)
	if err != nil {
		return nil, err
	}

	// Gas details attach per sub-route before composition so split ranking
	// can gas-adjust.
	for i := range quotes {
		if quotes[i].AmountForTradeType(state.req.TradeType) == nil {
			continue
		}
		details, err := r.gasEstimator.EstimateRouteGas(ctx, state.chain, quotes[i], state.gasPriceWei)
		if err != nil {
			r.logger.Warn("gas estimation failed", zap.Error(err))
			continue
		}
		quotes[i].Gas = &details
	}

	grouped := GroupQuotesByPercentage(quotes, state.req.TradeType)

	return r.splitFinder.FindBestSplits(ctx, state.chain, grouped, state.req.TradeType), nil
}

// simulateCandidates walks the ranked candidates in order and returns the
// first simulation success, or the best candidate with a FAILED status when
// every simulation fails. Simulation is skipped entirely without a from
// address or simulator.
func (r *routerUseCaseImpl) simulateCandidates(ctx context.Context, state *requestState, candidates []domain.QuoteSplit) (domain.QuoteSplit, *domain.MethodParameters, domain.SimulationStatus, string) {
	best := candidates[0]

	if r.simulator == nil || state.req.SimulateFromAddress == nil {
		params := r.buildCalldata(state, best)
		domain.UniRouteSimulationCounter.WithLabelValues(string(domain.SimulationUnattempted)).Inc()
		return best, params, domain.SimulationUnattempted, ""
	}

	var lastDescription string
	for _, candidate := range candidates {
		params := r.buildCalldata(state, candidate)
		if params == nil {
			// Build failure skips the candidate.
			continue
		}

		result, err := r.simulator.Simulate(ctx, state.req.ChainID, *params, *state.req.SimulateFromAddress)
		if err != nil {
			lastDescription = err.Error()
			domain.UniRouteSimulationCounter.WithLabelValues(string(domain.SimulationFailed)).Inc()
			continue
		}
		if result.Status == domain.SimulationSucceeded {
			domain.UniRouteSimulationCounter.WithLabelValues(string(domain.SimulationSucceeded)).Inc()
			return candidate, params, domain.SimulationSucceeded, result.Description
		}
		lastDescription = result.Description
		domain.UniRouteSimulationCounter.WithLabelValues(string(domain.SimulationFailed)).Inc()
	}

	params := r.buildCalldata(state, best)
	return best, params, domain.SimulationFailed, lastDescription
}

func (r *routerUseCaseImpl) buildCalldata(state *requestState, split domain.QuoteSplit) *domain.MethodParameters {
	if r.calldataBuilder == nil {
		return nil
	}

	recipient := common.Address{}
	if state.req.Recipient != nil {
		recipient = *state.req.Recipient
	}
	deadline := time.Now().Add(30 * time.Minute)
	if state.req.DeadlineSecs > 0 {
		deadline = time.Now().Add(time.Duration(state.req.DeadlineSecs) * time.Second)
	}

	params, err := r.calldataBuilder.BuildSwapCalldata(state.chain, state.req.TradeType, split, recipient, state.req.SlippagePct, deadline)
	if err != nil {
		domain.UniRouteCandidateBuildFailureCounter.Inc()
		r.logger.Warn("calldata build failed", zap.Error(err))
		return nil
	}
	return &params
}

func (r *routerUseCaseImpl) refreshWinnerDetails(ctx context.Context, state *requestState, winner *domain.QuoteSplit) {
	if r.freshDetails == nil {
		return
	}

	for i := range winner.Quotes {
		fresh, err := r.freshDetails.RefreshPoolDetails(ctx, state.req.ChainID, winner.Quotes[i].Route.Pools)
		if err != nil {
			r.logger.Warn("final route pool refresh failed", zap.Error(err))
			continue
		}
		if len(fresh) == len(winner.Quotes[i].Route.Pools) {
			winner.Quotes[i].Route.Pools = fresh
		}
	}
}

// GetCachedRoutes returns the cached routes behind an explicit cache key.
func (r *routerUseCaseImpl) GetCachedRoutes(ctx context.Context, key string) ([]domain.Route, error) {
	routes, found, err := r.cachedRoutes.GetRoutes(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return routes, nil
}

// DeleteCachedRoutes removes a specific cache key.
func (r *routerUseCaseImpl) DeleteCachedRoutes(ctx context.Context, key string) error {
	return r.cachedRoutes.DeleteRoutes(ctx, key)
}

// InspectCacheKey reports the raw Redis state of a key.
func (r *routerUseCaseImpl) InspectCacheKey(ctx context.Context, key string) (mvc.CacheKeyInspection, error) {
	return r.cachedRoutes.InspectKey(ctx, key)
}

// RefreshRoutes recomputes the routes behind a cache key for the
// refresh-ahead path.
func (r *routerUseCaseImpl) RefreshRoutes(ctx context.Context, key string) ([]domain.Route, error) {
	chainID, tradeType, tokenIn, tokenOut, err := ParseCachedRoutesKey(key)
	if err != nil {
		return nil, err
	}

	chain, err := domain.GetChainInfo(chainID)
	if err != nil {
		return nil, err
	}

	state := &requestState{
		req: domain.QuoteRequest{
			ChainID:   chainID,
			TradeType: tradeType,
			TokenIn:   tokenIn,
			TokenOut:  tokenOut,
			Protocols: []domain.Protocol{domain.ProtocolV2, domain.ProtocolV3, domain.ProtocolV4, domain.ProtocolMixed},
			Hooks:     domain.HooksInclusive,
			QuoteType: domain.QuoteFresh,
		},
		chain: chain,
	}

	if err := r.discoverPools(ctx, state); err != nil {
		return nil, err
	}

	routes := r.routeFinder.FindRoutes(chain, state.pools, tokenIn, tokenOut, true)
	stripped := make([]domain.Route, 0, len(routes))
	for _, candidate := range r.validRoutes(state, routes) {
		stripped = append(stripped, route.StripSynthetic(candidate))
	}
	return stripped, nil
}

// ParseCachedRoutesKey inverts domain.FormatCachedRoutesKey.
func ParseCachedRoutesKey(key string) (domain.ChainID, domain.TradeType, common.Address, common.Address, error) {
	parts := strings.Split(key, "#")
	if len(parts) != 6 || parts[0] != "CACHEDROUTE" {
		return 0, "", common.Address{}, common.Address{}, fmt.Errorf("malformed cache key (%s)", key)
	}

	chainID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, "", common.Address{}, common.Address{}, err
	}
	tradeType, err := domain.ParseTradeType(parts[2])
	if err != nil {
		return 0, "", common.Address{}, common.Address{}, err
	}
	if !common.IsHexAddress(parts[3]) || !common.IsHexAddress(parts[4]) {
		return 0, "", common.Address{}, common.Address{}, fmt.Errorf("malformed cache key tokens (%s)", key)
	}

	return domain.ChainID(chainID), tradeType, common.HexToAddress(parts[3]), common.HexToAddress(parts[4]), nil
}
