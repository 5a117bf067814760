package usecase_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/calldata"
	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	gasUseCase "github.com/uniroute/uniroute/gas/usecase"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/router/usecase"
)

type fakePoolDiscoverer struct {
	pools []domain.PoolInfo
}

func (f *fakePoolDiscoverer) Name() string { return "fake" }

func (f *fakePoolDiscoverer) GetPools(context.Context, domain.ChainID, domain.Protocol) ([]domain.PoolInfo, error) {
	return f.pools, nil
}

func (f *fakePoolDiscoverer) GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, skip bool) ([]domain.PoolInfo, error) {
	matching := make([]domain.PoolInfo, 0, len(f.pools))
	for _, p := range f.pools {
		if p.Protocol == protocol {
			matching = append(matching, p)
		}
	}
	return matching, nil
}

type passThroughSelector struct{}

func (passThroughSelector) SelectTopPools(chain domain.ChainInfo, pools []domain.PoolInfo, tokenIn, tokenOut common.Address) []domain.PoolInfo {
	return pools
}

// fakeQuoteFetcher prices routes deterministically: the full amount scaled
// by percentage, minus a per-hop penalty so shorter routes win.
type fakeQuoteFetcher struct{}

func (fakeQuoteFetcher) FetchQuotes(ctx context.Context, chain domain.ChainID, tradeType domain.TradeType, amount *big.Int, routes []domain.Route) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, len(routes))
	for i, r := range routes {
		legAmount := new(big.Int).Mul(amount, big.NewInt(int64(r.Percentage)))
		legAmount.Div(legAmount, big.NewInt(100))

		out := new(big.Int).Mul(legAmount, big.NewInt(int64(1000-10*r.Hops())))
		out.Div(out, big.NewInt(1000))

		quotes[i] = domain.Quote{
			Route:     r,
			AmountIn:  legAmount,
			AmountOut: out,
		}
		if tradeType == domain.ExactOut {
			quotes[i].AmountIn, quotes[i].AmountOut = quotes[i].AmountOut, quotes[i].AmountIn
		}
	}
	return quotes, nil
}

type fakeTokenProvider struct {
	fotTokens map[common.Address]struct{}
}

func (f *fakeTokenProvider) GetToken(ctx context.Context, chain domain.ChainID, address common.Address) (domain.TokenInfo, error) {
	info := domain.TokenInfo{
		Address:  address,
		Symbol:   "TKN",
		Decimals: 18,
		ChainID:  chain,
		PriceUSD: 1,
	}
	if _, ok := f.fotTokens[address]; ok {
		info.SellFeeBps = 100
	}
	return info, nil
}

type fakeChainRepo struct{}

func (fakeChainRepo) GetGasPrice(context.Context, domain.ChainID) (*uint256.Int, error) {
	return uint256.NewInt(1000), nil
}

func (fakeChainRepo) GetBlockNumber(context.Context, domain.ChainID) (uint64, error) {
	return 19_000_000, nil
}

// memoryRoutesRepository is an in-memory stand-in for the Redis repository.
type memoryRoutesRepository struct {
	mu     sync.Mutex
	data   map[string][]domain.Route
	writes int
}

func newMemoryRoutesRepository() *memoryRoutesRepository {
	return &memoryRoutesRepository{data: make(map[string][]domain.Route)}
}

func (m *memoryRoutesRepository) GetRoutes(ctx context.Context, key string) ([]domain.Route, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	routes, ok := m.data[key]
	return routes, ok, nil
}

func (m *memoryRoutesRepository) SetRoutes(ctx context.Context, key string, routes []domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = routes
	m.writes++
	return nil
}

func (m *memoryRoutesRepository) DeleteRoutes(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryRoutesRepository) InspectKey(ctx context.Context, key string) (mvc.CacheKeyInspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if routes, ok := m.data[key]; ok {
		return mvc.CacheKeyInspection{Type: "string", Value: routes}, nil
	}
	return mvc.CacheKeyInspection{Type: "not_found"}, nil
}

func newTestRouter(t *testing.T, pools []domain.PoolInfo, repo mvc.CachedRoutesRepository, fot map[common.Address]struct{}) mvc.RouterUsecase {
	t.Helper()

	config := domain.Config{Router: &domain.RouterConfig{
		MaxHops:             3,
		MaxHopsExtended:     4,
		MinRoutesThreshold:  1,
		MaxExtendedRoutes:   10,
		PercentageStep:      50,
		MaxSplits:           2,
		MaxSplitRoutes:      8,
		RouteSplitTimeoutMs: 1000,
		TopQuotesToSimulate: 3,
		MaxSlippagePercent:  20,
		RequireBlockNumber:  true,
	}}

	router, err := usecase.NewRouterUsecase(
		config,
		&fakePoolDiscoverer{pools: pools},
		passThroughSelector{},
		fakeQuoteFetcher{},
		gasUseCase.NewGasEstimator(domain.GasConfig{}, nil, nil, log.NewNoOpLogger()),
		gasUseCase.NewGasConverter(log.NewNoOpLogger()),
		&fakeTokenProvider{fotTokens: fot},
		fakeChainRepo{},
		repo,
		calldata.NewBuilder(),
		nil,
		nil,
		log.NewNoOpLogger(),
	)
	require.NoError(t, err)
	return router
}

func quoteRequest() domain.QuoteRequest {
	return domain.QuoteRequest{
		TokenIn:   tokenA,
		TokenOut:  tokenB,
		ChainID:   domain.ChainMainnet,
		Amount:    big.NewInt(1_000_000),
		TradeType: domain.ExactIn,
		QuoteType: domain.QuoteFast,
		Protocols: []domain.Protocol{domain.ProtocolV2, domain.ProtocolV3, domain.ProtocolV4, domain.ProtocolMixed},
		Hooks:     domain.HooksInclusive,
		RequestID: "test-request",
	}
}

func TestGetQuote_EndToEnd(t *testing.T) {
	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
		mkV3("0xa2", tokenA, tokenB),
		mkV2("0xa3", tokenA, tokenC),
		mkV2("0xa4", tokenC, tokenB),
	}
	router := newTestRouter(t, pools, newMemoryRoutesRepository(), nil)

	response, err := router.GetQuote(context.Background(), quoteRequest())
	require.NoError(t, err)

	require.NotEmpty(t, response.QuoteAmount)
	require.NotEmpty(t, response.RouteString)
	require.Equal(t, domain.SimulationUnattempted, response.SimulationStatus)
	require.False(t, response.SimulationError)
	require.Equal(t, "1000", response.GasPriceWei)
	require.NotEmpty(t, response.Route)
	require.NotNil(t, response.MethodParameters)
	require.Equal(t, "19000000", response.BlockNumber)
	require.False(t, response.HitsCachedRoutes)
}

// Cache miss populates the bucket; the next identical request hits it and
// returns the same routes.
func TestGetQuote_CacheMissThenHit(t *testing.T) {
	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
		mkV3("0xa2", tokenA, tokenB),
	}
	repo := newMemoryRoutesRepository()
	router := newTestRouter(t, pools, repo, nil)

	first, err := router.GetQuote(context.Background(), quoteRequest())
	require.NoError(t, err)
	require.False(t, first.HitsCachedRoutes)
	require.Equal(t, 1, repo.writes)

	second, err := router.GetQuote(context.Background(), quoteRequest())
	require.NoError(t, err)
	require.True(t, second.HitsCachedRoutes)
	require.Equal(t, first.RouteString, second.RouteString)
	require.Equal(t, first.QuoteAmount, second.QuoteAmount)
}

// Identical inputs over a frozen pool snapshot return identical responses.
func TestGetQuote_Deterministic(t *testing.T) {
	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
		mkV3("0xa2", tokenA, tokenB),
		mkV2("0xa3", tokenA, tokenC),
		mkV2("0xa4", tokenC, tokenB),
	}

	first, err := newTestRouter(t, pools, newMemoryRoutesRepository(), nil).GetQuote(context.Background(), quoteRequest())
	require.NoError(t, err)
	second, err := newTestRouter(t, pools, newMemoryRoutesRepository(), nil).GetQuote(context.Background(), quoteRequest())
	require.NoError(t, err)

	require.Equal(t, first.QuoteAmount, second.QuoteAmount)
	require.Equal(t, first.RouteString, second.RouteString)
	require.Equal(t, first.GasUseEstimate, second.GasUseEstimate)
}

// Fee-on-transfer tokens restrict routing to V2.
func TestGetQuote_FeeOnTransferRestrictsToV2(t *testing.T) {
	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
		mkV3("0xa2", tokenA, tokenB),
	}
	fot := map[common.Address]struct{}{tokenA: {}}
	router := newTestRouter(t, pools, newMemoryRoutesRepository(), fot)

	response, err := router.GetQuote(context.Background(), quoteRequest())
	require.NoError(t, err)

	for _, leg := range response.Route {
		for _, p := range leg {
			require.Equal(t, "v2-pool", p.Type)
		}
	}
}

func TestGetQuote_NoRoutes(t *testing.T) {
	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenC),
	}
	router := newTestRouter(t, pools, newMemoryRoutesRepository(), nil)

	_, err := router.GetQuote(context.Background(), quoteRequest())
	require.ErrorIs(t, err, domain.ErrNoRoutes)
	require.Equal(t, 404, domain.GetStatusCode(err))
}

// EXACT_IN portion arithmetic: the reported quote is net of the portion.
func TestGetQuote_PortionSubtractsFromOutput(t *testing.T) {
	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
	}
	router := newTestRouter(t, pools, newMemoryRoutesRepository(), nil)

	req := quoteRequest()
	req.PortionBips = 100 // 1%

	withPortion, err := router.GetQuote(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, withPortion.PortionAmount)

	req.PortionBips = 0
	without, err := router.GetQuote(context.Background(), req)
	require.NoError(t, err)

	gross, ok := new(big.Int).SetString(without.QuoteAmount, 10)
	require.True(t, ok)
	net, ok := new(big.Int).SetString(withPortion.QuoteAmount, 10)
	require.True(t, ok)
	portion, ok := new(big.Int).SetString(withPortion.PortionAmount, 10)
	require.True(t, ok)

	require.Equal(t, gross, new(big.Int).Add(net, portion))
}

func TestParseCachedRoutesKey_RoundTrip(t *testing.T) {
	key := domain.FormatCachedRoutesKey(domain.ChainMainnet, domain.ExactIn, tokenA, tokenB, domain.BucketUSD1K)

	chainID, tradeType, tokenIn, tokenOut, err := usecase.ParseCachedRoutesKey(key)
	require.NoError(t, err)
	require.Equal(t, domain.ChainMainnet, chainID)
	require.Equal(t, domain.ExactIn, tradeType)
	require.Equal(t, tokenA, tokenIn)
	require.Equal(t, tokenB, tokenOut)

	_, _, _, _, err = usecase.ParseCachedRoutesKey("bogus")
	require.Error(t, err)
}
