package mvc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uniroute/uniroute/domain"
)

// QuoteFetcher prices sub-routes through an on-chain quoter. External to
// the core; batching and multicall plumbing live behind this contract.
type QuoteFetcher interface {
	// FetchQuotes returns one quote per input route, preserving order.
	// Routes that fail to quote are returned with a nil amount.
	FetchQuotes(ctx context.Context, chain domain.ChainID, tradeType domain.TradeType, amount *big.Int, routes []domain.Route) ([]domain.Quote, error)
}

// GasEstimator computes per-route gas in native units, including the
// optional L1 data availability component on rollups.
type GasEstimator interface {
	EstimateRouteGas(ctx context.Context, chain domain.ChainInfo, quote domain.Quote, gasPriceWei *uint256.Int) (domain.GasDetails, error)
}

// GasConverter converts gas in native wei into the quote token and USD.
type GasConverter interface {
	// ConvertGas populates GasCostQuoteToken and GasCostUSD on the quote's
	// gas details using the deepest native/quote pool available.
	ConvertGas(ctx context.Context, chain domain.ChainInfo, quoteToken domain.TokenInfo, pools []domain.PoolInfo, gas *domain.GasDetails) error
}

// QuoteSelector gas-adjusts and ranks whole quote plans.
type QuoteSelector interface {
	SelectBest(splits []domain.QuoteSplit, tradeType domain.TradeType, topN int) []domain.QuoteSplit
}

// SimulationResult is the outcome of simulating one candidate plan.
type SimulationResult struct {
	Status      domain.SimulationStatus
	Description string
	GasUsed     uint64
}

// Simulator executes a candidate plan against a fork or node. External.
type Simulator interface {
	Simulate(ctx context.Context, chain domain.ChainID, params domain.MethodParameters, from common.Address) (SimulationResult, error)
}

// CalldataBuilder assembles Universal Router method parameters for a split.
type CalldataBuilder interface {
	BuildSwapCalldata(chain domain.ChainInfo, tradeType domain.TradeType, split domain.QuoteSplit, recipient common.Address, slippagePercent float64, deadline time.Time) (domain.MethodParameters, error)
}

// TokenProvider resolves token metadata, including fee-on-transfer probing.
type TokenProvider interface {
	GetToken(ctx context.Context, chain domain.ChainID, address common.Address) (domain.TokenInfo, error)
}

// ChainRepository resolves live chain state.
type ChainRepository interface {
	GetGasPrice(ctx context.Context, chain domain.ChainID) (*uint256.Int, error)
	GetBlockNumber(ctx context.Context, chain domain.ChainID) (uint64, error)
}

// CachedRouteEntry is a cached route set together with its age.
type CachedRouteEntry struct {
	Routes   []domain.Route
	StoredAt time.Time
}

// CacheKeyInspection reports the raw Redis state of a cache key.
type CacheKeyInspection struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// CachedRoutesRepository is the hot route cache keyed by
// (chain, tradeType, pair, USD bucket).
type CachedRoutesRepository interface {
	// GetRoutes returns the cached routes for the key, possibly empty. On a
	// soft-expired but hard-live entry it triggers at most one asynchronous
	// refresh while returning the stale entry immediately.
	GetRoutes(ctx context.Context, key string) ([]domain.Route, bool, error)

	// SetRoutes stores each route of a winning split independently.
	SetRoutes(ctx context.Context, key string, routes []domain.Route) error

	// DeleteRoutes removes a specific cache key.
	DeleteRoutes(ctx context.Context, key string) error

	// InspectKey probes the raw Redis value: string, then list, then
	// sorted set.
	InspectKey(ctx context.Context, key string) (CacheKeyInspection, error)
}

// RouteRefresher recomputes the routes behind a cache key. Used by the
// repository's refresh-ahead path.
type RouteRefresher interface {
	RefreshRoutes(ctx context.Context, key string) ([]domain.Route, error)
}

// RouterUsecase is the orchestrator surface consumed by the HTTP delivery.
type RouterUsecase interface {
	GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResponse, error)
	GetCachedRoutes(ctx context.Context, key string) ([]domain.Route, error)
	DeleteCachedRoutes(ctx context.Context, key string) error
	InspectCacheKey(ctx context.Context, key string) (CacheKeyInspection, error)
}
