package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/cache"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// cachingPoolDiscoverer layers a read-through cache over a concrete
// discoverer. Two TTLs apply: the global all-pools cache (hours) and the
// narrower tokens-specific cache (minutes). Cache keys embed the inner
// discoverer name so competing implementations never collide.
type cachingPoolDiscoverer struct {
	inner  mvc.PoolDiscoverer
	cache  *cache.Cache
	config domain.PoolsConfig
	logger log.Logger

	unsupportedTokens map[common.Address]struct{}
}

var _ mvc.PoolDiscoverer = &cachingPoolDiscoverer{}

// NewCachingPoolDiscoverer wraps the inner discoverer with caching and the
// unsupported-token filter.
func NewCachingPoolDiscoverer(inner mvc.PoolDiscoverer, poolsCache *cache.Cache, config domain.PoolsConfig, logger log.Logger) mvc.PoolDiscoverer {
	unsupported := make(map[common.Address]struct{}, len(config.UnsupportedTokens))
	for _, token := range config.UnsupportedTokens {
		unsupported[common.HexToAddress(token)] = struct{}{}
	}

	return &cachingPoolDiscoverer{
		inner:             inner,
		cache:             poolsCache,
		config:            config,
		logger:            logger,
		unsupportedTokens: unsupported,
	}
}

func (d *cachingPoolDiscoverer) Name() string {
	return d.inner.Name()
}

func (d *cachingPoolDiscoverer) GetPools(ctx context.Context, chain domain.ChainID, protocol domain.Protocol) ([]domain.PoolInfo, error) {
	key := formatAllPoolsCacheKey(d.inner.Name(), chain, protocol)

	if value, age, found := d.cache.GetWithAge(key); found {
		if pools, ok := value.([]domain.PoolInfo); ok {
			d.logger.Debug("all-pools cache hit",
				zap.String("key", key), zap.Duration("age", age))
			return d.filterUnsupported(pools), nil
		}
		// A corrupted entry is a miss, not an error.
		d.cache.Delete(key)
	}

	pools, err := d.inner.GetPools(ctx, chain, protocol)
	if err != nil {
		return nil, err
	}

	d.cache.Set(key, pools, time.Duration(d.config.AllPoolsCacheTTLSecs)*time.Second)

	return d.filterUnsupported(pools), nil
}

func (d *cachingPoolDiscoverer) GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, skipTokenCache bool) ([]domain.PoolInfo, error) {
	key := FormatPoolsForTokensCacheKey(d.inner.Name(), chain, protocol, tokenIn, tokenOut, hooks)

	if !skipTokenCache {
		if value, found := d.cache.Get(key); found {
			if pools, ok := value.([]domain.PoolInfo); ok {
				return d.filterUnsupported(pools), nil
			}
			d.cache.Delete(key)
		}
	}

	pools, err := d.inner.GetPoolsForTokens(ctx, chain, protocol, tokenIn, tokenOut, hooks, skipTokenCache)
	if err != nil {
		return nil, err
	}

	pools = domain.FilterPoolsByHooks(pools, hooks)

	if !skipTokenCache {
		d.cache.Set(key, pools, time.Duration(d.config.TokenPoolsCacheTTLSecs)*time.Second)
	}

	return d.filterUnsupported(pools), nil
}

// filterUnsupported drops pools touching any unsupported token. The filter
// is applied on every read so config changes take effect without a flush.
func (d *cachingPoolDiscoverer) filterUnsupported(pools []domain.PoolInfo) []domain.PoolInfo {
	if len(d.unsupportedTokens) == 0 {
		return pools
	}

	filtered := make([]domain.PoolInfo, 0, len(pools))
	for _, p := range pools {
		if _, blocked := d.unsupportedTokens[p.Token0]; blocked {
			continue
		}
		if _, blocked := d.unsupportedTokens[p.Token1]; blocked {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func formatAllPoolsCacheKey(name string, chain domain.ChainID, protocol domain.Protocol) string {
	return fmt.Sprintf("pools#%s#%d#%s", name, chain, protocol)
}

// FormatPoolsForTokensCacheKey builds the tokens-specific cache key.
// Tokens are sorted so the key is symmetric in the pair.
func FormatPoolsForTokensCacheKey(name string, chain domain.ChainID, protocol domain.Protocol, tokenA, tokenB common.Address, hooks domain.HooksOption) string {
	token0, token1 := domain.OrderTokens(tokenA, tokenB)
	return fmt.Sprintf("pools#%s#%d#%s#%s#%s#%s",
		name,
		chain,
		protocol,
		strings.ToLower(token0.Hex()),
		strings.ToLower(token1.Hex()),
		hooks,
	)
}

// fallbackPoolDiscoverer composes a primary and a fallback discoverer.
// On exception OR empty result from the primary it calls the fallback.
// Primary errors are logged and swallowed; fallback errors propagate.
type fallbackPoolDiscoverer struct {
	primary  mvc.PoolDiscoverer
	fallback mvc.PoolDiscoverer
	logger   log.Logger
}

var _ mvc.PoolDiscoverer = &fallbackPoolDiscoverer{}

// NewFallbackPoolDiscoverer composes primary and fallback discoverers.
func NewFallbackPoolDiscoverer(primary, fallback mvc.PoolDiscoverer, logger log.Logger) mvc.PoolDiscoverer {
	return &fallbackPoolDiscoverer{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (d *fallbackPoolDiscoverer) Name() string {
	return d.primary.Name() + "+" + d.fallback.Name()
}

func (d *fallbackPoolDiscoverer) GetPools(ctx context.Context, chain domain.ChainID, protocol domain.Protocol) ([]domain.PoolInfo, error) {
	pools, err := d.primary.GetPools(ctx, chain, protocol)
	if err == nil && len(pools) > 0 {
		return pools, nil
	}
	if err != nil {
		d.logger.Warn("primary pool discoverer failed, falling back",
			zap.String("discoverer", d.primary.Name()), zap.Error(err))
	}

	return d.fallback.GetPools(ctx, chain, protocol)
}

func (d *fallbackPoolDiscoverer) GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, skipTokenCache bool) ([]domain.PoolInfo, error) {
	pools, err := d.primary.GetPoolsForTokens(ctx, chain, protocol, tokenIn, tokenOut, hooks, skipTokenCache)
	if err == nil && len(pools) > 0 {
		return pools, nil
	}
	if err != nil {
		d.logger.Warn("primary pool discoverer failed, falling back",
			zap.String("discoverer", d.primary.Name()), zap.Error(err))
	}

	return d.fallback.GetPoolsForTokens(ctx, chain, protocol, tokenIn, tokenOut, hooks, skipTokenCache)
}

// dispatchingPoolDiscoverer routes by protocol to the right concrete
// discoverer and always unions in the direct synthesiser so brand-new
// pools are reachable before any indexer observes them.
type dispatchingPoolDiscoverer struct {
	byProtocol map[domain.Protocol]mvc.PoolDiscoverer
	direct     mvc.PoolDiscoverer
	logger     log.Logger
}

var _ mvc.PoolDiscoverer = &dispatchingPoolDiscoverer{}

// NewDispatchingPoolDiscoverer builds the dispatcher.
func NewDispatchingPoolDiscoverer(byProtocol map[domain.Protocol]mvc.PoolDiscoverer, direct mvc.PoolDiscoverer, logger log.Logger) mvc.PoolDiscoverer {
	return &dispatchingPoolDiscoverer{
		byProtocol: byProtocol,
		direct:     direct,
		logger:     logger,
	}
}

func (d *dispatchingPoolDiscoverer) Name() string {
	return "dispatching"
}

func (d *dispatchingPoolDiscoverer) GetPools(ctx context.Context, chain domain.ChainID, protocol domain.Protocol) ([]domain.PoolInfo, error) {
	concrete, ok := d.byProtocol[protocol]
	if !ok {
		return nil, fmt.Errorf("no pool discoverer registered for protocol (%s)", protocol)
	}
	return concrete.GetPools(ctx, chain, protocol)
}

func (d *dispatchingPoolDiscoverer) GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, skipTokenCache bool) ([]domain.PoolInfo, error) {
	concrete, ok := d.byProtocol[protocol]
	if !ok {
		return nil, fmt.Errorf("no pool discoverer registered for protocol (%s)", protocol)
	}

	pools, err := concrete.GetPoolsForTokens(ctx, chain, protocol, tokenIn, tokenOut, hooks, skipTokenCache)
	if err != nil {
		return nil, err
	}

	directPools, err := d.direct.GetPoolsForTokens(ctx, chain, protocol, tokenIn, tokenOut, hooks, skipTokenCache)
	if err != nil {
		// Synthesis failures must not mask indexed results.
		d.logger.Warn("direct pool synthesis failed", zap.Error(err))
		return pools, nil
	}

	return unionPools(pools, directPools), nil
}

// unionPools merges two pool lists, deduplicating by pool key with the
// first list winning.
func unionPools(a, b []domain.PoolInfo) []domain.PoolInfo {
	seen := make(map[string]struct{}, len(a))
	merged := make([]domain.PoolInfo, 0, len(a)+len(b))
	for _, p := range a {
		seen[p.Key()] = struct{}{}
		merged = append(merged, p)
	}
	for _, p := range b {
		if _, ok := seen[p.Key()]; !ok {
			seen[p.Key()] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}
