package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// cachedRoutesEntry is the serialised form of a cache value.
type cachedRoutesEntry struct {
	StoredAt time.Time      `json:"storedAt"`
	Routes   []domain.Route `json:"routes"`
}

// cachedRoutesRepository stores routes per
// (chain, tradeType, tokenIn, tokenOut, usdBucket) in Redis. Reads of a
// soft-expired but hard-live entry trigger exactly one asynchronous
// refresh while the stale entry is returned immediately.
type cachedRoutesRepository struct {
	client    redis.UniversalClient
	config    domain.CacheConfig
	refresher mvc.RouteRefresher
	logger    log.Logger

	// inFlight guards the single-flight refresh per key.
	inFlight sync.Map
}

var _ mvc.CachedRoutesRepository = &cachedRoutesRepository{}

// NewCachedRoutesRepository creates the repository. The refresher may be
// nil; refresh-ahead is then disabled.
func NewCachedRoutesRepository(client redis.UniversalClient, config domain.CacheConfig, logger log.Logger) *cachedRoutesRepository {
	return &cachedRoutesRepository{
		client: client,
		config: config,
		logger: logger,
	}
}

// SetRefresher wires the refresh-ahead callback after construction; the
// orchestrator depends on the repository, so the cycle resolves here.
func (r *cachedRoutesRepository) SetRefresher(refresher mvc.RouteRefresher) {
	r.refresher = refresher
}

func (r *cachedRoutesRepository) GetRoutes(ctx context.Context, key string) ([]domain.Route, bool, error) {
	payload, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cachedRoutesEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		// A corrupted entry is a miss, not an error.
		r.logger.Warn("cached routes entry corrupted, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}

	age := time.Since(entry.StoredAt)
	refreshAfter := time.Duration(r.config.RoutesRefreshSecs) * time.Second
	if age > refreshAfter {
		r.maybeRefreshAsync(key)
	}

	return entry.Routes, true, nil
}

// maybeRefreshAsync starts the refresh-ahead task unless one is already in
// flight for the key, or the deployment opted out.
func (r *cachedRoutesRepository) maybeRefreshAsync(key string) {
	if r.refresher == nil {
		return
	}
	if r.config.LambdaType == "Sync" && r.config.SkipAsyncCacheUpdateCall {
		return
	}
	if _, loaded := r.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return
	}

	domain.UniRouteCacheRefreshCounter.Inc()

	go func() {
		defer r.inFlight.Delete(key)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		routes, err := r.refresher.RefreshRoutes(ctx, key)
		if err != nil {
			r.logger.Warn("async route refresh failed", zap.String("key", key), zap.Error(err))
			return
		}
		if len(routes) == 0 {
			return
		}
		if err := r.SetRoutes(ctx, key, routes); err != nil {
			r.logger.Warn("async route refresh write failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

func (r *cachedRoutesRepository) SetRoutes(ctx context.Context, key string, routes []domain.Route) error {
	// Each route is stored with percentage reset so cached legs can be
	// recombined freely in later splits.
	stored := make([]domain.Route, 0, len(routes))
	for _, route := range routes {
		route.Percentage = 100
		stored = append(stored, route)
	}

	entry := cachedRoutesEntry{
		StoredAt: time.Now(),
		Routes:   stored,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	ttl := time.Duration(r.config.RoutesTTLSecs) * time.Second
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return err
	}

	domain.UniRouteCacheWritesCounter.Inc()
	return nil
}

func (r *cachedRoutesRepository) DeleteRoutes(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// InspectKey probes the raw Redis value: string, then list, then sorted
// set, reporting the first hit.
func (r *cachedRoutesRepository) InspectKey(ctx context.Context, key string) (mvc.CacheKeyInspection, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == nil {
		return mvc.CacheKeyInspection{Type: "string", Value: value}, nil
	}
	if !errors.Is(err, redis.Nil) && !isWrongType(err) {
		return mvc.CacheKeyInspection{}, err
	}

	listValue, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err == nil && len(listValue) > 0 {
		return mvc.CacheKeyInspection{Type: "list", Value: listValue}, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) && !isWrongType(err) {
		return mvc.CacheKeyInspection{}, err
	}

	zsetValue, err := r.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err == nil && len(zsetValue) > 0 {
		return mvc.CacheKeyInspection{Type: "zset", Value: zsetValue}, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) && !isWrongType(err) {
		return mvc.CacheKeyInspection{}, err
	}

	return mvc.CacheKeyInspection{Type: "not_found"}, nil
}

// isWrongType matches the WRONGTYPE reply returned when probing a key of
// another kind.
func isWrongType(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "WRONGTYPE"
}
