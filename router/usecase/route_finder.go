package usecase

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/router/usecase/route"
)

// RouteFinder enumerates acyclic routes between two tokens over a flat
// pool set using a depth-bounded DFS with lazy deepening.
type RouteFinder struct {
	config domain.RouterConfig
	logger log.Logger
}

// NewRouteFinder creates a route finder with the given search bounds.
func NewRouteFinder(config domain.RouterConfig, logger log.Logger) *RouteFinder {
	return &RouteFinder{
		config: config,
		logger: logger,
	}
}

// FindRoutes returns every acyclic route from tokenIn to tokenOut of at
// most MaxHops pools. If fewer than MinRoutesThreshold routes exist, or
// every found route is a single hop, the search re-runs at MaxHopsExtended
// and unions in up to MaxExtendedRoutes strictly longer routes.
func (f *RouteFinder) FindRoutes(chain domain.ChainInfo, pools []domain.PoolInfo, tokenIn, tokenOut common.Address, allowMixed bool) []domain.Route {
	searchPools := f.routablePools(chain, pools, allowMixed)

	routes := f.search(chain, searchPools, tokenIn, tokenOut, allowMixed, f.config.MaxHops)

	allSingleHop := len(routes) > 0
	for _, r := range routes {
		if r.Hops() > 1 {
			allSingleHop = false
			break
		}
	}

	extendedTriggered := len(routes) < f.config.MinRoutesThreshold || allSingleHop
	extendedCount := 0
	if extendedTriggered && f.config.MaxHopsExtended > f.config.MaxHops {
		domain.UniRouteExtendedSearchCounter.Inc()

		extended := f.search(chain, searchPools, tokenIn, tokenOut, allowMixed, f.config.MaxHopsExtended)
		for _, r := range extended {
			if r.Hops() <= f.config.MaxHops {
				continue
			}
			if extendedCount >= f.config.MaxExtendedRoutes {
				break
			}
			routes = append(routes, r)
			extendedCount++
		}
	}

	f.logger.Debug("route search complete",
		zap.Int("normal_count", len(routes)-extendedCount),
		zap.Bool("extended_search_triggered", extendedTriggered),
		zap.Int("extended_count", extendedCount),
	)

	return routes
}

// routablePools filters out pools unroutable at construction time and,
// when mixed routing is allowed and any V4 pool is present, inserts the
// synthetic zero-fee native/wrapped connector so routes can traverse
// ETH <-> WETH without a real pool.
func (f *RouteFinder) routablePools(chain domain.ChainInfo, pools []domain.PoolInfo, allowMixed bool) []domain.Pool {
	routable := make([]domain.Pool, 0, len(pools)+1)
	hasV4 := false
	for _, p := range pools {
		if err := p.Validate(); err != nil {
			continue
		}
		if p.Protocol == domain.ProtocolV4 {
			hasV4 = true
		}
		routable = append(routable, p.Pool)
	}

	if allowMixed && hasV4 {
		routable = append(routable, domain.Pool{
			Protocol:    domain.ProtocolV4,
			Token0:      domain.NativeAddress,
			Token1:      chain.WrappedNative,
			Fee:         0,
			TickSpacing: domain.FakeTickSpacing,
		})
	}

	return routable
}

func (f *RouteFinder) search(chain domain.ChainInfo, pools []domain.Pool, tokenIn, tokenOut common.Address, allowMixed bool, maxHops int) []domain.Route {
	index := buildPoolIndex(pools)

	start := chain.WrapIfNative(tokenIn)
	targets := map[common.Address]struct{}{chain.WrapIfNative(tokenOut): {}}
	if chain.IsNativeOrWrapped(tokenOut) {
		targets[domain.NativeAddress] = struct{}{}
	}

	state := &searchState{
		chain:      chain,
		pools:      pools,
		index:      index,
		targets:    targets,
		tokenIn:    tokenIn,
		tokenOut:   tokenOut,
		allowMixed: allowMixed,
		maxHops:    maxHops,
		usedPools:  make(map[int]struct{}, maxHops),
		visited:    map[common.Address]struct{}{start: {}},
	}

	state.dfs(start, nil)

	// Native-in V4 pools are reachable from the native address directly.
	// Only a true native input needs this pass: a wrapped ERC-20 input is
	// fully reachable from the wrapped start, and re-running it would only
	// produce connector-prefixed duplicates of first-pass routes.
	if domain.IsNative(tokenIn) {
		delete(state.visited, start)
		state.visited[domain.NativeAddress] = struct{}{}
		state.dfs(domain.NativeAddress, nil)
	}

	return state.routes
}

type searchState struct {
	chain      domain.ChainInfo
	pools      []domain.Pool
	index      map[common.Address][]int
	targets    map[common.Address]struct{}
	tokenIn    common.Address
	tokenOut   common.Address
	allowMixed bool
	maxHops    int

	path      []int
	usedPools map[int]struct{}
	visited   map[common.Address]struct{}

	routes []domain.Route
}

func (s *searchState) dfs(current common.Address, pathProtocol *domain.Protocol) {
	if len(s.path) >= s.maxHops {
		return
	}

	for _, i := range s.index[current] {
		if _, used := s.usedPools[i]; used {
			continue
		}
		p := s.pools[i]

		// Protocol purity within one route unless mixing is allowed.
		// The synthetic connector never breaks purity.
		nextProtocol := pathProtocol
		if !p.IsSynthetic() {
			if !s.allowMixed && pathProtocol != nil && *pathProtocol != p.Protocol {
				continue
			}
			if nextProtocol == nil {
				protocol := p.Protocol
				nextProtocol = &protocol
			}
		}

		next, ok := p.OtherToken(current)
		if !ok {
			continue
		}
		if _, seen := s.visited[next]; seen {
			continue
		}

		s.path = append(s.path, i)
		s.usedPools[i] = struct{}{}

		if _, isTarget := s.targets[next]; isTarget {
			s.recordRoute()
		} else {
			s.visited[next] = struct{}{}
			s.dfs(next, nextProtocol)
			delete(s.visited, next)
		}

		delete(s.usedPools, i)
		s.path = s.path[:len(s.path)-1]
	}
}

func (s *searchState) recordRoute() {
	pathPools := make([]domain.Pool, len(s.path))
	for j, i := range s.path {
		pathPools[j] = s.pools[i]
	}

	r, err := route.New(s.chain, pathPools, s.tokenIn, s.tokenOut)
	if err != nil {
		return
	}

	// A route consisting solely of the synthetic connector is not a trade.
	if len(r.Pools) == 1 && r.Pools[0].IsSynthetic() {
		return
	}

	s.routes = append(s.routes, r)
}

func buildPoolIndex(pools []domain.Pool) map[common.Address][]int {
	index := make(map[common.Address][]int, len(pools)*2)
	for i, p := range pools {
		index[p.Token0] = append(index[p.Token0], i)
		index[p.Token1] = append(index[p.Token1], i)
	}
	return index
}
