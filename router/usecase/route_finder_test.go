package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/router/usecase"
)

func TestFindRoutes_DirectAndMultiHop(t *testing.T) {
	chain := mainnet(t)
	finder := usecase.NewRouteFinder(testRouterConfig(), log.NewNoOpLogger())

	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
		mkV2("0xa2", tokenA, tokenC),
		mkV2("0xa3", tokenC, tokenB),
	}

	routes := finder.FindRoutes(chain, pools, tokenA, tokenB, false)

	// Direct route plus the two-hop route through tokenC.
	require.Len(t, routes, 2)
	for _, r := range routes {
		require.LessOrEqual(t, r.Hops(), 3)
		// No cycles: distinct token count equals hops+1.
		tokens := map[string]struct{}{}
		current := r.TokenIn
		tokens[current.Hex()] = struct{}{}
		for _, p := range r.Pools {
			next, ok := p.OtherToken(current)
			require.True(t, ok)
			_, seen := tokens[next.Hex()]
			require.False(t, seen)
			tokens[next.Hex()] = struct{}{}
			current = next
		}
		require.Len(t, tokens, r.Hops()+1)
	}
}

func TestFindRoutes_NoProtocolMixingWhenDisallowed(t *testing.T) {
	chain := mainnet(t)
	finder := usecase.NewRouteFinder(testRouterConfig(), log.NewNoOpLogger())

	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenC),
		mkV3("0xa2", tokenC, tokenB),
	}

	routes := finder.FindRoutes(chain, pools, tokenA, tokenB, false)
	require.Empty(t, routes)

	routes = finder.FindRoutes(chain, pools, tokenA, tokenB, true)
	require.Len(t, routes, 1)
	require.Equal(t, domain.ProtocolMixed, routes[0].Protocol)
}

func TestFindRoutes_MixedTagOnlyWithMultipleProtocols(t *testing.T) {
	chain := mainnet(t)
	finder := usecase.NewRouteFinder(testRouterConfig(), log.NewNoOpLogger())

	pools := []domain.PoolInfo{
		mkV3("0xa1", tokenA, tokenC),
		mkV3("0xa2", tokenC, tokenB),
	}

	routes := finder.FindRoutes(chain, pools, tokenA, tokenB, true)
	require.NotEmpty(t, routes)
	for _, r := range routes {
		require.Equal(t, domain.ProtocolV3, r.Protocol)
	}
}

func TestFindRoutes_DropsZeroLiquidityV3(t *testing.T) {
	chain := mainnet(t)
	finder := usecase.NewRouteFinder(testRouterConfig(), log.NewNoOpLogger())

	dead := mkV3("0xa1", tokenA, tokenB)
	dead.Pool.Liquidity.Clear()

	routes := finder.FindRoutes(chain, []domain.PoolInfo{dead}, tokenA, tokenB, false)
	require.Empty(t, routes)
}

func TestFindRoutes_LazyDeepening(t *testing.T) {
	chain := mainnet(t)

	config := testRouterConfig()
	config.MaxHops = 1
	config.MaxHopsExtended = 2
	config.MinRoutesThreshold = 5
	finder := usecase.NewRouteFinder(config, log.NewNoOpLogger())

	pools := []domain.PoolInfo{
		mkV2("0xa1", tokenA, tokenB),
		mkV2("0xa2", tokenA, tokenC),
		mkV2("0xa3", tokenC, tokenB),
	}

	routes := finder.FindRoutes(chain, pools, tokenA, tokenB, false)

	// The direct route alone is below the threshold (and all single hop),
	// so the extended search contributes the two-hop route.
	require.Len(t, routes, 2)

	hops := map[int]int{}
	for _, r := range routes {
		hops[r.Hops()]++
	}
	require.Equal(t, 1, hops[1])
	require.Equal(t, 1, hops[2])
}

func TestFindRoutes_SyntheticConnectorTraversesNative(t *testing.T) {
	chain := mainnet(t)
	finder := usecase.NewRouteFinder(testRouterConfig(), log.NewNoOpLogger())

	// tokenA trades against the native currency on V4 only; WETH carries
	// the V3 side to tokenB. Only the synthetic connector joins them.
	v4Native := mkV4("0xb1", domain.NativeAddress, tokenA)
	v3Weth := mkV3("0xb2", chain.WrappedNative, tokenB)

	routes := finder.FindRoutes(chain, []domain.PoolInfo{v4Native, v3Weth}, tokenA, tokenB, true)

	require.NotEmpty(t, routes)
	foundSynthetic := false
	for _, r := range routes {
		for _, p := range r.Pools {
			if p.IsSynthetic() {
				foundSynthetic = true
			}
		}
	}
	require.True(t, foundSynthetic)
}
