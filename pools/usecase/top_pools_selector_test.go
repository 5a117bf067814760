package usecase_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
	usecase "github.com/uniroute/uniroute/pools/usecase"
)

func selectorChain(t *testing.T) domain.ChainInfo {
	t.Helper()
	chain, err := domain.GetChainInfo(domain.ChainMainnet)
	require.NoError(t, err)
	return chain
}

func TestSelectTopPools_DirectPairsFirstByTVL(t *testing.T) {
	chain := selectorChain(t)
	config := *domain.DefaultPoolsConfig()
	config.TopNDirectPairs = 2
	selector := usecase.NewTopPoolsSelector(config, log.NewNoOpLogger())

	pools := []domain.PoolInfo{
		poolInfo("0xa1", tokenA, tokenB, 100),
		poolInfo("0xa2", tokenA, tokenB, 500),
		poolInfo("0xa3", tokenA, tokenB, 300),
	}

	selected := selector.SelectTopPools(chain, pools, tokenA, tokenB)

	// The direct cap keeps the two deepest; slice 5 (overall top) would
	// re-add the third, so it is present but deduplicated.
	require.NotEmpty(t, selected)
	require.Equal(t, common.HexToAddress("0xa2"), selected[0].Address)
	require.Equal(t, common.HexToAddress("0xa3"), selected[1].Address)
}

func TestSelectTopPools_NoSharedDuplicates(t *testing.T) {
	chain := selectorChain(t)
	selector := usecase.NewTopPoolsSelector(*domain.DefaultPoolsConfig(), log.NewNoOpLogger())

	pools := []domain.PoolInfo{
		poolInfo("0xa1", tokenA, tokenB, 100),
		poolInfo("0xa2", tokenA, tokenC, 90),
		poolInfo("0xa3", tokenC, tokenB, 80),
	}

	selected := selector.SelectTopPools(chain, pools, tokenA, tokenB)

	seen := map[string]struct{}{}
	for _, p := range selected {
		_, dup := seen[p.Key()]
		require.False(t, dup, "pool %s selected twice", p.Key())
		seen[p.Key()] = struct{}{}
	}
}

func TestSelectTopPools_BlockedV3DirectFiltered(t *testing.T) {
	chain := selectorChain(t)
	config := *domain.DefaultPoolsConfig()

	blocked := poolInfo("0xa1", tokenA, tokenB, 1000)
	blocked.Pool.Protocol = domain.ProtocolV3
	config.BlockedPools = []string{blocked.Address.Hex()}

	shallow := poolInfo("0xa2", tokenA, tokenB, 500)

	selector := usecase.NewTopPoolsSelector(config, log.NewNoOpLogger())

	selected := selector.SelectTopPools(chain, []domain.PoolInfo{blocked, shallow}, tokenA, tokenB)

	// The blocked pool is excluded from the direct-pair slice, so the
	// shallower unblocked pool leads despite its lower TVL. The overall
	// top-by-TVL slice still carries the blocked pool afterwards.
	require.NotEmpty(t, selected)
	require.Equal(t, shallow.Address, selected[0].Address)
}

func TestSelectTopPools_NativeConnector(t *testing.T) {
	chain := selectorChain(t)
	config := *domain.DefaultPoolsConfig()
	config.TopNDirectPairs = 1
	config.TopNOneHopPairs = 0
	config.TopNSecondHopPairs = 0
	config.TopNPairs = 1
	config.TopNWithBaseToken = 0
	selector := usecase.NewTopPoolsSelector(config, log.NewNoOpLogger())

	connector := poolInfo("0xb1", tokenA, chain.WrappedNative, 10)
	direct := poolInfo("0xa1", tokenA, tokenB, 1000)

	selected := selector.SelectTopPools(chain, []domain.PoolInfo{direct, connector}, tokenA, tokenB)

	found := false
	for _, p := range selected {
		if p.Key() == connector.Key() {
			found = true
		}
	}
	require.True(t, found)
}

func TestSelectTopPools_SynthesisedDirectWhenNoneIndexed(t *testing.T) {
	chain := selectorChain(t)
	selector := usecase.NewTopPoolsSelector(*domain.DefaultPoolsConfig(), log.NewNoOpLogger())

	// Only a one-hop bridge exists; no direct pair.
	pools := []domain.PoolInfo{
		poolInfo("0xa2", tokenA, tokenC, 90),
		poolInfo("0xa3", tokenC, tokenB, 80),
	}

	selected := selector.SelectTopPools(chain, pools, tokenA, tokenB)

	foundDirect := false
	for _, p := range selected {
		if p.HasToken(tokenA) && p.HasToken(tokenB) {
			foundDirect = true
		}
	}
	require.True(t, foundDirect, "synthesised direct pools should be appended")
}
