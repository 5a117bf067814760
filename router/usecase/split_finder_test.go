package usecase_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/router/usecase"
)

func quoteFor(pool domain.PoolInfo, percentage int, amountOut int64) domain.Quote {
	return domain.Quote{
		Route: domain.Route{
			Pools:      []domain.Pool{pool.Pool},
			Protocol:   pool.Protocol,
			Percentage: percentage,
			TokenIn:    tokenA,
			TokenOut:   tokenB,
		},
		AmountIn:  big.NewInt(1000),
		AmountOut: big.NewInt(amountOut),
	}
}

func TestNewSplitFinder_RejectsBadStep(t *testing.T) {
	for _, step := range []int{0, 3, 7, 101, -5} {
		config := testRouterConfig()
		config.PercentageStep = step
		_, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
		require.Error(t, err, "step %d", step)
	}

	config := testRouterConfig()
	config.PercentageStep = 100
	_, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
	require.NoError(t, err)
}

// Three distinct non-overlapping 50% quotes and two 100% quotes yield two
// singletons plus every 50/50 pairing.
func TestFindBestSplits_EnumeratesPairings(t *testing.T) {
	chain := mainnet(t)

	config := testRouterConfig()
	config.PercentageStep = 50
	config.MaxSplits = 2
	finder, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
	require.NoError(t, err)

	poolOne := mkV2("0xa1", tokenA, tokenB)
	poolTwo := mkV3("0xa2", tokenA, tokenB)
	poolThree := mkV2("0xa3", tokenA, tokenB)
	poolFour := mkV3("0xa4", tokenA, tokenB)
	poolFive := mkV2("0xa5", tokenA, tokenB)

	grouped := map[int][]domain.Quote{
		100: {
			quoteFor(poolFour, 100, 1000),
			quoteFor(poolFive, 100, 990),
		},
		50: {
			quoteFor(poolOne, 50, 500),
			quoteFor(poolTwo, 50, 490),
			quoteFor(poolThree, 50, 480),
		},
	}

	splits := finder.FindBestSplits(context.Background(), chain, grouped, domain.ExactIn)

	require.Len(t, splits, 5)

	singletons := 0
	pairs := 0
	for _, s := range splits {
		require.Equal(t, 100, s.TotalPercentage())
		require.NoError(t, s.Validate(chain))
		if len(s.Quotes) == 1 {
			singletons++
		} else {
			pairs++
		}
	}
	require.Equal(t, 2, singletons)
	require.Equal(t, 3, pairs)
}

func TestFindBestSplits_SingletonOnlyWithStep100(t *testing.T) {
	chain := mainnet(t)

	config := testRouterConfig()
	config.PercentageStep = 100
	config.MaxSplits = 1
	finder, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
	require.NoError(t, err)

	grouped := map[int][]domain.Quote{
		100: {quoteFor(mkV2("0xa1", tokenA, tokenB), 100, 1000)},
	}

	splits := finder.FindBestSplits(context.Background(), chain, grouped, domain.ExactIn)

	require.Len(t, splits, 1)
	require.Len(t, splits[0].Quotes, 1)
}

func TestFindBestSplits_ConflictingPoolsNeverCombine(t *testing.T) {
	chain := mainnet(t)

	config := testRouterConfig()
	config.PercentageStep = 50
	config.MaxSplits = 2
	finder, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
	require.NoError(t, err)

	shared := mkV2("0xa1", tokenA, tokenB)

	grouped := map[int][]domain.Quote{
		50: {
			quoteFor(shared, 50, 500),
			quoteFor(shared, 50, 480),
		},
	}

	splits := finder.FindBestSplits(context.Background(), chain, grouped, domain.ExactIn)
	require.Empty(t, splits)
}

func TestFindBestSplits_NativeWrappedNeverCombine(t *testing.T) {
	chain := mainnet(t)

	config := testRouterConfig()
	config.PercentageStep = 50
	config.MaxSplits = 2
	finder, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
	require.NoError(t, err)

	nativeQuote := quoteFor(mkV2("0xa1", tokenA, tokenB), 50, 500)
	nativeQuote.Route.TokenIn = domain.NativeAddress

	wrappedQuote := quoteFor(mkV2("0xa2", tokenA, tokenB), 50, 490)
	wrappedQuote.Route.TokenIn = chain.WrappedNative

	grouped := map[int][]domain.Quote{
		50: {nativeQuote, wrappedQuote},
	}

	splits := finder.FindBestSplits(context.Background(), chain, grouped, domain.ExactIn)
	require.Empty(t, splits)
}

func TestFindBestSplits_ExactOutPrefersSmallerInput(t *testing.T) {
	chain := mainnet(t)

	config := testRouterConfig()
	config.PercentageStep = 50
	config.MaxSplits = 2
	config.MaxSplitRoutes = 1
	finder, err := usecase.NewSplitFinder(config, log.NewNoOpLogger())
	require.NoError(t, err)

	cheap := quoteFor(mkV2("0xa1", tokenA, tokenB), 50, 0)
	cheap.AmountIn = big.NewInt(100)
	expensive := quoteFor(mkV3("0xa2", tokenA, tokenB), 50, 0)
	expensive.AmountIn = big.NewInt(120)
	third := quoteFor(mkV2("0xa3", tokenA, tokenB), 50, 0)
	third.AmountIn = big.NewInt(150)

	grouped := map[int][]domain.Quote{
		50: {cheap, expensive, third},
	}

	splits := finder.FindBestSplits(context.Background(), chain, grouped, domain.ExactOut)

	require.NotEmpty(t, splits)
	best := splits[0]
	require.Len(t, best.Quotes, 2)
	require.Equal(t, big.NewInt(220), best.TotalAmount(domain.ExactOut))
}
