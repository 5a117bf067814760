package usecase_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/router/usecase"
)

func splitWithGas(amountOut, gasInQuote int64, pool domain.PoolInfo) domain.QuoteSplit {
	return domain.QuoteSplit{Quotes: []domain.Quote{
		{
			Route:     domain.Route{Pools: []domain.Pool{pool.Pool}, Percentage: 100},
			AmountIn:  big.NewInt(1000),
			AmountOut: big.NewInt(amountOut),
			Gas: &domain.GasDetails{
				GasCostQuoteToken: big.NewInt(gasInQuote),
			},
		},
	}}
}

func TestSelectBest_GasAdjustedRanking(t *testing.T) {
	selector := usecase.NewQuoteSelector(log.NewNoOpLogger())

	// Higher raw output loses after gas adjustment.
	rich := splitWithGas(1000, 300, mkV2("0xa1", tokenA, tokenB))
	lean := splitWithGas(900, 50, mkV3("0xa2", tokenA, tokenB))

	best := selector.SelectBest([]domain.QuoteSplit{rich, lean}, domain.ExactIn, 2)

	require.Len(t, best, 2)
	require.Equal(t, big.NewInt(900), best[0].Quotes[0].AmountOut)
}

func TestSelectBest_TopNTruncates(t *testing.T) {
	selector := usecase.NewQuoteSelector(log.NewNoOpLogger())

	splits := []domain.QuoteSplit{
		splitWithGas(1000, 0, mkV2("0xa1", tokenA, tokenB)),
		splitWithGas(900, 0, mkV2("0xa2", tokenA, tokenB)),
		splitWithGas(800, 0, mkV2("0xa3", tokenA, tokenB)),
	}

	best := selector.SelectBest(splits, domain.ExactIn, 2)
	require.Len(t, best, 2)
	require.Equal(t, big.NewInt(1000), best[0].Quotes[0].AmountOut)
}

func TestSelectBest_ExactOutRanksAscending(t *testing.T) {
	selector := usecase.NewQuoteSelector(log.NewNoOpLogger())

	expensive := splitWithGas(0, 10, mkV2("0xa1", tokenA, tokenB))
	expensive.Quotes[0].AmountIn = big.NewInt(1200)
	cheap := splitWithGas(0, 10, mkV2("0xa2", tokenA, tokenB))
	cheap.Quotes[0].AmountIn = big.NewInt(1000)

	best := selector.SelectBest([]domain.QuoteSplit{expensive, cheap}, domain.ExactOut, 1)

	require.Len(t, best, 1)
	require.Equal(t, big.NewInt(1000), best[0].Quotes[0].AmountIn)
}

func TestGasAdjustedAmount(t *testing.T) {
	split := splitWithGas(1000, 100, mkV2("0xa1", tokenA, tokenB))

	require.Equal(t, big.NewInt(900), usecase.GasAdjustedAmount(split, domain.ExactIn))
	// EXACT_OUT adds the gas cost to the input side.
	require.Equal(t, big.NewInt(1100), usecase.GasAdjustedAmount(split, domain.ExactOut))
}
