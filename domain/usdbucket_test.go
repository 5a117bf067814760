package domain_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
)

func TestBucketForUSD(t *testing.T) {
	tests := []struct {
		amount float64
		want   domain.USDBucket
	}{
		{0.5, domain.BucketUSD1},
		{1, domain.BucketUSD1},
		{5, domain.BucketUSD10},
		{99, domain.BucketUSD100},
		{999, domain.BucketUSD1K},
		{1000, domain.BucketUSD1K},
		{1001, domain.BucketUSD10K},
		{50_000_000, domain.BucketUSD100M},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, domain.BucketForUSD(tc.amount), "amount %f", tc.amount)
	}
}

func TestFormatCachedRoutesKey(t *testing.T) {
	tokenIn := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tokenOut := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	key := domain.FormatCachedRoutesKey(domain.ChainMainnet, domain.ExactIn, tokenIn, tokenOut, domain.BucketUSD1K)

	require.Equal(t,
		"CACHEDROUTE#1#EXACT_IN#0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48#0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2#USD_1_000",
		key,
	)
}

func TestFineBucketStable(t *testing.T) {
	require.Equal(t, domain.FineBucketForUSD(100), domain.FineBucketForUSD(100))
	require.NotEqual(t, domain.FineBucketForUSD(100), domain.FineBucketForUSD(10_000))
	require.Equal(t, "usd_fine_0", domain.FineBucketForUSD(0))
}
