package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// USDBucket is the coarse quantisation of notional trade size used to key
// the route cache. Boundaries are fixed so keys stay stable across deploys.
type USDBucket string

const (
	BucketUSD1    USDBucket = "USD_1"
	BucketUSD10   USDBucket = "USD_10"
	BucketUSD100  USDBucket = "USD_100"
	BucketUSD1K   USDBucket = "USD_1_000"
	BucketUSD10K  USDBucket = "USD_10_000"
	BucketUSD100K USDBucket = "USD_100_000"
	BucketUSD1M   USDBucket = "USD_1_000_000"
	BucketUSD10M  USDBucket = "USD_10_000_000"
	BucketUSD100M USDBucket = "USD_100_000_000"
)

var bucketBoundaries = []struct {
	upper  float64
	bucket USDBucket
}{
	{1, BucketUSD1},
	{10, BucketUSD10},
	{100, BucketUSD100},
	{1_000, BucketUSD1K},
	{10_000, BucketUSD10K},
	{100_000, BucketUSD100K},
	{1_000_000, BucketUSD1M},
	{10_000_000, BucketUSD10M},
}

// BucketForUSD returns the coarse bucket containing the given USD notional.
// Everything above $10M falls into the top bucket.
func BucketForUSD(amountUSD float64) USDBucket {
	for _, b := range bucketBoundaries {
		if amountUSD <= b.upper {
			return b.bucket
		}
	}
	return BucketUSD100M
}

// FineBucketForUSD returns the fine-grained half-order-of-magnitude bucket
// used only as a metric dimension, never in cache keys.
func FineBucketForUSD(amountUSD float64) string {
	if amountUSD <= 0 {
		return "usd_fine_0"
	}
	exp := math.Floor(2 * math.Log10(amountUSD))
	return fmt.Sprintf("usd_fine_%d", int(exp))
}

const cachedRouteKeyPrefix = "CACHEDROUTE"

// FormatCachedRoutesKey builds the route cache key. Token addresses are
// lowercased; callers normalise the native currency to the zero address
// beforehand.
func FormatCachedRoutesKey(chain ChainID, tradeType TradeType, tokenIn, tokenOut common.Address, bucket USDBucket) string {
	return fmt.Sprintf("%s#%d#%s#%s#%s#%s",
		cachedRouteKeyPrefix,
		chain,
		tradeType,
		strings.ToLower(tokenIn.Hex()),
		strings.ToLower(tokenOut.Hex()),
		bucket,
	)
}
