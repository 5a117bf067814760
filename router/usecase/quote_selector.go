package usecase

import (
	"hash/fnv"
	"math/big"
	"sort"
	"strings"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// quoteSelector gas-adjusts and ranks whole quote plans.
type quoteSelector struct {
	logger log.Logger
}

var _ mvc.QuoteSelector = &quoteSelector{}

// NewQuoteSelector creates the ranking selector.
func NewQuoteSelector(logger log.Logger) mvc.QuoteSelector {
	return &quoteSelector{logger: logger}
}

// SelectBest ranks splits by gas-adjusted amount for the trade type and
// returns the top N. For EXACT_IN the gas cost in quote token is
// subtracted from the output; for EXACT_OUT it is added to the input.
// Ties break by fewer routes, then by route-string hash so the order is
// total.
func (s *quoteSelector) SelectBest(splits []domain.QuoteSplit, tradeType domain.TradeType, topN int) []domain.QuoteSplit {
	type ranked struct {
		split    domain.QuoteSplit
		adjusted *big.Int
		hash     uint64
	}

	rankedSplits := make([]ranked, 0, len(splits))
	for _, split := range splits {
		rankedSplits = append(rankedSplits, ranked{
			split:    split,
			adjusted: GasAdjustedAmount(split, tradeType),
			hash:     splitHash(split),
		})
	}

	sort.SliceStable(rankedSplits, func(i, j int) bool {
		cmp := rankedSplits[i].adjusted.Cmp(rankedSplits[j].adjusted)
		if cmp != 0 {
			if tradeType == domain.ExactOut {
				return cmp < 0
			}
			return cmp > 0
		}
		if len(rankedSplits[i].split.Quotes) != len(rankedSplits[j].split.Quotes) {
			return len(rankedSplits[i].split.Quotes) < len(rankedSplits[j].split.Quotes)
		}
		return rankedSplits[i].hash < rankedSplits[j].hash
	})

	if topN > 0 && len(rankedSplits) > topN {
		rankedSplits = rankedSplits[:topN]
	}

	result := make([]domain.QuoteSplit, 0, len(rankedSplits))
	for _, r := range rankedSplits {
		result = append(result, r.split)
	}
	return result
}

// GasAdjustedAmount applies the split's total gas cost in quote token to
// its ranking amount.
func GasAdjustedAmount(split domain.QuoteSplit, tradeType domain.TradeType) *big.Int {
	adjusted := new(big.Int).Set(split.TotalAmount(tradeType))
	for _, q := range split.Quotes {
		if q.Gas == nil || q.Gas.GasCostQuoteToken == nil {
			continue
		}
		if tradeType == domain.ExactOut {
			adjusted.Add(adjusted, q.Gas.GasCostQuoteToken)
		} else {
			adjusted.Sub(adjusted, q.Gas.GasCostQuoteToken)
		}
	}
	return adjusted
}

func splitHash(split domain.QuoteSplit) uint64 {
	routeStrings := make([]string, 0, len(split.Quotes))
	for _, q := range split.Quotes {
		routeStrings = append(routeStrings, q.Route.String())
	}
	sort.Strings(routeStrings)

	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(routeStrings, "|")))
	return h.Sum64()
}
