package usecase

import (
	"github.com/uniroute/uniroute/domain"
)

// AllocateRouteQuotes fans each route into size-partitioned copies at the
// given percentage step: for every route and every
// p in {100, 100-step, ..., step} one copy tagged with percentage p.
// Deterministic and order-preserving so the quote fetcher is called once
// per (route, percentage) pair.
func AllocateRouteQuotes(routes []domain.Route, step int) []domain.Route {
	if step <= 0 || step > 100 {
		return nil
	}

	allocated := make([]domain.Route, 0, len(routes)*(100/step))
	for _, r := range routes {
		for p := 100; p >= step; p -= step {
			sized := r
			sized.Percentage = p
			allocated = append(allocated, sized)
		}
	}
	return allocated
}

// GroupQuotesByPercentage indexes fetched quotes by their route percentage,
// keeping each percentage's quotes sorted by amount for the trade type:
// descending output for EXACT_IN, ascending input for EXACT_OUT.
func GroupQuotesByPercentage(quotes []domain.Quote, tradeType domain.TradeType) map[int][]domain.Quote {
	grouped := make(map[int][]domain.Quote)
	for _, q := range quotes {
		if q.AmountForTradeType(tradeType) == nil {
			continue
		}
		grouped[q.Route.Percentage] = append(grouped[q.Route.Percentage], q)
	}

	for p := range grouped {
		sortQuotesForTradeType(grouped[p], tradeType)
	}

	return grouped
}
