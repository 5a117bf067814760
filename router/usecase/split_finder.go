package usecase

import (
	"context"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
)

const (
	// maxValidQuotesPerPercentage bounds how many non-conflicting quotes
	// are explored at each percentage of a partial combination.
	maxValidQuotesPerPercentage = 2

	// minImprovementPctPerLevel is the relative best-amount improvement a
	// level must deliver to keep searching after the early-exit floor.
	minImprovementPctPerLevel = 0.0001

	// minSplitLevelsBeforeEarlyExit is the level below which the
	// improvement check does not apply.
	minSplitLevelsBeforeEarlyExit = 3
)

// SplitFinder composes sub-routes into splits summing to exactly 100% of
// the amount via a bounded combinatorial search under a wall-clock budget.
type SplitFinder struct {
	step           int
	maxSplits      int
	maxSplitRoutes int
	timeout        time.Duration
	logger         log.Logger
}

// NewSplitFinder validates the percentage step and constructs the finder.
// A step outside [5, 100] or not dividing 100 is a programmer error.
func NewSplitFinder(config domain.RouterConfig, logger log.Logger) (*SplitFinder, error) {
	step := config.PercentageStep
	if step < 5 || step > 100 || 100%step != 0 {
		return nil, domain.InvalidPercentageStepError{Step: step}
	}

	return &SplitFinder{
		step:           step,
		maxSplits:      config.MaxSplits,
		maxSplitRoutes: config.MaxSplitRoutes,
		timeout:        time.Duration(config.RouteSplitTimeoutMs) * time.Millisecond,
		logger:         logger,
	}, nil
}

// FindBestSplits runs the level-wise search. percentageToSortedQuotes maps
// each percentage to its quotes sorted best-first for the trade type.
func (f *SplitFinder) FindBestSplits(ctx context.Context, chain domain.ChainInfo, percentageToSortedQuotes map[int][]domain.Quote, tradeType domain.TradeType) []domain.QuoteSplit {
	deadline := time.Now().Add(f.timeout)

	var results []domain.QuoteSplit
	seen := make(map[string]struct{})

	// Level 1: every 100% quote as a singleton split.
	for _, q := range percentageToSortedQuotes[100] {
		split := domain.QuoteSplit{Quotes: []domain.Quote{q}}
		key := split.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, split)
	}

	results = f.trim(results, tradeType)
	prevBest := bestAmount(results, tradeType)

	for level := 2; level <= f.maxSplits; level++ {
		state := &splitSearchState{
			finder:    f,
			chain:     chain,
			quotes:    percentageToSortedQuotes,
			tradeType: tradeType,
			deadline:  deadline,
			seen:      seen,
		}

		state.compose(nil, 100, level)

		if state.timedOut {
			domain.UniRouteSplitTimeoutCounter.Inc()
			f.logger.Warn("split search timed out", zap.Int("level", level))
		}

		results = f.trim(append(results, state.added...), tradeType)

		// Termination, evaluated after trimming.
		if len(state.added) == 0 {
			break
		}
		best := bestAmount(results, tradeType)
		if level >= minSplitLevelsBeforeEarlyExit && !improvedEnough(prevBest, best, tradeType) {
			break
		}
		prevBest = best
		if state.timedOut {
			break
		}
	}

	return results
}

type splitSearchState struct {
	finder    *SplitFinder
	chain     domain.ChainInfo
	quotes    map[int][]domain.Quote
	tradeType domain.TradeType
	deadline  time.Time
	seen      map[string]struct{}

	added    []domain.QuoteSplit
	timedOut bool
}

// compose extends the partial combination with one leg of the remaining
// percentage budget split across remainingLevels legs. Each intermediate
// leg is a positive multiple of the step of at most 100-step; the final
// leg receives exactly the remainder.
func (s *splitSearchState) compose(partial []domain.Quote, remaining, remainingLevels int) {
	if s.timedOut {
		return
	}
	if time.Now().After(s.deadline) {
		s.timedOut = true
		return
	}

	if remainingLevels == 1 {
		s.tryLeg(partial, remaining, 0)
		return
	}

	// The leg must leave at least step percent per remaining level.
	maxLeg := remaining - s.finder.step*(remainingLevels-1)
	if maxLeg > 100-s.finder.step {
		maxLeg = 100 - s.finder.step
	}

	for p := s.finder.step; p <= maxLeg; p += s.finder.step {
		s.tryLeg(partial, p, remainingLevels-1)
		if s.timedOut {
			return
		}
	}
}

// tryLeg selects up to maxValidQuotesPerPercentage non-conflicting quotes
// at percentage p and recurses (or records, when this is the final leg).
func (s *splitSearchState) tryLeg(partial []domain.Quote, p int, remainingLevels int) {
	taken := 0
	for _, q := range s.quotes[p] {
		if taken >= maxValidQuotesPerPercentage {
			break
		}
		if conflicts(partial, q, s.chain) {
			continue
		}
		taken++

		next := append(append(make([]domain.Quote, 0, len(partial)+1), partial...), q)
		if remainingLevels == 0 {
			s.record(next)
		} else {
			remaining := 100
			for _, leg := range next {
				remaining -= leg.Route.Percentage
			}
			s.compose(next, remaining, remainingLevels)
		}
		if s.timedOut {
			return
		}
	}
}

func (s *splitSearchState) record(quotes []domain.Quote) {
	split := domain.QuoteSplit{Quotes: quotes}
	key := split.Key()
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.added = append(s.added, split)
}

// conflicts applies the two filters of the search: no shared pool with any
// chosen route, and no mixing of native-endpoint with
// wrapped-native-endpoint routes.
func conflicts(partial []domain.Quote, candidate domain.Quote, chain domain.ChainInfo) bool {
	for _, chosen := range partial {
		for _, key := range candidate.Route.PoolKeys() {
			if chosen.Route.ContainsPoolKey(key) {
				return true
			}
		}
		if chosen.Route.TouchesNative() && candidate.Route.TouchesWrappedNative(chain) {
			return true
		}
		if chosen.Route.TouchesWrappedNative(chain) && candidate.Route.TouchesNative() {
			return true
		}
	}
	return false
}

// trim keeps 100% singletons unconditionally, sorts the rest by total
// amount for the trade type, and truncates to maxSplitRoutes.
func (f *SplitFinder) trim(splits []domain.QuoteSplit, tradeType domain.TradeType) []domain.QuoteSplit {
	singletons := make([]domain.QuoteSplit, 0, len(splits))
	rest := make([]domain.QuoteSplit, 0, len(splits))
	for _, s := range splits {
		if len(s.Quotes) == 1 && s.Quotes[0].Route.Percentage == 100 {
			singletons = append(singletons, s)
		} else {
			rest = append(rest, s)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return amountLess(rest[j].TotalAmount(tradeType), rest[i].TotalAmount(tradeType), tradeType)
	})
	if len(rest) > f.maxSplitRoutes {
		rest = rest[:f.maxSplitRoutes]
	}

	return append(singletons, rest...)
}

// amountLess reports whether a ranks below b for the trade type: a is the
// smaller output for EXACT_IN, or the larger input for EXACT_OUT.
func amountLess(a, b *big.Int, tradeType domain.TradeType) bool {
	if tradeType == domain.ExactOut {
		return a.Cmp(b) > 0
	}
	return a.Cmp(b) < 0
}

// bestAmount returns the best split total at the current state, nil when
// empty.
func bestAmount(splits []domain.QuoteSplit, tradeType domain.TradeType) *big.Int {
	var best *big.Int
	for _, s := range splits {
		total := s.TotalAmount(tradeType)
		if best == nil || amountLess(best, total, tradeType) {
			best = total
		}
	}
	return best
}

// improvedEnough reports whether the new best improves on the previous by
// at least minImprovementPctPerLevel.
func improvedEnough(prev, current *big.Int, tradeType domain.TradeType) bool {
	if prev == nil {
		return current != nil
	}
	if current == nil {
		return false
	}
	if !amountLess(prev, current, tradeType) {
		return false
	}

	diff := new(big.Float).Sub(new(big.Float).SetInt(current), new(big.Float).SetInt(prev))
	diff.Abs(diff)
	base := new(big.Float).SetInt(prev)
	if base.Sign() == 0 {
		return true
	}
	ratio, _ := new(big.Float).Quo(diff, base).Float64()
	return ratio >= minImprovementPctPerLevel
}

// sortQuotesForTradeType sorts quotes best-first for the trade type.
func sortQuotesForTradeType(quotes []domain.Quote, tradeType domain.TradeType) {
	sort.SliceStable(quotes, func(i, j int) bool {
		return amountLess(quotes[j].AmountForTradeType(tradeType), quotes[i].AmountForTradeType(tradeType), tradeType)
	})
}
