package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// topPoolsSelector reduces a raw pool list to a bounded union of diverse
// slices: direct pairs, one-hop pairs on either side, second-hop pools of
// surfaced intermediaries, the global top by TVL, base-token pairs, and
// the best native connectors. All slices deduplicate against a shared
// selected set; lookups run over a precomputed token index so the routine
// stays linear in the pool count.
type topPoolsSelector struct {
	config domain.PoolsConfig
	logger log.Logger

	blockedTokens map[common.Address]struct{}
	blockedPools  map[common.Address]struct{}
}

var _ mvc.TopPoolsSelector = &topPoolsSelector{}

// NewTopPoolsSelector creates a selector with the given caps and block lists.
func NewTopPoolsSelector(config domain.PoolsConfig, logger log.Logger) mvc.TopPoolsSelector {
	blockedTokens := make(map[common.Address]struct{}, len(config.BlockedTokens))
	for _, t := range config.BlockedTokens {
		blockedTokens[common.HexToAddress(t)] = struct{}{}
	}
	blockedPools := make(map[common.Address]struct{}, len(config.BlockedPools))
	for _, p := range config.BlockedPools {
		blockedPools[common.HexToAddress(p)] = struct{}{}
	}

	return &topPoolsSelector{
		config:        config,
		logger:        logger,
		blockedTokens: blockedTokens,
		blockedPools:  blockedPools,
	}
}

type selectionState struct {
	pools    []domain.PoolInfo
	index    domain.TokenPoolIndex
	selected map[string]struct{}
	result   []domain.PoolInfo
}

// take appends the pool at index i unless it was already selected.
func (s *selectionState) take(i int) bool {
	p := s.pools[i]
	if _, ok := s.selected[p.Key()]; ok {
		return false
	}
	s.selected[p.Key()] = struct{}{}
	s.result = append(s.result, p)
	return true
}

func (t *topPoolsSelector) SelectTopPools(chain domain.ChainInfo, pools []domain.PoolInfo, tokenIn, tokenOut common.Address) []domain.PoolInfo {
	// The selection operates over TVL-descending order so every capped
	// slice naturally takes the deepest candidates first.
	sorted := make([]domain.PoolInfo, len(pools))
	copy(sorted, pools)
	domain.SortPoolsByTVLDesc(sorted)

	state := &selectionState{
		pools:    sorted,
		index:    domain.BuildTokenPoolIndex(sorted),
		selected: make(map[string]struct{}),
	}

	// Slice 1: direct pairs.
	directTaken := 0
	for _, i := range state.index[tokenIn] {
		if directTaken >= t.config.TopNDirectPairs {
			break
		}
		p := sorted[i]
		if !p.HasToken(tokenOut) {
			continue
		}
		if p.Protocol == domain.ProtocolV3 && t.isBlockedDirect(p) {
			continue
		}
		if state.take(i) {
			directTaken++
		}
	}
	hadDirect := directTaken > 0

	// Slices 2-3: one-hop pairs containing exactly one endpoint, recording
	// intermediary tokens for the second-hop slice.
	intermediaries := t.selectOneHop(state, tokenIn, tokenOut)
	intermediaries = append(intermediaries, t.selectOneHop(state, tokenOut, tokenIn)...)

	// Slice 4: top pools of each surfaced intermediary.
	for _, token := range intermediaries {
		taken := 0
		for _, i := range state.index[token] {
			if taken >= t.config.TopNSecondHopPairs {
				break
			}
			if state.take(i) {
				taken++
			}
		}
	}

	// Slice 5: overall top by TVL.
	taken := 0
	for i := range sorted {
		if taken >= t.config.TopNPairs {
			break
		}
		if state.take(i) {
			taken++
		}
	}

	// Slice 6: base-token pairs with either endpoint, globally capped.
	baseTaken := 0
	for _, base := range chain.BaseTokens {
		for _, i := range state.index[base] {
			if baseTaken >= t.config.TopNWithBaseToken {
				break
			}
			p := sorted[i]
			if !p.HasToken(tokenIn) && !p.HasToken(tokenOut) {
				continue
			}
			if state.take(i) {
				baseTaken++
			}
		}
	}

	// Slice 7: single best native connector for each endpoint.
	t.selectNativeConnector(state, chain, tokenIn)
	t.selectNativeConnector(state, chain, tokenOut)

	// When no indexed direct pair exists but routing is still possible,
	// append the synthesised direct pools so a brand-new pool can win.
	if !hadDirect && len(state.result) > 0 {
		t.appendSynthesisedDirect(state, chain, tokenIn, tokenOut)
	}

	t.logger.Debug("selected top pools",
		zap.Int("input_count", len(pools)),
		zap.Int("selected_count", len(state.result)),
	)

	return state.result
}

// selectOneHop takes the top pools containing have but not avoid, returning
// the intermediary tokens they surface.
func (t *topPoolsSelector) selectOneHop(state *selectionState, have, avoid common.Address) []common.Address {
	var intermediaries []common.Address
	taken := 0
	for _, i := range state.index[have] {
		if taken >= t.config.TopNOneHopPairs {
			break
		}
		p := state.pools[i]
		if p.HasToken(avoid) {
			continue
		}
		if state.take(i) {
			taken++
			other, _ := p.OtherToken(have)
			intermediaries = append(intermediaries, other)
		}
	}
	return intermediaries
}

// selectNativeConnector picks the single deepest pool pairing the token
// with the wrapped native currency.
func (t *topPoolsSelector) selectNativeConnector(state *selectionState, chain domain.ChainInfo, token common.Address) {
	if chain.IsNativeOrWrapped(token) {
		return
	}
	for _, i := range state.index[token] {
		if state.pools[i].HasToken(chain.WrappedNative) {
			state.take(i)
			return
		}
	}
}

func (t *topPoolsSelector) appendSynthesisedDirect(state *selectionState, chain domain.ChainInfo, tokenIn, tokenOut common.Address) {
	direct := NewDirectPoolDiscoverer()

	for _, protocol := range []domain.Protocol{domain.ProtocolV2, domain.ProtocolV3, domain.ProtocolV4} {
		pools, err := direct.GetPoolsForTokens(context.Background(), chain.ID, protocol, tokenIn, tokenOut, domain.HooksInclusive, true)
		if err != nil {
			continue
		}
		for _, p := range pools {
			// The V3 block list stays authoritative over synthesis.
			if p.Protocol == domain.ProtocolV3 && t.isBlockedDirect(p) {
				continue
			}
			if _, ok := state.selected[p.Key()]; ok {
				continue
			}
			state.selected[p.Key()] = struct{}{}
			state.result = append(state.result, p)
		}
	}
}

func (t *topPoolsSelector) isBlockedDirect(p domain.PoolInfo) bool {
	if _, ok := t.blockedPools[p.Address]; ok {
		return true
	}
	if _, ok := t.blockedTokens[p.Token0]; ok {
		return true
	}
	_, ok := t.blockedTokens[p.Token1]
	return ok
}
