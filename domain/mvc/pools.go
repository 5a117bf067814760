package mvc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uniroute/uniroute/domain"
)

// PoolDiscoverer produces candidate pool sets for a chain and protocol.
// Concrete discoverers identify themselves with a stable name embedded in
// all cache keys so that competing implementations never collide.
type PoolDiscoverer interface {
	// Name returns the stable identity of the discoverer.
	Name() string

	// GetPools returns all known pools for the chain and protocol.
	GetPools(ctx context.Context, chain domain.ChainID, protocol domain.Protocol) ([]domain.PoolInfo, error)

	// GetPoolsForTokens returns the pools relevant to the given token pair,
	// hook-filtered per the option. skipTokenCache bypasses the narrow
	// tokens-specific cache layer.
	GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, skipTokenCache bool) ([]domain.PoolInfo, error)
}

// TopPoolsSelector reduces a raw pool list to a small diverse set for a
// specific token pair.
type TopPoolsSelector interface {
	SelectTopPools(chain domain.ChainInfo, pools []domain.PoolInfo, tokenIn, tokenOut common.Address) []domain.PoolInfo
}

// FreshPoolDetails re-reads on-chain state for the pools of a chosen final
// route. This is the only place pool state is refreshed on demand.
type FreshPoolDetails interface {
	RefreshPoolDetails(ctx context.Context, chain domain.ChainID, pools []domain.Pool) ([]domain.Pool, error)
}
