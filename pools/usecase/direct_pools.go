package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
)

// v3FeeTiers are the canonical V3 fee tiers probed during direct pool
// synthesis.
var v3FeeTiers = []uint32{100, 500, 3000, 10000}

// v4FeeTickSpacings pairs each V4 fee tier with its standard tick spacing.
var v4FeeTickSpacings = []struct {
	fee         uint32
	tickSpacing int32
}{
	{100, 1},
	{500, 10},
	{3000, 60},
	{10000, 200},
}

// directPoolDiscoverer synthesises the deterministic direct pool addresses
// for a token pair so brand-new pools can be swapped through before any
// indexer observes them. V2 addresses derive via CREATE2; V3 likewise from
// the factory; V4 pool IDs hash the (currency0, currency1, fee,
// tickSpacing, hooks) tuple.
type directPoolDiscoverer struct{}

var _ mvc.PoolDiscoverer = &directPoolDiscoverer{}

// NewDirectPoolDiscoverer creates the synthesising discoverer.
func NewDirectPoolDiscoverer() *directPoolDiscoverer {
	return &directPoolDiscoverer{}
}

func (d *directPoolDiscoverer) Name() string {
	return "direct"
}

// GetPools is empty by construction: direct synthesis needs a token pair.
func (d *directPoolDiscoverer) GetPools(ctx context.Context, chain domain.ChainID, protocol domain.Protocol) ([]domain.PoolInfo, error) {
	return nil, nil
}

func (d *directPoolDiscoverer) GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, _ bool) ([]domain.PoolInfo, error) {
	chainInfo, err := domain.GetChainInfo(chain)
	if err != nil {
		return nil, err
	}

	token0, token1 := domain.OrderTokens(chainInfo.WrapIfNative(tokenIn), chainInfo.WrapIfNative(tokenOut))

	var pools []domain.PoolInfo
	switch protocol {
	case domain.ProtocolV2:
		if chainInfo.V2Factory == (common.Address{}) {
			return nil, nil
		}
		pools = append(pools, domain.PoolInfo{Pool: domain.Pool{
			Protocol: domain.ProtocolV2,
			Address:  ComputeV2PairAddress(chainInfo, token0, token1),
			Token0:   token0,
			Token1:   token1,
			Reserve0: uint256.NewInt(0),
			Reserve1: uint256.NewInt(0),
		}})
	case domain.ProtocolV3:
		if chainInfo.V3Factory == (common.Address{}) {
			return nil, nil
		}
		for _, fee := range v3FeeTiers {
			pools = append(pools, domain.PoolInfo{Pool: domain.Pool{
				Protocol: domain.ProtocolV3,
				Address:  ComputeV3PoolAddress(chainInfo, token0, token1, fee),
				Token0:   token0,
				Token1:   token1,
				Fee:      fee,
			}})
		}
	case domain.ProtocolV4:
		if chainInfo.V4PoolManager == (common.Address{}) {
			return nil, nil
		}
		for _, tier := range v4FeeTickSpacings {
			pools = append(pools, domain.PoolInfo{Pool: domain.Pool{
				Protocol:    domain.ProtocolV4,
				Token0:      token0,
				Token1:      token1,
				Fee:         tier.fee,
				TickSpacing: tier.tickSpacing,
				PoolID:      ComputeV4PoolID(token0, token1, tier.fee, tier.tickSpacing, common.Address{}),
			}})
		}
		pools = domain.FilterPoolsByHooks(pools, hooks)
	}

	return pools, nil
}

// ComputeV2PairAddress derives the canonical V2 pair address:
// address(keccak256(0xff, factory, keccak256(token0, token1), initCodeHash)).
func ComputeV2PairAddress(chain domain.ChainInfo, token0, token1 common.Address) common.Address {
	salt := crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
	return crypto.CreateAddress2(chain.V2Factory, salt, chain.V2InitCodeHash.Bytes())
}

// ComputeV3PoolAddress derives the V3 pool address from the factory for a
// (token0, token1, fee) tuple.
func ComputeV3PoolAddress(chain domain.ChainInfo, token0, token1 common.Address, fee uint32) common.Address {
	salt := crypto.Keccak256Hash(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		common.LeftPadBytes(new(uint256.Int).SetUint64(uint64(fee)).Bytes(), 32),
	)
	return crypto.CreateAddress2(chain.V3Factory, salt, chain.V3InitCodeHash.Bytes())
}

// ComputeV4PoolID hashes the abi-encoded pool key the way the V4 pool
// manager does.
func ComputeV4PoolID(token0, token1 common.Address, fee uint32, tickSpacing int32, hooks common.Address) common.Hash {
	return crypto.Keccak256Hash(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		common.LeftPadBytes(new(uint256.Int).SetUint64(uint64(fee)).Bytes(), 32),
		common.LeftPadBytes(new(uint256.Int).SetUint64(uint64(uint32(tickSpacing))).Bytes(), 32),
		common.LeftPadBytes(hooks.Bytes(), 32),
	)
}
