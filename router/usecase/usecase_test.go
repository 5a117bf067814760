package usecase_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
)

var (
	tokenA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenC = common.HexToAddress("0x3333333333333333333333333333333333333333")
	tokenD = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func mainnet(t *testing.T) domain.ChainInfo {
	t.Helper()
	chain, err := domain.GetChainInfo(domain.ChainMainnet)
	require.NoError(t, err)
	return chain
}

func testRouterConfig() domain.RouterConfig {
	return domain.RouterConfig{
		MaxHops:             3,
		MaxHopsExtended:     4,
		MinRoutesThreshold:  5,
		MaxExtendedRoutes:   10,
		PercentageStep:      50,
		MaxSplits:           2,
		MaxSplitRoutes:      16,
		RouteSplitTimeoutMs: 1000,
		TopQuotesToSimulate: 3,
		MaxSlippagePercent:  20,
	}
}

func mkV2(addr string, token0, token1 common.Address) domain.PoolInfo {
	token0, token1 = domain.OrderTokens(token0, token1)
	return domain.PoolInfo{
		Pool: domain.Pool{
			Protocol: domain.ProtocolV2,
			Address:  common.HexToAddress(addr),
			Token0:   token0,
			Token1:   token1,
			Reserve0: uint256.NewInt(1_000_000),
			Reserve1: uint256.NewInt(1_000_000),
		},
		TVLUSD: 1000,
		TVLETH: 1,
	}
}

func mkV3(addr string, token0, token1 common.Address) domain.PoolInfo {
	token0, token1 = domain.OrderTokens(token0, token1)
	return domain.PoolInfo{
		Pool: domain.Pool{
			Protocol:     domain.ProtocolV3,
			Address:      common.HexToAddress(addr),
			Token0:       token0,
			Token1:       token1,
			Fee:          3000,
			Liquidity:    uint256.NewInt(1_000_000),
			SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96),
		},
		TVLUSD: 2000,
		TVLETH: 2,
	}
}

func mkV4(addr string, token0, token1 common.Address) domain.PoolInfo {
	token0, token1 = domain.OrderTokens(token0, token1)
	info := domain.PoolInfo{
		Pool: domain.Pool{
			Protocol:     domain.ProtocolV4,
			Token0:       token0,
			Token1:       token1,
			Fee:          3000,
			TickSpacing:  60,
			Liquidity:    uint256.NewInt(1_000_000),
			SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96),
		},
		TVLUSD: 1500,
		TVLETH: 1.5,
	}
	info.Pool.PoolID = common.HexToHash(addr)
	return info
}
