package domain_test

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

	hooksAddr = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func v2Pool(addr string, token0, token1 common.Address) domain.Pool {
	return domain.Pool{
		Protocol: domain.ProtocolV2,
		Address:  common.HexToAddress(addr),
		Token0:   token0,
		Token1:   token1,
		Reserve0: uint256.NewInt(1000),
		Reserve1: uint256.NewInt(2000),
	}
}

func v3Pool(addr string, token0, token1 common.Address, liquidity uint64) domain.Pool {
	return domain.Pool{
		Protocol:     domain.ProtocolV3,
		Address:      common.HexToAddress(addr),
		Token0:       token0,
		Token1:       token1,
		Fee:          3000,
		Liquidity:    uint256.NewInt(liquidity),
		SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96),
	}
}

func TestOrderTokens(t *testing.T) {
	first, second := domain.OrderTokens(tokenB, tokenA)
	require.Equal(t, tokenA, first)
	require.Equal(t, tokenB, second)

	first, second = domain.OrderTokens(tokenA, tokenB)
	require.Equal(t, tokenA, first)
	require.Equal(t, tokenB, second)
}

func TestPoolValidate(t *testing.T) {
	tests := []struct {
		name    string
		pool    domain.Pool
		wantErr bool
	}{
		{
			name: "valid v2",
			pool: v2Pool("0xa1", tokenA, tokenB),
		},
		{
			name:    "wrong token order",
			pool:    v2Pool("0xa1", tokenB, tokenA),
			wantErr: true,
		},
		{
			name: "valid v3",
			pool: v3Pool("0xa2", tokenA, tokenB, 100),
		},
		{
			name:    "v3 zero liquidity",
			pool:    v3Pool("0xa2", tokenA, tokenB, 0),
			wantErr: true,
		},
		{
			name: "v4 zero liquidity with hooks survives",
			pool: domain.Pool{
				Protocol:  domain.ProtocolV4,
				Token0:    tokenA,
				Token1:    tokenB,
				Liquidity: uint256.NewInt(0),
				Hooks:     hooksAddr,
			},
		},
		{
			name: "v4 zero liquidity without hooks dropped",
			pool: domain.Pool{
				Protocol:  domain.ProtocolV4,
				Token0:    tokenA,
				Token1:    tokenB,
				Liquidity: uint256.NewInt(0),
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pool.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFilterPoolsByHooks(t *testing.T) {
	hooked := domain.PoolInfo{Pool: domain.Pool{Protocol: domain.ProtocolV4, Token0: tokenA, Token1: tokenB, Hooks: hooksAddr}}
	plain := domain.PoolInfo{Pool: domain.Pool{Protocol: domain.ProtocolV4, Token0: tokenA, Token1: tokenB}}
	v2 := domain.PoolInfo{Pool: v2Pool("0xa1", tokenA, tokenB)}

	pools := []domain.PoolInfo{hooked, plain, v2}

	require.Len(t, domain.FilterPoolsByHooks(pools, domain.HooksInclusive), 3)

	onlyHooked := domain.FilterPoolsByHooks(pools, domain.HooksOnly)
	require.Len(t, onlyHooked, 2)
	require.True(t, onlyHooked[0].HasHooks())

	noHooks := domain.FilterPoolsByHooks(pools, domain.NoHooks)
	require.Len(t, noHooks, 2)
	require.False(t, noHooks[0].HasHooks())
}

func TestBuildTokenPoolIndex(t *testing.T) {
	pools := []domain.PoolInfo{
		{Pool: v2Pool("0xa1", tokenA, tokenB)},
		{Pool: v2Pool("0xa2", tokenB, tokenC)},
	}

	index := domain.BuildTokenPoolIndex(pools)

	require.Equal(t, []int{0}, index[tokenA])
	require.Equal(t, []int{0, 1}, index[tokenB])
	require.Equal(t, []int{1}, index[tokenC])
}

func TestPoolOtherToken(t *testing.T) {
	p := v2Pool("0xa1", tokenA, tokenB)

	other, ok := p.OtherToken(tokenA)
	require.True(t, ok)
	require.Equal(t, tokenB, other)

	_, ok = p.OtherToken(tokenC)
	require.False(t, ok)
}

func TestPoolIsSynthetic(t *testing.T) {
	synthetic := domain.Pool{Protocol: domain.ProtocolV4, TickSpacing: domain.FakeTickSpacing}
	require.True(t, synthetic.IsSynthetic())

	real := domain.Pool{Protocol: domain.ProtocolV4, TickSpacing: 60}
	require.False(t, real.IsSynthetic())
}
