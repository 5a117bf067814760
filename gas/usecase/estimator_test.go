package usecase_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
	usecase "github.com/uniroute/uniroute/gas/usecase"
	"github.com/uniroute/uniroute/log"
)

var (
	tokenA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenC = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func chainInfo(t *testing.T, id domain.ChainID) domain.ChainInfo {
	t.Helper()
	chain, err := domain.GetChainInfo(id)
	require.NoError(t, err)
	return chain
}

func v2Pool(addr string, token0, token1 common.Address) domain.Pool {
	token0, token1 = domain.OrderTokens(token0, token1)
	return domain.Pool{
		Protocol: domain.ProtocolV2,
		Address:  common.HexToAddress(addr),
		Token0:   token0,
		Token1:   token1,
		Reserve0: uint256.NewInt(1000),
		Reserve1: uint256.NewInt(1000),
	}
}

func v3Pool(addr string, token0, token1 common.Address) domain.Pool {
	token0, token1 = domain.OrderTokens(token0, token1)
	return domain.Pool{
		Protocol:  domain.ProtocolV3,
		Address:   common.HexToAddress(addr),
		Token0:    token0,
		Token1:    token1,
		Fee:       3000,
		Liquidity: uint256.NewInt(1000),
	}
}

// Single-hop V2 at 1000 wei gas price: 135000 gas, 135,000,000 wei.
func TestEstimateRouteGas_V2SingleHop(t *testing.T) {
	estimator := usecase.NewGasEstimator(domain.GasConfig{}, nil, nil, log.NewNoOpLogger())

	quote := domain.Quote{
		Route: domain.Route{
			Pools:    []domain.Pool{v2Pool("0xa1", tokenA, tokenB)},
			Protocol: domain.ProtocolV2,
		},
	}

	details, err := estimator.EstimateRouteGas(context.Background(), chainInfo(t, domain.ChainMainnet), quote, uint256.NewInt(1000))
	require.NoError(t, err)

	require.Equal(t, uint64(135000), details.GasUse)
	require.Equal(t, big.NewInt(135_000_000), details.GasCostWei)
}

func TestEstimateRouteGas_V2MultiHop(t *testing.T) {
	estimator := usecase.NewGasEstimator(domain.GasConfig{}, nil, nil, log.NewNoOpLogger())

	quote := domain.Quote{
		Route: domain.Route{
			Pools: []domain.Pool{
				v2Pool("0xa1", tokenA, tokenC),
				v2Pool("0xa2", tokenC, tokenB),
			},
			Protocol: domain.ProtocolV2,
		},
	}

	details, err := estimator.EstimateRouteGas(context.Background(), chainInfo(t, domain.ChainMainnet), quote, uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(135000+50000), details.GasUse)
}

// Single-hop V3 with one tick crossed beyond the first:
// 2000 + 80000 + 15000 + 31000 = 128000.
func TestEstimateRouteGas_V3SingleHopTicks(t *testing.T) {
	estimator := usecase.NewGasEstimator(domain.GasConfig{}, nil, nil, log.NewNoOpLogger())

	quote := domain.Quote{
		Route: domain.Route{
			Pools:    []domain.Pool{v3Pool("0xa1", tokenA, tokenB)},
			Protocol: domain.ProtocolV3,
		},
		TicksCrossed: []uint32{2},
	}

	details, err := estimator.EstimateRouteGas(context.Background(), chainInfo(t, domain.ChainMainnet), quote, uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(128000), details.GasUse)
}

// A "mixed" formula over a route whose pools are all one protocol equals
// the monoprotocol formula.
func TestRouteGasUse_MixedLawMonoprotocol(t *testing.T) {
	chain := chainInfo(t, domain.ChainMainnet)

	pools := []domain.Pool{
		v3Pool("0xa1", tokenA, tokenC),
		v3Pool("0xa2", tokenC, tokenB),
	}
	quote := domain.Quote{
		Route:        domain.Route{Pools: pools, Protocol: domain.ProtocolV3},
		TicksCrossed: []uint32{2, 3},
	}

	direct := usecase.RouteGasUse(chain, quote)

	// 2000 + 2*80000 + 31000*(1+2) = 255000
	require.Equal(t, uint64(255000), direct)

	// The same pools tagged MIXED price identically.
	mixed := quote
	mixed.Route.Protocol = domain.ProtocolMixed
	require.Equal(t, direct, usecase.RouteGasUse(chain, mixed))
}

func TestRouteGasUse_MixedPartitions(t *testing.T) {
	chain := chainInfo(t, domain.ChainMainnet)

	pools := []domain.Pool{
		v2Pool("0xa1", tokenA, tokenC),
		v3Pool("0xa2", tokenC, tokenB),
	}
	quote := domain.Quote{
		Route:        domain.Route{Pools: pools, Protocol: domain.ProtocolMixed},
		TicksCrossed: []uint32{1},
	}

	gasUse := usecase.RouteGasUse(chain, quote)

	// V2 run: 135000. V3 run (single hop): 2000 + 80000 + 15000 = 97000.
	require.Equal(t, uint64(135000+97000), gasUse)
}

func TestRouteGasUse_ExpensiveTokenOverhead(t *testing.T) {
	chain := chainInfo(t, domain.ChainMainnet)

	aave := common.HexToAddress("0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9")
	quote := domain.Quote{
		Route: domain.Route{
			Pools:    []domain.Pool{v3Pool("0xa1", aave, tokenB)},
			Protocol: domain.ProtocolV3,
		},
	}

	gasUse := usecase.RouteGasUse(chain, quote)
	// 2000 + 80000 + 15000 + 150000 = 247000
	require.Equal(t, uint64(247000), gasUse)
}

type fakeArbGasInfo struct {
	perL2Tx           *big.Int
	perL1CalldataByte *big.Int
	perArbGasTotal    *big.Int
}

func (f fakeArbGasInfo) GetPricesInWei(context.Context) (*big.Int, *big.Int, *big.Int, error) {
	return f.perL2Tx, f.perL1CalldataByte, f.perArbGasTotal, nil
}

// Arbitrum with approximate calldata: the L1 component adds to the route
// gas, and the combined cost stays gasPrice * gasUse.
func TestEstimateRouteGas_ArbitrumL1Component(t *testing.T) {
	gasPrice := uint256.NewInt(30_000_000_000) // 30 gwei

	config := domain.GasConfig{
		ArbitrumEnabled:          true,
		UseApproximateCalldata:   true,
		ApproximateCalldataBytes: 1000,
	}
	arb := fakeArbGasInfo{
		perL2Tx:           big.NewInt(0),
		perL1CalldataByte: big.NewInt(30_000_000_000),
		perArbGasTotal:    new(big.Int).Set(gasPrice.ToBig()),
	}
	estimator := usecase.NewGasEstimator(config, nil, arb, log.NewNoOpLogger())

	chain := chainInfo(t, domain.ChainArbitrum)
	quote := domain.Quote{
		Route: domain.Route{
			Pools:    []domain.Pool{v3Pool("0xa1", tokenA, tokenB)},
			Protocol: domain.ProtocolV3,
		},
	}

	details, err := estimator.EstimateRouteGas(context.Background(), chain, quote, gasPrice)
	require.NoError(t, err)

	// Route execution alone: 5000 + 80000 + 15000 = 100000 on Arbitrum.
	require.Greater(t, details.GasUse, uint64(100000))

	wantCost := new(big.Int).Mul(gasPrice.ToBig(), new(big.Int).SetUint64(details.GasUse))
	require.Equal(t, wantCost, details.GasCostWei)
}

// L1 estimation failures contribute zero, never failing the estimate.
type failingArbGasInfo struct{}

func (failingArbGasInfo) GetPricesInWei(context.Context) (*big.Int, *big.Int, *big.Int, error) {
	return nil, nil, nil, context.DeadlineExceeded
}

func TestEstimateRouteGas_L1FailureContributesZero(t *testing.T) {
	config := domain.GasConfig{ArbitrumEnabled: true, UseApproximateCalldata: true, ApproximateCalldataBytes: 100}
	estimator := usecase.NewGasEstimator(config, nil, failingArbGasInfo{}, log.NewNoOpLogger())

	quote := domain.Quote{
		Route: domain.Route{
			Pools:    []domain.Pool{v3Pool("0xa1", tokenA, tokenB)},
			Protocol: domain.ProtocolV3,
		},
	}

	details, err := estimator.EstimateRouteGas(context.Background(), chainInfo(t, domain.ChainArbitrum), quote, uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(100000), details.GasUse)
}
