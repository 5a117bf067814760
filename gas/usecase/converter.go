package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// gasConverter converts gas in native wei into the quote token by pricing
// it through the deepest native/quote pool, in protocol priority
// V3, V2, V4.
type gasConverter struct {
	logger log.Logger
}

var _ mvc.GasConverter = &gasConverter{}

// NewGasConverter creates the converter.
func NewGasConverter(logger log.Logger) mvc.GasConverter {
	return &gasConverter{logger: logger}
}

func (c *gasConverter) ConvertGas(ctx context.Context, chain domain.ChainInfo, quoteToken domain.TokenInfo, pools []domain.PoolInfo, gas *domain.GasDetails) error {
	if gas == nil {
		return nil
	}

	// USD cost derives from the wrapped-native USD price when known.
	gas.GasCostUSD = nativeUSDCost(chain, pools, gas.GasCostETH)

	// Identity conversion when the quote token is the wrapped native.
	if quoteToken.Address == chain.WrappedNative || domain.IsNative(quoteToken.Address) {
		gas.GasCostQuoteToken = new(big.Int)
		if gas.GasCostWei != nil {
			gas.GasCostQuoteToken.Set(gas.GasCostWei)
		}
		return nil
	}

	pool, ok := deepestNativeQuotePool(chain, pools, quoteToken.Address)
	if !ok {
		gas.GasCostQuoteToken = new(big.Int)
		return nil
	}

	converted, err := convertThroughPool(chain, pool, gas.GasCostWei)
	if err != nil {
		// A pathological mid price must not fail the quote.
		domain.UniRouteGasConversionErrorCounter.Inc()
		c.logger.Warn("gas conversion failed, reporting zero quote-token cost",
			zap.String("pool", pool.Key()), zap.Error(err))
		gas.GasCostQuoteToken = new(big.Int)
		return nil
	}

	gas.GasCostQuoteToken = converted
	return nil
}

// protocolPriority orders candidate conversion pools when depths tie.
var protocolPriority = map[domain.Protocol]int{
	domain.ProtocolV3: 0,
	domain.ProtocolV2: 1,
	domain.ProtocolV4: 2,
}

// deepestNativeQuotePool finds the deepest pool pairing the wrapped native
// with the quote token.
func deepestNativeQuotePool(chain domain.ChainInfo, pools []domain.PoolInfo, quoteToken common.Address) (domain.PoolInfo, bool) {
	var best domain.PoolInfo
	found := false
	for _, p := range pools {
		if p.IsSynthetic() {
			continue
		}
		if !p.HasToken(chain.WrappedNative) || !p.HasToken(quoteToken) {
			continue
		}
		if !found {
			best = p
			found = true
			continue
		}
		if p.TVLUSD > best.TVLUSD {
			best = p
			continue
		}
		if p.TVLUSD == best.TVLUSD && protocolPriority[p.Protocol] < protocolPriority[best.Protocol] {
			best = p
		}
	}
	return best, found
}

// convertThroughPool converts a wei amount into the quote token at the
// pool's mid price.
func convertThroughPool(chain domain.ChainInfo, pool domain.PoolInfo, amountWei *big.Int) (*big.Int, error) {
	if amountWei == nil {
		return new(big.Int), nil
	}

	switch pool.Protocol {
	case domain.ProtocolV2:
		nativeReserve, quoteReserve := pool.Reserve0, pool.Reserve1
		if pool.Token1 == chain.WrappedNative {
			nativeReserve, quoteReserve = pool.Reserve1, pool.Reserve0
		}
		if nativeReserve == nil || nativeReserve.IsZero() {
			return nil, domain.QuoterDivisionByZeroError{PoolKey: pool.Key()}
		}
		converted := new(big.Int).Mul(amountWei, quoteReserve.ToBig())
		return converted.Div(converted, nativeReserve.ToBig()), nil
	default:
		if pool.SqrtPriceX96 == nil || pool.SqrtPriceX96.IsZero() {
			return nil, domain.QuoterDivisionByZeroError{PoolKey: pool.Key()}
		}

		// price(token1/token0) = (sqrtPriceX96 / 2^96)^2
		sqrt := pool.SqrtPriceX96.ToBig()
		priceNum := new(big.Int).Mul(sqrt, sqrt)
		priceDenom := new(big.Int).Lsh(big.NewInt(1), 192)

		if pool.Token0 == chain.WrappedNative {
			converted := new(big.Int).Mul(amountWei, priceNum)
			return converted.Div(converted, priceDenom), nil
		}
		converted := new(big.Int).Mul(amountWei, priceDenom)
		return converted.Div(converted, priceNum), nil
	}
}

// nativeUSDCost prices the ETH-denominated gas cost in USD using the
// wrapped native token's USD price when any pool carries one; zero when
// unknown.
func nativeUSDCost(chain domain.ChainInfo, pools []domain.PoolInfo, gasCostETH float64) float64 {
	price := wrappedNativePriceUSD(chain, pools)
	if price <= 0 {
		return 0
	}
	return price * gasCostETH
}

// wrappedNativePriceUSD derives the wrapped-native USD price from the
// deepest pool's TVL ratio when available.
func wrappedNativePriceUSD(chain domain.ChainInfo, pools []domain.PoolInfo) float64 {
	var bestTVL float64
	var price float64
	for _, p := range pools {
		if !p.HasToken(chain.WrappedNative) {
			continue
		}
		if p.TVLETH <= 0 || p.TVLUSD <= 0 {
			continue
		}
		if p.TVLUSD > bestTVL {
			bestTVL = p.TVLUSD
			price = p.TVLUSD / p.TVLETH
		}
	}
	return price
}
