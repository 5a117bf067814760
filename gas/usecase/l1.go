package usecase

import (
	"bytes"
	"context"
	"math/big"

	"github.com/andybalholm/brotli"
	"github.com/holiman/uint256"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
)

// OPStackGasOracle is the chain's gas price oracle predeploy surface used
// for the OP-stack L1 data component.
type OPStackGasOracle interface {
	EstimateL1Gas(ctx context.Context, data []byte) (uint64, error)
	EstimateL1GasCost(ctx context.Context, data []byte) (*big.Int, error)
}

// ArbGasInfoReader reads the Arbitrum gas info precompile at
// 0x000000000000000000000000000000000000006C.
type ArbGasInfoReader interface {
	// GetPricesInWei returns perL2Tx, perL1CalldataByte and perArbGasTotal.
	GetPricesInWei(ctx context.Context) (perL2Tx, perL1CalldataByte, perArbGasTotal *big.Int, err error)
}

// l1GasEstimator adds the rollup L1 data availability gas term.
type l1GasEstimator struct {
	config   domain.GasConfig
	opStack  OPStackGasOracle
	arbitrum ArbGasInfoReader
	logger   log.Logger
}

func newL1GasEstimator(config domain.GasConfig, opStack OPStackGasOracle, arbitrum ArbGasInfoReader, logger log.Logger) *l1GasEstimator {
	return &l1GasEstimator{
		config:   config,
		opStack:  opStack,
		arbitrum: arbitrum,
		logger:   logger,
	}
}

// estimate returns the L1 contribution and whether one applies. Errors are
// logged and reported as no contribution.
func (e *l1GasEstimator) estimate(ctx context.Context, chain domain.ChainInfo, quote domain.Quote, gasPriceWei *uint256.Int) (domain.GasDetails, bool) {
	switch {
	case chain.IsOPStack && e.config.OPStackEnabled && e.opStack != nil:
		details, err := e.estimateOPStack(ctx, quote, gasPriceWei)
		if err != nil {
			logEstimateError(e.logger, "op-stack", err)
			return domain.GasDetails{}, false
		}
		return details, true
	case chain.IsArbitrum && e.config.ArbitrumEnabled && e.arbitrum != nil:
		details, err := e.estimateArbitrum(ctx, quote, gasPriceWei)
		if err != nil {
			logEstimateError(e.logger, "arbitrum", err)
			return domain.GasDetails{}, false
		}
		return details, true
	default:
		return domain.GasDetails{}, false
	}
}

func (e *l1GasEstimator) estimateOPStack(ctx context.Context, quote domain.Quote, gasPriceWei *uint256.Int) (domain.GasDetails, error) {
	data := e.tradeCalldata(quote)

	l1Gas, err := e.opStack.EstimateL1Gas(ctx, data)
	if err != nil {
		return domain.GasDetails{}, err
	}
	l1Cost, err := e.opStack.EstimateL1GasCost(ctx, data)
	if err != nil {
		return domain.GasDetails{}, err
	}

	costETH, _ := new(big.Float).Quo(new(big.Float).SetInt(l1Cost), big.NewFloat(1e18)).Float64()

	return domain.GasDetails{
		GasPriceWei: gasPriceWei,
		GasUse:      l1Gas,
		GasCostWei:  l1Cost,
		GasCostETH:  costETH,
	}, nil
}

// arbitrumCompressionFactor compensates for approximating brotli quality 0
// with quality 1.
const arbitrumCompressionFactor = 1.2

func (e *l1GasEstimator) estimateArbitrum(ctx context.Context, quote domain.Quote, gasPriceWei *uint256.Int) (domain.GasDetails, error) {
	var data []byte
	if e.config.UseApproximateCalldata {
		data = make([]byte, e.config.ApproximateCalldataBytes)
	} else {
		data = e.tradeCalldata(quote)
	}

	compressedLen, err := brotliCompressedSize(data)
	if err != nil {
		return domain.GasDetails{}, err
	}

	perL2Tx, perL1CalldataByte, perArbGasTotal, err := e.arbitrum.GetPricesInWei(ctx)
	if err != nil {
		return domain.GasDetails{}, err
	}
	if perArbGasTotal.Sign() == 0 {
		return domain.GasDetails{}, domain.QuoterDivisionByZeroError{PoolKey: "arb-gas-info"}
	}

	l1GasUsed := uint64(float64(compressedLen) * 16 * arbitrumCompressionFactor)

	l1Fee := new(big.Int).Mul(new(big.Int).SetUint64(l1GasUsed), perL1CalldataByte)
	l1Fee.Add(l1Fee, perL2Tx)

	gasUsedL1OnL2 := new(big.Int).Div(l1Fee, perArbGasTotal)

	// The derived L1-on-L2 gas bills at the L2 gas price so the combined
	// estimate keeps cost == gasPrice * gasUse.
	cost := new(big.Int).Set(gasUsedL1OnL2)
	if gasPriceWei != nil {
		cost.Mul(cost, gasPriceWei.ToBig())
	}
	costETH, _ := new(big.Float).Quo(new(big.Float).SetInt(cost), big.NewFloat(1e18)).Float64()

	return domain.GasDetails{
		GasPriceWei: gasPriceWei,
		GasUse:      gasUsedL1OnL2.Uint64(),
		GasCostWei:  cost,
		GasCostETH:  costETH,
	}, nil
}

// tradeCalldata renders a deterministic stand-in for the Universal Router
// calldata of the trade. The real calldata is only assembled for the
// winning plan; for gas purposes the byte length dominated by the route
// shape is what matters.
func (e *l1GasEstimator) tradeCalldata(quote domain.Quote) []byte {
	var buf bytes.Buffer
	buf.WriteString(quote.Route.String())
	if quote.AmountIn != nil {
		buf.Write(quote.AmountIn.Bytes())
	}
	if quote.AmountOut != nil {
		buf.Write(quote.AmountOut.Bytes())
	}
	// Pad to the typical selector+head size per hop.
	padding := make([]byte, 68+32*len(quote.Route.Pools))
	buf.Write(padding)
	return buf.Bytes()
}

// brotliCompressedSize returns the brotli quality-1 (lgwin 22) compressed
// byte count of data.
func brotliCompressedSize(data []byte) (int, error) {
	var out bytes.Buffer
	w := brotli.NewWriterOptions(&out, brotli.WriterOptions{Quality: 1, LGWin: 22})
	if _, err := w.Write(data); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return out.Len(), nil
}
