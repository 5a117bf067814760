package quoter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/uniroute/uniroute/chain"
	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/domain/workerpool"
	"github.com/uniroute/uniroute/log"
)

// quoterAddresses maps chains to the deployed QuoterV2 contract.
var quoterAddresses = map[domain.ChainID]common.Address{
	domain.ChainMainnet:  common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
	domain.ChainOptimism: common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
	domain.ChainPolygon:  common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
	domain.ChainBase:     common.HexToAddress("0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"),
	domain.ChainArbitrum: common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
}

var (
	selQuoteExactInputSingle  = crypto.Keccak256([]byte("quoteExactInputSingle((address,address,uint256,uint24,uint160))"))[:4]
	selQuoteExactOutputSingle = crypto.Keccak256([]byte("quoteExactOutputSingle((address,address,uint256,uint24,uint160))"))[:4]
)

// fetchConcurrency bounds the quoter fan-out per request.
const fetchConcurrency = 8

// quoteFetcher prices sub-routes: V2 hops locally from reserves, V3/V4
// hops through the on-chain QuoterV2 contract.
type quoteFetcher struct {
	chains *chain.Client
	logger log.Logger
}

var _ mvc.QuoteFetcher = &quoteFetcher{}

// NewQuoteFetcher creates the fetcher over the shared chain clients.
func NewQuoteFetcher(chains *chain.Client, logger log.Logger) mvc.QuoteFetcher {
	return &quoteFetcher{chains: chains, logger: logger}
}

// FetchQuotes prices every (route, percentage) pair concurrently,
// preserving input order. Routes that fail to quote return nil amounts.
func (f *quoteFetcher) FetchQuotes(ctx context.Context, chainID domain.ChainID, tradeType domain.TradeType, amount *big.Int, routes []domain.Route) ([]domain.Quote, error) {
	tasks := make([]func() (domain.Quote, error), len(routes))
	for i, r := range routes {
		r := r
		tasks[i] = func() (domain.Quote, error) {
			return f.quoteRoute(ctx, chainID, tradeType, amount, r)
		}
	}

	results := workerpool.RunAll(ctx, fetchConcurrency, tasks)

	quotes := make([]domain.Quote, len(routes))
	for i, result := range results {
		if result.Err != nil {
			quotes[i] = domain.Quote{Route: routes[i]}
			continue
		}
		quotes[i] = result.Result
	}
	return quotes, nil
}

func (f *quoteFetcher) quoteRoute(ctx context.Context, chainID domain.ChainID, tradeType domain.TradeType, amount *big.Int, r domain.Route) (domain.Quote, error) {
	if len(r.Pools) == 0 {
		return domain.Quote{Route: r}, nil
	}

	// The percentage share of the total amount routed through this copy.
	legAmount := new(big.Int).Mul(amount, big.NewInt(int64(r.Percentage)))
	legAmount.Div(legAmount, big.NewInt(100))
	if legAmount.Sign() == 0 {
		return domain.Quote{Route: r}, nil
	}

	pools := r.Pools
	if tradeType == domain.ExactOut {
		// Walk the path backwards for EXACT_OUT hops.
		pools = make([]domain.Pool, len(r.Pools))
		for i, p := range r.Pools {
			pools[len(r.Pools)-1-i] = p
		}
	}

	chainInfo, err := domain.GetChainInfo(chainID)
	if err != nil {
		return domain.Quote{}, err
	}

	current := entryToken(chainInfo, r, tradeType)
	hopAmount := new(big.Int).Set(legAmount)
	var ticksCrossed []uint32

	for _, p := range pools {
		next, ok := p.OtherToken(current)
		if !ok {
			return domain.Quote{}, fmt.Errorf("disconnected route at pool (%s)", p.Key())
		}

		if p.IsSynthetic() {
			// ETH <-> WETH converts 1:1.
			current = next
			continue
		}

		var ticks uint32
		hopAmount, ticks, err = f.quoteHop(ctx, chainID, tradeType, p, current, next, hopAmount)
		if err != nil {
			return domain.Quote{}, err
		}
		if p.Protocol != domain.ProtocolV2 {
			ticksCrossed = append(ticksCrossed, ticks)
		}

		current = next
	}

	quote := domain.Quote{Route: r, TicksCrossed: ticksCrossed}
	if tradeType == domain.ExactOut {
		quote.AmountOut = legAmount
		quote.AmountIn = hopAmount
	} else {
		quote.AmountIn = legAmount
		quote.AmountOut = hopAmount
	}
	return quote, nil
}

func entryToken(chainInfo domain.ChainInfo, r domain.Route, tradeType domain.TradeType) common.Address {
	endpoint := r.TokenIn
	pools := r.Pools
	if tradeType == domain.ExactOut {
		endpoint = r.TokenOut
		pools = []domain.Pool{r.Pools[len(r.Pools)-1]}
	}
	if len(pools) > 0 && chainInfo.IsNativeOrWrapped(endpoint) {
		if pools[0].HasToken(domain.NativeAddress) {
			return domain.NativeAddress
		}
		return chainInfo.WrappedNative
	}
	return endpoint
}

// quoteHop prices one hop. V2 pools compute the constant-product output
// with the canonical 30bps fee locally; V3/V4 call the quoter contract.
func (f *quoteFetcher) quoteHop(ctx context.Context, chainID domain.ChainID, tradeType domain.TradeType, p domain.Pool, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, uint32, error) {
	if p.Protocol == domain.ProtocolV2 {
		out, err := quoteV2Hop(tradeType, p, tokenIn, amount)
		return out, 0, err
	}
	return f.quoteV3Hop(ctx, chainID, tradeType, p, tokenIn, tokenOut, amount)
}

func quoteV2Hop(tradeType domain.TradeType, p domain.Pool, tokenIn common.Address, amount *big.Int) (*big.Int, error) {
	if p.Reserve0 == nil || p.Reserve1 == nil || p.Reserve0.IsZero() || p.Reserve1.IsZero() {
		return nil, domain.PoolNoLiquidityError{Address: p.Address}
	}

	reserveIn, reserveOut := p.Reserve0.ToBig(), p.Reserve1.ToBig()
	if tokenIn == p.Token1 {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	if tradeType == domain.ExactOut {
		// amountIn = reserveIn*amountOut*1000 / ((reserveOut-amountOut)*997) + 1
		remaining := new(big.Int).Sub(reserveOut, amount)
		if remaining.Sign() <= 0 {
			return nil, domain.PoolNoLiquidityError{Address: p.Address}
		}
		numerator := new(big.Int).Mul(reserveIn, amount)
		numerator.Mul(numerator, big.NewInt(1000))
		denominator := new(big.Int).Mul(remaining, big.NewInt(997))
		quotient := numerator.Div(numerator, denominator)
		return quotient.Add(quotient, big.NewInt(1)), nil
	}

	// amountOut = amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)
	amountWithFee := new(big.Int).Mul(amount, big.NewInt(997))
	numerator := new(big.Int).Mul(amountWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(1000))
	denominator.Add(denominator, amountWithFee)
	return numerator.Div(numerator, denominator), nil
}

func (f *quoteFetcher) quoteV3Hop(ctx context.Context, chainID domain.ChainID, tradeType domain.TradeType, p domain.Pool, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, uint32, error) {
	client, ok := f.chains.EthClient(chainID)
	if !ok {
		return nil, 0, domain.UnsupportedChainError{ChainID: uint64(chainID)}
	}
	quoterAddress, ok := quoterAddresses[chainID]
	if !ok {
		return nil, 0, domain.UnsupportedChainError{ChainID: uint64(chainID)}
	}

	sel := selQuoteExactInputSingle
	if tradeType == domain.ExactOut {
		sel = selQuoteExactOutputSingle
	}

	calldata := make([]byte, 0, 4+5*32)
	calldata = append(calldata, sel...)
	calldata = append(calldata, common.LeftPadBytes(tokenIn.Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(tokenOut.Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(amount.Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(new(big.Int).SetUint64(uint64(p.Fee)).Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(nil, 32)...) // no price limit

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &quoterAddress, Data: calldata}, nil)
	if err != nil {
		return nil, 0, err
	}
	// QuoterV2 returns amount, sqrtPriceX96After, initializedTicksCrossed,
	// gasEstimate.
	if len(out) < 3*32 {
		return nil, 0, fmt.Errorf("short quoter response")
	}

	quoted := new(big.Int).SetBytes(out[0:32])
	ticks := uint32(new(big.Int).SetBytes(out[64:96]).Uint64())

	return quoted, ticks, nil
}
