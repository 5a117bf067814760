package types

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/uniroute/uniroute/domain"
)

// GetQuoteRequest is the raw wire form of the quote RPC request before
// validation.
type GetQuoteRequest struct {
	TokenInAddress   string `query:"tokenInAddress"`
	TokenInChainID   uint64 `query:"tokenInChainId"`
	TokenOutAddress  string `query:"tokenOutAddress"`
	TokenOutChainID  uint64 `query:"tokenOutChainId"`
	Amount           string `query:"amount"`
	TradeType        string `query:"tradeType"`
	QuoteType        string `query:"quoteType"`
	Protocols        string `query:"protocols"`
	ForceMixed       bool   `query:"forceMixed"`
	HooksOptions     string `query:"hooksOptions"`
	Recipient        string `query:"recipient"`
	Slippage         string `query:"slippageTolerance"`
	Deadline         string `query:"deadline"`
	PortionBips      uint64 `query:"portionBips"`
	PortionRecipient string `query:"portionRecipient"`
	Permit2Signature string `query:"permitSignature"`
	Permit2Nonce     string `query:"permitNonce"`
	SimulateFrom     string `query:"simulateFromAddress"`
	DebugLogs        bool   `query:"debugLogs"`
}

// Bind reads the request off the echo context.
func (r *GetQuoteRequest) Bind(c echo.Context) error {
	return c.Bind(r)
}

// Validate resolves and validates the request into its internal form.
// Every violation surfaces as a ValidationError with a 400 status.
func (r *GetQuoteRequest) Validate(maxSlippagePercent float64) (domain.QuoteRequest, error) {
	if r.TokenInChainID != r.TokenOutChainID {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Token in and out must be on the same chain"}
	}

	chainID := domain.ChainID(r.TokenInChainID)
	if !domain.IsSupportedChain(chainID) {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Unsupported chain id: " + strconv.FormatUint(r.TokenInChainID, 10)}
	}
	chain, err := domain.GetChainInfo(chainID)
	if err != nil {
		return domain.QuoteRequest{}, domain.ValidationError{Message: err.Error()}
	}

	tokenIn, tokenInIsETH, err := parseTokenAddress(r.TokenInAddress)
	if err != nil {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid tokenInAddress"}
	}
	tokenOut, tokenOutIsETH, err := parseTokenAddress(r.TokenOutAddress)
	if err != nil {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid tokenOutAddress"}
	}

	// Same-token detection accounts for native/wrapped aliasing: ETH and
	// WETH are the same asset after wrapping resolution.
	if chain.WrapIfNative(tokenIn) == chain.WrapIfNative(tokenOut) {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Token in and out must not be the same"}
	}

	amount, ok := new(big.Int).SetString(r.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Amount must be a positive integer"}
	}

	tradeType, err := domain.ParseTradeType(r.TradeType)
	if err != nil {
		return domain.QuoteRequest{}, domain.ValidationError{Message: err.Error()}
	}

	quoteType := domain.QuoteFast
	if r.QuoteType != "" {
		switch domain.QuoteType(strings.ToUpper(r.QuoteType)) {
		case domain.QuoteFast:
			quoteType = domain.QuoteFast
		case domain.QuoteFresh:
			quoteType = domain.QuoteFresh
		default:
			return domain.QuoteRequest{}, domain.ValidationError{Message: "quoteType must be FAST or FRESH"}
		}
	}

	protocols, err := domain.ParseProtocols(r.Protocols)
	if err != nil {
		return domain.QuoteRequest{}, domain.ValidationError{Message: err.Error()}
	}
	if len(protocols) == 0 {
		protocols = []domain.Protocol{domain.ProtocolV2, domain.ProtocolV3, domain.ProtocolV4, domain.ProtocolMixed}
	}
	if len(protocols) == 1 && protocols[0] == domain.ProtocolMixed {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Protocol MIXED must not be requested alone"}
	}

	hooks := domain.HooksInclusive
	if r.HooksOptions != "" {
		switch domain.HooksOption(strings.ToUpper(r.HooksOptions)) {
		case domain.HooksInclusive, domain.HooksOnly, domain.NoHooks:
			hooks = domain.HooksOption(strings.ToUpper(r.HooksOptions))
		default:
			return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid hooksOptions"}
		}
	}

	var recipient *common.Address
	if r.Recipient != "" {
		if !common.IsHexAddress(r.Recipient) {
			return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid recipient address"}
		}
		addr := common.HexToAddress(r.Recipient)
		recipient = &addr
	}

	slippage := 0.5
	if r.Slippage != "" {
		slippage, err = strconv.ParseFloat(r.Slippage, 64)
		if err != nil || slippage < 0 {
			return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid slippageTolerance"}
		}
	}
	if slippage > maxSlippagePercent {
		return domain.QuoteRequest{}, domain.ValidationError{Message: "Slippage tolerance must not exceed " + strconv.FormatFloat(maxSlippagePercent, 'f', -1, 64) + "%"}
	}

	var deadlineSecs int64
	if r.Deadline != "" {
		deadlineSecs, err = strconv.ParseInt(r.Deadline, 10, 64)
		if err != nil || deadlineSecs < 0 {
			return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid deadline"}
		}
	}

	var portionRecipient *common.Address
	if r.PortionRecipient != "" {
		if !common.IsHexAddress(r.PortionRecipient) {
			return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid portionRecipient address"}
		}
		addr := common.HexToAddress(r.PortionRecipient)
		portionRecipient = &addr
	}

	var simulateFrom *common.Address
	if r.SimulateFrom != "" {
		if !common.IsHexAddress(r.SimulateFrom) {
			return domain.QuoteRequest{}, domain.ValidationError{Message: "Invalid simulateFromAddress"}
		}
		addr := common.HexToAddress(r.SimulateFrom)
		simulateFrom = &addr
	}

	return domain.QuoteRequest{
		TokenIn:             tokenIn,
		TokenInIsETH:        tokenInIsETH,
		TokenOut:            tokenOut,
		TokenOutIsETH:       tokenOutIsETH,
		ChainID:             chainID,
		Amount:              amount,
		TradeType:           tradeType,
		QuoteType:           quoteType,
		Protocols:           protocols,
		ForceMixed:          r.ForceMixed,
		Hooks:               hooks,
		Recipient:           recipient,
		SlippagePct:         slippage,
		DeadlineSecs:        deadlineSecs,
		PortionBips:         r.PortionBips,
		PortionRecipient:    portionRecipient,
		Permit2Signature:    r.Permit2Signature,
		Permit2Nonce:        r.Permit2Nonce,
		SimulateFromAddress: simulateFrom,
		RequestID:           uuid.NewString(),
		DebugLogs:           r.DebugLogs,
	}, nil
}

// parseTokenAddress resolves a token field: the literal "ETH" (or the zero
// address) denotes the native currency.
func parseTokenAddress(s string) (common.Address, bool, error) {
	trimmed := strings.TrimSpace(s)
	if strings.EqualFold(trimmed, "ETH") {
		return domain.NativeAddress, true, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, false, domain.ErrBadParamInput
	}
	addr := common.HexToAddress(trimmed)
	return addr, addr == domain.NativeAddress, nil
}
