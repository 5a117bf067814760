package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/router/types"
)

func validRequest() types.GetQuoteRequest {
	return types.GetQuoteRequest{
		TokenInAddress:  "0x1111111111111111111111111111111111111111",
		TokenInChainID:  1,
		TokenOutAddress: "0x2222222222222222222222222222222222222222",
		TokenOutChainID: 1,
		Amount:          "1000000",
		TradeType:       "EXACT_IN",
		Protocols:       "v2,v3,v4,mixed",
	}
}

func TestValidate_SameToken(t *testing.T) {
	req := validRequest()
	req.TokenOutAddress = req.TokenInAddress

	_, err := req.Validate(20)
	require.Error(t, err)
	require.Equal(t, "Token in and out must not be the same", err.Error())
	require.Equal(t, 400, domain.GetStatusCode(err))
}

// ETH and WETH resolve to the same asset after wrapping.
func TestValidate_ETHWETHSameToken(t *testing.T) {
	req := validRequest()
	req.TokenInAddress = "ETH"
	req.TokenOutAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

	_, err := req.Validate(20)
	require.Error(t, err)
	require.Equal(t, "Token in and out must not be the same", err.Error())
}

func TestValidate_UnsupportedChain(t *testing.T) {
	req := validRequest()
	req.TokenInChainID = 999999
	req.TokenOutChainID = 999999

	_, err := req.Validate(20)
	require.Error(t, err)
	require.Equal(t, 400, domain.GetStatusCode(err))
}

func TestValidate_ChainMismatch(t *testing.T) {
	req := validRequest()
	req.TokenOutChainID = 10

	_, err := req.Validate(20)
	require.Error(t, err)
}

func TestValidate_Amount(t *testing.T) {
	req := validRequest()
	req.Amount = "0"
	_, err := req.Validate(20)
	require.Error(t, err)

	req.Amount = "-5"
	_, err = req.Validate(20)
	require.Error(t, err)

	req.Amount = "not-a-number"
	_, err = req.Validate(20)
	require.Error(t, err)

	// Arbitrary precision decimal strings parse.
	req.Amount = "123456789012345678901234567890123456789"
	parsed, err := req.Validate(20)
	require.NoError(t, err)
	require.Equal(t, "123456789012345678901234567890123456789", parsed.Amount.String())
}

func TestValidate_SlippageBoundary(t *testing.T) {
	req := validRequest()

	req.Slippage = "20"
	_, err := req.Validate(20)
	require.NoError(t, err)

	req.Slippage = "21"
	_, err = req.Validate(20)
	require.Error(t, err)
}

func TestValidate_MixedAloneRejected(t *testing.T) {
	req := validRequest()
	req.Protocols = "mixed"

	_, err := req.Validate(20)
	require.Error(t, err)
	require.Equal(t, "Protocol MIXED must not be requested alone", err.Error())
}

func TestValidate_InvalidRecipient(t *testing.T) {
	req := validRequest()
	req.Recipient = "not-an-address"

	_, err := req.Validate(20)
	require.Error(t, err)
}

func TestValidate_Defaults(t *testing.T) {
	req := validRequest()
	req.Protocols = ""
	req.QuoteType = ""

	parsed, err := req.Validate(20)
	require.NoError(t, err)

	require.True(t, parsed.WantsAllProtocols())
	require.Equal(t, domain.QuoteFast, parsed.QuoteType)
	require.Equal(t, domain.HooksInclusive, parsed.Hooks)
	require.NotEmpty(t, parsed.RequestID)
}

func TestValidate_NativeTokenIn(t *testing.T) {
	req := validRequest()
	req.TokenInAddress = "ETH"

	parsed, err := req.Validate(20)
	require.NoError(t, err)
	require.True(t, parsed.TokenInIsETH)
	require.Equal(t, domain.NativeAddress, parsed.TokenIn)
}
