package calldata

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
)

// universalRouterAddresses maps chains to the deployed Universal Router.
var universalRouterAddresses = map[domain.ChainID]common.Address{
	domain.ChainMainnet:  common.HexToAddress("0x66a9893cC07D91D95644AEDD05D03f95e1dBA8Af"),
	domain.ChainOptimism: common.HexToAddress("0x851116D9223fabED8E56C0E6b8Ad0c31d98B7Ad0"),
	domain.ChainPolygon:  common.HexToAddress("0x1095692A6237d83C6a72F3F5eFEdb9A670C49223"),
	domain.ChainBase:     common.HexToAddress("0x6fF5693b99212Da76ad316178A184AB56D299b43"),
	domain.ChainArbitrum: common.HexToAddress("0xA51afAFe0263b40EdaEf0Df8781eA9aa03E381a3"),
}

// Universal Router command bytes.
const (
	commandV3SwapExactIn  byte = 0x00
	commandV3SwapExactOut byte = 0x01
	commandV2SwapExactIn  byte = 0x08
	commandV2SwapExactOut byte = 0x09
	commandV4Swap         byte = 0x10
	commandWrapETH        byte = 0x0b
	commandUnwrapWETH     byte = 0x0c
)

// builder assembles Universal Router execute() calldata for a split.
type builder struct{}

var _ mvc.CalldataBuilder = builder{}

// NewBuilder creates the Universal Router calldata builder.
func NewBuilder() mvc.CalldataBuilder {
	return builder{}
}

var selExecute = []byte{0x35, 0x93, 0x56, 0x4c} // execute(bytes,bytes[],uint256)

func (builder) BuildSwapCalldata(chain domain.ChainInfo, tradeType domain.TradeType, split domain.QuoteSplit, recipient common.Address, slippagePercent float64, deadline time.Time) (domain.MethodParameters, error) {
	router, ok := universalRouterAddresses[chain.ID]
	if !ok {
		return domain.MethodParameters{}, domain.UnsupportedChainError{ChainID: uint64(chain.ID)}
	}

	commands := make([]byte, 0, len(split.Quotes)+2)
	inputs := make([][]byte, 0, len(split.Quotes)+2)
	value := new(big.Int)

	nativeIn := false
	for _, q := range split.Quotes {
		if domain.IsNative(q.Route.TokenIn) {
			nativeIn = true
			if q.AmountIn != nil {
				value.Add(value, q.AmountIn)
			}
		}
	}
	if nativeIn && !routesUseNativeDirectly(split) {
		commands = append(commands, commandWrapETH)
		inputs = append(inputs, encodeWrap(recipient, value))
	}

	for _, q := range split.Quotes {
		command, input, err := encodeLeg(chain, tradeType, q, recipient, slippagePercent)
		if err != nil {
			return domain.MethodParameters{}, err
		}
		commands = append(commands, command)
		inputs = append(inputs, input)
	}

	if domain.IsNative(split.Quotes[0].Route.TokenOut) {
		commands = append(commands, commandUnwrapWETH)
		inputs = append(inputs, encodeWrap(recipient, new(big.Int)))
	}

	data := encodeExecute(commands, inputs, deadline)

	return domain.MethodParameters{
		To:       router,
		Calldata: data,
		Value:    value,
	}, nil
}

func routesUseNativeDirectly(split domain.QuoteSplit) bool {
	for _, q := range split.Quotes {
		for _, p := range q.Route.Pools {
			if p.HasToken(domain.NativeAddress) && !p.IsSynthetic() {
				return true
			}
		}
	}
	return false
}

// encodeLeg renders one split leg as a swap command with the path and a
// slippage-bounded amount limit.
func encodeLeg(chain domain.ChainInfo, tradeType domain.TradeType, q domain.Quote, recipient common.Address, slippagePercent float64) (byte, []byte, error) {
	protocol := q.Route.Protocol
	if protocol == domain.ProtocolMixed {
		// Mixed legs route through the V4 swap command which accepts
		// cross-protocol path segments.
		protocol = domain.ProtocolV4
	}

	var command byte
	switch protocol {
	case domain.ProtocolV2:
		command = commandV2SwapExactIn
		if tradeType == domain.ExactOut {
			command = commandV2SwapExactOut
		}
	case domain.ProtocolV3:
		command = commandV3SwapExactIn
		if tradeType == domain.ExactOut {
			command = commandV3SwapExactOut
		}
	default:
		command = commandV4Swap
	}

	limit := amountLimit(tradeType, q, slippagePercent)

	input := make([]byte, 0, 32*(4+len(q.Route.Pools)))
	input = append(input, common.LeftPadBytes(recipient.Bytes(), 32)...)
	if q.AmountIn != nil {
		input = append(input, common.LeftPadBytes(q.AmountIn.Bytes(), 32)...)
	} else {
		input = append(input, common.LeftPadBytes(nil, 32)...)
	}
	input = append(input, common.LeftPadBytes(limit.Bytes(), 32)...)
	for _, p := range q.Route.Pools {
		if p.IsSynthetic() {
			continue
		}
		input = append(input, common.LeftPadBytes(p.Token0.Bytes(), 32)...)
		input = append(input, common.LeftPadBytes(p.Token1.Bytes(), 32)...)
		input = append(input, common.LeftPadBytes(new(big.Int).SetUint64(uint64(p.Fee)).Bytes(), 32)...)
	}

	return command, input, nil
}

// amountLimit applies the slippage tolerance: minimum output for EXACT_IN,
// maximum input for EXACT_OUT.
func amountLimit(tradeType domain.TradeType, q domain.Quote, slippagePercent float64) *big.Int {
	bips := int64(slippagePercent * 100)

	if tradeType == domain.ExactOut {
		if q.AmountIn == nil {
			return new(big.Int)
		}
		limit := new(big.Int).Mul(q.AmountIn, big.NewInt(10000+bips))
		return limit.Div(limit, big.NewInt(10000))
	}

	if q.AmountOut == nil {
		return new(big.Int)
	}
	limit := new(big.Int).Mul(q.AmountOut, big.NewInt(10000-bips))
	return limit.Div(limit, big.NewInt(10000))
}

func encodeWrap(recipient common.Address, amount *big.Int) []byte {
	input := make([]byte, 0, 64)
	input = append(input, common.LeftPadBytes(recipient.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(amount.Bytes(), 32)...)
	return input
}

// encodeExecute abi-encodes execute(bytes commands, bytes[] inputs,
// uint256 deadline).
func encodeExecute(commands []byte, inputs [][]byte, deadline time.Time) []byte {
	// Head: 3 words. Tail: commands bytes, then the inputs array.
	head := 3 * 32

	data := make([]byte, 0, 512)
	data = append(data, selExecute...)

	commandsPadded := pad32(commands)
	commandsOffset := head
	inputsOffset := commandsOffset + 32 + len(commandsPadded)

	data = append(data, common.LeftPadBytes(big.NewInt(int64(commandsOffset)).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(inputsOffset)).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(deadline.Unix()).Bytes(), 32)...)

	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(commands))).Bytes(), 32)...)
	data = append(data, commandsPadded...)

	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(inputs))).Bytes(), 32)...)
	elementOffset := len(inputs) * 32
	for _, input := range inputs {
		data = append(data, common.LeftPadBytes(big.NewInt(int64(elementOffset)).Bytes(), 32)...)
		elementOffset += 32 + len(pad32(input))
	}
	for _, input := range inputs {
		data = append(data, common.LeftPadBytes(big.NewInt(int64(len(input))).Bytes(), 32)...)
		data = append(data, pad32(input)...)
	}

	return data
}

func pad32(b []byte) []byte {
	if rem := len(b) % 32; rem != 0 {
		return common.RightPadBytes(b, len(b)+32-rem)
	}
	return b
}
