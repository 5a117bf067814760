package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// QuoteRequest is the validated, internal form of a quote RPC request.
type QuoteRequest struct {
	TokenIn       common.Address
	TokenInIsETH  bool
	TokenOut      common.Address
	TokenOutIsETH bool
	ChainID       ChainID

	Amount    *big.Int
	TradeType TradeType
	QuoteType QuoteType

	Protocols  []Protocol
	ForceMixed bool
	Hooks      HooksOption

	Recipient    *common.Address
	SlippagePct  float64
	DeadlineSecs int64

	PortionBips      uint64
	PortionRecipient *common.Address

	// Permit2 fields pass through to calldata assembly untouched.
	Permit2Signature string
	Permit2Nonce     string

	SimulateFromAddress *common.Address

	RequestID string
	DebugLogs bool
}

// WantsAllProtocols reports whether every protocol is in play, which is a
// precondition for both the fast cache path and cache write-back.
func (r QuoteRequest) WantsAllProtocols() bool {
	hasV2, hasV3, hasV4 := false, false, false
	for _, p := range r.Protocols {
		switch p {
		case ProtocolV2:
			hasV2 = true
		case ProtocolV3:
			hasV3 = true
		case ProtocolV4:
			hasV4 = true
		}
	}
	return hasV2 && hasV3 && hasV4
}

// WantsProtocol reports whether the request asked for the given protocol.
func (r QuoteRequest) WantsProtocol(p Protocol) bool {
	for _, candidate := range r.Protocols {
		if candidate == p {
			return true
		}
	}
	return false
}

// AllowsMixed reports whether mixed-protocol routes may be enumerated.
func (r QuoteRequest) AllowsMixed() bool {
	return r.ForceMixed || r.WantsProtocol(ProtocolMixed)
}
