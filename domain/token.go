package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is the per-token metadata consumed by the quote pipeline.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals int            `json:"decimals"`
	ChainID  ChainID        `json:"chainId"`

	// BuyFeeBps and SellFeeBps are non-zero for fee-on-transfer tokens.
	BuyFeeBps  uint64 `json:"buyFeeBps,omitempty"`
	SellFeeBps uint64 `json:"sellFeeBps,omitempty"`

	// PriceUSD is the token's USD price if known, zero otherwise.
	PriceUSD float64 `json:"priceUsd,omitempty"`
}

// IsFeeOnTransfer reports whether the token charges an implicit transfer fee.
func (t TokenInfo) IsFeeOnTransfer() bool {
	return t.BuyFeeBps > 0 || t.SellFeeBps > 0
}
