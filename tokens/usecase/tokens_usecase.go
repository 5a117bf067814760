package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/uniroute/uniroute/chain"
	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/cache"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

var (
	selDecimals = crypto.Keccak256([]byte("decimals()"))[:4]
	selSymbol   = crypto.Keccak256([]byte("symbol()"))[:4]
)

const tokenCacheTTL = time.Hour

// tokensUsecase resolves token metadata on chain with a process-local
// cache. Fee-on-transfer parameters come from the configured override
// list; probing is an external concern.
type tokensUsecase struct {
	chains *chain.Client
	cache  *cache.Cache
	logger log.Logger

	// feeOnTransferBps maps known FOT tokens to (buy, sell) fee bps.
	feeOnTransferBps map[common.Address][2]uint64
}

var _ mvc.TokenProvider = &tokensUsecase{}

// NewTokensUsecase creates the provider.
func NewTokensUsecase(chains *chain.Client, tokenCache *cache.Cache, feeOnTransferBps map[common.Address][2]uint64, logger log.Logger) mvc.TokenProvider {
	return &tokensUsecase{
		chains:           chains,
		cache:            tokenCache,
		logger:           logger,
		feeOnTransferBps: feeOnTransferBps,
	}
}

func (t *tokensUsecase) GetToken(ctx context.Context, chainID domain.ChainID, address common.Address) (domain.TokenInfo, error) {
	key := "token#" + strconv.FormatUint(uint64(chainID), 10) + "#" + strings.ToLower(address.Hex())
	if value, found := t.cache.Get(key); found {
		if info, ok := value.(domain.TokenInfo); ok {
			return info, nil
		}
		t.cache.Delete(key)
	}

	chainInfo, err := domain.GetChainInfo(chainID)
	if err != nil {
		return domain.TokenInfo{}, err
	}

	info := domain.TokenInfo{
		Address: address,
		ChainID: chainID,
	}

	if domain.IsNative(address) || address == chainInfo.WrappedNative {
		info.Symbol = "WETH"
		if domain.IsNative(address) {
			info.Symbol = "ETH"
		}
		info.Decimals = 18
	} else if err := t.readERC20(ctx, chainID, address, &info); err != nil {
		return domain.TokenInfo{}, domain.TokenNotFoundError{Address: address, ChainID: uint64(chainID)}
	}

	// Routing base stables price at one dollar; everything else needs an
	// external price source and stays unpriced.
	if isBaseStable(chainInfo, address) {
		info.PriceUSD = 1
	}

	if fees, ok := t.feeOnTransferBps[address]; ok {
		info.BuyFeeBps = fees[0]
		info.SellFeeBps = fees[1]
	}

	t.cache.Set(key, info, tokenCacheTTL)
	return info, nil
}

func (t *tokensUsecase) readERC20(ctx context.Context, chainID domain.ChainID, address common.Address, info *domain.TokenInfo) error {
	client, ok := t.chains.EthClient(chainID)
	if !ok {
		return domain.UnsupportedChainError{ChainID: uint64(chainID)}
	}

	decimalsOut, err := client.CallContract(ctx, ethereum.CallMsg{To: &address, Data: selDecimals}, nil)
	if err != nil || len(decimalsOut) < 32 {
		return domain.TokenNotFoundError{Address: address, ChainID: uint64(chainID)}
	}
	info.Decimals = int(decimalsOut[31])

	symbolOut, err := client.CallContract(ctx, ethereum.CallMsg{To: &address, Data: selSymbol}, nil)
	if err == nil {
		info.Symbol = decodeSymbol(symbolOut)
	}

	return nil
}

// decodeSymbol handles both dynamic-string and bytes32 symbol encodings.
func decodeSymbol(out []byte) string {
	if len(out) == 32 {
		return strings.TrimRight(string(out), "\x00")
	}
	if len(out) >= 96 {
		length := int(out[63])
		if 64+length <= len(out) {
			return string(out[64 : 64+length])
		}
	}
	return ""
}

func isBaseStable(chainInfo domain.ChainInfo, address common.Address) bool {
	if address == chainInfo.WrappedNative {
		return false
	}
	for _, base := range chainInfo.BaseTokens {
		if base == address {
			return true
		}
	}
	return false
}
