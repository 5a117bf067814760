package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// ChainID identifies an EVM-compatible chain supported by the router.
type ChainID uint64

const (
	ChainMainnet  ChainID = 1
	ChainOptimism ChainID = 10
	ChainPolygon  ChainID = 137
	ChainBase     ChainID = 8453
	ChainArbitrum ChainID = 42161
)

// NativeAddress is the conventional address of the chain's native currency.
var NativeAddress = common.Address{}

// ChainInfo carries the static per-chain metadata used for routing.
type ChainInfo struct {
	ID ChainID

	// WrappedNative is the ERC-20 wrapper of the native currency (e.g. WETH).
	WrappedNative common.Address

	// V2Factory, V3Factory, V4PoolManager are the protocol factory addresses.
	V2Factory     common.Address
	V3Factory     common.Address
	V4PoolManager common.Address

	// V2InitCodeHash is the pair creation code hash used for CREATE2 address
	// derivation.
	V2InitCodeHash common.Hash
	// V3InitCodeHash is the pool creation code hash for the V3 factory.
	V3InitCodeHash common.Hash

	// BaseTokens is the per-chain list of routing base tokens (stables and
	// similar highly-connected assets).
	BaseTokens []common.Address

	// IsOPStack is true for OP-stack rollups that charge L1 data gas through
	// the gas price oracle predeploy.
	IsOPStack bool

	// IsArbitrum is true for Arbitrum-style rollups with the ArbGasInfo
	// precompile.
	IsArbitrum bool
}

// ArbGasInfoAddress is the ArbGasInfo precompile present on Arbitrum chains.
var ArbGasInfoAddress = common.HexToAddress("0x000000000000000000000000000000000000006C")

var (
	mainnetWETH   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	optimismWETH  = common.HexToAddress("0x4200000000000000000000000000000000000006")
	baseWETH      = common.HexToAddress("0x4200000000000000000000000000000000000006")
	arbitrumWETH  = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	polygonWMATIC = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")

	mainnetUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	mainnetUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	mainnetDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	mainnetWBTC = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// chainTable is the fixed registry of supported chains.
var chainTable = map[ChainID]ChainInfo{
	ChainMainnet: {
		ID:             ChainMainnet,
		WrappedNative:  mainnetWETH,
		V2Factory:      common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		V3Factory:      common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		V4PoolManager:  common.HexToAddress("0x000000000004444c5dc75cB358380D2e3dE08A90"),
		V2InitCodeHash: common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
		V3InitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
		BaseTokens:     []common.Address{mainnetUSDC, mainnetUSDT, mainnetDAI, mainnetWBTC, mainnetWETH},
	},
	ChainOptimism: {
		ID:             ChainOptimism,
		WrappedNative:  optimismWETH,
		V3Factory:      common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		V4PoolManager:  common.HexToAddress("0x9a13F98Cb987694C9F086b1F5eB990EeA8264Ec3"),
		V3InitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
		BaseTokens: []common.Address{
			common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"), // USDC
			common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"), // DAI
			optimismWETH,
		},
		IsOPStack: true,
	},
	ChainPolygon: {
		ID:             ChainPolygon,
		WrappedNative:  polygonWMATIC,
		V2Factory:      common.HexToAddress("0x9e5A52f57b3038F1B8EeE45F28b3C1967e22799C"),
		V3Factory:      common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		V2InitCodeHash: common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
		V3InitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
		BaseTokens: []common.Address{
			common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"), // USDC
			common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), // WETH
			polygonWMATIC,
		},
	},
	ChainBase: {
		ID:             ChainBase,
		WrappedNative:  baseWETH,
		V2Factory:      common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"),
		V3Factory:      common.HexToAddress("0x33128a8fC17869897dcE68Ed026d694621f6FDfD"),
		V4PoolManager:  common.HexToAddress("0x498581fF718922c3f8e6A244956aF099B2652b2b"),
		V2InitCodeHash: common.HexToHash("0x8b1b1d8f4a5a4e40f8c0e8a2a11c1ba1e0ff21d0c2c4f6a9c57d46a2c722b45b"),
		V3InitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
		BaseTokens: []common.Address{
			common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), // USDC
			baseWETH,
		},
		IsOPStack: true,
	},
	ChainArbitrum: {
		ID:             ChainArbitrum,
		WrappedNative:  arbitrumWETH,
		V2Factory:      common.HexToAddress("0xf1D7CC64Fb4452F05c498126312eBE29f30Fbcf9"),
		V3Factory:      common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		V4PoolManager:  common.HexToAddress("0x360E68faCcca8cA495c1B759Fd9EEe466db9FB32"),
		V2InitCodeHash: common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
		V3InitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
		BaseTokens: []common.Address{
			common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), // USDC
			common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"), // USDT
			arbitrumWETH,
		},
		IsArbitrum: true,
	},
}

// GetChainInfo returns the chain metadata for the given chain ID.
// Returns UnsupportedChainError if the chain is not registered.
func GetChainInfo(id ChainID) (ChainInfo, error) {
	info, ok := chainTable[id]
	if !ok {
		return ChainInfo{}, UnsupportedChainError{ChainID: uint64(id)}
	}
	return info, nil
}

// IsSupportedChain returns true if the chain ID is registered.
func IsSupportedChain(id ChainID) bool {
	_, ok := chainTable[id]
	return ok
}

// IsNative returns true if the address denotes the chain's native currency.
func IsNative(addr common.Address) bool {
	return addr == NativeAddress
}

// WrapIfNative resolves the native currency to its wrapped form, leaving
// ERC-20 addresses untouched.
func (c ChainInfo) WrapIfNative(addr common.Address) common.Address {
	if IsNative(addr) {
		return c.WrappedNative
	}
	return addr
}

// IsNativeOrWrapped returns true for both the native sentinel and the
// wrapped native token.
func (c ChainInfo) IsNativeOrWrapped(addr common.Address) bool {
	return IsNative(addr) || addr == c.WrappedNative
}
