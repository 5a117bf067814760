package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// Client multiplexes per-chain JSON-RPC connections. Connections are
// created once at startup and reused across requests.
type Client struct {
	clients map[domain.ChainID]*ethclient.Client
	logger  log.Logger
}

var (
	_ mvc.ChainRepository  = &Client{}
	_ mvc.FreshPoolDetails = &Client{}
)

// NewClient dials every configured endpoint.
func NewClient(endpoints map[uint64]string, logger log.Logger) (*Client, error) {
	clients := make(map[domain.ChainID]*ethclient.Client, len(endpoints))
	for chainID, endpoint := range endpoints {
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			return nil, fmt.Errorf("dialing chain %d: %w", chainID, err)
		}
		clients[domain.ChainID(chainID)] = client
	}
	return &Client{clients: clients, logger: logger}, nil
}

func (c *Client) client(chain domain.ChainID) (*ethclient.Client, error) {
	client, ok := c.clients[chain]
	if !ok {
		return nil, domain.UnsupportedChainError{ChainID: uint64(chain)}
	}
	return client, nil
}

// GetGasPrice returns the chain's suggested gas price.
func (c *Client) GetGasPrice(ctx context.Context, chain domain.ChainID) (*uint256.Int, error) {
	client, err := c.client(chain)
	if err != nil {
		return nil, err
	}
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	result, overflow := uint256.FromBig(price)
	if overflow {
		return nil, fmt.Errorf("gas price overflows 256 bits")
	}
	return result, nil
}

// GetBlockNumber returns the latest block number.
func (c *Client) GetBlockNumber(ctx context.Context, chain domain.ChainID) (uint64, error) {
	client, err := c.client(chain)
	if err != nil {
		return 0, err
	}
	return client.BlockNumber(ctx)
}

var (
	selGetReserves = selector("getReserves()")
	selSlot0       = selector("slot0()")
	selLiquidity   = selector("liquidity()")
)

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// RefreshPoolDetails re-reads on-chain state for the given pools: reserves
// for V2, slot0 and liquidity for V3. V4 pool state lives in the singleton
// manager and is kept as-is.
func (c *Client) RefreshPoolDetails(ctx context.Context, chain domain.ChainID, pools []domain.Pool) ([]domain.Pool, error) {
	client, err := c.client(chain)
	if err != nil {
		return nil, err
	}

	refreshed := make([]domain.Pool, len(pools))
	for i, p := range pools {
		refreshed[i] = p
		if p.IsSynthetic() {
			continue
		}

		switch p.Protocol {
		case domain.ProtocolV2:
			if err := c.refreshV2(ctx, client, &refreshed[i]); err != nil {
				c.logger.Warn("v2 pool refresh failed")
			}
		case domain.ProtocolV3:
			if err := c.refreshV3(ctx, client, &refreshed[i]); err != nil {
				c.logger.Warn("v3 pool refresh failed")
			}
		}
	}

	return refreshed, nil
}

func (c *Client) refreshV2(ctx context.Context, client *ethclient.Client, p *domain.Pool) error {
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &p.Address, Data: selGetReserves}, nil)
	if err != nil {
		return err
	}
	if len(out) < 64 {
		return fmt.Errorf("short getReserves response")
	}

	p.Reserve0 = new(uint256.Int).SetBytes(out[0:32])
	p.Reserve1 = new(uint256.Int).SetBytes(out[32:64])
	return nil
}

func (c *Client) refreshV3(ctx context.Context, client *ethclient.Client, p *domain.Pool) error {
	slot0, err := client.CallContract(ctx, ethereum.CallMsg{To: &p.Address, Data: selSlot0}, nil)
	if err != nil {
		return err
	}
	if len(slot0) < 64 {
		return fmt.Errorf("short slot0 response")
	}

	p.SqrtPriceX96 = new(uint256.Int).SetBytes(slot0[0:32])
	tick := new(big.Int).SetBytes(slot0[32:64])
	// Ticks are int24; the high bytes carry the sign extension.
	if tick.BitLen() > 24 {
		tick.Sub(tick, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	p.TickCurrent = int32(tick.Int64())

	liquidity, err := client.CallContract(ctx, ethereum.CallMsg{To: &p.Address, Data: selLiquidity}, nil)
	if err != nil {
		return err
	}
	if len(liquidity) < 32 {
		return fmt.Errorf("short liquidity response")
	}
	p.Liquidity = new(uint256.Int).SetBytes(liquidity[0:32])

	return nil
}

// OPStackOracle reads the OP-stack gas price oracle predeploy.
type OPStackOracle struct {
	client *ethclient.Client
}

var opStackOracleAddress = common.HexToAddress("0x420000000000000000000000000000000000000F")

var (
	selGetL1GasUsed = selector("getL1GasUsed(bytes)")
	selGetL1Fee     = selector("getL1Fee(bytes)")
)

// NewOPStackOracle builds the oracle reader for an OP-stack chain client.
func NewOPStackOracle(client *ethclient.Client) *OPStackOracle {
	return &OPStackOracle{client: client}
}

func (o *OPStackOracle) EstimateL1Gas(ctx context.Context, data []byte) (uint64, error) {
	out, err := o.callWithBytes(ctx, selGetL1GasUsed, data)
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(out).Uint64(), nil
}

func (o *OPStackOracle) EstimateL1GasCost(ctx context.Context, data []byte) (*big.Int, error) {
	out, err := o.callWithBytes(ctx, selGetL1Fee, data)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

// callWithBytes abi-encodes a single dynamic bytes argument.
func (o *OPStackOracle) callWithBytes(ctx context.Context, sel []byte, data []byte) ([]byte, error) {
	padded := len(data)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}

	calldata := make([]byte, 0, 4+64+padded)
	calldata = append(calldata, sel...)
	calldata = append(calldata, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(big.NewInt(int64(len(data))).Bytes(), 32)...)
	calldata = append(calldata, common.RightPadBytes(data, padded)...)

	out, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &opStackOracleAddress, Data: calldata}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("short oracle response")
	}
	return out[:32], nil
}

// ArbGasInfo reads the Arbitrum gas info precompile.
type ArbGasInfo struct {
	client *ethclient.Client
}

var selGetPricesInWei = selector("getPricesInWei()")

// NewArbGasInfo builds the precompile reader for an Arbitrum chain client.
func NewArbGasInfo(client *ethclient.Client) *ArbGasInfo {
	return &ArbGasInfo{client: client}
}

// GetPricesInWei returns perL2Tx, perL1CalldataByte and perArbGasTotal.
func (a *ArbGasInfo) GetPricesInWei(ctx context.Context) (*big.Int, *big.Int, *big.Int, error) {
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &domain.ArbGasInfoAddress, Data: selGetPricesInWei}, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	// The precompile returns six words: perL2Tx, perL1CalldataUnit,
	// perStorageAllocation, perArbGasBase, perArbGasCongestion,
	// perArbGasTotal.
	if len(out) < 6*32 {
		return nil, nil, nil, fmt.Errorf("short gas info response")
	}

	perL2Tx := new(big.Int).SetBytes(out[0:32])
	perL1CalldataByte := new(big.Int).SetBytes(out[32:64])
	perArbGasTotal := new(big.Int).SetBytes(out[160:192])

	return perL2Tx, perL1CalldataByte, perArbGasTotal, nil
}

// EthClient exposes the raw per-chain client for collaborators needing
// direct access.
func (c *Client) EthClient(chain domain.ChainID) (*ethclient.Client, bool) {
	client, ok := c.clients[chain]
	return client, ok
}
