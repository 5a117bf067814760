package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

const indexerRequestTimeout = 10 * time.Second

// indexerPoolDiscoverer fetches pool sets from the external pool indexer
// HTTP API.
type indexerPoolDiscoverer struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

var _ mvc.PoolDiscoverer = &indexerPoolDiscoverer{}

// NewIndexerPoolDiscoverer creates the HTTP-backed discoverer.
func NewIndexerPoolDiscoverer(baseURL string, logger log.Logger) mvc.PoolDiscoverer {
	return &indexerPoolDiscoverer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: indexerRequestTimeout},
		logger:  logger,
	}
}

func (d *indexerPoolDiscoverer) Name() string {
	return "indexer"
}

func (d *indexerPoolDiscoverer) GetPools(ctx context.Context, chain domain.ChainID, protocol domain.Protocol) ([]domain.PoolInfo, error) {
	query := url.Values{}
	query.Set("chainId", strconv.FormatUint(uint64(chain), 10))
	query.Set("protocol", string(protocol))
	return d.fetch(ctx, query)
}

func (d *indexerPoolDiscoverer) GetPoolsForTokens(ctx context.Context, chain domain.ChainID, protocol domain.Protocol, tokenIn, tokenOut common.Address, hooks domain.HooksOption, _ bool) ([]domain.PoolInfo, error) {
	token0, token1 := domain.OrderTokens(tokenIn, tokenOut)

	query := url.Values{}
	query.Set("chainId", strconv.FormatUint(uint64(chain), 10))
	query.Set("protocol", string(protocol))
	query.Set("token0", strings.ToLower(token0.Hex()))
	query.Set("token1", strings.ToLower(token1.Hex()))

	pools, err := d.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	return domain.FilterPoolsByHooks(pools, hooks), nil
}

func (d *indexerPoolDiscoverer) fetch(ctx context.Context, query url.Values) ([]domain.PoolInfo, error) {
	endpoint := d.baseURL + "/pools?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pool indexer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var pools []domain.PoolInfo
	if err := json.Unmarshal(body, &pools); err != nil {
		return nil, err
	}
	return pools, nil
}
