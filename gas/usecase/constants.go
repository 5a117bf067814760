package usecase

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uniroute/uniroute/domain"
)

// V2 swap cost model.
const (
	baseSwapCostV2    uint64 = 135000
	costPerExtraHopV2 uint64 = 50000
)

// V3/V4 swap cost model. Per-chain values; every chain shares the defaults
// except Arbitrum's base cost.
const (
	defaultBaseSwapCost    uint64 = 2000
	arbitrumBaseSwapCost   uint64 = 5000
	costPerHop             uint64 = 80000
	costPerInitializedTick uint64 = 31000
	singleHopOverhead      uint64 = 15000
)

// expensiveTokenOverhead is the fixed surcharge for routes touching known
// expensive-transfer tokens on mainnet.
const expensiveTokenOverhead uint64 = 150000

var expensiveTransferTokens = map[common.Address]struct{}{
	common.HexToAddress("0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9"): {}, // AAVE
	common.HexToAddress("0x5A98FcBEA516Cf06857215779Fd812CA3beF1B32"): {}, // LDO
}

// baseSwapCost returns the per-chain base cost of the V3/V4 formula.
func baseSwapCost(chain domain.ChainInfo) uint64 {
	if chain.IsArbitrum {
		return arbitrumBaseSwapCost
	}
	return defaultBaseSwapCost
}

// tokenOverhead returns the surcharge for expensive-transfer tokens on the
// route. Applies on mainnet only.
func tokenOverhead(chain domain.ChainInfo, route domain.Route) uint64 {
	if chain.ID != domain.ChainMainnet {
		return 0
	}

	var overhead uint64
	seen := make(map[common.Address]struct{}, 2)
	for _, p := range route.Pools {
		for _, token := range []common.Address{p.Token0, p.Token1} {
			if _, expensive := expensiveTransferTokens[token]; !expensive {
				continue
			}
			if _, counted := seen[token]; counted {
				continue
			}
			seen[token] = struct{}{}
			overhead += expensiveTokenOverhead
		}
	}
	return overhead
}
