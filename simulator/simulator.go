package simulator

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uniroute/uniroute/chain"
	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
)

// ethCallSimulator validates candidate plans by estimating gas
// (eth_estimateGas) for the call from the caller's address against the
// latest state.
type ethCallSimulator struct {
	chains *chain.Client
	logger log.Logger
}

var _ mvc.Simulator = &ethCallSimulator{}

// New creates the gas-estimation backed simulator.
func New(chains *chain.Client, logger log.Logger) mvc.Simulator {
	return &ethCallSimulator{chains: chains, logger: logger}
}

func (s *ethCallSimulator) Simulate(ctx context.Context, chainID domain.ChainID, params domain.MethodParameters, from common.Address) (mvc.SimulationResult, error) {
	client, ok := s.chains.EthClient(chainID)
	if !ok {
		return mvc.SimulationResult{}, domain.UnsupportedChainError{ChainID: uint64(chainID)}
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &params.To,
		Data:  params.Calldata,
		Value: params.Value,
	}

	gasUsed, err := client.EstimateGas(ctx, msg)
	if err != nil {
		// A revert is a failed simulation, not a transport error.
		return mvc.SimulationResult{
			Status:      domain.SimulationFailed,
			Description: err.Error(),
		}, nil
	}

	return mvc.SimulationResult{
		Status:  domain.SimulationSucceeded,
		GasUsed: gasUsed,
	}, nil
}
