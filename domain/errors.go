package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested Item is not found")
	// ErrNoRoutes is returned when no valid route survived the pipeline.
	ErrNoRoutes = errors.New("no routes found for the requested pair")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
)

// ValidationError wraps an input-validation failure surfaced verbatim with
// a 400 status.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// GetStatusCode returns the HTTP status code for the given error.
func GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoRoutes):
		return http.StatusNotFound
	case errors.Is(err, ErrBadParamInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ResponseError represent the response error struct
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type UnsupportedChainError struct {
	ChainID uint64
}

func (e UnsupportedChainError) Error() string {
	return fmt.Sprintf("chain (%d) is not supported", e.ChainID)
}

type PoolTokenOrderError struct {
	Token0 common.Address
	Token1 common.Address
}

func (e PoolTokenOrderError) Error() string {
	return fmt.Sprintf("pool token0 (%s) must sort before token1 (%s)", e.Token0, e.Token1)
}

type PoolNoLiquidityError struct {
	Address common.Address
}

func (e PoolNoLiquidityError) Error() string {
	return fmt.Sprintf("pool (%s) has no liquidity", e.Address)
}

type InvalidPercentageStepError struct {
	Step int
}

func (e InvalidPercentageStepError) Error() string {
	return fmt.Sprintf("percentage step (%d) must be within [5, 100] and divide 100", e.Step)
}

type RouteEndpointMismatchError struct {
	Expected common.Address
	Actual   common.Address
}

func (e RouteEndpointMismatchError) Error() string {
	return fmt.Sprintf("route endpoint (%s) does not match requested token (%s)", e.Actual, e.Expected)
}

type RouteCycleError struct {
	Route string
}

func (e RouteCycleError) Error() string {
	return fmt.Sprintf("route revisits a token: %s", e.Route)
}

type RouteDisconnectedError struct {
	Position int
}

func (e RouteDisconnectedError) Error() string {
	return fmt.Sprintf("adjacent pools at position (%d) do not share a token", e.Position)
}

type TokenNotFoundError struct {
	Address common.Address
	ChainID uint64
}

func (e TokenNotFoundError) Error() string {
	return fmt.Sprintf("token (%s) not found on chain (%d)", e.Address, e.ChainID)
}

type QuoterDivisionByZeroError struct {
	PoolKey string
}

func (e QuoterDivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero computing mid price for pool (%s)", e.PoolKey)
}

type CacheEntryCorruptedError struct {
	Key string
}

func (e CacheEntryCorruptedError) Error() string {
	return fmt.Sprintf("cache entry (%s) failed to deserialize", e.Key)
}
