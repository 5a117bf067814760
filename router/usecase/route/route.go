package route

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uniroute/uniroute/domain"
)

// New builds a route over the given pools, deriving the token chain from
// tokenIn, tagging the overall protocol, and validating structure.
func New(chain domain.ChainInfo, pools []domain.Pool, tokenIn, tokenOut common.Address) (domain.Route, error) {
	r := domain.Route{
		Pools:      pools,
		Percentage: 100,
		TokenIn:    tokenIn,
		TokenOut:   tokenOut,
	}

	if err := Validate(chain, r); err != nil {
		return domain.Route{}, err
	}

	if r.IsMixed() {
		r.Protocol = domain.ProtocolMixed
	} else if protocols := r.DistinctProtocols(); len(protocols) == 1 {
		r.Protocol = protocols[0]
	} else {
		// Every pool was synthetic; only V4 carries the synthetic connector.
		r.Protocol = domain.ProtocolV4
	}

	return r, nil
}

// Validate checks the structural route invariants: adjacent pools share
// exactly one token, the chain starts at tokenIn (native or wrapped form),
// ends at tokenOut (likewise), and no token is visited twice.
func Validate(chain domain.ChainInfo, r domain.Route) error {
	if len(r.Pools) == 0 {
		return domain.ErrNoRoutes
	}

	// A native endpoint may enter the first pool either as the native
	// currency itself (V4) or as its wrapped form (V2/V3).
	current, ok := entryToken(chain, r.Pools[0], r.TokenIn)
	if !ok {
		return domain.RouteEndpointMismatchError{Expected: chain.WrapIfNative(r.TokenIn), Actual: r.Pools[0].Token0}
	}

	visited := map[common.Address]struct{}{current: {}}
	for i, p := range r.Pools {
		next, ok := p.OtherToken(current)
		if !ok {
			return domain.RouteDisconnectedError{Position: i}
		}
		if _, seen := visited[next]; seen {
			return domain.RouteCycleError{Route: r.String()}
		}
		visited[next] = struct{}{}
		current = next
	}

	if !matchesEndpoint(chain, current, r.TokenOut) {
		return domain.RouteEndpointMismatchError{Expected: chain.WrapIfNative(r.TokenOut), Actual: current}
	}

	return nil
}

// entryToken resolves which form of the endpoint token the first pool
// carries.
func entryToken(chain domain.ChainInfo, p domain.Pool, endpoint common.Address) (common.Address, bool) {
	if domain.IsNative(endpoint) || endpoint == chain.WrappedNative {
		if p.HasToken(domain.NativeAddress) {
			return domain.NativeAddress, true
		}
		if p.HasToken(chain.WrappedNative) {
			return chain.WrappedNative, true
		}
		return common.Address{}, false
	}
	if p.HasToken(endpoint) {
		return endpoint, true
	}
	return common.Address{}, false
}

// matchesEndpoint reports whether the walk's final token satisfies the
// requested output token, accounting for native/wrapped aliasing.
func matchesEndpoint(chain domain.ChainInfo, actual, requested common.Address) bool {
	if actual == requested {
		return true
	}
	return chain.IsNativeOrWrapped(actual) && chain.IsNativeOrWrapped(requested)
}

// StripSynthetic removes synthetic connector pools from the route's
// response form. Enumeration and pricing keep them.
func StripSynthetic(r domain.Route) domain.Route {
	stripped := r
	stripped.Pools = make([]domain.Pool, 0, len(r.Pools))
	for _, p := range r.Pools {
		if p.IsSynthetic() {
			continue
		}
		stripped.Pools = append(stripped.Pools, p)
	}
	return stripped
}
