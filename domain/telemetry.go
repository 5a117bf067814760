package domain

import "github.com/prometheus/client_golang/prometheus"

var (
	// uniroute_routes_cache_hits_total
	//
	// counter that measures the number of route cache hits
	//
	// Has the following labels:
	// * bucket - the coarse USD bucket of the request
	UniRouteCacheHitsCounterMetricName = "uniroute_routes_cache_hits_total"

	// uniroute_routes_cache_misses_total
	//
	// counter that measures the number of route cache misses
	UniRouteCacheMissesCounterMetricName = "uniroute_routes_cache_misses_total"

	// uniroute_routes_cache_write_total
	//
	// counter that measures the number of route cache writes
	UniRouteCacheWritesCounterMetricName = "uniroute_routes_cache_write_total"

	// uniroute_routes_cache_refresh_total
	//
	// counter that measures the number of refresh-ahead cache refreshes
	UniRouteCacheRefreshCounterMetricName = "uniroute_routes_cache_refresh_total"

	// uniroute_split_search_timeout_total
	//
	// counter that measures the number of split searches cut off by the
	// wall-clock budget
	UniRouteSplitTimeoutCounterMetricName = "uniroute_split_search_timeout_total"

	// uniroute_extended_route_search_total
	//
	// counter that measures the number of lazy-deepening re-searches
	UniRouteExtendedSearchCounterMetricName = "uniroute_extended_route_search_total"

	// uniroute_gas_conversion_error_total
	//
	// counter that measures pathological mid-price failures during gas
	// conversion
	UniRouteGasConversionErrorCounterMetricName = "uniroute_gas_conversion_error_total"

	// uniroute_l1_gas_estimate_error_total
	//
	// counter that measures failures of the L1 data gas component
	UniRouteL1GasErrorCounterMetricName = "uniroute_l1_gas_estimate_error_total"

	// uniroute_simulation_total
	//
	// counter that measures simulation outcomes
	//
	// Has the following labels:
	// * status - the simulation status
	UniRouteSimulationCounterMetricName = "uniroute_simulation_total"

	// uniroute_unhandled_error_total
	//
	// counter that measures unclassified errors leaking out of the pipeline
	UniRouteUnhandledErrorCounterMetricName = "uniroute_unhandled_error_total"

	// uniroute_candidate_build_failure_total
	//
	// counter that measures per-candidate trade or calldata build failures
	UniRouteCandidateBuildFailureCounterMetricName = "uniroute_candidate_build_failure_total"

	UniRouteCacheHitsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: UniRouteCacheHitsCounterMetricName,
			Help: "Total number of route cache hits",
		},
		[]string{"bucket"},
	)

	UniRouteCacheMissesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: UniRouteCacheMissesCounterMetricName,
			Help: "Total number of route cache misses",
		},
		[]string{"bucket"},
	)

	UniRouteCacheWritesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteCacheWritesCounterMetricName,
			Help: "Total number of route cache writes",
		},
	)

	UniRouteCacheRefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteCacheRefreshCounterMetricName,
			Help: "Total number of refresh-ahead cache refreshes",
		},
	)

	UniRouteSplitTimeoutCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteSplitTimeoutCounterMetricName,
			Help: "Total number of split searches stopped by the wall-clock budget",
		},
	)

	UniRouteExtendedSearchCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteExtendedSearchCounterMetricName,
			Help: "Total number of extended route searches triggered",
		},
	)

	UniRouteGasConversionErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteGasConversionErrorCounterMetricName,
			Help: "Total number of gas conversion mid-price failures",
		},
	)

	UniRouteL1GasErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteL1GasErrorCounterMetricName,
			Help: "Total number of L1 gas estimation failures",
		},
	)

	UniRouteSimulationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: UniRouteSimulationCounterMetricName,
			Help: "Total number of simulations by outcome",
		},
		[]string{"status"},
	)

	UniRouteUnhandledErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteUnhandledErrorCounterMetricName,
			Help: "Total number of unhandled errors",
		},
	)

	UniRouteCandidateBuildFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: UniRouteCandidateBuildFailureCounterMetricName,
			Help: "Total number of candidate trade/calldata build failures",
		},
	)
)

func init() {
	prometheus.MustRegister(UniRouteCacheHitsCounter)
	prometheus.MustRegister(UniRouteCacheMissesCounter)
	prometheus.MustRegister(UniRouteCacheWritesCounter)
	prometheus.MustRegister(UniRouteCacheRefreshCounter)
	prometheus.MustRegister(UniRouteSplitTimeoutCounter)
	prometheus.MustRegister(UniRouteExtendedSearchCounter)
	prometheus.MustRegister(UniRouteGasConversionErrorCounter)
	prometheus.MustRegister(UniRouteL1GasErrorCounter)
	prometheus.MustRegister(UniRouteSimulationCounter)
	prometheus.MustRegister(UniRouteUnhandledErrorCounter)
	prometheus.MustRegister(UniRouteCandidateBuildFailureCounter)
}
