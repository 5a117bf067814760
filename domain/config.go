package domain

// Config defines the config for the route server.
type Config struct {
	// Defines the web server configuration.
	ServerAddress             string `mapstructure:"server-address"`
	ServerTimeoutDurationSecs int    `mapstructure:"timeout-duration-secs"`

	// Defines the logger configuration.
	LoggerFilename     string `mapstructure:"logger-filename"`
	LoggerIsProduction bool   `mapstructure:"logger-is-production"`
	LoggerLevel        string `mapstructure:"logger-level"`

	// Redis storage configuration.
	StorageHost string `mapstructure:"storage-host"`
	StoragePort string `mapstructure:"storage-port"`

	// RPCEndpoints maps chain ID to the JSON-RPC endpoint used for L1 gas
	// estimation and final-route pool refresh.
	RPCEndpoints map[uint64]string `mapstructure:"rpc-endpoints"`

	// Router encapsulates the router config.
	Router *RouterConfig `mapstructure:"router"`

	// Pools encapsulates the pool discovery config.
	Pools *PoolsConfig `mapstructure:"pools"`

	// Gas encapsulates the gas model config.
	Gas *GasConfig `mapstructure:"gas"`

	// Cache encapsulates the cached-routes repository config.
	Cache *CacheConfig `mapstructure:"cache"`

	FlightRecord *FlightRecordConfig `mapstructure:"flight-record"`

	// OpenTelemetry configuration.
	OTEL *OTELConfig `mapstructure:"otel"`

	// CORS configuration.
	CORS *CORSConfig `mapstructure:"cors"`
}

// RouterConfig holds the route search and split optimisation parameters.
type RouterConfig struct {
	// Maximum number of hops in the normal search.
	MaxHops int `mapstructure:"max-hops"`

	// Maximum number of hops when the lazy deepening search triggers.
	MaxHopsExtended int `mapstructure:"max-hops-extended"`

	// Minimum number of routes below which the extended search runs.
	MinRoutesThreshold int `mapstructure:"min-routes-threshold"`

	// Cap on routes contributed by the extended search.
	MaxExtendedRoutes int `mapstructure:"max-extended-routes"`

	// PercentageStep is the split search granularity. Must divide 100 and
	// lie within [5, 100].
	PercentageStep int `mapstructure:"percentage-step"`

	// MaxSplits is the maximum number of legs in a split.
	MaxSplits int `mapstructure:"max-splits"`

	// MaxSplitRoutes caps the candidate plans kept after each level.
	MaxSplitRoutes int `mapstructure:"max-split-routes"`

	// RouteSplitTimeoutMs is the wall-clock budget of the split search.
	RouteSplitTimeoutMs int `mapstructure:"route-split-timeout-ms"`

	// TopQuotesToSimulate is how many ranked plans are simulated in order.
	TopQuotesToSimulate int `mapstructure:"top-quotes-to-simulate"`

	// MaxSlippagePercent is the upper bound of accepted slippage tolerance.
	MaxSlippagePercent float64 `mapstructure:"max-slippage-percent"`

	// RequireBlockNumber includes the current block number in responses.
	RequireBlockNumber bool `mapstructure:"require-block-number"`
}

// PoolsConfig holds pool discovery and top-pool selection parameters.
type PoolsConfig struct {
	// IndexerURL is the external pool indexer API endpoint.
	IndexerURL string `mapstructure:"indexer-url"`

	// AllPoolsCacheTTLSecs is the TTL of the global all-pools cache.
	AllPoolsCacheTTLSecs int `mapstructure:"all-pools-cache-ttl-secs"`

	// TokenPoolsCacheTTLSecs is the TTL of the per-token-pair cache.
	TokenPoolsCacheTTLSecs int `mapstructure:"token-pools-cache-ttl-secs"`

	TopNDirectPairs    int `mapstructure:"top-n-direct-pairs"`
	TopNOneHopPairs    int `mapstructure:"top-n-one-hop-pairs"`
	TopNSecondHopPairs int `mapstructure:"top-n-second-hop-pairs"`
	TopNPairs          int `mapstructure:"top-n-pairs"`
	TopNWithBaseToken  int `mapstructure:"top-n-with-base-token"`

	// BlockedTokens and BlockedPools filter V3 direct pairs.
	BlockedTokens []string `mapstructure:"blocked-tokens"`
	BlockedPools  []string `mapstructure:"blocked-pools"`

	// UnsupportedTokens are dropped from every discovery result.
	UnsupportedTokens []string `mapstructure:"unsupported-tokens"`
}

// GasConfig holds the L1 gas estimation knobs.
type GasConfig struct {
	// OPStackEnabled turns on the OP-stack L1 data gas component.
	OPStackEnabled bool `mapstructure:"op-stack-enabled"`

	// ArbitrumEnabled turns on the Arbitrum L1 data gas component.
	ArbitrumEnabled bool `mapstructure:"arbitrum-enabled"`

	// UseApproximateCalldata replaces real calldata with a constant-length
	// placeholder on Arbitrum.
	UseApproximateCalldata bool `mapstructure:"use-approximate-calldata"`

	// ApproximateCalldataBytes is the placeholder length.
	ApproximateCalldataBytes int `mapstructure:"approximate-calldata-bytes"`
}

// CacheConfig holds the cached-routes repository parameters.
type CacheConfig struct {
	// RoutesTTLSecs is the hard TTL of a cached route entry.
	RoutesTTLSecs int `mapstructure:"routes-ttl-secs"`

	// RoutesRefreshSecs is the soft expiry after which a read triggers an
	// asynchronous refresh while still serving the stale entry.
	RoutesRefreshSecs int `mapstructure:"routes-refresh-secs"`

	// LambdaType suppresses async refresh when set to "Sync" together with
	// SkipAsyncCacheUpdateCall.
	LambdaType string `mapstructure:"lambda-type"`

	SkipAsyncCacheUpdateCall bool `mapstructure:"skip-async-cache-update-call"`
}

// OTELConfig represents OpenTelemetry configuration.
type OTELConfig struct {
	// The DSN to use.
	DSN string `mapstructure:"dsn"`
	// The sample rate for event submission in the range [0.0, 1.0].
	SampleRate float64 `mapstructure:"sample-rate"`
	// Enable performance tracing.
	EnableTracing bool `mapstructure:"enable-tracing"`
	// The sample rate for profiling traces relative to SampleRate.
	ProfilesSampleRate float64 `mapstructure:"profiles-sample-rate"`
	// The environment to be sent with events.
	Environment string `mapstructure:"environment"`
}

// CORSConfig represents HTTP CORS headers configuration.
type CORSConfig struct {
	// Specifies Access-Control-Allow-Headers header value.
	AllowedHeaders string `mapstructure:"allowed-headers"`
	// Specifies Access-Control-Allow-Methods header value.
	AllowedMethods string `mapstructure:"allowed-methods"`
	// Specifies Access-Control-Allow-Origin header value.
	AllowedOrigin string `mapstructure:"allowed-origin"`
}

// FlightRecordConfig encapsulates the flight recording configuration.
type FlightRecordConfig struct {
	// Enabled defines if the flight recording is enabled.
	Enabled bool `mapstructure:"enabled"`
	// TraceThresholdMS defines the trace threshold in milliseconds.
	TraceThresholdMS int `mapstructure:"trace-threshold-ms"`
	// TraceFileName defines the trace file name to output to.
	TraceFileName string `mapstructure:"trace-file-name"`
}

// DefaultRouterConfig returns the router parameters used when the config
// file omits the router section.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		MaxHops:             3,
		MaxHopsExtended:     4,
		MinRoutesThreshold:  5,
		MaxExtendedRoutes:   10,
		PercentageStep:      25,
		MaxSplits:           4,
		MaxSplitRoutes:      16,
		RouteSplitTimeoutMs: 400,
		TopQuotesToSimulate: 3,
		MaxSlippagePercent:  20,
	}
}

// DefaultPoolsConfig returns the selection caps used when the config file
// omits the pools section.
func DefaultPoolsConfig() *PoolsConfig {
	return &PoolsConfig{
		AllPoolsCacheTTLSecs:   6 * 3600,
		TokenPoolsCacheTTLSecs: 5 * 60,
		TopNDirectPairs:        8,
		TopNOneHopPairs:        5,
		TopNSecondHopPairs:     3,
		TopNPairs:              10,
		TopNWithBaseToken:      6,
	}
}
