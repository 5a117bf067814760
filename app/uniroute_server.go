package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/calldata"
	"github.com/uniroute/uniroute/chain"
	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/cache"
	"github.com/uniroute/uniroute/domain/mvc"
	gasUseCase "github.com/uniroute/uniroute/gas/usecase"
	"github.com/uniroute/uniroute/log"
	"github.com/uniroute/uniroute/middleware"
	poolsUseCase "github.com/uniroute/uniroute/pools/usecase"
	"github.com/uniroute/uniroute/quoter"
	routerHttpDelivery "github.com/uniroute/uniroute/router/delivery/http"
	routerRepository "github.com/uniroute/uniroute/router/repository"
	routerUseCase "github.com/uniroute/uniroute/router/usecase"
	"github.com/uniroute/uniroute/simulator"
	systemhttpdelivery "github.com/uniroute/uniroute/system/delivery/http"
	tokensUseCase "github.com/uniroute/uniroute/tokens/usecase"
)

// UniRouteServer defines an interface for the route query server.
type UniRouteServer interface {
	GetLogger() log.Logger
	Shutdown(context.Context) error
	Start(context.Context) error
}

type uniRouteServer struct {
	e       *echo.Echo
	address string
	logger  log.Logger
}

// GetLogger implements UniRouteServer.
func (s *uniRouteServer) GetLogger() log.Logger {
	return s.logger
}

// Shutdown implements UniRouteServer.
func (s *uniRouteServer) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Start implements UniRouteServer.
func (s *uniRouteServer) Start(context.Context) error {
	s.logger.Info("Starting uniroute server", zap.String("address", s.address))
	return s.e.Start(s.address)
}

// NewUniRouteServer wires every component of the quote pipeline.
func NewUniRouteServer(ctx context.Context, config domain.Config, logger log.Logger) (UniRouteServer, error) {
	if config.CORS == nil {
		config.CORS = &domain.CORSConfig{AllowedOrigin: "*"}
	}
	if config.FlightRecord == nil {
		config.FlightRecord = &domain.FlightRecordConfig{}
	}
	if config.Router == nil {
		config.Router = domain.DefaultRouterConfig()
	}
	if config.Pools == nil {
		config.Pools = domain.DefaultPoolsConfig()
	}

	// Setup echo server
	e := echo.New()
	mw := middleware.InitMiddleware(config.CORS, config.FlightRecord, logger)
	e.Use(mw.CORS)
	e.Use(mw.InstrumentMiddleware)
	e.Use(mw.TraceWithParamsMiddleware("uniroute"))

	// Create redis client and ensure that it is up.
	redisAddress := fmt.Sprintf("%s:%s", config.StorageHost, config.StoragePort)
	logger.Info("Pinging redis", zap.String("redis_address", redisAddress))
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	// Per-chain RPC clients, shared across requests.
	chainClient, err := chain.NewClient(config.RPCEndpoints, logger)
	if err != nil {
		return nil, err
	}

	// Pool discovery stack: indexer primary with the deterministic direct
	// synthesiser as fallback, cached, dispatched per protocol.
	poolsCache := cache.New()
	direct := poolsUseCase.NewDirectPoolDiscoverer()
	indexer := poolsUseCase.NewIndexerPoolDiscoverer(config.Pools.IndexerURL, logger)
	primary := poolsUseCase.NewCachingPoolDiscoverer(indexer, poolsCache, *config.Pools, logger)
	discoverer := poolsUseCase.NewFallbackPoolDiscoverer(primary, direct, logger)

	byProtocol := map[domain.Protocol]mvc.PoolDiscoverer{
		domain.ProtocolV2: discoverer,
		domain.ProtocolV3: discoverer,
		domain.ProtocolV4: discoverer,
	}
	dispatching := poolsUseCase.NewDispatchingPoolDiscoverer(byProtocol, direct, logger)

	topPoolsSelector := poolsUseCase.NewTopPoolsSelector(*config.Pools, logger)

	// Gas model: OP-stack and Arbitrum readers attach only when an RPC
	// endpoint for such a chain is configured.
	var opStackOracle *chain.OPStackOracle
	var arbGasInfo *chain.ArbGasInfo
	for chainID := range config.RPCEndpoints {
		info, err := domain.GetChainInfo(domain.ChainID(chainID))
		if err != nil {
			continue
		}
		client, ok := chainClient.EthClient(info.ID)
		if !ok {
			continue
		}
		if info.IsOPStack && opStackOracle == nil {
			opStackOracle = chain.NewOPStackOracle(client)
		}
		if info.IsArbitrum && arbGasInfo == nil {
			arbGasInfo = chain.NewArbGasInfo(client)
		}
	}

	gasConfig := domain.GasConfig{}
	if config.Gas != nil {
		gasConfig = *config.Gas
	}

	var opStackGasOracle gasUseCase.OPStackGasOracle
	if opStackOracle != nil {
		opStackGasOracle = opStackOracle
	}
	var arbReader gasUseCase.ArbGasInfoReader
	if arbGasInfo != nil {
		arbReader = arbGasInfo
	}
	gasEstimator := gasUseCase.NewGasEstimator(gasConfig, opStackGasOracle, arbReader, logger)
	gasConverter := gasUseCase.NewGasConverter(logger)

	tokenProvider := tokensUseCase.NewTokensUsecase(chainClient, cache.New(), nil, logger)
	quoteFetcher := quoter.NewQuoteFetcher(chainClient, logger)
	sim := simulator.New(chainClient, logger)
	calldataBuilder := calldata.NewBuilder()

	cacheConfig := domain.CacheConfig{}
	if config.Cache != nil {
		cacheConfig = *config.Cache
	}
	cachedRoutes := routerRepository.NewCachedRoutesRepository(redisClient, cacheConfig, logger)

	routerUsecase, err := routerUseCase.NewRouterUsecase(
		config,
		dispatching,
		topPoolsSelector,
		quoteFetcher,
		gasEstimator,
		gasConverter,
		tokenProvider,
		chainClient,
		cachedRoutes,
		calldataBuilder,
		sim,
		chainClient,
		logger,
	)
	if err != nil {
		return nil, err
	}

	// Wire the refresh-ahead callback now that the orchestrator exists.
	if refresher, ok := routerUsecase.(mvc.RouteRefresher); ok {
		cachedRoutes.SetRefresher(refresher)
	}

	// HTTP handlers
	routerHttpDelivery.NewRouterHandler(e, routerUsecase, config, logger)
	systemhttpdelivery.NewSystemHandler(e, redisClient, config, logger)

	go func() {
		logger.Info("Starting profiling server")
		err := http.ListenAndServe("localhost:6062", nil)
		if err != nil {
			logger.Error("profiling server stopped", zap.Error(err))
		}
	}()

	return &uniRouteServer{
		e:       e,
		address: config.ServerAddress,
		logger:  logger,
	}, nil
}
