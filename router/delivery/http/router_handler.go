package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/domain/mvc"
	"github.com/uniroute/uniroute/log"
	routertypes "github.com/uniroute/uniroute/router/types"
)

// RouterHandler represent the httphandler for the router
type RouterHandler struct {
	RUsecase mvc.RouterUsecase
	config   domain.Config
	logger   log.Logger
}

const routerResource = "/router"

// ErrCacheKeyRequired is returned when a cache endpoint is called without
// a key.
var ErrCacheKeyRequired = errors.New("cacheKey is required")

func formatRouterResource(resource string) string {
	return routerResource + resource
}

// NewRouterHandler will initialize the router/ resources endpoint
func NewRouterHandler(e *echo.Echo, us mvc.RouterUsecase, config domain.Config, logger log.Logger) {
	handler := &RouterHandler{
		RUsecase: us,
		config:   config,
		logger:   logger,
	}
	e.GET(formatRouterResource("/quote"), handler.GetQuote)
	e.GET(formatRouterResource("/cached-routes"), handler.GetCachedRoutes)
	e.DELETE(formatRouterResource("/cached-routes"), handler.DeleteCachedRoutes)
	e.GET(formatRouterResource("/cache-key"), handler.InspectCacheKey)
}

// GetQuote returns the best single-or-split route plan for the requested
// trade, fully priced and gas adjusted.
func (a *RouterHandler) GetQuote(c echo.Context) (err error) {
	ctx := c.Request().Context()

	span := trace.SpanFromContext(ctx)
	defer func() {
		if err != nil {
			span.RecordError(err)
			code := domain.GetStatusCode(err)
			if code == http.StatusInternalServerError {
				domain.UniRouteUnhandledErrorCounter.Inc()
				a.logger.Error("unhandled quote error",
					zap.String("request_uri", c.Request().RequestURI), zap.Error(err))
			}
			// nolint:errcheck // ignore error
			c.JSON(code, domain.ResponseError{Code: code, Message: err.Error()})
			err = nil
		}
	}()

	var req routertypes.GetQuoteRequest
	if err := req.Bind(c); err != nil {
		return domain.ValidationError{Message: err.Error()}
	}

	quoteRequest, err := req.Validate(a.config.Router.MaxSlippagePercent)
	if err != nil {
		return err
	}

	response, err := a.RUsecase.GetQuote(ctx, quoteRequest)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.String("quote_amount", response.QuoteAmount))
	span.SetAttributes(attribute.Bool("hits_cached_routes", response.HitsCachedRoutes))

	return c.JSON(http.StatusOK, response)
}

// GetCachedRoutes returns the routes stored behind an explicit cache key.
func (a *RouterHandler) GetCachedRoutes(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.QueryParam("cacheKey")
	if key == "" {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Code: http.StatusBadRequest, Message: ErrCacheKeyRequired.Error()})
	}

	routes, err := a.RUsecase.GetCachedRoutes(ctx, key)
	if err != nil {
		code := domain.GetStatusCode(err)
		return c.JSON(code, domain.ResponseError{Code: code, Message: err.Error()})
	}

	return c.JSON(http.StatusOK, routes)
}

// DeleteCachedRoutes removes a specific cache key.
func (a *RouterHandler) DeleteCachedRoutes(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.QueryParam("cacheKey")
	if key == "" {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Code: http.StatusBadRequest, Message: ErrCacheKeyRequired.Error()})
	}

	if err := a.RUsecase.DeleteCachedRoutes(ctx, key); err != nil {
		code := domain.GetStatusCode(err)
		return c.JSON(code, domain.ResponseError{Code: code, Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"deleted": key})
}

// InspectCacheKey reports the raw Redis value behind a key, probing
// string, then list, then sorted set.
func (a *RouterHandler) InspectCacheKey(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.QueryParam("cacheKey")
	if key == "" {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Code: http.StatusBadRequest, Message: ErrCacheKeyRequired.Error()})
	}

	inspection, err := a.RUsecase.InspectCacheKey(ctx, key)
	if err != nil {
		code := domain.GetStatusCode(err)
		return c.JSON(code, domain.ResponseError{Code: code, Message: err.Error()})
	}

	return c.JSON(http.StatusOK, inspection)
}
