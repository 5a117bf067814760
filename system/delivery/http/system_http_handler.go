package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uniroute/uniroute/domain"
	"github.com/uniroute/uniroute/log"
)

// SystemHandler serves health and metrics endpoints.
type SystemHandler struct {
	logger log.Logger
	redis  redis.UniversalClient
	config domain.Config
}

// NewSystemHandler will initialize the /healthcheck and /metrics endpoints
func NewSystemHandler(e *echo.Echo, redisClient redis.UniversalClient, config domain.Config, logger log.Logger) {
	handler := &SystemHandler{
		logger: logger,
		redis:  redisClient,
		config: config,
	}

	e.GET("/healthcheck", handler.GetHealthStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// GetHealthStatus reports readiness: the process is up and Redis answers.
func (h *SystemHandler) GetHealthStatus(c echo.Context) error {
	ctx := c.Request().Context()

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Error("healthcheck redis ping failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
