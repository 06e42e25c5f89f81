package api

import (
	"net/http"
	"time"

	"NovaSignal/internal/domain/models"
	domrepo "NovaSignal/internal/domain/repository"
	"NovaSignal/internal/service/ratelimit"
	"NovaSignal/internal/service/stream"
	"NovaSignal/internal/usecase"
	xhttp "NovaSignal/pkg/http"
	xlogger "NovaSignal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-client request throttle.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64 // tokens per second
	Burst   int
}

// SeriesHandler exposes the reconciled feed API over Echo.
type SeriesHandler struct {
	logger      *xlogger.Logger
	registry    *usecase.Registry
	passthrough *usecase.Passthrough
	limiter     *ratelimit.Limiter
	rl          RateLimitConfig
}

func NewSeriesHandler(
	logger *xlogger.Logger,
	registry *usecase.Registry,
	passthrough *usecase.Passthrough,
	limiter *ratelimit.Limiter,
	rl RateLimitConfig,
) *SeriesHandler {
	return &SeriesHandler{
		logger:      logger,
		registry:    registry,
		passthrough: passthrough,
		limiter:     limiter,
		rl:          rl,
	}
}

func (h *SeriesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	if h.rl.Enabled && h.limiter != nil {
		g.Use(h.throttle)
	}
	g.GET("/series", h.Series)
	g.GET("/series/status", h.SeriesStatus)
	g.POST("/series/reconnect", h.Reconnect)
	g.POST("/series/disconnect", h.Disconnect)
	g.POST("/series/reset", h.Reset)
	g.POST("/series/refresh", h.Refresh)
	g.GET("/indicators", h.Indicators)
	g.POST("/predict", h.Predict)
	g.GET("/news", h.News)
}

// throttle rejects clients that drain their token bucket.
func (h *SeriesHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), float64(h.rl.Burst), h.rl.Rate) {
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": "Too Many Requests",
			})
		}
		return next(c)
	}
}

func (h *SeriesHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Series loads history, connects the stream and returns the merged
// snapshot. A failed upstream fetch still answers 200 when stale data
// exists; only a feed with nothing to show becomes a 502.
func (h *SeriesHandler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	feed := h.registry.GetOrCreate(h.feedKey(req.Symbol, req.Market, req.Interval))
	loadErr := feed.Load(c.Request().Context(), req.Days)
	snap := feed.Snapshot()

	if loadErr != nil && len(snap.Data) == 0 {
		h.logger.Error("series unavailable", xlogger.String("feed", feed.Key().String()), xlogger.Error(loadErr))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayErrorf("history unavailable: %v", loadErr))
	}
	return xhttp.SuccessResponse(c, snap)
}

type statusResponse struct {
	ConnectionStatus  string             `json:"connectionStatus"`
	ReconnectAttempts int                `json:"reconnectAttempts"`
	IsReconnecting    bool               `json:"isReconnecting"`
	LastConnected     *time.Time         `json:"lastConnected,omitempty"`
	Error             string             `json:"error,omitempty"`
	Buffer            stream.BufferStats `json:"buffer"`
}

func (h *SeriesHandler) SeriesStatus(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	feed, ok := h.registry.Get(h.feedKey(req.Symbol, req.Market, req.Interval))
	if !ok {
		return xhttp.SuccessResponse(c, statusResponse{
			ConnectionStatus: string(stream.StateDisconnected),
		})
	}

	snap := feed.Snapshot()
	return xhttp.SuccessResponse(c, statusResponse{
		ConnectionStatus:  snap.ConnectionStatus,
		ReconnectAttempts: snap.ReconnectAttempts,
		IsReconnecting:    snap.IsReconnecting,
		LastConnected:     snap.LastConnected,
		Error:             snap.Error,
		Buffer:            feed.BufferStats(),
	})
}

func (h *SeriesHandler) Reconnect(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	feed := h.registry.GetOrCreate(h.feedKey(req.Symbol, req.Market, req.Interval))
	feed.Reconnect()
	return xhttp.SuccessResponse(c, map[string]string{"status": "reconnecting"})
}

func (h *SeriesHandler) Disconnect(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if feed, ok := h.registry.Get(h.feedKey(req.Symbol, req.Market, req.Interval)); ok {
		feed.Disconnect()
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "disconnected"})
}

func (h *SeriesHandler) Reset(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if feed, ok := h.registry.Get(h.feedKey(req.Symbol, req.Market, req.Interval)); ok {
		feed.Reset(req.Days)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "reset"})
}

// Refresh forces a fresh history fetch, bypassing the freshness window.
func (h *SeriesHandler) Refresh(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	feed := h.registry.GetOrCreate(h.feedKey(req.Symbol, req.Market, req.Interval))
	if err := feed.RefreshHistory(c.Request().Context(), req.Days); err != nil {
		snap := feed.Snapshot()
		if len(snap.Data) == 0 {
			return xhttp.AppErrorResponse(c, xhttp.BadGatewayErrorf("refresh failed: %v", err))
		}
	}
	return xhttp.SuccessResponse(c, feed.Snapshot())
}

func (h *SeriesHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Market = string(domrepo.NormalizeMarket(req.Market))

	res, err := h.passthrough.Indicators(c.Request().Context(), *req)
	if err != nil && res == nil {
		h.logger.Error("indicators fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayErrorf("indicators unavailable: %v", err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SeriesHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Market = string(domrepo.NormalizeMarket(req.Market))

	res, err := h.passthrough.Predict(c.Request().Context(), *req)
	if err != nil && res == nil {
		h.logger.Error("predict fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayErrorf("predictions unavailable: %v", err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SeriesHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Market = string(domrepo.NormalizeMarket(req.Market))

	res, err := h.passthrough.News(c.Request().Context(), *req)
	if err != nil && res == nil {
		h.logger.Error("news fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayErrorf("news unavailable: %v", err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SeriesHandler) feedKey(symbol, market string, interval int) models.FeedKey {
	return models.FeedKey{
		Symbol:   symbol,
		Market:   string(domrepo.NormalizeMarket(market)),
		Interval: interval,
	}
}
