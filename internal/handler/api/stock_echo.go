package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"StockLens/internal/domain/models"
	"StockLens/internal/service/ratelimit"
	"StockLens/internal/usecase"
	"StockLens/pkg/cache"
	xhttp "StockLens/pkg/http"
	xlogger "StockLens/pkg/logger"
	"StockLens/pkg/util"

	"github.com/labstack/echo/v4"
)

// StockService is what the handler needs from the stock use case.
type StockService interface {
	GetStock(ctx context.Context, p usecase.StockParams) (*models.StockView, error)
	GetSeries(ctx context.Context, symbol string, interval models.Interval, rng models.DateRange) (*models.TimeSeries, error)
	GetOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error)
}

// HealthCheck reports a dependency as unhealthy by returning an error.
type HealthCheck func(ctx context.Context) error

// StockEchoHandler serves the stock API.
type StockEchoHandler struct {
	logger   *xlogger.Logger
	svc      StockService
	cache    cache.Service
	cacheTTL time.Duration
	limiter  *ratelimit.Limiter
	checks   map[string]HealthCheck
}

type Option func(*StockEchoHandler)

// WithCache caches successful non-empty responses for ttl.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(h *StockEchoHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithLimiter rate limits /api per client IP.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(h *StockEchoHandler) { h.limiter = l }
}

// WithHealthCheck adds a named check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *StockEchoHandler) { h.checks[name] = check }
}

func NewStockEchoHandler(logger *xlogger.Logger, svc StockService, opts ...Option) *StockEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &StockEchoHandler{
		logger: logger,
		svc:    svc,
		cache:  cache.Nop{},
		checks: map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = cache.Nop{}
	}
	return h
}

func (h *StockEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/stock")
	if h.limiter != nil {
		g.Use(h.rateLimit)
	}
	g.GET("/:symbol", h.Stock)
	g.GET("/:symbol/series", h.Series)
	g.GET("/:symbol/overview", h.Overview)
}

func (h *StockEchoHandler) Stock(c echo.Context) error {
	req := &models.StockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng, aerr := dateRange(req.From, req.To)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	key := cache.GenerateKeyWithParams("stock", symbol, req.Interval, req.From, req.To, req.SkipOverview)
	if h.serveCached(c, key) {
		return nil
	}

	view, err := h.svc.GetStock(c.Request().Context(), usecase.StockParams{
		Symbol:       symbol,
		Interval:     models.NormalizeInterval(req.Interval),
		Range:        rng,
		SkipOverview: req.SkipOverview,
	})
	if err != nil {
		return h.fail(c, "stock", symbol, err)
	}
	if view.StockData != nil && !view.StockData.Empty {
		h.store(c.Request().Context(), key, view)
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *StockEchoHandler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng, aerr := dateRange(req.From, req.To)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	key := cache.GenerateKeyWithParams("series", symbol, req.Interval, req.From, req.To)
	if h.serveCached(c, key) {
		return nil
	}

	ts, err := h.svc.GetSeries(c.Request().Context(), symbol, models.NormalizeInterval(req.Interval), rng)
	if err != nil {
		return h.fail(c, "series", symbol, err)
	}
	resp := seriesResponse{TimeSeries: ts, Empty: ts.IsEmpty()}
	if !resp.Empty {
		h.store(c.Request().Context(), key, resp)
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *StockEchoHandler) Overview(c echo.Context) error {
	req := &models.OverviewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	key := cache.GenerateKeyWithParams("overview", symbol)
	if h.serveCached(c, key) {
		return nil
	}

	ov, err := h.svc.GetOverview(c.Request().Context(), symbol)
	if err != nil {
		return h.fail(c, "overview", symbol, err)
	}
	if ov == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no company overview for %s", symbol))
	}
	h.store(c.Request().Context(), key, ov)
	return xhttp.SuccessResponse(c, ov)
}

// Health runs every registered check with a short deadline.
func (h *StockEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"checks": failed,
		})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// seriesResponse flags an empty result explicitly so clients can tell it from
// a failure.
type seriesResponse struct {
	*models.TimeSeries
	Empty bool `json:"empty"`
}

func (h *StockEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, wait := h.limiter.Reserve(c.RealIP())
		if ok {
			return next(c)
		}
		secs := int(wait.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests").
			WithParam("retry_after_seconds", secs))
	}
}

func (h *StockEchoHandler) fail(c echo.Context, op, symbol string, err error) error {
	ae := toAppError(err)
	fields := []xlogger.Field{
		xlogger.String("op", op),
		xlogger.String("symbol", symbol),
		xlogger.Int("status", ae.Status),
		xlogger.Error(err),
	}
	if ae.Status >= http.StatusInternalServerError {
		h.logger.Error("stock request failed", fields...)
	} else {
		h.logger.Warn("stock request failed", fields...)
	}
	return xhttp.AppErrorResponse(c, ae)
}

func (h *StockEchoHandler) serveCached(c echo.Context, key string) bool {
	b, err := h.cache.Get(c.Request().Context(), key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("cache read failed", xlogger.String("key", key), xlogger.Error(err))
		}
		c.Response().Header().Set("X-Cache", "MISS")
		return false
	}
	c.Response().Header().Set("X-Cache", "HIT")
	if err := xhttp.SuccessResponse(c, json.RawMessage(b)); err != nil {
		h.logger.Warn("cached response write failed", xlogger.String("key", key), xlogger.Error(err))
	}
	return true
}

func (h *StockEchoHandler) store(ctx context.Context, key string, v interface{}) {
	if h.cacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("cache encode failed", xlogger.String("key", key), xlogger.Error(err))
		return
	}
	if err := h.cache.Set(ctx, key, b, h.cacheTTL); err != nil {
		h.logger.Warn("cache write failed", xlogger.String("key", key), xlogger.Error(err))
	}
}

func dateRange(from, to string) (models.DateRange, *xhttp.AppError) {
	start, end, err := util.ParseDayRange(from, to)
	if err != nil {
		return models.DateRange{}, xhttp.BadRequestError(err.Error())
	}
	return models.DateRange{Start: start, End: end}, nil
}
