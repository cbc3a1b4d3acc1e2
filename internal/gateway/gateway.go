// Package gateway is the boundary between internal series requests and the
// external market data provider. It validates requests, performs the provider
// call, normalizes the payload into a models.TimeSeries and converts every
// failure into an *Error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"StockLens/internal/domain/models"
	"StockLens/internal/domain/repository"
	applogger "StockLens/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second

	outputCompact = "compact"
	outputFull    = "full"

	// Compact output holds the latest 100 trading days; older range starts need full output.
	compactWindow = 140 * 24 * time.Hour

	placeholderAPIKey = "your_api_key_here"
	maxMessageLen     = 200
)

// Config carries everything the gateway needs from process configuration.
type Config struct {
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// Validate reports a missing or placeholder API key as a configuration error.
func (c Config) Validate() error {
	key := strings.TrimSpace(c.APIKey)
	switch {
	case key == "":
		return configError("gateway.Config", "api key is missing")
	case key == placeholderAPIKey:
		return configError("gateway.Config", "api key is the placeholder value")
	case c.Timeout < 0:
		return configError("gateway.Config", "timeout must not be negative")
	}
	return nil
}

// SeriesRequest selects a symbol, a bar interval and an optional date range.
type SeriesRequest struct {
	Symbol   string
	Interval models.Interval
	Range    models.DateRange
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(g *Gateway) { g.l = l }
}

// WithClock overrides the time source used to pick the output size.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// Gateway fetches and normalizes provider data. It holds no per-request state
// and is safe for concurrent use.
type Gateway struct {
	cfg      Config
	provider repository.MarketDataProvider
	metrics  repository.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

// New creates a Gateway. Configuration is checked on every call so that a
// missing key surfaces as a typed error before any outbound request.
func New(cfg Config, provider repository.MarketDataProvider, opts ...Option) *Gateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 200 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}
	g := &Gateway{cfg: cfg, provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch returns the daily series for symbol within rng.
func (g *Gateway) Fetch(ctx context.Context, symbol string, rng models.DateRange) (*models.TimeSeries, error) {
	return g.FetchSeries(ctx, SeriesRequest{Symbol: symbol, Interval: models.IntervalDaily, Range: rng})
}

// FetchSeries returns the series selected by req. A nil error always comes with
// a non-nil series; an empty series is a success only for open ranges.
func (g *Gateway) FetchSeries(ctx context.Context, req SeriesRequest) (*models.TimeSeries, error) {
	start := time.Now()
	ts, err := g.fetchSeries(ctx, req)
	g.observe("series", req.Symbol, start, ts, err)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (g *Gateway) fetchSeries(ctx context.Context, req SeriesRequest) (*models.TimeSeries, error) {
	const op = "gateway.FetchSeries"

	if err := g.checkConfig(op); err != nil {
		return nil, err
	}
	sym, err := models.ParseSymbol(req.Symbol)
	if err != nil {
		return nil, invalidInput(op, req.Symbol, err)
	}
	interval := req.Interval
	if interval == "" {
		interval = models.IntervalDaily
	}
	if !interval.IsValid() {
		return nil, invalidInput(op, sym.String(), fmt.Errorf("unsupported interval %q", interval))
	}
	if err := req.Range.Validate(); err != nil {
		return nil, invalidInput(op, sym.String(), err)
	}

	function, key := seriesFunction(interval)
	payload, err := g.call(ctx, op, sym.String(), repository.RawQuery{
		Function:   function,
		Symbol:     sym.String(),
		APIKey:     g.cfg.APIKey,
		OutputSize: g.outputSize(interval, req.Range),
	})
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(payload.Body)
	if err != nil {
		return nil, providerError(op, sym.String(), ReasonMalformedPayload, payload.StatusCode, err.Error())
	}
	if reason, msg, ok := env.notice(); ok {
		return nil, providerError(op, sym.String(), reason, payload.StatusCode, truncate(msg))
	}
	meta, err := env.decodeMeta()
	if err != nil {
		return nil, providerError(op, sym.String(), ReasonMalformedPayload, payload.StatusCode, err.Error())
	}
	if meta.Symbol != "" && !strings.EqualFold(strings.TrimSpace(meta.Symbol), sym.String()) {
		return nil, providerError(op, sym.String(), ReasonMalformedPayload, payload.StatusCode,
			fmt.Sprintf("payload symbol %q does not match request", meta.Symbol))
	}
	loc := loadLocation(meta.TimeZone)
	points, err := env.decodeBars(key, loc)
	if err != nil {
		return nil, providerError(op, sym.String(), ReasonMalformedPayload, payload.StatusCode, err.Error())
	}
	points, err = normalize(points, req.Range)
	if err != nil {
		return nil, providerError(op, sym.String(), ReasonInvalidPoint, payload.StatusCode, err.Error())
	}
	if len(points) == 0 && req.Range.IsConcrete() {
		return nil, providerError(op, sym.String(), ReasonEmptySeries, payload.StatusCode, "no bars in requested range")
	}

	ts := &models.TimeSeries{
		Symbol:   sym,
		Interval: interval,
		TimeZone: meta.TimeZone,
		Points:   points,
	}
	if t, err := parseBarTime(meta.LastRefreshed, loc); err == nil {
		ts.LastRefreshed = t
	}
	return ts, nil
}

// FetchOverview returns company fundamentals, or (nil, nil) when the provider
// has none for symbol.
func (g *Gateway) FetchOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	const op = "gateway.FetchOverview"
	start := time.Now()

	ov, err := func() (*models.CompanyOverview, error) {
		if err := g.checkConfig(op); err != nil {
			return nil, err
		}
		sym, err := models.ParseSymbol(symbol)
		if err != nil {
			return nil, invalidInput(op, symbol, err)
		}
		payload, err := g.call(ctx, op, sym.String(), repository.RawQuery{
			Function: fnOverview,
			Symbol:   sym.String(),
			APIKey:   g.cfg.APIKey,
		})
		if err != nil {
			return nil, err
		}
		env, err := decodeEnvelope(payload.Body)
		if err != nil {
			return nil, providerError(op, sym.String(), ReasonMalformedPayload, payload.StatusCode, err.Error())
		}
		if reason, msg, ok := env.notice(); ok {
			return nil, providerError(op, sym.String(), reason, payload.StatusCode, truncate(msg))
		}
		return decodeOverview(env, sym), nil
	}()

	g.observe("overview", symbol, start, nil, err)
	return ov, err
}

func (g *Gateway) checkConfig(op string) error {
	if err := g.cfg.Validate(); err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			ge.Op = op
			return ge
		}
		return err
	}
	return nil
}

// call performs the provider round trip under the configured timeout. Only
// connection-level failures are retried, and only while the budget lasts.
func (g *Gateway) call(ctx context.Context, op, symbol string, q repository.RawQuery) (*repository.RawPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	backoff := g.cfg.BackoffMin
	for attempt := 1; ; attempt++ {
		payload, err := g.provider.FetchRaw(ctx, q)
		if err == nil {
			if perr := classifyStatus(op, symbol, payload); perr != nil {
				return nil, perr
			}
			return payload, nil
		}

		gerr := transportError(ctx, op, symbol, err)
		if gerr.Kind != KindNetwork || !gerr.Retryable || attempt >= g.cfg.MaxAttempts {
			return nil, gerr
		}
		if g.l != nil {
			g.l.Warn("gateway retrying provider call",
				applogger.String("op", op),
				applogger.String("symbol", symbol),
				applogger.Int("attempt", attempt),
				applogger.Duration("backoff_ms", backoff),
				applogger.Error(err),
			)
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, transportError(ctx, op, symbol, err)
		}
		backoff *= 2
		if backoff > g.cfg.BackoffMax {
			backoff = g.cfg.BackoffMax
		}
	}
}

func classifyStatus(op, symbol string, p *repository.RawPayload) *Error {
	if p == nil {
		return providerError(op, symbol, ReasonMalformedPayload, 0, "provider returned no payload")
	}
	msg := truncate(string(p.Body))
	switch {
	case p.StatusCode >= 200 && p.StatusCode < 300:
		return nil
	case p.StatusCode == http.StatusTooManyRequests:
		return providerError(op, symbol, ReasonRateLimited, p.StatusCode, msg)
	case p.StatusCode == http.StatusUnauthorized || p.StatusCode == http.StatusForbidden:
		return providerError(op, symbol, ReasonUnauthorized, p.StatusCode, msg)
	case p.StatusCode >= 500:
		return providerError(op, symbol, ReasonUpstream, p.StatusCode, msg)
	default:
		return providerError(op, symbol, ReasonUnexpectedStatus, p.StatusCode, msg)
	}
}

// transportError converts a provider transport failure. Deadlines become
// Timeout; caller cancellation becomes a non-retryable NetworkError that still
// matches context.Canceled.
func transportError(ctx context.Context, op, symbol string, err error) *Error {
	var ne net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout():
		return &Error{Kind: KindTimeout, Op: op, Symbol: symbol, Retryable: true, Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		if !errors.Is(err, context.Canceled) {
			err = errors.Join(context.Canceled, err)
		}
		return &Error{Kind: KindNetwork, Op: op, Symbol: symbol, Retryable: false, Message: "request canceled", Err: err}
	default:
		return &Error{Kind: KindNetwork, Op: op, Symbol: symbol, Retryable: true, Err: err}
	}
}

func (g *Gateway) outputSize(iv models.Interval, rng models.DateRange) string {
	if iv != models.IntervalDaily {
		return ""
	}
	if !rng.Start.IsZero() && rng.Start.Before(g.now().Add(-compactWindow)) {
		return outputFull
	}
	return outputCompact
}

func (g *Gateway) observe(op, symbol string, start time.Time, ts *models.TimeSeries, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(KindOf(err))
		if r := ReasonOf(err); r != ReasonNone {
			outcome += "_" + string(r)
		}
	case ts != nil && ts.IsEmpty():
		outcome = "empty"
	}

	if g.metrics != nil {
		g.metrics.RecordFetch(op, outcome, elapsed.Seconds())
		if err == nil && ts != nil {
			g.metrics.RecordPoints(ts.Symbol.String(), ts.Len())
			if n := ts.Len(); n > 0 {
				g.metrics.RecordLastClose(ts.Symbol.String(), ts.Points[n-1].Close)
			}
		}
	}

	if g.l == nil {
		return
	}
	if err != nil {
		g.l.Warn("gateway fetch failed",
			applogger.String("op", op),
			applogger.String("symbol", symbol),
			applogger.String("outcome", outcome),
			applogger.Bool("retryable", IsRetryable(err)),
			applogger.Duration("duration_ms", elapsed),
			applogger.Error(err),
		)
		return
	}
	g.l.Debug("gateway fetch ok",
		applogger.String("op", op),
		applogger.String("symbol", symbol),
		applogger.String("outcome", outcome),
		applogger.Int("points", ts.Len()),
		applogger.Duration("duration_ms", elapsed),
	)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
