package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"StockLens/internal/domain/models"
	"StockLens/internal/gateway"
	"StockLens/internal/service/ratelimit"
	"StockLens/internal/usecase"
	"StockLens/pkg/cache"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	calls    int
	lastArgs usecase.StockParams
	lastRng  models.DateRange
	view     *models.StockView
	series   *models.TimeSeries
	overview *models.CompanyOverview
	err      error
}

func (f *fakeService) GetStock(_ context.Context, p usecase.StockParams) (*models.StockView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArgs = p
	return f.view, f.err
}

func (f *fakeService) GetSeries(_ context.Context, symbol string, interval models.Interval, rng models.DateRange) (*models.TimeSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArgs = usecase.StockParams{Symbol: symbol, Interval: interval, Range: rng}
	f.lastRng = rng
	return f.series, f.err
}

func (f *fakeService) GetOverview(_ context.Context, symbol string) (*models.CompanyOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArgs = usecase.StockParams{Symbol: symbol}
	return f.overview, f.err
}

func newEcho(h *StockEchoHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func sampleView() *models.StockView {
	return &models.StockView{
		StockData: &models.StockData{
			Symbol:   "IBM",
			Interval: models.IntervalDaily,
			Dates:    []string{"2024-03-01"},
			Prices:   []float64{190.5},
		},
		CompanyInfo: &models.CompanyOverview{Symbol: "IBM", Name: "International Business Machines"},
	}
}

func TestStock_Success(t *testing.T) {
	svc := &fakeService{view: sampleView()}
	e := newEcho(NewStockEchoHandler(nil, svc))

	rec := get(e, "/api/stock/ibm?from=2024-01-01&to=2024-03-01&skip_overview=true")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "IBM", svc.lastArgs.Symbol)
	require.Equal(t, models.IntervalDaily, svc.lastArgs.Interval)
	require.True(t, svc.lastArgs.SkipOverview)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), svc.lastArgs.Range.Start)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), svc.lastArgs.Range.End)

	var view models.StockView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	require.Equal(t, []float64{190.5}, view.StockData.Prices)
	require.False(t, view.StockData.Empty)
}

func TestStock_EmptyIsSuccess(t *testing.T) {
	svc := &fakeService{view: &models.StockView{StockData: &models.StockData{Symbol: "IBM", Empty: true}}}
	e := newEcho(NewStockEchoHandler(nil, svc))

	rec := get(e, "/api/stock/IBM")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"empty":true`)
}

func TestStock_ValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"bad interval", "/api/stock/IBM?interval=hourly"},
		{"bad from", "/api/stock/IBM?from=01/02/2024"},
		{"symbol too long", "/api/stock/ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{view: sampleView()}
			e := newEcho(NewStockEchoHandler(nil, svc))

			rec := get(e, tc.target)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Zero(t, svc.calls)
		})
	}
}

func TestStock_GatewayErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", &gateway.Error{Kind: gateway.KindInvalidInput, Err: errors.New("range start is after end")}, http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"unknown symbol", &gateway.Error{Kind: gateway.KindProvider, Reason: gateway.ReasonUnknownSymbol, Symbol: "ZZZZ"}, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"rate limited", &gateway.Error{Kind: gateway.KindProvider, Reason: gateway.ReasonRateLimited, Retryable: true}, http.StatusTooManyRequests, "ERR_RATE_LIMITED"},
		{"malformed", &gateway.Error{Kind: gateway.KindProvider, Reason: gateway.ReasonMalformedPayload}, http.StatusBadGateway, "ERR_UPSTREAM"},
		{"empty series", &gateway.Error{Kind: gateway.KindProvider, Reason: gateway.ReasonEmptySeries}, http.StatusBadGateway, "ERR_UPSTREAM"},
		{"network", &gateway.Error{Kind: gateway.KindNetwork, Retryable: true, Err: errors.New("connection refused")}, http.StatusBadGateway, "ERR_UPSTREAM"},
		{"canceled", &gateway.Error{Kind: gateway.KindNetwork, Err: context.Canceled}, statusClientClosed, "ERR_CANCELED"},
		{"configuration", &gateway.Error{Kind: gateway.KindConfiguration, Message: "api key missing"}, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{"timeout", &gateway.Error{Kind: gateway.KindTimeout, Retryable: true}, http.StatusGatewayTimeout, "ERR_TIMEOUT"},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			e := newEcho(NewStockEchoHandler(nil, svc))

			rec := get(e, "/api/stock/IBM")
			require.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				require.Contains(t, rec.Body.String(), fmt.Sprintf(`"code":%q`, tc.code))
			}
		})
	}
}

func TestStock_RateLimitedProviderSetsRetryAfter(t *testing.T) {
	svc := &fakeService{err: &gateway.Error{Kind: gateway.KindProvider, Reason: gateway.ReasonRateLimited, Retryable: true}}
	e := newEcho(NewStockEchoHandler(nil, svc))

	rec := get(e, "/api/stock/IBM")
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), `"reason":"rate_limited"`)
	require.Contains(t, rec.Body.String(), `"retryable":true`)
}

func TestStock_Cache(t *testing.T) {
	svc := &fakeService{view: sampleView()}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	e := newEcho(NewStockEchoHandler(nil, svc, WithCache(mc, time.Minute)))

	first := get(e, "/api/stock/IBM")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(e, "/api/stock/ibm")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, svc.calls)

	// different range is a different key
	get(e, "/api/stock/IBM?from=2024-01-01")
	require.Equal(t, 2, svc.calls)
}

func TestStock_FailuresAreNotCached(t *testing.T) {
	svc := &fakeService{err: &gateway.Error{Kind: gateway.KindTimeout}}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	e := newEcho(NewStockEchoHandler(nil, svc, WithCache(mc, time.Minute)))

	get(e, "/api/stock/IBM")
	svc.err = nil
	svc.view = sampleView()
	rec := get(e, "/api/stock/IBM")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, svc.calls)
	require.Equal(t, 1, mc.Len())
}

func TestStock_InboundRateLimit(t *testing.T) {
	svc := &fakeService{view: sampleView()}
	e := newEcho(NewStockEchoHandler(nil, svc, WithLimiter(ratelimit.New(2, 0.001))))

	require.Equal(t, http.StatusOK, get(e, "/api/stock/IBM").Code)
	require.Equal(t, http.StatusOK, get(e, "/api/stock/IBM").Code)
	rec := get(e, "/api/stock/IBM")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, 2, svc.calls)

	// health is not limited
	require.Equal(t, http.StatusOK, get(e, "/healthz").Code)
}

func TestSeries(t *testing.T) {
	t.Run("points", func(t *testing.T) {
		svc := &fakeService{series: &models.TimeSeries{
			Symbol:   "IBM",
			Interval: models.IntervalWeekly,
			Points:   []models.PricePoint{{Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 1, Close: 2, Volume: 10}},
		}}
		e := newEcho(NewStockEchoHandler(nil, svc))

		rec := get(e, "/api/stock/IBM/series?interval=weekly&to=2024-03-31")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, models.IntervalWeekly, svc.lastArgs.Interval)
		require.True(t, svc.lastRng.Start.IsZero())
		require.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), svc.lastRng.End)

		var body struct {
			Symbol string              `json:"symbol"`
			Empty  bool                `json:"empty"`
			Points []models.PricePoint `json:"points"`
		}
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
		require.Equal(t, "IBM", body.Symbol)
		require.False(t, body.Empty)
		require.Len(t, body.Points, 1)
	})

	t.Run("empty open range", func(t *testing.T) {
		svc := &fakeService{series: &models.TimeSeries{Symbol: "IBM", Interval: models.IntervalDaily}}
		e := newEcho(NewStockEchoHandler(nil, svc))

		rec := get(e, "/api/stock/IBM/series")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"empty":true`)
	})
}

func TestOverview(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &fakeService{overview: &models.CompanyOverview{Symbol: "IBM", Name: "IBM Corp"}}
		e := newEcho(NewStockEchoHandler(nil, svc))

		rec := get(e, "/api/stock/ibm/overview")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "IBM", svc.lastArgs.Symbol)
		require.Contains(t, rec.Body.String(), `"name":"IBM Corp"`)
	})

	t.Run("missing", func(t *testing.T) {
		e := newEcho(NewStockEchoHandler(nil, &fakeService{}))
		require.Equal(t, http.StatusNotFound, get(e, "/api/stock/IBM/overview").Code)
	})
}

func TestHealth(t *testing.T) {
	h := NewStockEchoHandler(nil, &fakeService{},
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
	)
	require.Equal(t, http.StatusOK, get(newEcho(h), "/healthz").Code)

	h = NewStockEchoHandler(nil, &fakeService{},
		WithHealthCheck("clickhouse", func(context.Context) error { return errors.New("dial timeout") }),
	)
	rec := get(newEcho(h), "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "dial timeout")
}
