package usecase

import (
	"context"
	"time"

	"StockLens/internal/domain/models"
	"StockLens/internal/gateway"
	"StockLens/internal/services/indicators"
	applogger "StockLens/pkg/logger"
)

// SeriesFetcher is the part of *gateway.Gateway the use case depends on.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, req gateway.SeriesRequest) (*models.TimeSeries, error)
	FetchOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error)
}

// SeriesSink receives every successfully fetched series.
type SeriesSink interface {
	Submit(ctx context.Context, ts *models.TimeSeries)
}

// StockUseCase builds chart views: series, indicators and company overview.
type StockUseCase struct {
	fetcher  SeriesFetcher
	sink     SeriesSink
	params   indicators.Params
	lookback int
	display  int
	l        *applogger.Logger
}

// NewStockUseCase creates the use case. lookback is how many trailing points
// feed the indicators; display is how many of those are returned.
func NewStockUseCase(fetcher SeriesFetcher, sink SeriesSink, lookback, display int, l *applogger.Logger) *StockUseCase {
	if lookback <= 0 {
		lookback = 60
	}
	if display <= 0 || display > lookback {
		display = min(30, lookback)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &StockUseCase{
		fetcher:  fetcher,
		sink:     sink,
		params:   indicators.DefaultParams(),
		lookback: lookback,
		display:  display,
		l:        l,
	}
}

// StockParams selects a chart.
type StockParams struct {
	Symbol       string
	Interval     models.Interval
	Range        models.DateRange
	SkipOverview bool
}

// GetStock fetches the series, computes indicators over the lookback window
// and trims everything to the display window. The overview is best-effort.
func (uc *StockUseCase) GetStock(ctx context.Context, p StockParams) (*models.StockView, error) {
	ts, err := uc.fetch(ctx, p.Symbol, p.Interval, p.Range)
	if err != nil {
		return nil, err
	}

	view := &models.StockView{StockData: uc.buildStockData(ts)}
	if !p.SkipOverview {
		view.CompanyInfo = uc.overview(ctx, ts.Symbol)
	}
	return view, nil
}

// GetSeries returns the normalized series for the request, untrimmed.
func (uc *StockUseCase) GetSeries(ctx context.Context, symbol string, interval models.Interval, rng models.DateRange) (*models.TimeSeries, error) {
	return uc.fetch(ctx, symbol, interval, rng)
}

// GetOverview returns company fundamentals or nil when the provider has none.
func (uc *StockUseCase) GetOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	return uc.fetcher.FetchOverview(ctx, symbol)
}

func (uc *StockUseCase) fetch(ctx context.Context, symbol string, interval models.Interval, rng models.DateRange) (*models.TimeSeries, error) {
	ts, err := uc.fetcher.FetchSeries(ctx, gateway.SeriesRequest{Symbol: symbol, Interval: interval, Range: rng})
	if err != nil {
		return nil, err
	}
	if uc.sink != nil {
		uc.sink.Submit(ctx, ts)
	}
	return ts, nil
}

func (uc *StockUseCase) buildStockData(ts *models.TimeSeries) *models.StockData {
	window := ts.Tail(uc.lookback)
	shown := window.Tail(uc.display)

	sd := &models.StockData{
		Symbol:        ts.Symbol,
		Interval:      ts.Interval,
		LastRefreshed: ts.LastRefreshed,
		Empty:         ts.IsEmpty(),
		Dates:         make([]string, 0, shown.Len()),
		Opens:         make([]float64, 0, shown.Len()),
		Highs:         make([]float64, 0, shown.Len()),
		Lows:          make([]float64, 0, shown.Len()),
		Prices:        make([]float64, 0, shown.Len()),
		Volumes:       make([]float64, 0, shown.Len()),
	}
	for _, p := range shown.Points {
		sd.Dates = append(sd.Dates, p.Timestamp.Format(time.DateOnly))
		sd.Opens = append(sd.Opens, p.Open)
		sd.Highs = append(sd.Highs, p.High)
		sd.Lows = append(sd.Lows, p.Low)
		sd.Prices = append(sd.Prices, p.Close)
		sd.Volumes = append(sd.Volumes, p.Volume)
	}
	if !sd.Empty {
		sd.Indicators = indicators.Tail(indicators.Compute(window.Closes(), uc.params), uc.display)
	}
	return sd
}

func (uc *StockUseCase) overview(ctx context.Context, symbol models.Symbol) *models.CompanyOverview {
	ov, err := uc.fetcher.FetchOverview(ctx, symbol.String())
	if err != nil {
		uc.l.Warn("company overview unavailable",
			applogger.String("symbol", symbol.String()),
			applogger.String("kind", string(gateway.KindOf(err))),
			applogger.Error(err),
		)
		return nil
	}
	return ov
}
