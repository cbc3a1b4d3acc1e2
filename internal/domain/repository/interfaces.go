package repository

import (
	"context"

	"StockLens/internal/domain/models"
)

// SeriesPublisher pushes fetched series to a message broker.
type SeriesPublisher interface {
	PublishSeries(ctx context.Context, ts *models.TimeSeries) error
	Close() error
}

// SeriesStorage persists fetched bars.
type SeriesStorage interface {
	Init(ctx context.Context) error
	StoreSeries(ctx context.Context, ts *models.TimeSeries) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records gateway and sink activity.
type Metrics interface {
	RecordFetch(op, outcome string, seconds float64)
	RecordPoints(symbol string, n int)
	RecordLastClose(symbol string, price float64)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
}
