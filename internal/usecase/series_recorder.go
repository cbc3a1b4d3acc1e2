package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockLens/internal/domain/models"
	drepo "StockLens/internal/domain/repository"
	applogger "StockLens/pkg/logger"
)

// Sink backends.
const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// SeriesRecorder routes fetched series to the configured backend. Failures are
// logged and counted; they never reach the caller of Submit.
type SeriesRecorder struct {
	pub     drepo.SeriesPublisher
	store   drepo.SeriesStorage
	metrics drepo.Metrics
	backend string
	timeout time.Duration
	l       *applogger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewSeriesRecorder validates that the chosen backend has its dependency.
func NewSeriesRecorder(
	backend string,
	pub drepo.SeriesPublisher,
	store drepo.SeriesStorage,
	metrics drepo.Metrics,
	timeout time.Duration,
	l *applogger.Logger,
) (*SeriesRecorder, error) {
	if backend == "" {
		backend = BackendNone
	}
	switch backend {
	case BackendNone:
	case BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("kafka backend requires a publisher")
		}
	case BackendClickHouse:
		if store == nil {
			return nil, fmt.Errorf("clickhouse backend requires a store")
		}
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SeriesRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		timeout: timeout,
		l:       l,
	}, nil
}

// Backend returns the configured backend name.
func (r *SeriesRecorder) Backend() string { return r.backend }

// Record writes ts to the backend synchronously.
func (r *SeriesRecorder) Record(ctx context.Context, ts *models.TimeSeries) error {
	if ts.IsEmpty() || r.backend == BackendNone {
		return nil
	}

	var err error
	switch r.backend {
	case BackendKafka:
		err = r.pub.PublishSeries(ctx, ts)
	case BackendClickHouse:
		err = r.store.StoreSeries(ctx, ts)
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("sink_" + r.backend)
		}
		return fmt.Errorf("record series: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordMessageSent(r.backend, ts.Symbol.String())
	}
	return nil
}

// Submit records ts in the background, detached from the caller's
// cancellation and bounded by the recorder timeout.
func (r *SeriesRecorder) Submit(ctx context.Context, ts *models.TimeSeries) {
	if ts.IsEmpty() || r.backend == BackendNone {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.Record(rctx, ts); err != nil {
			r.l.Error("series recorder failed",
				applogger.String("backend", r.backend),
				applogger.String("symbol", ts.Symbol.String()),
				applogger.Int("points", ts.Len()),
				applogger.Error(err),
			)
		}
	}()
}

// Wait blocks until every submitted series has been recorded.
func (r *SeriesRecorder) Wait() {
	r.wg.Wait()
}

// Close stops accepting work, drains pending writes and closes the backend.
func (r *SeriesRecorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()

	var err error
	if r.pub != nil {
		if cerr := r.pub.Close(); cerr != nil {
			err = cerr
		}
	}
	if r.store != nil {
		if cerr := r.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
