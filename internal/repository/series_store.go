package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockLens/internal/domain/models"
	domrepo "StockLens/internal/domain/repository"
	pkgch "StockLens/pkg/clickhouse"
	applogger "StockLens/pkg/logger"
)

// CHSeriesStore persists bars into a ClickHouse ReplacingMergeTree table.
type CHSeriesStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
	now      func() time.Time
}

// NewCHSeriesStore creates the store. table is unqualified; the client's
// database is prepended.
func NewCHSeriesStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHSeriesStore {
	return newSeriesStore(ch.DB(), ch.Database(), table, l)
}

func newSeriesStore(db *sql.DB, database, table string, l *applogger.Logger) *CHSeriesStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesStore{db: db, database: database, table: table, l: l, now: time.Now}
}

var _ domrepo.SeriesStorage = (*CHSeriesStore)(nil)

func (s *CHSeriesStore) qualified() string {
	return s.database + "." + s.table
}

// Init creates the database and table when missing.
func (s *CHSeriesStore) Init(ctx context.Context) error {
	return pkgch.InitSchema(ctx, s.db, pkgch.BarsSchema(s.database, s.table))
}

// StoreSeries inserts every point of ts in one batch.
func (s *CHSeriesStore) StoreSeries(ctx context.Context, ts *models.TimeSeries) error {
	if ts.IsEmpty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, interval, ts, open, high, low, close, volume, fetched_at)", s.qualified()))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	fetchedAt := s.now().UTC()
	for _, p := range ts.Points {
		if _, err := stmt.ExecContext(ctx,
			ts.Symbol.String(),
			string(ts.Interval),
			p.Timestamp.UTC(),
			p.Open, p.High, p.Low, p.Close, p.Volume,
			fetchedAt,
		); err != nil {
			return fmt.Errorf("append bar %s: %w", p.Timestamp.Format(time.DateOnly), err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.l.Error("clickhouse store_series commit error",
			applogger.String("table", s.qualified()),
			applogger.String("symbol", ts.Symbol.String()),
			applogger.Int("points", ts.Len()),
			applogger.Error(err),
		)
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Health pings ClickHouse.
func (s *CHSeriesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to the client.
func (s *CHSeriesStore) Close() error {
	return nil
}
