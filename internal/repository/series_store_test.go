package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StockLens/internal/domain/models"
)

type execCall struct {
	query string
	args  []driver.Value
}

// recordingDB is an in-memory database/sql driver that records every statement.
type recordingDB struct {
	mu        sync.Mutex
	prepared  []string
	execs     []execCall
	begins    int
	commits   int
	rollbacks int

	failExecAt int // 1-based; zero never fails
	execErr    error
	commitErr  error
}

func (r *recordingDB) Connect(context.Context) (driver.Conn, error) { return &recordingConn{r: r}, nil }
func (r *recordingDB) Driver() driver.Driver                        { return recordingDriver{r: r} }

type recordingDriver struct{ r *recordingDB }

func (d recordingDriver) Open(string) (driver.Conn, error) { return &recordingConn{r: d.r}, nil }

type recordingConn struct{ r *recordingDB }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.prepared = append(c.r.prepared, query)
	return &recordingStmt{r: c.r, query: query}, nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.begins++
	return &recordingTx{r: c.r}, nil
}

type recordingStmt struct {
	r     *recordingDB
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.execs = append(s.r.execs, execCall{query: s.query, args: args})
	if s.r.failExecAt > 0 && len(s.r.execs) == s.r.failExecAt {
		return nil, s.r.execErr
	}
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("query not supported")
}

type recordingTx struct{ r *recordingDB }

func (t *recordingTx) Commit() error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.commits++
	return t.r.commitErr
}

func (t *recordingTx) Rollback() error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.rollbacks++
	return nil
}

func newRecordingStore(t *testing.T, rec *recordingDB) *CHSeriesStore {
	t.Helper()
	db := sql.OpenDB(rec)
	t.Cleanup(func() { _ = db.Close() })
	store := newSeriesStore(db, "market", "bars", nil)
	store.now = func() time.Time { return time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC) }
	return store
}

func sampleSeries() *models.TimeSeries {
	ny, _ := time.LoadLocation("America/New_York")
	if ny == nil {
		ny = time.UTC
	}
	return &models.TimeSeries{
		Symbol:   "IBM",
		Interval: models.IntervalDaily,
		Points: []models.PricePoint{
			{Timestamp: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
			{Timestamp: time.Date(2024, 3, 7, 0, 0, 0, 0, ny), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 200},
		},
	}
}

func TestCHSeriesStore_StoreSeries(t *testing.T) {
	rec := &recordingDB{}
	store := newRecordingStore(t, rec)
	ts := sampleSeries()

	require.NoError(t, store.StoreSeries(t.Context(), ts))

	require.Equal(t, 1, rec.begins)
	require.Equal(t, 1, rec.commits)
	require.Zero(t, rec.rollbacks)
	require.Equal(t,
		[]string{"INSERT INTO market.bars (symbol, interval, ts, open, high, low, close, volume, fetched_at)"},
		rec.prepared)

	require.Len(t, rec.execs, 2)
	fetchedAt := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	for i, call := range rec.execs {
		p := ts.Points[i]
		require.Equal(t, []driver.Value{
			"IBM", "daily", p.Timestamp.UTC(),
			p.Open, p.High, p.Low, p.Close, p.Volume,
			fetchedAt,
		}, call.args)
		require.Equal(t, time.UTC, call.args[2].(time.Time).Location())
	}
}

func TestCHSeriesStore_StoreSeries_ExecFailureRollsBack(t *testing.T) {
	rec := &recordingDB{failExecAt: 2, execErr: errors.New("too many parts")}
	store := newRecordingStore(t, rec)

	err := store.StoreSeries(t.Context(), sampleSeries())
	require.ErrorContains(t, err, "append bar 2024-03-07")
	require.ErrorIs(t, err, rec.execErr)

	require.Zero(t, rec.commits)
	require.Equal(t, 1, rec.rollbacks)
}

func TestCHSeriesStore_StoreSeries_CommitFailure(t *testing.T) {
	rec := &recordingDB{commitErr: errors.New("connection reset")}
	store := newRecordingStore(t, rec)

	err := store.StoreSeries(t.Context(), sampleSeries())
	require.ErrorContains(t, err, "commit batch")
	require.ErrorIs(t, err, rec.commitErr)
	require.Equal(t, 1, rec.commits)
	require.Len(t, rec.execs, 2)
}

func TestCHSeriesStore_StoreSeries_EmptySkipsDatabase(t *testing.T) {
	rec := &recordingDB{}
	store := newRecordingStore(t, rec)

	require.NoError(t, store.StoreSeries(t.Context(), &models.TimeSeries{Symbol: "IBM", Interval: models.IntervalDaily}))
	require.Zero(t, rec.begins)
	require.Empty(t, rec.prepared)
}

func TestCHSeriesStore_Init(t *testing.T) {
	rec := &recordingDB{}
	store := newRecordingStore(t, rec)

	require.NoError(t, store.Init(t.Context()))
	require.Len(t, rec.execs, 2)
	require.Equal(t, "CREATE DATABASE IF NOT EXISTS market", rec.execs[0].query)
	require.True(t, strings.HasPrefix(rec.execs[1].query, "CREATE TABLE IF NOT EXISTS market.bars"), rec.execs[1].query)
	require.Empty(t, rec.execs[1].args)
	require.Zero(t, rec.begins)
}

func TestCHSeriesStore_InitFailure(t *testing.T) {
	rec := &recordingDB{failExecAt: 1, execErr: errors.New("access denied")}
	store := newRecordingStore(t, rec)

	err := store.Init(t.Context())
	require.ErrorContains(t, err, "init schema")
	require.ErrorIs(t, err, rec.execErr)
	require.Len(t, rec.execs, 1)
}

func TestCHSeriesStore_Health(t *testing.T) {
	store := newRecordingStore(t, &recordingDB{})
	require.NoError(t, store.Health(t.Context()))
}
