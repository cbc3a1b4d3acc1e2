package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StockLens/internal/domain/models"
	pkgkafka "StockLens/pkg/kafka"
)

type recordingProducer struct {
	topic  string
	msgs   []pkgkafka.Message
	calls  int
	closed bool
}

func (r *recordingProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	r.calls++
	r.topic = topic
	r.msgs = append(r.msgs, messages...)
	return nil
}

func (r *recordingProducer) Close() error {
	r.closed = true
	return nil
}

func TestKafkaSeriesPublisher_PublishSeries(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaSeriesPublisher(prod, "market.bars")
	day := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	err := pub.PublishSeries(t.Context(), &models.TimeSeries{
		Symbol:   "IBM",
		Interval: models.IntervalDaily,
		Points: []models.PricePoint{
			{Timestamp: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
			{Timestamp: day.AddDate(0, 0, 1), Open: 1.5, High: 2, Low: 1, Close: 1.8, Volume: 80},
		},
	})

	require.NoError(t, err)
	require.Equal(t, 1, prod.calls)
	require.Equal(t, "market.bars", prod.topic)
	require.Len(t, prod.msgs, 2)
	require.Equal(t, []byte("IBM"), prod.msgs[0].Key)

	bar, ok := prod.msgs[1].Value.(BarMessage)
	require.True(t, ok)
	require.Equal(t, "daily", bar.Interval)
	require.Equal(t, 1.8, bar.Close)
	require.Equal(t, day.AddDate(0, 0, 1), bar.Ts)

	require.NoError(t, pub.Close())
	require.True(t, prod.closed)
}

func TestKafkaSeriesPublisher_EmptySeriesSkipsWrite(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaSeriesPublisher(prod, "market.bars")

	require.NoError(t, pub.PublishSeries(t.Context(), &models.TimeSeries{Symbol: "IBM"}))
	require.NoError(t, pub.PublishSeries(t.Context(), nil))
	require.Zero(t, prod.calls)
}
