package repository

import (
	"context"
	"time"

	"StockLens/internal/domain/models"
	domrepo "StockLens/internal/domain/repository"
	pkgkafka "StockLens/pkg/kafka"
)

// batchProducer is the part of *pkgkafka.Producer the publisher uses.
type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// BarMessage is the wire format of one published bar.
type BarMessage struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Ts       time.Time `json:"ts"`
	Open     float64   `json:"o"`
	High     float64   `json:"h"`
	Low      float64   `json:"l"`
	Close    float64   `json:"c"`
	Volume   float64   `json:"v"`
}

// KafkaSeriesPublisher publishes one message per bar, keyed by symbol.
type KafkaSeriesPublisher struct {
	producer batchProducer
	topic    string
}

// NewKafkaSeriesPublisher creates the publisher.
func NewKafkaSeriesPublisher(producer batchProducer, topic string) *KafkaSeriesPublisher {
	return &KafkaSeriesPublisher{producer: producer, topic: topic}
}

var _ domrepo.SeriesPublisher = (*KafkaSeriesPublisher)(nil)

// PublishSeries sends every bar of ts in one batch.
func (p *KafkaSeriesPublisher) PublishSeries(ctx context.Context, ts *models.TimeSeries) error {
	if ts.IsEmpty() {
		return nil
	}
	key := []byte(ts.Symbol.String())
	msgs := make([]pkgkafka.Message, len(ts.Points))
	for i, pt := range ts.Points {
		msgs[i] = pkgkafka.Message{
			Key: key,
			Value: BarMessage{
				Symbol:   ts.Symbol.String(),
				Interval: string(ts.Interval),
				Ts:       pt.Timestamp.UTC(),
				Open:     pt.Open,
				High:     pt.High,
				Low:      pt.Low,
				Close:    pt.Close,
				Volume:   pt.Volume,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close closes the producer.
func (p *KafkaSeriesPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
