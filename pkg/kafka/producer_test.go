package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.Publish(t.Context(), "bars", []byte("IBM"), map[string]any{"symbol": "IBM", "close": 10.5})

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, "bars", w.msgs[0].Topic)
	require.Equal(t, []byte("IBM"), w.msgs[0].Key)
	require.JSONEq(t, `{"symbol":"IBM","close":10.5}`, string(w.msgs[0].Value))
	require.False(t, w.msgs[0].Time.IsZero())
}

func TestProducer_PublishBatchRawValues(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(t.Context(), "bars", []Message{
		{Key: []byte("a"), Value: []byte("raw")},
		{Key: []byte("b"), Value: "text"},
	})

	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	require.Equal(t, "raw", string(w.msgs[0].Value))
	require.Equal(t, "text", string(w.msgs[1].Value))

	require.NoError(t, p.PublishBatch(t.Context(), "bars", nil))
	require.Len(t, w.msgs, 2)
}

func TestProducer_Errors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishMessage(t.Context(), "logs", map[string]string{"a": "b"})
	require.ErrorContains(t, err, "broker down")

	err = p.Publish(t.Context(), "", nil, "x")
	require.ErrorContains(t, err, "topic is required")

	err = p.Publish(t.Context(), "bars", nil, func() {})
	require.ErrorContains(t, err, "marshal value")

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"))
	require.NoError(t, err)
	require.Equal(t, "zstd", p.comp)
	require.NoError(t, p.Close())
}

func TestParseCompression(t *testing.T) {
	require.Equal(t, kafka.Snappy, parseCompression("snappy"))
	require.Equal(t, kafka.Lz4, parseCompression("lz4"))
	require.Equal(t, kafka.Zstd, parseCompression("zstd"))
	require.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
