package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"storefront/internal/domain/event"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOrderEventProducer_FlushOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newOrderEventProducer(w, 8, quietLogger())
	p.Start()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, p.PublishOrderCreated(context.Background(), event.OrderCreated{
			OrderID: id,
			UserID:  10,
			Source:  "cart",
			Total:   decimal.RequireFromString("19.90"),
		}))
	}
	p.Close()
	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 3)
	assert.True(t, w.closed)
	assert.Equal(t, "1", string(w.msgs[0].Key))

	var env struct {
		Type string `json:"type"`
		Data struct {
			OrderID int64  `json:"order_id"`
			Total   string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.msgs[2].Value, &env))
	assert.Equal(t, event.TypeOrderCreated, env.Type)
	assert.Equal(t, int64(3), env.Data.OrderID)
	assert.Equal(t, "19.9", env.Data.Total)
}

func TestOrderEventProducer_FullBufferDoesNotBlock(t *testing.T) {
	p := newOrderEventProducer(&fakeWriter{}, 1, quietLogger())
	// Startしていないのでinboxは1件で満杯になる

	require.NoError(t, p.PublishOrderCreated(context.Background(), event.OrderCreated{OrderID: 1}))
	err := p.PublishOrderCreated(context.Background(), event.OrderCreated{OrderID: 2})
	assert.ErrorIs(t, err, ErrProducerFull)
}

func TestOrderEventProducer_PublishAfterClose(t *testing.T) {
	p := newOrderEventProducer(&fakeWriter{}, 1, quietLogger())
	p.Close()
	assert.Error(t, p.PublishOrderCreated(context.Background(), event.OrderCreated{OrderID: 1}))
}
