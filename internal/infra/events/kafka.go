package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"storefront/internal/domain/event"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

var ErrProducerFull = errors.New("event producer buffer full")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 受け取ったイベントをバッファに積み、goroutineでKafkaへ書く。
// 注文処理をKafkaの遅延で止めないため、満杯のときは捨ててログに残す
type OrderEventProducer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
}

func NewOrderEventProducer(brokers []string, topic string, buf int, log logrus.FieldLogger) *OrderEventProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newOrderEventProducer(w, buf, log)
}

func newOrderEventProducer(w messageWriter, buf int, log logrus.FieldLogger) *OrderEventProducer {
	if buf <= 0 {
		buf = 256
	}
	return &OrderEventProducer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

// inboxが閉じられたら残りを書き切ってWriterを閉じる
func (p *OrderEventProducer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.WithError(err).WithField("key", string(m.Key)).Error("kafka write failed")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.log.WithError(err).Warn("kafka writer close failed")
		}
	}()
}

// キーは注文IDなので同じ注文のイベントは同じパーティションに入る
func (p *OrderEventProducer) PublishOrderCreated(_ context.Context, ev event.OrderCreated) error {
	payload, err := json.Marshal(envelope{
		Type:       event.TypeOrderCreated,
		OccurredAt: time.Now().UTC(),
		Data:       ev,
	})
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("event producer closed")
	}

	select {
	case p.inbox <- kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.TypeOrderCreated)},
		},
	}:
		return nil
	default:
		return ErrProducerFull
	}
}

// 2回呼んでも安全
func (p *OrderEventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// Start済みのときだけ使う
func (p *OrderEventProducer) WaitClosed() { <-p.closeCh }

type envelope struct {
	Type       string             `json:"type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Data       event.OrderCreated `json:"data"`
}
