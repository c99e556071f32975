// Package kafka forwards portal domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dustbinpro/internal/events"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events best-effort. With no brokers configured every
// method is a no-op.
type Producer struct {
	writer  MessageWriter
	topic   string
	timeout time.Duration
	logger  *zerolog.Logger
}

type envelope struct {
	Event     string          `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

func NewProducer(brokers []string, topic string, logger *zerolog.Logger) *Producer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if len(brokers) == 0 || topic == "" {
		return &Producer{logger: logger}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn().Err(err).Int("messages", len(messages)).Msg("kafka: write events")
			}
		},
	}
	return NewProducerWithWriter(w, topic, logger)
}

func NewProducerWithWriter(w MessageWriter, topic string, logger *zerolog.Logger) *Producer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Producer{writer: w, topic: topic, timeout: 5 * time.Second, logger: logger}
}

// Enabled reports whether events are actually written.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// Produce writes a single event.
func (p *Producer) Produce(ctx context.Context, e *events.Event) error {
	if p.writer == nil {
		return nil
	}

	body, err := json.Marshal(envelope{Event: e.Type, CreatedAt: e.CreatedAt.UTC(), Payload: e.Payload})
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg := kafka.Message{
		Key:     []byte(e.Type),
		Value:   body,
		Headers: []kafka.Header{{Key: "event", Value: []byte(e.Type)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write event: %w", err)
	}
	return nil
}

// Forward subscribes the producer to every portal event on the bus.
func (p *Producer) Forward(bus *events.EventBus) {
	if p.writer == nil {
		return
	}
	bus.SubscribeAll(func(e *events.Event) error {
		if err := p.Produce(context.Background(), e); err != nil {
			p.logger.Warn().Err(err).Str("event", e.Type).Msg("event not forwarded")
		}
		return nil
	}, events.EventBookingCreated, events.EventBookingCancelled, events.EventPaymentRecorded, events.EventSupportTicketOpen)
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// ParseBrokers splits "host1:9092,host2:9092" into a list.
func ParseBrokers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
