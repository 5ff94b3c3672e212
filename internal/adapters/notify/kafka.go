package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer used to publish alerts.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMessage is the JSON value published per alert.
type KafkaMessage struct {
	ID     string    `json:"id"`
	To     string    `json:"to"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// KafkaSender publishes alerts to a topic for a downstream delivery service.
// Messages are keyed by recipient so one observer's alerts stay ordered.
type KafkaSender struct {
	w     messageWriter
	topic string
	now   func() time.Time
}

// NewKafkaSender creates a sender publishing to topic on brokers.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		now:   time.Now,
	}
}

// Name implements Sender.
func (s *KafkaSender) Name() string { return "kafka" }

// Send implements Sender. The receipt is the published message id.
func (s *KafkaSender) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}
	msg := KafkaMessage{ID: uuid.NewString(), To: to, Body: body, SentAt: s.now().UTC()}
	value, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("kafka: encode alert: %w", err)
	}
	if err := s.w.WriteMessages(ctx, kafka.Message{Key: []byte(to), Value: value}); err != nil {
		return "", fmt.Errorf("kafka: publish to %s: %w", s.topic, err)
	}
	return msg.ID, nil
}

// Close flushes and closes the writer.
func (s *KafkaSender) Close() error {
	return s.w.Close()
}
