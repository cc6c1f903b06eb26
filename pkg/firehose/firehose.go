// Package firehose publishes persisted channel messages to Kafka so
// downstream consumers (search indexing, analytics) can tail the stream.
// Publishing is best-effort: a sink failure never reaches the sender.
package firehose

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/community-chat/pkg/model"
)

type Sink interface {
	Publish(ctx context.Context, m *model.Message) error
	Close() error
}

// Kafka writes one record per persisted message, keyed by channel id so a
// channel's records stay in one partition.
type Kafka struct {
	writer *kafka.Writer
}

var _ Sink = (*Kafka)(nil)

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, m *model.Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message %d: %w", m.ID, err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.ChannelID),
		Value: value,
		Time:  m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("publish message %d: %w", m.ID, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Nop is used when no brokers are configured.
type Nop struct{}

var _ Sink = Nop{}

func (Nop) Publish(context.Context, *model.Message) error { return nil }
func (Nop) Close() error                                  { return nil }
