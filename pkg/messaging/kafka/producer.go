package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/urovital/clinic-api/pkg/messaging"
)

var _ messaging.Publisher = (*Producer)(nil)

// Producer writes every channel to a single topic, keyed by channel so
// events for one owner stay ordered within a partition.
type Producer struct {
	w      *kafka.Writer
	topic  string
	logger zerolog.Logger
}

func NewProducer(logger zerolog.Logger, brokers []string, topic string) *Producer {
	logger = logger.With().Str("component", "kafka").Str("topic", topic).Logger()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf(msg, args...)
		}),
	}

	return &Producer{
		w:      w,
		topic:  topic,
		logger: logger,
	}
}

func (p *Producer) Publish(ctx context.Context, channel string, msg messaging.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(channel),
		Value: b,
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}
