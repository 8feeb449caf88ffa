// README: Kafka writer for the booking transition stream.
package infra

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns nil when no brokers are configured; callers treat a
// nil writer as "stream disabled". Writes are async, delivery errors are logged.
func NewKafkaWriter(brokers []string, topic string, log *slog.Logger) *kafka.Writer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka delivery failed", slog.String("topic", topic), slog.Int("messages", len(messages)), slog.Any("err", err))
			}
		},
	}
}
