package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/itda-project/itda-chat-api/models"
)

// KafkaSink publishes room events to the notification fan-out topic.
// Downstream the notification service turns these tuples into pushes;
// delivery is not this api's concern.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink builds a sink writing to topic on the given brokers
// (comma separated)
func NewKafkaSink(brokers, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish writes one room event keyed by room id
func (s *KafkaSink) Publish(ctx context.Context, event models.RoomEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RoomID),
		Value: value,
	})
}

// Close flushes and closes the underlying writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
