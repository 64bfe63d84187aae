package durablequeue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes each submitted job as a JSON message keyed on job ID. The
// partition is chosen by the LeastBytes balancer, which does not use the key.
type Kafka struct {
	writer *kafka.Writer
	topic  string
}

// NewKafka builds a Kafka-backed Publisher. brokers is a comma-separated
// list of host:port addresses.
func NewKafka(brokers, topic string) (*Kafka, error) {
	brokers = strings.TrimSpace(brokers)
	if brokers == "" {
		return nil, fmt.Errorf("durable queue requires at least one kafka broker")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("durable queue requires a topic")
	}

	brokerList := strings.Split(brokers, ",")
	for i, b := range brokerList {
		brokerList[i] = strings.TrimSpace(b)
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerList...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, record JobRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.JobID),
		Value: payload,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
