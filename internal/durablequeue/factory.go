package durablequeue

import "expenseindex/internal/config"

// New builds the Publisher selected by cfg: Kafka-backed when brokers are
// configured, otherwise Noop.
func New(cfg config.Config) (Publisher, error) {
	if cfg.DurableQueueBrokers != "" {
		return NewKafka(cfg.DurableQueueBrokers, cfg.DurableQueueTopic)
	}
	return Noop{}, nil
}
