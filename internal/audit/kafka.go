package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"trading-agent/internal/types"
)

// KafkaConfig names the brokers and topics for the published streams.
type KafkaConfig struct {
	Brokers    []string
	EventTopic string
	TradeTopic string
	ClientID   string
	MaxRetries int
}

// KafkaSink publishes audit records to two topics, keyed by symbol so a
// consumer sees one instrument's records in order.
type KafkaSink struct {
	producer   sarama.SyncProducer
	eventTopic string
	tradeTopic string
}

func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = cfg.MaxRetries
	if sc.Producer.Retry.Max <= 0 {
		sc.Producer.Retry.Max = 3
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaSink{
		producer:   producer,
		eventTopic: cfg.EventTopic,
		tradeTopic: cfg.TradeTopic,
	}, nil
}

func (s *KafkaSink) Event(ctx context.Context, e types.AuditEvent) error {
	return s.publish(s.eventTopic, e.Symbol, e)
}

func (s *KafkaSink) Trade(ctx context.Context, r types.TradeRecord) error {
	return s.publish(s.tradeTopic, r.Symbol, r)
}

func (s *KafkaSink) publish(topic, key string, record any) error {
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
	})
	return err
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
