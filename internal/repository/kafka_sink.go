package repository

import (
	"context"
	"fmt"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
)

// Publisher is the subset of pkg/kafka.Producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaRunSink publishes each RunRecord as one JSON message keyed by run ID.
type KafkaRunSink struct {
	producer Publisher
	topic    string
}

// NewKafkaRunSink creates a Kafka sink.
func NewKafkaRunSink(producer Publisher, topic string) drepo.RunSink {
	return &KafkaRunSink{producer: producer, topic: topic}
}

func (s *KafkaRunSink) Name() string { return "kafka" }

func (s *KafkaRunSink) Publish(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return nil
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(rec.RunID), runMessage(rec)); err != nil {
		return fmt.Errorf("publish run %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *KafkaRunSink) Close() error {
	return s.producer.Close()
}

func runMessage(rec *models.RunRecord) map[string]interface{} {
	return map[string]interface{}{
		"run_id":          rec.RunID,
		"ts":              rec.Timestamp.Unix(),
		"timestamp_local": rec.Local,
		"ok_count":        rec.OKCount(),
		"results":         rec.Results,
	}
}
