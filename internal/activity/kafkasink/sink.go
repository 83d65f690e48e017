// Package kafkasink broadcasts activity entries to a Kafka topic for
// live consumers. Delivery is asynchronous and best-effort.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"

	"acip/internal/activity"
	"acip/internal/platform/kafka/producer"
)

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	ProduceAsync(msg *producer.Message) error
}

// Sink publishes activity entries to a Kafka topic keyed by case ID so that
// per-case ordering is preserved within a partition.
type Sink struct {
	producer Producer
	topic    string
}

// New creates a Kafka activity sink.
func New(p Producer, topic string) *Sink {
	return &Sink{producer: p, topic: topic}
}

// Publish serializes the entry and hands it to the async producer.
func (s *Sink) Publish(_ context.Context, entry activity.Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}

	return s.producer.ProduceAsync(&producer.Message{
		Topic: s.topic,
		Key:   []byte(entry.CaseID),
		Value: value,
		Headers: map[string]string{
			"status": string(entry.Status),
		},
	})
}
