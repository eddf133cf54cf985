// Package advisories handles Kafka event production for processed
// advisory notifications.
package advisories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// AdvisoryProducer handles sending processed-advisory events to Kafka
type AdvisoryProducer struct {
	Writer *kafka.Writer
}

// NewAdvisoryProducer initializes a new Kafka writer for advisory events
func NewAdvisoryProducer(brokers []string, topic string) *AdvisoryProducer {
	return &AdvisoryProducer{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishAdvisoryProcessed sends the event to the Kafka topic
func (p *AdvisoryProducer) PublishAdvisoryProcessed(ctx context.Context, sourceName, externalID string) error {
	event := AdvisoryProcessedEvent{
		EventType:     "advisory.processed",
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: "v1",
		SourceName:    sourceName,
		ExternalID:    externalID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(externalID),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *AdvisoryProducer) Close() error {
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}
