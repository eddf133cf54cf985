package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/threatrelay/advisory-backend/events/modules/advisories"
)

// RunEventProcessor consumes the advisory intake topic and routes each
// event into the ingestion path. Returns after the consumer goroutine has
// been started; a connection failure after three attempts is returned.
func RunEventProcessor(ctx context.Context, ingestor advisories.Ingestor) error {
	brokersEnv := os.Getenv("KAFKA_BROKERS")
	var brokers []string
	if brokersEnv != "" {
		brokers = strings.Split(brokersEnv, ",")
	} else {
		brokers = []string{"localhost:9092"}
	}

	username := os.Getenv("KAFKA_API_KEY")
	password := os.Getenv("KAFKA_API_SECRET")

	var dialer *kafka.Dialer

	// SASL/TLS only when credentials are provided; plain dialer for
	// local development.
	if username != "" && password != "" {
		mechanism := plain.Mechanism{
			Username: username,
			Password: password,
		}

		dialer = &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: mechanism,
			TLS:           &tls.Config{},
		}
	} else {
		dialer = &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		}
	}

	topic := "advisory-events"
	var conn *kafka.Conn
	var err error

	// Retry logic: 3 tries
	for i := 1; i <= 3; i++ {
		log.Printf("Kafka connection attempt %d/3...", i)
		conn, err = dialer.DialContext(ctx, "tcp", brokers[0])
		if err == nil {
			conn.Close()
			break
		}
		if i < 3 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		return err
	}

	readerConfig := kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  "advisory-backend-worker",
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	}

	reader := kafka.NewReader(readerConfig)
	producer := advisories.NewAdvisoryProducer(brokers, "advisory-processed")

	go func() {
		defer reader.Close()
		defer producer.Close()

		log.Println("Kafka Event Processor started. Listening for advisory events...")

		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := reader.ReadMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					continue
				}

				var event advisories.AdvisoryReceivedEvent
				if err := advisories.HandleAdvisoryReceived(ctx, msg.Value, ingestor); err != nil {
					log.Printf("advisory event rejected: %v", err)
					continue
				}
				// Acknowledges intake only; rule and mapping generation
				// happens later in the batch jobs.
				if err := json.Unmarshal(msg.Value, &event); err == nil {
					if err := producer.PublishAdvisoryProcessed(ctx, event.SourceName, event.Advisory.ExternalID); err != nil {
						log.Printf("processed event publish failed: %v", err)
					}
				}
			}
		}
	}()

	return nil
}
