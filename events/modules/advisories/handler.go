// Package advisories handles Kafka event processing for advisory intake
// events.
package advisories

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/threatrelay/advisory-backend/model"
)

// Ingestor defines the interface for storing an advisory candidate.
type Ingestor interface {
	IngestCandidate(ctx context.Context, sourceName string, candidate model.AlertCandidate) error
}

// HandleAdvisoryReceived processes advisory intake events from Kafka.
func HandleAdvisoryReceived(ctx context.Context, msg []byte, ingestor Ingestor) error {
	var event AdvisoryReceivedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("failed to unmarshal AdvisoryReceivedEvent: %w", err)
	}

	if event.SourceName == "" || event.Advisory.ExternalID == "" || event.Advisory.Title == "" {
		return fmt.Errorf("invalid event: missing required fields")
	}

	if !event.Advisory.Severity.IsValid() {
		event.Advisory.Severity = model.SeverityInfo
	}

	log.Printf("Processing advisory %s from %s", event.Advisory.ExternalID, event.SourceName)

	if err := ingestor.IngestCandidate(ctx, event.SourceName, event.Advisory); err != nil {
		return fmt.Errorf("internal service error: %w", err)
	}

	log.Printf("Successfully processed advisory %s from %s", event.Advisory.ExternalID, event.SourceName)
	return nil
}
