// Package advisories defines types for Kafka event processing of advisory
// intake events.
package advisories

import (
	"time"

	"github.com/threatrelay/advisory-backend/model"
)

// AdvisoryReceivedEvent is an advisory pushed to the intake topic by an
// external collector, bypassing the polling fetchers.
type AdvisoryReceivedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	// Name of the catalog source the advisory belongs to. The source
	// must already exist; events for unknown sources are rejected.
	SourceName string `json:"source_name"`

	Advisory model.AlertCandidate `json:"advisory"`
}

// AdvisoryProcessedEvent is published after an advisory from the intake
// topic has been stored.
type AdvisoryProcessedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
}
