// Package model - append-only audit trail of fetch and job outcomes
package model

import "time"

// LogStatus represents the outcome class of a processing log entry
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
	LogStatusWarning LogStatus = "warning"
)

// ProcessingLog is one fetch-or-job outcome. Write-only: never mutated or
// deleted by the pipeline. Carries the source name rather than a document
// reference so logs outlive deleted sources.
type ProcessingLog struct {
	Key          string    `json:"_key,omitempty"`
	SourceName   string    `json:"source_name"`
	Status       LogStatus `json:"status"`
	AlertsFound  int       `json:"alerts_found"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	ObjType      string    `json:"objtype,omitempty"` // "ProcessingLog"
}
