// Package model - canonical alert record and severity enumeration
package model

import (
	"encoding/json"
	"time"
)

// Severity represents the normalized severity of an alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AllSeverities returns all valid severities for validation
var AllSeverities = []Severity{
	SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo,
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	for _, valid := range AllSeverities {
		if s == valid {
			return true
		}
	}
	return false
}

// ParseSeverity validates a severity filter value; "all" is accepted by the
// list endpoints and handled by the caller.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	return sev, sev.IsValid()
}

// Alert is the canonical record of one security advisory. The pair
// (source_key, external_id) is the natural key used for upsert conflict
// resolution; a unique persistent index enforces it.
type Alert struct {
	Key           string          `json:"_key,omitempty"`
	SourceKey     string          `json:"source_key"`     // Owning source document key.
	ExternalID    string          `json:"external_id"`    // Source-native identifier (e.g., "CVE-2026-1234").
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Severity      Severity        `json:"severity"`
	PublishedDate time.Time       `json:"published_date"`
	UpdatedDate   time.Time       `json:"updated_date"`
	URL           string          `json:"url"`
	RawData       json.RawMessage `json:"raw_data,omitempty"` // Opaque upstream payload; never strongly typed.
	Processed     bool            `json:"processed"`          // False until rules/mappings have been derived.
	ObjType       string          `json:"objtype,omitempty"`  // "Alert"
	CreatedAt     time.Time       `json:"created_at"`
}

// AlertCandidate is a normalized advisory produced by a source fetcher,
// before it has an identity in the store.
type AlertCandidate struct {
	ExternalID    string          `json:"external_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Severity      Severity        `json:"severity"`
	PublishedDate time.Time       `json:"published_date"`
	UpdatedDate   time.Time       `json:"updated_date"`
	URL           string          `json:"url"`
	RawData       json.RawMessage `json:"raw_data,omitempty"`
}
