// Package model - API types for job results and combined responses
package model

import "time"

// SourceSyncResult is the per-source outcome reported by the sync job
type SourceSyncResult struct {
	Source string `json:"source"`
	Alerts int    `json:"alerts"`
	Status string `json:"status"` // "success" or "error"
	Error  string `json:"error,omitempty"`
}

// AlertProcessResult is the per-alert outcome reported by the processing step
type AlertProcessResult struct {
	AlertKey string `json:"alert_key"`
	Status   string `json:"status"` // "processed", "skipped_locked", "error"
	RuleName string `json:"rule_name,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SyncJobResult aggregates a full sync run (fetch + process)
type SyncJobResult struct {
	Sources   []SourceSyncResult   `json:"sources"`
	Processed []AlertProcessResult `json:"processed"`
	StartedAt time.Time            `json:"started_at"`
	Duration  string               `json:"duration"`
}

// DedupResult reports a deduplication pass
type DedupResult struct {
	Groups  int      `json:"duplicate_groups"`
	Removed int      `json:"removed"`
	Kept    []string `json:"kept_keys,omitempty"`
}

// ReprocessResult reports a full reprocess run (reset + process + dedup)
type ReprocessResult struct {
	Reset     int                  `json:"reset"`
	Processed []AlertProcessResult `json:"processed"`
	Dedup     DedupResult          `json:"dedup"`
}

// RuleUpdateRequest is the partial-update body for PUT /rules/:key. Nil
// fields are preserved.
type RuleUpdateRequest struct {
	Content *string `json:"content"`
	Locked  *bool   `json:"locked"`
}

// StatsResponse is the aggregate counts payload for the dashboard
type StatsResponse struct {
	TotalAlerts   int              `json:"total_alerts"`
	Unprocessed   int              `json:"unprocessed_alerts"`
	TotalRules    int              `json:"total_rules"`
	TotalTechs    int              `json:"total_techniques"`
	TotalMappings int              `json:"total_mappings"`
	BySeverity    map[Severity]int `json:"by_severity"`
}
