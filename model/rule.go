// Package model - detection rule artifact and attack category enumeration
package model

import "time"

// AttackCategory represents a coarse attack classification detected from
// advisory text. The empty value means no category was detected.
type AttackCategory string

const (
	CategorySQLInjection     AttackCategory = "sql_injection"
	CategoryXSS              AttackCategory = "xss"
	CategoryPathTraversal    AttackCategory = "path_traversal"
	CategoryCommandInjection AttackCategory = "command_injection"
	CategoryRCE              AttackCategory = "rce"
	CategoryNone             AttackCategory = ""
)

// AllAttackCategories returns all valid (non-empty) attack categories
var AllAttackCategories = []AttackCategory{
	CategorySQLInjection, CategoryXSS, CategoryPathTraversal,
	CategoryCommandInjection, CategoryRCE,
}

// IsValid checks if the attack category is valid
func (c AttackCategory) IsValid() bool {
	for _, valid := range AllAttackCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// DetectionRule is the signature artifact derived from one alert. One rule per
// alert under normal flow; regenerated (delete-then-reinsert) on reprocessing
// unless Locked is set.
type DetectionRule struct {
	Key         string    `json:"_key,omitempty"`
	AlertKey    string    `json:"alert_key"` // Owning alert; mappings and rules cascade when the alert is removed.
	Name        string    `json:"name"`      // Deterministic: prefix + sanitized title + sanitized external id.
	Content     string    `json:"content"`   // Full rule body with meta, strings, and condition sections.
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Locked      bool      `json:"locked"`       // Locked rules survive automated regeneration and refuse deletion.
	GeneratedAt time.Time `json:"generated_at"` // Wall-clock insert time; the rule body carries its own state-derived timestamp.
	ObjType     string    `json:"objtype,omitempty"` // "DetectionRule"
}
