// Package model - adversary technique catalog and alert mappings
package model

// TechniqueRef is a catalog entry for one classification category. Created
// lazily the first time the mapper emits a mapping for it; unique on
// TechniqueID.
type TechniqueRef struct {
	Key         string `json:"_key,omitempty"`
	TechniqueID string `json:"technique_id"` // e.g., "T1190"
	Name        string `json:"name"`         // e.g., "Exploit Public-Facing Application"
	Tactic      string `json:"tactic"`       // e.g., "Initial Access"
	Description string `json:"description"`
	Reference   string `json:"reference"` // Link to the upstream technique page.
	ObjType     string `json:"objtype,omitempty"` // "TechniqueRef"
}

// TechniqueMapping is the alert→technique edge with a confidence score in
// [0,1]. Unique per (alert, technique) pair.
type TechniqueMapping struct {
	Key        string  `json:"_key,omitempty"`
	From       string  `json:"_from"` // "alerts/<key>"
	To         string  `json:"_to"`   // "techniques/<key>"
	Confidence float64 `json:"confidence"`
	ObjType    string  `json:"objtype,omitempty"` // "TechniqueMapping"
}

// MappingView is the joined row returned by the mapping list endpoint.
type MappingView struct {
	AlertKey      string   `json:"alert_key"`
	AlertTitle    string   `json:"alert_title"`
	AlertSeverity Severity `json:"alert_severity"`
	TechniqueID   string   `json:"technique_id"`
	TechniqueName string   `json:"technique_name"`
	Tactic        string   `json:"tactic"`
	Confidence    float64  `json:"confidence"`
}
