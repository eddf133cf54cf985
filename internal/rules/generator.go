// Package rules turns an alert plus its extracted indicators and detected
// attack category into a deterministic YARA-style detection rule artifact.
package rules

import (
	"fmt"
	"strings"

	"github.com/threatrelay/advisory-backend/internal/analyze"
	"github.com/threatrelay/advisory-backend/model"
	"github.com/threatrelay/advisory-backend/util"
)

// NamePrefix is the fixed prefix for every generated rule name
const NamePrefix = "ADV"

// descriptionLimit caps the sanitized description embedded in rule metadata
const descriptionLimit = 200

// categorySignatures maps each attack category to its fixed signature term
// set. The terms are emitted as nocase string clauses when the category is
// detected on the owning alert.
var categorySignatures = map[model.AttackCategory][]string{
	model.CategorySQLInjection: {
		"UNION SELECT",
		"OR 1=1",
		"' OR '",
		"DROP TABLE",
	},
	model.CategoryXSS: {
		"<script",
		"javascript:",
		"onerror=",
		"onload=",
	},
	model.CategoryPathTraversal: {
		"../",
		"..\\",
		"%2e%2e",
		"/etc/passwd",
	},
	model.CategoryCommandInjection: {
		"; ls",
		"| whoami",
		"&& cat",
		"$(",
	},
	model.CategoryRCE: {
		"eval(",
		"exec(",
		"system(",
		"cmd.exe",
	},
}

// Artifact is the generated rule before persistence
type Artifact struct {
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// RuleName builds the deterministic rule name from the alert's title and
// external identifier.
func RuleName(alert model.Alert) string {
	return NamePrefix + "_" + util.SanitizeToken(alert.Title) + "_" + util.SanitizeToken(alert.ExternalID)
}

// Tags assembles the tag list: high_priority for critical/high severities,
// then the raw severity, then the detected category if any.
func Tags(alert model.Alert, category model.AttackCategory) []string {
	tags := []string{}
	if alert.Severity == model.SeverityCritical || alert.Severity == model.SeverityHigh {
		tags = append(tags, "high_priority")
	}
	tags = append(tags, string(alert.Severity))
	if category != model.CategoryNone {
		tags = append(tags, string(category))
	}
	return tags
}

// Generate builds the full rule artifact. The operation is pure: identical
// alert state always yields byte-identical content, which makes regeneration
// on reprocess safe. The metadata timestamp is the alert's updated date
// (published date when updated is zero), never wall-clock time.
func Generate(alert model.Alert, indicators analyze.Indicators, category model.AttackCategory) Artifact {
	name := RuleName(alert)
	tags := Tags(alert, category)

	generated := alert.UpdatedDate
	if generated.IsZero() {
		generated = alert.PublishedDate
	}

	categoryMeta := "unknown"
	if category != model.CategoryNone {
		categoryMeta = string(category)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "rule %s\n{\n", name)

	// meta section
	b.WriteString("    meta:\n")
	fmt.Fprintf(&b, "        description = \"%s\"\n", util.Truncate(sanitizeMeta(alert.Description), descriptionLimit))
	fmt.Fprintf(&b, "        severity = \"%s\"\n", alert.Severity)
	fmt.Fprintf(&b, "        source = \"%s\"\n", alert.URL)
	fmt.Fprintf(&b, "        external_id = \"%s\"\n", alert.ExternalID)
	fmt.Fprintf(&b, "        generated = \"%s\"\n", generated.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "        attack_category = \"%s\"\n", categoryMeta)

	// strings section, in priority order: hashes, ips, domains, signatures
	var terms []string
	var clauses []string

	for i, h := range indicators.Hashes {
		terms = append(terms, fmt.Sprintf("        $hash%d = \"%s\"", i, h))
	}
	if len(indicators.Hashes) > 0 {
		clauses = append(clauses, "any of ($hash*)")
	}

	for i, ip := range indicators.IPs {
		terms = append(terms, fmt.Sprintf("        $ip%d = \"%s\"", i, ip))
	}
	if len(indicators.IPs) > 0 {
		clauses = append(clauses, "any of ($ip*)")
	}

	for i, d := range indicators.Domains {
		terms = append(terms, fmt.Sprintf("        $domain%d = \"%s\"", i, d))
	}
	if len(indicators.Domains) > 0 {
		clauses = append(clauses, "any of ($domain*)")
	}

	if category != model.CategoryNone {
		for i, sig := range categorySignatures[category] {
			terms = append(terms, fmt.Sprintf("        $sig%d = \"%s\" nocase", i, escapeTerm(sig)))
		}
		clauses = append(clauses, "any of ($sig*)")
	}

	// Fallback when nothing else matched: the external id is the sole term.
	if len(clauses) == 0 {
		terms = append(terms, fmt.Sprintf("        $ext = \"%s\" nocase", alert.ExternalID))
		clauses = append(clauses, "$ext")
	}

	b.WriteString("    strings:\n")
	b.WriteString(strings.Join(terms, "\n"))
	b.WriteString("\n    condition:\n")
	fmt.Fprintf(&b, "        %s\n}\n", strings.Join(clauses, " or "))

	description := fmt.Sprintf("Auto-generated detection rule for %s (%s)", alert.ExternalID, alert.Severity)

	return Artifact{
		Name:        name,
		Content:     b.String(),
		Description: description,
		Tags:        tags,
	}
}

// sanitizeMeta strips characters that would break the quoted meta value
func sanitizeMeta(s string) string {
	r := strings.NewReplacer("\"", "'", "\n", " ", "\r", " ", "\\", "/")
	return r.Replace(s)
}

// escapeTerm escapes backslashes and quotes in signature terms
func escapeTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
