// Package analyze - coarse attack-category detection
package analyze

import (
	"strings"

	"github.com/threatrelay/advisory-backend/model"
)

// DetectCategory classifies lowercased title+description text into at most
// one attack category. The rule order is fixed and significant: the first
// matching category wins.
//
// Note the sql_injection check: "sql" must be present, together with either
// "injection" or "database". Text mentioning only "database" never triggers
// the category. That boundary is intentional and pinned by tests; do not
// widen it.
func DetectCategory(text string) model.AttackCategory {
	t := strings.ToLower(text)

	if strings.Contains(t, "sql") && (strings.Contains(t, "injection") || strings.Contains(t, "database")) {
		return model.CategorySQLInjection
	}
	if strings.Contains(t, "xss") || strings.Contains(t, "cross-site scripting") {
		return model.CategoryXSS
	}
	if strings.Contains(t, "path traversal") || strings.Contains(t, "directory traversal") || strings.Contains(t, "../") {
		return model.CategoryPathTraversal
	}
	if strings.Contains(t, "command injection") || strings.Contains(t, "os command") {
		return model.CategoryCommandInjection
	}
	if strings.Contains(t, "remote code execution") || strings.Contains(t, "rce") || strings.Contains(t, "arbitrary code") {
		return model.CategoryRCE
	}

	return model.CategoryNone
}
