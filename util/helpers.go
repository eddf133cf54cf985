// Package util - string helpers shared by the rule generator and handlers
package util

// SanitizeToken replaces every rune outside [A-Za-z0-9_] with an underscore.
// Used to build deterministic rule names from titles and external ids.
func SanitizeToken(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Truncate cuts s to at most n runes, never splitting a multi-byte
// character. Rule metadata descriptions are capped at 200 characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
