package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/threatrelay/advisory-backend/model"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CVE-2024-12345", "CVE_2024_12345"},
		{"Remote Code Execution!", "Remote_Code_Execution_"},
		{"already_clean_09", "already_clean_09"},
		{"", ""},
		{"a/b\\c:d", "a_b_c_d"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("hi", 10); got != "hi" {
		t.Errorf("Truncate should not pad, got %q", got)
	}
}

// Truncate counts runes, so a multi-byte character at the limit is kept or
// dropped whole, never split into invalid bytes.
func TestTruncateMultiByte(t *testing.T) {
	exact := strings.Repeat("a", 199) + "é"
	if got := Truncate(exact, 200); got != exact {
		t.Errorf("200-rune string was cut to %d runes", utf8.RuneCountInString(got))
	}

	over := strings.Repeat("a", 199) + "éé"
	got := Truncate(over, 200)
	if !utf8.ValidString(got) {
		t.Fatalf("Truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("a", 199) + "é"; got != want {
		t.Errorf("got %d runes, want 200", utf8.RuneCountInString(got))
	}

	if got := Truncate("ééé", 2); got != "éé" {
		t.Errorf("Truncate(ééé, 2) = %q", got)
	}
}

func TestCalculateCVSSScore(t *testing.T) {
	score := CalculateCVSSScore("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	if score != 9.8 {
		t.Errorf("score = %v, want 9.8", score)
	}

	if got := CalculateCVSSScore(""); got != 0 {
		t.Errorf("empty vector score = %v, want 0", got)
	}
	if got := CalculateCVSSScore("not a vector"); got != 0 {
		t.Errorf("garbage vector score = %v, want 0", got)
	}
}

func TestSeverityFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Severity
	}{
		{10.0, model.SeverityCritical},
		{9.0, model.SeverityCritical},
		{8.9, model.SeverityHigh},
		{7.0, model.SeverityHigh},
		{6.9, model.SeverityMedium},
		{4.0, model.SeverityMedium},
		{3.9, model.SeverityLow},
		{0.1, model.SeverityLow},
	}
	for _, tt := range tests {
		if got := SeverityFromScore(tt.score); got != tt.want {
			t.Errorf("SeverityFromScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
