package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/threatrelay/advisory-backend/internal/analyze"
	"github.com/threatrelay/advisory-backend/model"
)

func sampleAlert() model.Alert {
	return model.Alert{
		SourceKey:     "src1",
		ExternalID:    "CVE-2024-12345",
		Title:         "Remote Code Execution in Widget Server",
		Description:   "Attackers can execute arbitrary code.",
		Severity:      model.SeverityCritical,
		PublishedDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedDate:   time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC),
		URL:           "https://example.com/advisory",
	}
}

func TestRuleName(t *testing.T) {
	got := RuleName(sampleAlert())
	want := "ADV_Remote_Code_Execution_in_Widget_Server_CVE_2024_12345"
	if got != want {
		t.Fatalf("RuleName() = %q, want %q", got, want)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	alert := sampleAlert()
	ind := analyze.Indicators{
		Hashes:  []string{"d41d8cd98f00b204e9800998ecf8427e"},
		IPs:     []string{"10.1.2.3"},
		Domains: []string{"evil.example-c2.net"},
	}

	first := Generate(alert, ind, model.CategoryRCE)
	second := Generate(alert, ind, model.CategoryRCE)

	if first.Content != second.Content {
		t.Fatal("identical inputs produced different rule content")
	}
	if first.Name != second.Name {
		t.Fatal("identical inputs produced different rule names")
	}
}

func TestGenerateTimestampFromAlertState(t *testing.T) {
	alert := sampleAlert()
	got := Generate(alert, analyze.Indicators{}, model.CategoryNone)
	if !strings.Contains(got.Content, `generated = "2024-03-05T12:30:00Z"`) {
		t.Errorf("generated timestamp should come from updated_date, content:\n%s", got.Content)
	}

	alert.UpdatedDate = time.Time{}
	got = Generate(alert, analyze.Indicators{}, model.CategoryNone)
	if !strings.Contains(got.Content, `generated = "2024-03-01T10:00:00Z"`) {
		t.Errorf("generated timestamp should fall back to published_date, content:\n%s", got.Content)
	}
}

func TestGenerateTags(t *testing.T) {
	tests := []struct {
		name     string
		severity model.Severity
		category model.AttackCategory
		want     []string
	}{
		{"critical with category", model.SeverityCritical, model.CategoryRCE, []string{"high_priority", "critical", "rce"}},
		{"high no category", model.SeverityHigh, model.CategoryNone, []string{"high_priority", "high"}},
		{"medium with category", model.SeverityMedium, model.CategoryXSS, []string{"medium", "xss"}},
		{"low no category", model.SeverityLow, model.CategoryNone, []string{"low"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := sampleAlert()
			alert.Severity = tt.severity
			got := Generate(alert, analyze.Indicators{}, tt.category)
			if len(got.Tags) != len(tt.want) {
				t.Fatalf("Tags = %v, want %v", got.Tags, tt.want)
			}
			for i := range tt.want {
				if got.Tags[i] != tt.want[i] {
					t.Errorf("Tags[%d] = %q, want %q", i, got.Tags[i], tt.want[i])
				}
			}
		})
	}
}

func TestGenerateIndicatorGroups(t *testing.T) {
	alert := sampleAlert()
	ind := analyze.Indicators{
		Hashes:  []string{"d41d8cd98f00b204e9800998ecf8427e", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		IPs:     []string{"192.168.1.50"},
		Domains: []string{"c2.badguys.net"},
	}

	got := Generate(alert, ind, model.CategorySQLInjection)

	for _, want := range []string{
		`$hash0 = "d41d8cd98f00b204e9800998ecf8427e"`,
		`$hash1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"`,
		`$ip0 = "192.168.1.50"`,
		`$domain0 = "c2.badguys.net"`,
		`$sig0 = "UNION SELECT" nocase`,
		"any of ($hash*) or any of ($ip*) or any of ($domain*) or any of ($sig*)",
	} {
		if !strings.Contains(got.Content, want) {
			t.Errorf("content missing %q:\n%s", want, got.Content)
		}
	}
}

func TestGenerateFallbackCondition(t *testing.T) {
	alert := sampleAlert()
	got := Generate(alert, analyze.Indicators{}, model.CategoryNone)

	if !strings.Contains(got.Content, `$ext = "CVE-2024-12345" nocase`) {
		t.Errorf("expected external id fallback string, content:\n%s", got.Content)
	}
	if !strings.Contains(got.Content, "condition:\n        $ext\n}") {
		t.Errorf("expected bare $ext condition, content:\n%s", got.Content)
	}
}

func TestGenerateMetaEscaping(t *testing.T) {
	alert := sampleAlert()
	alert.Description = "line one\nwith \"quotes\" and back\\slash"
	got := Generate(alert, analyze.Indicators{}, model.CategoryNone)

	if !strings.Contains(got.Content, `description = "line one with 'quotes' and back/slash"`) {
		t.Errorf("description not sanitized, content:\n%s", got.Content)
	}
}
