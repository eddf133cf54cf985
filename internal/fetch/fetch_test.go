package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/threatrelay/advisory-backend/model"
)

func apiPayload(id string, score float64, vector string) string {
	metric := ""
	if score > 0 || vector != "" {
		metric = fmt.Sprintf(`"cvssMetricV31": [{"cvssData": {"baseScore": %g, "vectorString": %q}}],`, score, vector)
	}
	return fmt.Sprintf(`{
		"vulnerabilities": [{
			"cve": {
				"id": %q,
				"published": "2024-03-01T10:00:00.000",
				"lastModified": "2024-03-02T08:30:00.000",
				"descriptions": [{"lang": "en", "value": "An issue was discovered."}],
				"metrics": {%s "cvssMetricV40": []},
				"references": [{"url": "https://example.com/%s"}]
			}
		}]
	}`, id, metric, id)
}

func TestAPIFetcherSeverityBands(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Severity
	}{
		{9.5, model.SeverityCritical},
		{7.2, model.SeverityHigh},
		{4.5, model.SeverityMedium},
		{2.0, model.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, apiPayload("CVE-2024-0001", tt.score, ""))
			}))
			defer srv.Close()

			got, err := NewAPIFetcher(srv.Client()).Fetch(context.Background(), model.Source{
				Name: "test", Endpoint: srv.URL, FetchMechanism: model.FetchMechanismAPI,
			})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d candidates, want 1", len(got))
			}
			if got[0].Severity != tt.want {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.want)
			}
		})
	}
}

func TestAPIFetcherNoScoreIsInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, apiPayload("CVE-2024-0002", 0, ""))
	}))
	defer srv.Close()

	got, err := NewAPIFetcher(srv.Client()).Fetch(context.Background(), model.Source{
		Name: "test", Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got[0].Severity != model.SeverityInfo {
		t.Errorf("severity = %s, want info", got[0].Severity)
	}
}

func TestAPIFetcherVectorFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, apiPayload("CVE-2024-0003", 0, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"))
	}))
	defer srv.Close()

	got, err := NewAPIFetcher(srv.Client()).Fetch(context.Background(), model.Source{
		Name: "test", Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got[0].Severity != model.SeverityCritical {
		t.Errorf("severity = %s, want critical from vector", got[0].Severity)
	}
}

func TestAPIFetcherWindowAndFields(t *testing.T) {
	var gotStart, gotEnd string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("pubStartDate")
		gotEnd = r.URL.Query().Get("pubEndDate")
		fmt.Fprint(w, apiPayload("CVE-2024-0004", 8.0, ""))
	}))
	defer srv.Close()

	f := NewAPIFetcher(srv.Client())
	f.now = func() time.Time { return time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC) }

	got, err := f.Fetch(context.Background(), model.Source{Name: "test", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotStart != "2024-03-01T00:00:00.000" {
		t.Errorf("pubStartDate = %q", gotStart)
	}
	if gotEnd != "2024-03-08T00:00:00.000" {
		t.Errorf("pubEndDate = %q", gotEnd)
	}

	c := got[0]
	if c.ExternalID != "CVE-2024-0004" || c.Title != "CVE-2024-0004" {
		t.Errorf("identity = %s/%s", c.ExternalID, c.Title)
	}
	if c.Description != "An issue was discovered." {
		t.Errorf("description = %q", c.Description)
	}
	if c.URL != "https://example.com/CVE-2024-0004" {
		t.Errorf("url = %q", c.URL)
	}
	if !c.PublishedDate.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("published = %v", c.PublishedDate)
	}
	if !c.UpdatedDate.Equal(time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("updated = %v", c.UpdatedDate)
	}
}

func TestAPIFetcherBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewAPIFetcher(srv.Client()).Fetch(context.Background(), model.Source{
		Name: "test", Endpoint: srv.URL,
	})
	if err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

const rssBody = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Advisories</title>
    <item>
      <title>Critical flaw in router firmware</title>
      <link>https://feeds.example.com/a1</link>
      <description>Unauthenticated remote access.</description>
      <pubDate>Mon, 04 Mar 2024 09:00:00 +0000</pubDate>
      <guid>advisory-a1</guid>
    </item>
    <item>
      <title>High severity bug in mail server</title>
      <link>https://feeds.example.com/a2</link>
      <description>Privilege escalation possible.</description>
      <pubDate>Tue, 05 Mar 2024 09:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Low impact information disclosure</title>
      <description>Minor leak.</description>
    </item>
    <item>
      <title>Patch roundup for March</title>
      <link>https://feeds.example.com/a4</link>
      <description>Assorted fixes.</description>
    </item>
  </channel>
</rss>`

func TestRSSFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	got, err := NewRSSFetcher(srv.Client()).Fetch(context.Background(), model.Source{
		Name: "feed", Endpoint: srv.URL, FetchMechanism: model.FetchMechanismRSS,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d candidates, want 4", len(got))
	}

	// Severity heuristics in order: critical marker, high marker, low
	// marker, default medium.
	wantSev := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityLow,
		model.SeverityMedium,
	}
	for i, want := range wantSev {
		if got[i].Severity != want {
			t.Errorf("item %d severity = %s, want %s", i, got[i].Severity, want)
		}
	}

	// External id fallback: guid, then link, then generated.
	if got[0].ExternalID != "advisory-a1" {
		t.Errorf("item 0 external id = %q, want guid", got[0].ExternalID)
	}
	if got[1].ExternalID != "https://feeds.example.com/a2" {
		t.Errorf("item 1 external id = %q, want link", got[1].ExternalID)
	}
	if got[2].ExternalID == "" {
		t.Error("item 2 external id should never be empty")
	}

	if !got[0].PublishedDate.Equal(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("item 0 published = %v", got[0].PublishedDate)
	}
}

// The critical band is keyed on "critical" and "0-day" only; other
// spellings fall through to the default.
func TestRSSSeverityKeywords(t *testing.T) {
	tests := []struct {
		title string
		want  model.Severity
	}{
		{"Critical flaw in parser", model.SeverityCritical},
		{"0-day exploited in the wild", model.SeverityCritical},
		{"Zero-day exploited in the wild", model.SeverityMedium},
		{"High impact update", model.SeverityHigh},
		{"Low risk note", model.SeverityLow},
		{"Routine advisory", model.SeverityMedium},
	}
	for _, tt := range tests {
		if got := rssSeverity(rssItem{Title: tt.title}); got != tt.want {
			t.Errorf("rssSeverity(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestDispatcherUnknownMechanism(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Fetch(context.Background(), model.Source{Name: "x", FetchMechanism: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unsupported mechanism")
	}
}

func TestScrapeFetcherEmpty(t *testing.T) {
	got, err := NewScrapeFetcher(nil).Fetch(context.Background(), model.Source{Name: "s"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}
