package advisories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/threatrelay/advisory-backend/model"
)

type fakeIngestor struct {
	sourceName string
	candidate  model.AlertCandidate
	calls      int
}

func (f *fakeIngestor) IngestCandidate(_ context.Context, sourceName string, candidate model.AlertCandidate) error {
	f.sourceName = sourceName
	f.candidate = candidate
	f.calls++
	return nil
}

func validEvent() AdvisoryReceivedEvent {
	return AdvisoryReceivedEvent{
		EventType:     "advisory.received",
		EventID:       "evt-1",
		EventTime:     time.Now().UTC(),
		SchemaVersion: "v1",
		SourceName:    "partner-feed",
		Advisory: model.AlertCandidate{
			ExternalID:  "CVE-2024-9999",
			Title:       "Heap overflow in parser",
			Description: "Crafted input overflows a heap buffer.",
			Severity:    model.SeverityHigh,
		},
	}
}

func TestHandleAdvisoryReceived(t *testing.T) {
	ingestor := &fakeIngestor{}
	payload, _ := json.Marshal(validEvent())

	if err := HandleAdvisoryReceived(context.Background(), payload, ingestor); err != nil {
		t.Fatalf("HandleAdvisoryReceived: %v", err)
	}
	if ingestor.calls != 1 {
		t.Fatalf("ingestor called %d times, want 1", ingestor.calls)
	}
	if ingestor.sourceName != "partner-feed" {
		t.Errorf("source = %q", ingestor.sourceName)
	}
	if ingestor.candidate.ExternalID != "CVE-2024-9999" {
		t.Errorf("external id = %q", ingestor.candidate.ExternalID)
	}
}

func TestHandleAdvisoryReceivedBadPayload(t *testing.T) {
	ingestor := &fakeIngestor{}
	if err := HandleAdvisoryReceived(context.Background(), []byte("{not json"), ingestor); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if ingestor.calls != 0 {
		t.Error("ingestor should not be called on bad payload")
	}
}

func TestHandleAdvisoryReceivedMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AdvisoryReceivedEvent)
	}{
		{"no source", func(e *AdvisoryReceivedEvent) { e.SourceName = "" }},
		{"no external id", func(e *AdvisoryReceivedEvent) { e.Advisory.ExternalID = "" }},
		{"no title", func(e *AdvisoryReceivedEvent) { e.Advisory.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(&event)
			payload, _ := json.Marshal(event)

			ingestor := &fakeIngestor{}
			if err := HandleAdvisoryReceived(context.Background(), payload, ingestor); err == nil {
				t.Fatal("expected validation error")
			}
			if ingestor.calls != 0 {
				t.Error("ingestor should not be called for invalid event")
			}
		})
	}
}

func TestHandleAdvisoryReceivedInvalidSeverityDefaultsToInfo(t *testing.T) {
	event := validEvent()
	event.Advisory.Severity = "catastrophic"
	payload, _ := json.Marshal(event)

	ingestor := &fakeIngestor{}
	if err := HandleAdvisoryReceived(context.Background(), payload, ingestor); err != nil {
		t.Fatalf("HandleAdvisoryReceived: %v", err)
	}
	if ingestor.candidate.Severity != model.SeverityInfo {
		t.Errorf("severity = %q, want info", ingestor.candidate.Severity)
	}
}
