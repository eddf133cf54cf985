package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/arangodb/go-driver/v2/arangodb"
	"go.uber.org/zap"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/model"
)

type stubCursor struct {
	arangodb.Cursor
	more bool
}

func (c *stubCursor) HasMore() bool { return c.more }
func (c *stubCursor) Close() error  { return nil }

// stubDatabase records every AQL statement and answers the locked-rule
// lookup with a hit.
type stubDatabase struct {
	arangodb.Database
	queries []string
}

func (d *stubDatabase) Query(_ context.Context, query string, _ *arangodb.QueryOptions) (arangodb.Cursor, error) {
	d.queries = append(d.queries, query)
	return &stubCursor{more: strings.Contains(query, "ru.locked == true")}, nil
}

// A locked rule must survive regeneration untouched: no rule replacement,
// no mapping rewrite, but the alert still gets its processed flag.
func TestProcessAlertSkipsLockedRule(t *testing.T) {
	db := &stubDatabase{}
	r := NewRunner(database.DBConnection{Database: db}, nil, NewLock(), zap.NewNop().Sugar())

	res := r.processAlert(context.Background(), model.Alert{
		Key:   "42",
		Title: "Remote code execution in widget server",
	})

	if res.Status != "skipped_locked" {
		t.Fatalf("status = %q, want skipped_locked", res.Status)
	}
	if res.Error != "" {
		t.Errorf("unexpected error: %s", res.Error)
	}
	if res.RuleName != "" {
		t.Errorf("rule name %q set on a skipped alert", res.RuleName)
	}

	var marked bool
	for _, q := range db.queries {
		if strings.Contains(q, "REMOVE") {
			t.Errorf("skipped alert still touched the store: %s", q)
		}
		if strings.Contains(q, "processed: true") {
			marked = true
		}
	}
	if !marked {
		t.Error("skipped alert was not marked processed")
	}
}
