package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"go.uber.org/zap"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/analyze"
	"github.com/threatrelay/advisory-backend/internal/ingest"
	"github.com/threatrelay/advisory-backend/internal/mitre"
	"github.com/threatrelay/advisory-backend/internal/rules"
	"github.com/threatrelay/advisory-backend/model"
)

// Runner executes the maintenance jobs over the store
type Runner struct {
	db          database.DBConnection
	coordinator *ingest.Coordinator
	lock        *Lock
	logger      *zap.SugaredLogger
}

func NewRunner(db database.DBConnection, coordinator *ingest.Coordinator, lock *Lock, logger *zap.SugaredLogger) *Runner {
	return &Runner{db: db, coordinator: coordinator, lock: lock, logger: logger}
}

// RunSync fetches every active source and then derives artifacts for all
// unprocessed alerts. Held under the job lock for its full duration.
func (r *Runner) RunSync(ctx context.Context) (*model.SyncJobResult, error) {
	release, err := r.lock.TryAcquire("sync")
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()

	sources, err := r.coordinator.SyncAll(ctx)
	if err != nil {
		return nil, err
	}

	processed, err := r.processUnprocessed(ctx)
	if err != nil {
		return nil, err
	}

	return &model.SyncJobResult{
		Sources:   sources,
		Processed: processed,
		StartedAt: started.UTC(),
		Duration:  time.Since(started).String(),
	}, nil
}

// RunDeduplicate removes duplicate alerts under the job lock
func (r *Runner) RunDeduplicate(ctx context.Context) (*model.DedupResult, error) {
	release, err := r.lock.TryAcquire("deduplicate")
	if err != nil {
		return nil, err
	}
	defer release()

	return r.deduplicate(ctx)
}

// RunReprocess resets every alert to unprocessed, derives artifacts from
// scratch, then runs a dedup pass. Locked rules keep their artifacts.
func (r *Runner) RunReprocess(ctx context.Context) (*model.ReprocessResult, error) {
	release, err := r.lock.TryAcquire("reprocess")
	if err != nil {
		return nil, err
	}
	defer release()

	reset, err := r.resetProcessed(ctx)
	if err != nil {
		return nil, err
	}

	processed, err := r.processUnprocessed(ctx)
	if err != nil {
		return nil, err
	}

	dedup, err := r.deduplicate(ctx)
	if err != nil {
		return nil, err
	}

	return &model.ReprocessResult{Reset: reset, Processed: processed, Dedup: *dedup}, nil
}

// ReprocessAlert re-derives artifacts for one alert regardless of its
// processed flag. Takes the job lock so it cannot race a full run.
func (r *Runner) ReprocessAlert(ctx context.Context, alertKey string) (*model.AlertProcessResult, error) {
	release, err := r.lock.TryAcquire("reprocess_alert")
	if err != nil {
		return nil, err
	}
	defer release()

	alert, err := r.readAlert(ctx, alertKey)
	if err != nil {
		return nil, err
	}

	res := r.processAlert(ctx, *alert)
	return &res, nil
}

// processUnprocessed walks every alert with processed == false. Per-alert
// failures are recorded in the result list and the walk continues.
func (r *Runner) processUnprocessed(ctx context.Context) ([]model.AlertProcessResult, error) {
	query := `FOR a IN alerts FILTER a.processed == false SORT a._key RETURN a`
	cursor, err := r.db.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var alerts []model.Alert
	for cursor.HasMore() {
		var a model.Alert
		_, err = cursor.ReadDocument(ctx, &a)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	results := make([]model.AlertProcessResult, 0, len(alerts))
	for _, alert := range alerts {
		results = append(results, r.processAlert(ctx, alert))
	}
	return results, nil
}

// processAlert derives the detection artifacts for one alert: indicators
// and category from its text, a regenerated rule, and technique mappings.
// A locked rule blocks the whole regeneration (rule and mappings both
// survive untouched) but the alert is still marked processed.
func (r *Runner) processAlert(ctx context.Context, alert model.Alert) model.AlertProcessResult {
	res := model.AlertProcessResult{AlertKey: alert.Key}

	locked, err := r.hasLockedRule(ctx, alert.Key)
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}
	if locked {
		if err = r.markProcessed(ctx, alert.Key); err != nil {
			res.Status = "error"
			res.Error = err.Error()
			return res
		}
		r.logger.Infof("alert %s: rule locked, regeneration skipped", alert.Key)
		res.Status = "skipped_locked"
		return res
	}

	text := alert.Title + " " + alert.Description
	indicators := analyze.ExtractIndicators(text)
	category := analyze.DetectCategory(text)
	artifact := rules.Generate(alert, indicators, category)

	if err = r.replaceRule(ctx, alert.Key, artifact); err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	if err = mitre.DetachAlert(ctx, r.db, alert.Key); err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}
	if err = mitre.Attach(ctx, r.db, alert.Key, mitre.Map(alert)); err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	if err = r.markProcessed(ctx, alert.Key); err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	res.Status = "processed"
	res.RuleName = artifact.Name
	return res
}

func (r *Runner) hasLockedRule(ctx context.Context, alertKey string) (bool, error) {
	query := `FOR ru IN rules FILTER ru.alert_key == @key AND ru.locked == true LIMIT 1 RETURN ru._key`
	cursor, err := r.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"key": alertKey},
	})
	if err != nil {
		return false, err
	}
	defer cursor.Close()
	return cursor.HasMore(), nil
}

// replaceRule drops the alert's previous rule documents and inserts the
// fresh artifact
func (r *Runner) replaceRule(ctx context.Context, alertKey string, artifact rules.Artifact) error {
	query := `FOR ru IN rules FILTER ru.alert_key == @key REMOVE ru IN rules`
	cursor, err := r.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"key": alertKey},
	})
	if err != nil {
		return err
	}
	cursor.Close()

	rule := model.DetectionRule{
		AlertKey:    alertKey,
		Name:        artifact.Name,
		Content:     artifact.Content,
		Description: artifact.Description,
		Tags:        artifact.Tags,
		Locked:      false,
		GeneratedAt: time.Now().UTC(),
		ObjType:     "DetectionRule",
	}
	_, err = r.db.Collections["rules"].CreateDocument(ctx, rule)
	if err != nil && database.IsUniqueConstraintErr(err) {
		// Another alert already owns this rule name. The name embeds the
		// external id so this only happens for cross-source duplicates,
		// which the dedup job is responsible for collapsing.
		return fmt.Errorf("rule name %s already taken: %w", artifact.Name, err)
	}
	return err
}

func (r *Runner) markProcessed(ctx context.Context, alertKey string) error {
	query := `UPDATE @key WITH { processed: true } IN alerts`
	cursor, err := r.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"key": alertKey},
	})
	if err != nil {
		return err
	}
	cursor.Close()
	return nil
}

func (r *Runner) resetProcessed(ctx context.Context) (int, error) {
	query := `
		FOR a IN alerts FILTER a.processed == true
			UPDATE a WITH { processed: false } IN alerts
			COLLECT WITH COUNT INTO n
			RETURN n`
	cursor, err := r.db.Database.Query(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	var count int
	for cursor.HasMore() {
		_, err = cursor.ReadDocument(ctx, &count)
		if err != nil {
			return 0, err
		}
	}
	return count, nil
}

func (r *Runner) readAlert(ctx context.Context, alertKey string) (*model.Alert, error) {
	var alert model.Alert
	_, err := r.db.Collections["alerts"].ReadDocument(ctx, alertKey, &alert)
	if err != nil {
		return nil, err
	}
	alert.Key = alertKey
	return &alert, nil
}

// dupGroup is one set of alerts sharing an external id
type dupGroup struct {
	ExternalID string      `json:"external_id"`
	Members    []dupMember `json:"members"`
}

type dupMember struct {
	Key           string    `json:"key"`
	PublishedDate time.Time `json:"published_date"`
}

// deduplicate collapses alert groups that share an external id. The
// survivor is the member with the latest published date; on a tie the
// higher document key wins. Losers are removed with their rules and
// technique mappings.
func (r *Runner) deduplicate(ctx context.Context) (*model.DedupResult, error) {
	query := `
		FOR a IN alerts
			COLLECT eid = a.external_id INTO members = { key: a._key, published_date: a.published_date }
			FILTER LENGTH(members) > 1
			RETURN { external_id: eid, members: members }`
	cursor, err := r.db.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var groups []dupGroup
	for cursor.HasMore() {
		var g dupGroup
		_, err = cursor.ReadDocument(ctx, &g)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	result := &model.DedupResult{Groups: len(groups)}
	for _, g := range groups {
		winner := pickSurvivor(g.Members)
		result.Kept = append(result.Kept, winner)

		for _, m := range g.Members {
			if m.Key == winner {
				continue
			}
			if err = r.removeAlertCascade(ctx, m.Key); err != nil {
				return nil, err
			}
			result.Removed++
		}
		r.logger.Infof("dedup %s: kept %s, removed %d", g.ExternalID, winner, len(g.Members)-1)
	}
	return result, nil
}

// pickSurvivor chooses the group member to keep: latest published date,
// ties broken by the higher key. Keys are compared by length first so
// "100" beats "99" the way a numeric comparison would.
func pickSurvivor(members []dupMember) string {
	best := members[0]
	for _, m := range members[1:] {
		if m.PublishedDate.After(best.PublishedDate) {
			best = m
			continue
		}
		if m.PublishedDate.Equal(best.PublishedDate) && keyGreater(m.Key, best.Key) {
			best = m
		}
	}
	return best.Key
}

func keyGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

// removeAlertCascade deletes an alert together with its rules and
// technique mapping edges. The store has no foreign keys, so the cascade
// is done here.
func (r *Runner) removeAlertCascade(ctx context.Context, alertKey string) error {
	queries := []string{
		`FOR ru IN rules FILTER ru.alert_key == @key REMOVE ru IN rules`,
		`FOR e IN alert2technique FILTER e._from == @from REMOVE e IN alert2technique`,
		`REMOVE @key IN alerts`,
	}
	binds := []map[string]interface{}{
		{"key": alertKey},
		{"from": "alerts/" + alertKey},
		{"key": alertKey},
	}

	for i, q := range queries {
		cursor, err := r.db.Database.Query(ctx, q, &arangodb.QueryOptions{BindVars: binds[i]})
		if err != nil {
			return err
		}
		cursor.Close()
	}
	return nil
}
