// Package ingest persists alert candidates into the canonical store. All
// writes for one source batch go through a single AQL UPSERT query so a
// batch lands atomically: either every candidate is stored or none is.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"go.uber.org/zap"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/fetch"
	"github.com/threatrelay/advisory-backend/model"
)

// Coordinator fetches from each active source and upserts the results
type Coordinator struct {
	db      database.DBConnection
	fetcher fetch.Fetcher
	logger  *zap.SugaredLogger
}

func NewCoordinator(db database.DBConnection, fetcher fetch.Fetcher, logger *zap.SugaredLogger) *Coordinator {
	return &Coordinator{db: db, fetcher: fetcher, logger: logger}
}

// batchUpsertQuery stores one candidate batch. Conflict resolution is on
// the (source_key, external_id) natural key: new advisories are inserted
// unprocessed, known ones get their mutable fields overwritten and their
// processed flag reset so downstream artifacts are regenerated.
const batchUpsertQuery = `
	FOR c IN @candidates
		UPSERT { source_key: @sourceKey, external_id: c.external_id }
		INSERT {
			source_key: @sourceKey,
			external_id: c.external_id,
			title: c.title,
			description: c.description,
			severity: c.severity,
			published_date: c.published_date,
			updated_date: c.updated_date,
			url: c.url,
			raw_data: c.raw_data,
			processed: false,
			objtype: "Alert",
			created_at: @now
		}
		UPDATE {
			title: c.title,
			description: c.description,
			severity: c.severity,
			updated_date: c.updated_date,
			url: c.url,
			raw_data: c.raw_data,
			processed: false
		}
		IN alerts
		COLLECT WITH COUNT INTO n
		RETURN n`

// SyncAll runs one fetch-and-store pass over every active source. A source
// failure is recorded and the loop moves on; one broken feed must never
// starve the others. Inactive sources are skipped outright.
func (c *Coordinator) SyncAll(ctx context.Context) ([]model.SourceSyncResult, error) {
	sources, err := c.listActiveSources(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.SourceSyncResult, 0, len(sources))
	for _, source := range sources {
		res := c.syncSource(ctx, source)
		results = append(results, res)
	}
	return results, nil
}

func (c *Coordinator) syncSource(ctx context.Context, source model.Source) model.SourceSyncResult {
	res := model.SourceSyncResult{Source: source.Name}

	candidates, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		c.logger.Errorf("sync %s: fetch failed: %v", source.Name, err)
		res.Status = "error"
		res.Error = err.Error()
		c.appendLog(ctx, source.Name, model.LogStatusError, 0, err.Error())
		return res
	}

	stored, err := c.StoreBatch(ctx, source.Key, candidates)
	if err != nil {
		c.logger.Errorf("sync %s: store failed: %v", source.Name, err)
		res.Status = "error"
		res.Error = err.Error()
		c.appendLog(ctx, source.Name, model.LogStatusError, 0, err.Error())
		return res
	}

	if err = c.touchSource(ctx, source.Key); err != nil {
		c.logger.Warnf("sync %s: last_checked update failed: %v", source.Name, err)
	}

	c.logger.Infof("sync %s: %d alerts upserted", source.Name, stored)
	res.Status = "success"
	res.Alerts = stored
	c.appendLog(ctx, source.Name, model.LogStatusSuccess, stored, "")
	return res
}

// StoreBatch upserts a candidate batch for the named source in one query.
// Returns the number of candidates written. An empty batch is a no-op.
func (c *Coordinator) StoreBatch(ctx context.Context, sourceKey string, candidates []model.AlertCandidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	cursor, err := c.db.Database.Query(ctx, batchUpsertQuery, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"candidates": candidates,
			"sourceKey":  sourceKey,
			"now":        time.Now().UTC(),
		},
	})
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

// IngestCandidate stores one externally supplied candidate (the event
// intake path) against a source resolved by name.
func (c *Coordinator) IngestCandidate(ctx context.Context, sourceName string, candidate model.AlertCandidate) error {
	sourceKey, err := database.FindSourceByName(ctx, c.db.Database, sourceName)
	if err != nil {
		return err
	}
	if sourceKey == "" {
		return fmt.Errorf("unknown source %q", sourceName)
	}
	_, err = c.StoreBatch(ctx, sourceKey, []model.AlertCandidate{candidate})
	return err
}

func (c *Coordinator) listActiveSources(ctx context.Context) ([]model.Source, error) {
	query := `FOR s IN sources FILTER s.active == true SORT s.name RETURN s`
	cursor, err := c.db.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var sources []model.Source
	for cursor.HasMore() {
		var s model.Source
		_, err = cursor.ReadDocument(ctx, &s)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

func (c *Coordinator) touchSource(ctx context.Context, sourceKey string) error {
	query := `UPDATE @key WITH { last_checked: @now } IN sources`
	cursor, err := c.db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"key": sourceKey,
			"now": time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	defer cursor.Close()
	return nil
}

func (c *Coordinator) appendLog(ctx context.Context, sourceName string, status model.LogStatus, found int, errMsg string) {
	entry := model.ProcessingLog{
		SourceName:   sourceName,
		Status:       status,
		AlertsFound:  found,
		ErrorMessage: errMsg,
		Timestamp:    time.Now().UTC(),
		ObjType:      "ProcessingLog",
	}
	_, err := c.db.Collections["processing_logs"].CreateDocument(ctx, entry)
	if err != nil {
		c.logger.Warnf("processing log append failed for %s: %v", sourceName, err)
	}
}
