// Package dashboard implements the resolvers for dashboard metrics.
package dashboard

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/threatrelay/advisory-backend/database"
)

// ResolveOverview fetches the high-level dashboard metrics
func ResolveOverview(db database.DBConnection) (interface{}, error) {
	ctx := context.Background()

	query := `RETURN {
		total_alerts: LENGTH(alerts),
		unprocessed_alerts: LENGTH(FOR a IN alerts FILTER a.processed == false RETURN 1),
		total_rules: LENGTH(rules),
		total_techniques: LENGTH(techniques),
		total_sources: LENGTH(sources)
	}`

	cursor, err := db.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var overview map[string]interface{}
	for cursor.HasMore() {
		if _, err = cursor.ReadDocument(ctx, &overview); err != nil {
			return nil, err
		}
	}
	return overview, nil
}

// ResolveSeverityDistribution fetches the current breakdown of alerts
func ResolveSeverityDistribution(db database.DBConnection) (interface{}, error) {
	ctx := context.Background()

	query := `RETURN MERGE(
		{ critical: 0, high: 0, medium: 0, low: 0, info: 0 },
		MERGE(
			FOR a IN alerts
				COLLECT sev = a.severity WITH COUNT INTO n
				RETURN { [sev]: n }
		)
	)`

	cursor, err := db.Database.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var dist map[string]interface{}
	for cursor.HasMore() {
		if _, err = cursor.ReadDocument(ctx, &dist); err != nil {
			return nil, err
		}
	}
	return dist, nil
}

// ResolveTopTechniques returns the techniques with the most mapped alerts
func ResolveTopTechniques(db database.DBConnection, limit int) (interface{}, error) {
	ctx := context.Background()

	query := `
		FOR e IN alert2technique
			LET t = DOCUMENT(e._to)
			FILTER t != null
			COLLECT tid = t.technique_id, name = t.name, tactic = t.tactic
				AGGREGATE alerts = COUNT(e), conf = AVG(e.confidence)
			SORT alerts DESC
			LIMIT @limit
			RETURN {
				technique_id: tid,
				name: name,
				tactic: tactic,
				alert_count: alerts,
				avg_confidence: conf
			}`

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"limit": limit},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	rows := []map[string]interface{}{}
	for cursor.HasMore() {
		var row map[string]interface{}
		if _, err = cursor.ReadDocument(ctx, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ResolveAlertTrend returns daily severity counts over the trailing window
func ResolveAlertTrend(db database.DBConnection, days int) ([]map[string]interface{}, error) {
	ctx := context.Background()
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := `
		FOR a IN alerts
			FILTER a.published_date >= @since
			COLLECT date = LEFT(a.published_date, 10), sev = a.severity WITH COUNT INTO n
			SORT date
			RETURN { date: date, severity: sev, count: n }`

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"since": since.Format(time.RFC3339)},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	type bucket struct {
		Date     string `json:"date"`
		Severity string `json:"severity"`
		Count    int    `json:"count"`
	}

	// Pivot the per-severity rows into one row per day.
	byDate := map[string]map[string]interface{}{}
	var order []string
	for cursor.HasMore() {
		var b bucket
		if _, err = cursor.ReadDocument(ctx, &b); err != nil {
			return nil, err
		}
		row, ok := byDate[b.Date]
		if !ok {
			row = map[string]interface{}{
				"date": b.Date, "critical": 0, "high": 0, "medium": 0, "low": 0, "info": 0,
			}
			byDate[b.Date] = row
			order = append(order, b.Date)
		}
		row[b.Severity] = b.Count
	}

	trend := make([]map[string]interface{}, 0, len(order))
	for _, date := range order {
		trend = append(trend, byDate[date])
	}
	return trend, nil
}
