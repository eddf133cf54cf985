// Package jobsapi implements the REST API handlers that trigger the
// maintenance jobs and expose operational state.
package jobsapi

import (
	"context"
	"errors"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/jobs"
	"github.com/threatrelay/advisory-backend/model"
)

// conflictOrError renders a job failure: 409 naming the running job for a
// lock conflict, 500 otherwise.
func conflictOrError(c *fiber.Ctx, err error) error {
	var conflict *jobs.ConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Job already running: " + conflict.Running,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

// PostSync handles POST /api/v1/sync
func PostSync(runner *jobs.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := runner.RunSync(context.Background())
		if err != nil {
			return conflictOrError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": result})
	}
}

// PostDeduplicate handles POST /api/v1/deduplicate
func PostDeduplicate(runner *jobs.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := runner.RunDeduplicate(context.Background())
		if err != nil {
			return conflictOrError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": result})
	}
}

// PostReprocess handles POST /api/v1/reprocess
func PostReprocess(runner *jobs.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := runner.RunReprocess(context.Background())
		if err != nil {
			return conflictOrError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": result})
	}
}

// GetJobStatus handles GET /api/v1/jobs/status
func GetJobStatus(lock *jobs.Lock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, running := lock.Status()
		return c.JSON(fiber.Map{"success": true, "running": running, "job": name})
	}
}

// GetSources handles GET /api/v1/sources
func GetSources(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := `FOR s IN sources SORT s.name RETURN s`
		cursor, err := db.Database.Query(context.Background(), query, nil)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query sources: " + err.Error(),
			})
		}
		defer cursor.Close()

		list := []model.Source{}
		for cursor.HasMore() {
			var s model.Source
			if _, err = cursor.ReadDocument(context.Background(), &s); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			list = append(list, s)
		}

		return c.JSON(fiber.Map{"success": true, "data": list, "count": len(list)})
	}
}

// GetLogs handles GET /api/v1/logs: the most recent processing log entries
func GetLogs(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 1000 {
			limit = 100
		}

		query := `FOR l IN processing_logs SORT l.timestamp DESC LIMIT @limit RETURN l`
		cursor, err := db.Database.Query(context.Background(), query, &arangodb.QueryOptions{
			BindVars: map[string]interface{}{"limit": limit},
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query logs: " + err.Error(),
			})
		}
		defer cursor.Close()

		list := []model.ProcessingLog{}
		for cursor.HasMore() {
			var l model.ProcessingLog
			if _, err = cursor.ReadDocument(context.Background(), &l); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			list = append(list, l)
		}

		return c.JSON(fiber.Map{"success": true, "data": list, "count": len(list)})
	}
}

// GetStats handles GET /api/v1/stats: aggregate counts for the dashboard
func GetStats(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		query := `RETURN {
			total_alerts: LENGTH(alerts),
			unprocessed_alerts: LENGTH(FOR a IN alerts FILTER a.processed == false RETURN 1),
			total_rules: LENGTH(rules),
			total_techniques: LENGTH(techniques),
			total_mappings: LENGTH(alert2technique),
			by_severity: MERGE(
				FOR a IN alerts
					COLLECT sev = a.severity WITH COUNT INTO n
					RETURN { [sev]: n }
			)
		}`

		cursor, err := db.Database.Query(ctx, query, nil)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query stats: " + err.Error(),
			})
		}
		defer cursor.Close()

		var stats model.StatsResponse
		for cursor.HasMore() {
			if _, err = cursor.ReadDocument(ctx, &stats); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
		}

		return c.JSON(fiber.Map{"success": true, "data": stats})
	}
}
