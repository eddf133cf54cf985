// Package alerts implements the REST API handlers for alert queries and
// single-alert reprocessing.
package alerts

import (
	"context"
	"errors"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/jobs"
	"github.com/threatrelay/advisory-backend/model"
)

const defaultLimit = 50

// listParams are the shared pagination query parameters
func listParams(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultLimit)
	if limit < 1 || limit > 500 {
		limit = defaultLimit
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetAlerts handles GET /api/v1/alerts with optional severity and processed
// filters plus pagination
func GetAlerts(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset := listParams(c)
		binds := map[string]interface{}{"limit": limit, "offset": offset}

		filter := ""
		if sev := c.Query("severity"); sev != "" && sev != "all" {
			parsed, ok := model.ParseSeverity(sev)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": "invalid severity: " + sev,
				})
			}
			filter += " FILTER a.severity == @severity"
			binds["severity"] = string(parsed)
		}
		if p := c.Query("processed"); p != "" {
			filter += " FILTER a.processed == @processed"
			binds["processed"] = p == "true"
		}

		query := `FOR a IN alerts` + filter + `
			SORT a.published_date DESC
			LIMIT @offset, @limit
			RETURN a`

		cursor, err := db.Database.Query(context.Background(), query, &arangodb.QueryOptions{BindVars: binds})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query alerts: " + err.Error(),
			})
		}
		defer cursor.Close()

		alerts := []model.Alert{}
		for cursor.HasMore() {
			var a model.Alert
			if _, err = cursor.ReadDocument(context.Background(), &a); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			alerts = append(alerts, a)
		}

		return c.JSON(fiber.Map{"success": true, "data": alerts, "count": len(alerts)})
	}
}

// GetAlert handles GET /api/v1/alerts/:key
func GetAlert(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		var alert model.Alert
		_, err := db.Collections["alerts"].ReadDocument(context.Background(), key, &alert)
		if err != nil {
			if database.IsNotFoundErr(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"success": false,
					"message": "Alert not found: " + key,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to read alert: " + err.Error(),
			})
		}
		alert.Key = key

		return c.JSON(fiber.Map{"success": true, "data": alert})
	}
}

// PostReprocessAlert handles POST /api/v1/alerts/:key/reprocess. Regenerates
// the alert's rule and mappings under the job lock; a running job yields
// 409 with the job's name.
func PostReprocessAlert(runner *jobs.Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		result, err := runner.ReprocessAlert(context.Background(), key)
		if err != nil {
			var conflict *jobs.ConflictError
			if errors.As(err, &conflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"success": false,
					"message": "Job already running: " + conflict.Running,
				})
			}
			if database.IsNotFoundErr(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"success": false,
					"message": "Alert not found: " + key,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to reprocess alert: " + err.Error(),
			})
		}

		return c.JSON(fiber.Map{"success": true, "data": result})
	}
}
