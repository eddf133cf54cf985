// Package techniques implements the REST API handlers for the technique
// catalog and the alert-to-technique mapping list.
package techniques

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/model"
)

// GetTechniques handles GET /api/v1/techniques
func GetTechniques(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := `FOR t IN techniques SORT t.technique_id RETURN t`
		cursor, err := db.Database.Query(context.Background(), query, nil)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query techniques: " + err.Error(),
			})
		}
		defer cursor.Close()

		list := []model.TechniqueRef{}
		for cursor.HasMore() {
			var t model.TechniqueRef
			if _, err = cursor.ReadDocument(context.Background(), &t); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			list = append(list, t)
		}

		return c.JSON(fiber.Map{"success": true, "data": list, "count": len(list)})
	}
}

// GetMappings handles GET /api/v1/mappings: the joined alert/technique rows
// with confidence scores, optionally filtered to one alert.
func GetMappings(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		binds := map[string]interface{}{}
		filter := ""
		if alertKey := c.Query("alert"); alertKey != "" {
			filter += " FILTER e._from == CONCAT('alerts/', @alertKey)"
			binds["alertKey"] = alertKey
		}
		joinFilter := ""
		if sev := c.Query("severity"); sev != "" && sev != "all" {
			parsed, ok := model.ParseSeverity(sev)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": "invalid severity: " + sev,
				})
			}
			joinFilter = " FILTER a.severity == @severity"
			binds["severity"] = string(parsed)
		}

		query := `FOR e IN alert2technique` + filter + `
			LET a = DOCUMENT(e._from)
			LET t = DOCUMENT(e._to)
			FILTER a != null AND t != null` + joinFilter + `
			SORT a._key, t.technique_id
			RETURN {
				alert_key: a._key,
				alert_title: a.title,
				alert_severity: a.severity,
				technique_id: t.technique_id,
				technique_name: t.name,
				tactic: t.tactic,
				confidence: e.confidence
			}`

		var opts *arangodb.QueryOptions
		if len(binds) > 0 {
			opts = &arangodb.QueryOptions{BindVars: binds}
		}
		cursor, err := db.Database.Query(context.Background(), query, opts)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query mappings: " + err.Error(),
			})
		}
		defer cursor.Close()

		list := []model.MappingView{}
		for cursor.HasMore() {
			var v model.MappingView
			if _, err = cursor.ReadDocument(context.Background(), &v); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			list = append(list, v)
		}

		return c.JSON(fiber.Map{"success": true, "data": list, "count": len(list)})
	}
}
