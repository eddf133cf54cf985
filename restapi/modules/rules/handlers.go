// Package rules implements the REST API handlers for detection rule
// queries, partial updates, and guarded deletion.
package rules

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/model"
)

const defaultLimit = 50

// GetRules handles GET /api/v1/rules with optional tag filter and pagination
func GetRules(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLimit)
		if limit < 1 || limit > 500 {
			limit = defaultLimit
		}
		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		binds := map[string]interface{}{"limit": limit, "offset": offset}
		filter := ""
		if tag := c.Query("tag"); tag != "" {
			filter += " FILTER @tag IN r.tags"
			binds["tag"] = tag
		}
		// Severity filters through the owning alert, not the tag list.
		if sev := c.Query("severity"); sev != "" && sev != "all" {
			parsed, ok := model.ParseSeverity(sev)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": "invalid severity: " + sev,
				})
			}
			filter += ` LET owner = DOCUMENT(CONCAT('alerts/', r.alert_key))
				FILTER owner != null AND owner.severity == @severity`
			binds["severity"] = string(parsed)
		}

		query := `FOR r IN rules` + filter + `
			SORT r.generated_at DESC
			LIMIT @offset, @limit
			RETURN r`

		cursor, err := db.Database.Query(context.Background(), query, &arangodb.QueryOptions{BindVars: binds})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to query rules: " + err.Error(),
			})
		}
		defer cursor.Close()

		list := []model.DetectionRule{}
		for cursor.HasMore() {
			var r model.DetectionRule
			if _, err = cursor.ReadDocument(context.Background(), &r); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			list = append(list, r)
		}

		return c.JSON(fiber.Map{"success": true, "data": list, "count": len(list)})
	}
}

// GetRule handles GET /api/v1/rules/:key
func GetRule(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		var rule model.DetectionRule
		_, err := db.Collections["rules"].ReadDocument(context.Background(), key, &rule)
		if err != nil {
			return ruleReadError(c, key, err)
		}
		rule.Key = key

		return c.JSON(fiber.Map{"success": true, "data": rule})
	}
}

// ruleReadError maps a failed rule read to 404 only when the store says the
// document is missing; anything else is a server error.
func ruleReadError(c *fiber.Ctx, key string, err error) error {
	if database.IsNotFoundErr(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Rule not found: " + key,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Failed to read rule: " + err.Error(),
	})
}

// PutRule handles PUT /api/v1/rules/:key. Partial update: only the fields
// present in the body are written, everything else is preserved. An analyst
// edit usually sets locked alongside content so the automated regeneration
// cannot clobber the edit.
func PutRule(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		var req model.RuleUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body: " + err.Error(),
			})
		}
		if req.Content == nil && req.Locked == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Nothing to update: provide content and/or locked",
			})
		}

		var rule model.DetectionRule
		_, err := db.Collections["rules"].ReadDocument(context.Background(), key, &rule)
		if err != nil {
			return ruleReadError(c, key, err)
		}

		patch := map[string]interface{}{}
		if req.Content != nil {
			patch["content"] = *req.Content
		}
		if req.Locked != nil {
			patch["locked"] = *req.Locked
		}

		query := `UPDATE @key WITH @patch IN rules RETURN NEW`
		cursor, err := db.Database.Query(context.Background(), query, &arangodb.QueryOptions{
			BindVars: map[string]interface{}{"key": key, "patch": patch},
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update rule: " + err.Error(),
			})
		}
		defer cursor.Close()

		var updated model.DetectionRule
		for cursor.HasMore() {
			if _, err = cursor.ReadDocument(context.Background(), &updated); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
		}

		return c.JSON(fiber.Map{"success": true, "data": updated})
	}
}

// DeleteRule handles DELETE /api/v1/rules/:key. A locked rule refuses
// deletion with 403; it must be unlocked first.
func DeleteRule(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		var rule model.DetectionRule
		_, err := db.Collections["rules"].ReadDocument(context.Background(), key, &rule)
		if err != nil {
			return ruleReadError(c, key, err)
		}

		if rule.Locked {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Rule is locked; unlock it before deleting",
			})
		}

		_, err = db.Collections["rules"].DeleteDocument(context.Background(), key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to delete rule: " + err.Error(),
			})
		}

		return c.JSON(fiber.Map{"success": true, "message": "Rule deleted: " + key})
	}
}
