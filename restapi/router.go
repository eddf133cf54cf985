// Package restapi wires the REST and GraphQL routes onto the Fiber app.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/jobs"
	"github.com/threatrelay/advisory-backend/restapi/modules/alerts"
	"github.com/threatrelay/advisory-backend/restapi/modules/jobsapi"
	"github.com/threatrelay/advisory-backend/restapi/modules/rules"
	"github.com/threatrelay/advisory-backend/restapi/modules/techniques"
)

// SetupRoutes registers all REST API routes and the GraphQL endpoint
func SetupRoutes(app *fiber.App, db database.DBConnection, runner *jobs.Runner, lock *jobs.Lock, schema graphql.Schema) {
	api := app.Group("/api/v1")

	// Alert queries and single-alert reprocessing
	api.Get("/alerts", alerts.GetAlerts(db))
	api.Get("/alerts/:key", alerts.GetAlert(db))
	api.Post("/alerts/:key/reprocess", alerts.PostReprocessAlert(runner))

	// Detection rule queries and analyst edits
	api.Get("/rules", rules.GetRules(db))
	api.Get("/rules/:key", rules.GetRule(db))
	api.Put("/rules/:key", rules.PutRule(db))
	api.Delete("/rules/:key", rules.DeleteRule(db))

	// Technique catalog and mappings
	api.Get("/techniques", techniques.GetTechniques(db))
	api.Get("/mappings", techniques.GetMappings(db))

	// Maintenance job triggers
	api.Post("/sync", jobsapi.PostSync(runner))
	api.Post("/deduplicate", jobsapi.PostDeduplicate(runner))
	api.Post("/reprocess", jobsapi.PostReprocess(runner))

	// Operational state
	api.Get("/jobs/status", jobsapi.GetJobStatus(lock))
	api.Get("/sources", jobsapi.GetSources(db))
	api.Get("/logs", jobsapi.GetLogs(db))
	api.Get("/stats", jobsapi.GetStats(db))

	// GraphQL endpoint for the dashboard
	api.Post("/graphql", GraphQLHandler(schema))
}
