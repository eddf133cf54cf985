// Package dashboard defines the GraphQL types for the application dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// DashboardOverviewType represents the high-level metrics for the top cards
var DashboardOverviewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DashboardOverview",
	Fields: graphql.Fields{
		"total_alerts":       &graphql.Field{Type: graphql.Int},
		"unprocessed_alerts": &graphql.Field{Type: graphql.Int},
		"total_rules":        &graphql.Field{Type: graphql.Int},
		"total_techniques":   &graphql.Field{Type: graphql.Int},
		"total_sources":      &graphql.Field{Type: graphql.Int},
	},
})

// SeverityDistributionType represents the data for the pie/bar charts
var SeverityDistributionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SeverityDistribution",
	Fields: graphql.Fields{
		"critical": &graphql.Field{Type: graphql.Int},
		"high":     &graphql.Field{Type: graphql.Int},
		"medium":   &graphql.Field{Type: graphql.Int},
		"low":      &graphql.Field{Type: graphql.Int},
		"info":     &graphql.Field{Type: graphql.Int},
	},
})

// TopTechniqueType represents rows for the "Top Techniques" table
var TopTechniqueType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TopTechnique",
	Fields: graphql.Fields{
		"technique_id":   &graphql.Field{Type: graphql.String},
		"name":           &graphql.Field{Type: graphql.String},
		"tactic":         &graphql.Field{Type: graphql.String},
		"alert_count":    &graphql.Field{Type: graphql.Int},
		"avg_confidence": &graphql.Field{Type: graphql.Float},
	},
})

// AlertTrendType represents the daily count of ingested alerts
var AlertTrendType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AlertTrend",
	Fields: graphql.Fields{
		"date":     &graphql.Field{Type: graphql.String},
		"critical": &graphql.Field{Type: graphql.Int},
		"high":     &graphql.Field{Type: graphql.Int},
		"medium":   &graphql.Field{Type: graphql.Int},
		"low":      &graphql.Field{Type: graphql.Int},
		"info":     &graphql.Field{Type: graphql.Int},
	},
})
