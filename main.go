// Package main is the entry point for the advisory-backend service.
package main

import (
	"context"
	"log"
	"os"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/internal/api"
	"github.com/threatrelay/advisory-backend/internal/config"
	"github.com/threatrelay/advisory-backend/internal/fetch"
	"github.com/threatrelay/advisory-backend/internal/ingest"
	"github.com/threatrelay/advisory-backend/internal/jobs"
	"github.com/threatrelay/advisory-backend/internal/kafka"
)

func main() {
	// Initialize database connection
	db := database.InitializeDatabase()

	logger := database.InitLogger().Sugar()
	ctx := context.Background()

	// Apply the source catalog seeds
	seeds, err := config.LoadSeeds(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load source seeds: %v", err)
	}
	if err := config.SeedSources(ctx, db, seeds); err != nil {
		log.Fatalf("Failed to seed sources: %v", err)
	}

	// Wire the ingestion pipeline and job runner
	coordinator := ingest.NewCoordinator(db, fetch.NewDispatcher(), logger)
	lock := jobs.NewLock()
	runner := jobs.NewRunner(db, coordinator, lock, logger)

	// Optional Kafka intake for pushed advisories
	if os.Getenv("KAFKA_BROKERS") != "" {
		if err := kafka.RunEventProcessor(ctx, coordinator); err != nil {
			log.Printf("Kafka event processor unavailable: %v", err)
		}
	}

	app := api.NewFiberApp(db, runner, lock)

	// Get port from environment or default to 3000
	port := os.Getenv("MS_PORT")
	if port == "" {
		port = "3000"
	}

	// Start server
	log.Printf("Starting server on port %s", port)
	log.Printf("GraphQL endpoint available at /api/v1/graphql")
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
