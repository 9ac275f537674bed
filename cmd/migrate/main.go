package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/windfall/fluentmind/internal/config"
	"github.com/windfall/fluentmind/internal/repository"
)

func main() {
	var (
		direction string
		steps     int
		dbURL     string
	)

	flag.StringVar(&direction, "direction", "up", "Migration direction: up, down, force, or version")
	flag.IntVar(&steps, "steps", 0, "Number of migrations to run (0 = all)")
	flag.StringVar(&dbURL, "db", "", "Database URL, postgres://... or sqlite://path (or set DATABASE_URL env var)")
	flag.Parse()

	// Get database URL from flag or environment
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("Database URL is required. Set -db flag or DATABASE_URL env var")
	}

	cfg := config.Config{DatabaseURL: dbURL}
	driver, dsn, err := cfg.DatabaseDriver()
	if err != nil {
		log.Fatalf("Invalid database URL: %v", err)
	}

	// Migrations are embedded in the binary
	m, err := repository.NewMigrator(driver, dsn)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	// Run migration based on direction
	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "force":
		// Force a specific version (useful for fixing dirty state)
		if steps == 0 {
			log.Fatal("Force requires -steps to specify version")
		}
		err = m.Force(steps)
	case "version":
	default:
		log.Fatalf("Unknown direction: %s (use up, down, force, or version)", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}

	version, dirty, verr := m.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
		fmt.Printf("[%s] No migrations applied\n", driver)
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Printf("[%s] No migrations to apply. Current version: %d\n", driver, version)
	default:
		fmt.Printf("[%s] Migration successful! Version: %d, Dirty: %v\n", driver, version, dirty)
	}
}
