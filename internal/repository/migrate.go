package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/windfall/fluentmind/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator returns a migrate instance over the embedded migrations for
// driver (config.DriverPostgres or config.DriverSQLite). It owns its own
// connection; callers must Close it.
func NewMigrator(driver, dsn string) (*migrate.Migrate, error) {
	var (
		sqlDriver string
		dir       string
	)
	switch driver {
	case config.DriverPostgres:
		sqlDriver, dir = "pgx", "migrations/postgres"
	case config.DriverSQLite:
		sqlDriver, dir = "sqlite", "migrations/sqlite"
	default:
		return nil, fmt.Errorf("unsupported migration driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s for migrations: %w", driver, err)
	}

	var dbDriver database.Driver
	if driver == config.DriverPostgres {
		dbDriver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	} else {
		dbDriver, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s migration driver: %w", driver, err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = dbDriver.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		_ = src.Close()
		_ = dbDriver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return m, nil
}

// Migrate applies every pending up migration.
func Migrate(driver, dsn string) error {
	m, err := NewMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
