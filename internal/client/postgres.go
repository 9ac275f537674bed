package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresClient wraps the pgxpool.Pool and a database/sql view of it.
type PostgresClient struct {
	Pool *pgxpool.Pool
	db   *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client.
func NewPostgresClient(ctx context.Context, connectionString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresClient{Pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// DB returns a *sql.DB whose connections are borrowed from the pool.
func (c *PostgresClient) DB() *sql.DB {
	return c.db
}

// Close closes the database connection pool.
func (c *PostgresClient) Close() {
	_ = c.db.Close()
	c.Pool.Close()
}
