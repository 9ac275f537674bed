package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/windfall/fluentmind/internal/client"
)

// NewPostgresStore builds a Store over an established Postgres pool.
func NewPostgresStore(pg *client.PostgresClient) *Store {
	return newPostgresStore(sqlx.NewDb(pg.DB(), "pgx"))
}

func newPostgresStore(db *sqlx.DB) *Store {
	return &Store{
		Users:    NewPostgresUserRepository(db),
		Sessions: NewPostgresPracticeSessionRepository(db),
		db:       db,
		driver:   "pgx",
	}
}
