package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

// User represents a locally provisioned identity.
type User struct {
	ID        int64     `db:"id" json:"id"`
	UID       string    `db:"uid" json:"uid"`
	Email     *string   `db:"email" json:"email"`
	Name      *string   `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PostgresUserRepository implements UserRepository with PostgreSQL.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (uid, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		user.UID,
		user.Email,
		user.Name,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err, "users_uid_key"):
			return ErrAlreadyExists
		case isUniqueViolation(err, "users_email_key"):
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByUID retrieves a user by external subject identifier.
func (r *PostgresUserRepository) GetByUID(ctx context.Context, uid string) (*User, error) {
	query := `
		SELECT id, uid, email, name, created_at
		FROM users
		WHERE uid = $1
	`

	var user User
	if err := r.db.GetContext(ctx, &user, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by uid: %w", err)
	}

	return &user, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
