package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// UserRepository defines data access for users.
type UserRepository interface {
	// GetByUID returns ErrNotFound when no user carries uid.
	GetByUID(ctx context.Context, uid string) (*User, error)
	// Create inserts user and fills in ID and CreatedAt. It returns
	// ErrAlreadyExists if another row already holds user.UID, and
	// ErrEmailTaken if another uid already holds user.Email.
	Create(ctx context.Context, user *User) error
}

// PracticeSessionRepository defines data access for practice sessions.
type PracticeSessionRepository interface {
	Create(ctx context.Context, session *PracticeSession) error
	ListByUser(ctx context.Context, userID int64, page Page) ([]*PracticeSession, error)
	AggregateByUser(ctx context.Context, userID int64) (*SessionAggregate, error)
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// SessionAggregate is the raw result of the per-user aggregate query.
// Nullable columns stay nullable here; callers decide the defaults.
type SessionAggregate struct {
	Total   int64
	Average sql.NullFloat64
	Best    sql.NullInt64
	FirstAt sql.NullTime
	LastAt  sql.NullTime
}

// Store bundles the repositories over one database handle.
type Store struct {
	Users    UserRepository
	Sessions PracticeSessionRepository

	db     *sqlx.DB
	driver string
}

// Driver returns the database driver name backing the store.
func (s *Store) Driver() string {
	return s.driver
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Common repository errors
var (
	ErrNotFound      = &RepositoryError{Code: "NOT_FOUND", Message: "entity not found"}
	ErrAlreadyExists = &RepositoryError{Code: "ALREADY_EXISTS", Message: "entity already exists"}
	ErrEmailTaken    = &RepositoryError{Code: "EMAIL_TAKEN", Message: "email belongs to another user"}
)

// RepositoryError represents a repository error.
type RepositoryError struct {
	Code    string
	Message string
}

func (e *RepositoryError) Error() string {
	return e.Code + ": " + e.Message
}
