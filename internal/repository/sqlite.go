package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite keeps timestamps as integer unix milliseconds.
func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens the SQLite database at path. The schema must already be
// migrated (see Migrate).
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return &Store{
		Users:    &SQLiteUserRepository{db: db},
		Sessions: &SQLitePracticeSessionRepository{db: db},
		db:       db,
		driver:   "sqlite",
	}, nil
}

// SQLiteUserRepository implements UserRepository with SQLite.
type SQLiteUserRepository struct {
	db *sqlx.DB
}

type sqliteUserRow struct {
	ID        int64   `db:"id"`
	UID       string  `db:"uid"`
	Email     *string `db:"email"`
	Name      *string `db:"name"`
	CreatedAt int64   `db:"created_at"`
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (uid, email, name)
		VALUES (?, ?, ?)
		ON CONFLICT (uid) DO NOTHING
		RETURNING id, created_at
	`

	var createdAt int64
	err := r.db.QueryRowxContext(ctx, query, user.UID, user.Email, user.Name).Scan(&user.ID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadyExists
		}
		// modernc reports the offending column in the message only.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)

	return nil
}

func (r *SQLiteUserRepository) GetByUID(ctx context.Context, uid string) (*User, error) {
	query := `SELECT id, uid, email, name, created_at FROM users WHERE uid = ?`

	var row sqliteUserRow
	if err := r.db.GetContext(ctx, &row, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by uid: %w", err)
	}

	return &User{
		ID:        row.ID,
		UID:       row.UID,
		Email:     row.Email,
		Name:      row.Name,
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

// SQLitePracticeSessionRepository implements PracticeSessionRepository with SQLite.
type SQLitePracticeSessionRepository struct {
	db *sqlx.DB
}

type sqliteSessionRow struct {
	ID            int64   `db:"id"`
	UserID        *int64  `db:"user_id"`
	Transcription string  `db:"transcription"`
	CorrectedText *string `db:"corrected_text"`
	Feedback      *string `db:"feedback"`
	Score         *int    `db:"score"`
	AudioURL      *string `db:"audio_url"`
	CreatedAt     int64   `db:"created_at"`
}

func (r *SQLitePracticeSessionRepository) Create(ctx context.Context, session *PracticeSession) error {
	query := `
		INSERT INTO practice_sessions (
			user_id, transcription, corrected_text, feedback, score, audio_url
		) VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, created_at
	`

	var createdAt int64
	err := r.db.QueryRowxContext(ctx, query,
		session.UserID,
		session.Transcription,
		session.CorrectedText,
		session.Feedback,
		session.Score,
		session.AudioURL,
	).Scan(&session.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to create practice session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)

	return nil
}

func (r *SQLitePracticeSessionRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]*PracticeSession, error) {
	query := `
		SELECT id, user_id, transcription, corrected_text, feedback, score, audio_url, created_at
		FROM practice_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`

	var rows []sqliteSessionRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list practice sessions: %w", err)
	}

	sessions := make([]*PracticeSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, &PracticeSession{
			ID:            row.ID,
			UserID:        row.UserID,
			Transcription: row.Transcription,
			CorrectedText: row.CorrectedText,
			Feedback:      row.Feedback,
			Score:         row.Score,
			AudioURL:      row.AudioURL,
			CreatedAt:     fromMillis(row.CreatedAt),
		})
	}

	return sessions, nil
}

func (r *SQLitePracticeSessionRepository) AggregateByUser(ctx context.Context, userID int64) (*SessionAggregate, error) {
	query := `
		SELECT COUNT(id), AVG(score), MAX(score), MIN(created_at), MAX(created_at)
		FROM practice_sessions
		WHERE user_id = ?
	`

	var (
		agg         SessionAggregate
		first, last sql.NullInt64
	)
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&agg.Total,
		&agg.Average,
		&agg.Best,
		&first,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate practice sessions: %w", err)
	}
	if first.Valid {
		agg.FirstAt = sql.NullTime{Time: fromMillis(first.Int64), Valid: true}
	}
	if last.Valid {
		agg.LastAt = sql.NullTime{Time: fromMillis(last.Int64), Valid: true}
	}

	return &agg, nil
}
