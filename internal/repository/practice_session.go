package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PracticeSession is one recorded utterance plus the feedback generated for it.
type PracticeSession struct {
	ID            int64     `db:"id" json:"id"`
	UserID        *int64    `db:"user_id" json:"user_id"`
	Transcription string    `db:"transcription" json:"transcription"`
	CorrectedText *string   `db:"corrected_text" json:"corrected_text"`
	Feedback      *string   `db:"feedback" json:"feedback"`
	Score         *int      `db:"score" json:"score"`
	AudioURL      *string   `db:"audio_url" json:"audio_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PostgresPracticeSessionRepository implements PracticeSessionRepository with PostgreSQL.
type PostgresPracticeSessionRepository struct {
	db *sqlx.DB
}

// NewPostgresPracticeSessionRepository creates a new PostgresPracticeSessionRepository.
func NewPostgresPracticeSessionRepository(db *sqlx.DB) *PostgresPracticeSessionRepository {
	return &PostgresPracticeSessionRepository{db: db}
}

func (r *PostgresPracticeSessionRepository) Create(ctx context.Context, session *PracticeSession) error {
	query := `
		INSERT INTO practice_sessions (
			user_id, transcription, corrected_text, feedback, score, audio_url
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		session.UserID,
		session.Transcription,
		session.CorrectedText,
		session.Feedback,
		session.Score,
		session.AudioURL,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create practice session: %w", err)
	}

	return nil
}

func (r *PostgresPracticeSessionRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]*PracticeSession, error) {
	query := `
		SELECT id, user_id, transcription, corrected_text, feedback, score, audio_url, created_at
		FROM practice_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3
	`

	sessions := make([]*PracticeSession, 0)
	if err := r.db.SelectContext(ctx, &sessions, query, userID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list practice sessions: %w", err)
	}

	return sessions, nil
}

func (r *PostgresPracticeSessionRepository) AggregateByUser(ctx context.Context, userID int64) (*SessionAggregate, error) {
	query := `
		SELECT COUNT(id), AVG(score)::float8, MAX(score), MIN(created_at), MAX(created_at)
		FROM practice_sessions
		WHERE user_id = $1
	`

	var agg SessionAggregate
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&agg.Total,
		&agg.Average,
		&agg.Best,
		&agg.FirstAt,
		&agg.LastAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate practice sessions: %w", err)
	}

	return &agg, nil
}
