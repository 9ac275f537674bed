package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/internal/metrics"
	"github.com/windfall/fluentmind/internal/repository"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// RecordInput is the outcome of one completed practice flow.
type RecordInput struct {
	Transcription string
	CorrectedText *string
	Feedback      *string
	Score         *int
	AudioURL      *string
}

// SessionStats summarizes a user's practice history.
type SessionStats struct {
	TotalSessions int64      `json:"total_sessions"`
	AverageScore  int64      `json:"average_score"`
	BestScore     int64      `json:"best_score"`
	FirstSession  *time.Time `json:"first_session"`
	LastSession   *time.Time `json:"last_session"`
}

// PracticeService records practice sessions and reads them back per owner.
type PracticeService struct {
	sessions repository.PracticeSessionRepository
	log      zerolog.Logger
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(sessions repository.PracticeSessionRepository, log zerolog.Logger) *PracticeService {
	return &PracticeService{
		sessions: sessions,
		log:      log,
	}
}

// Record persists one session. A nil owner records it anonymously.
func (s *PracticeService) Record(ctx context.Context, in RecordInput, owner *repository.User) (*repository.PracticeSession, error) {
	session := &repository.PracticeSession{
		Transcription: in.Transcription,
		CorrectedText: in.CorrectedText,
		Feedback:      in.Feedback,
		Score:         in.Score,
		AudioURL:      in.AudioURL,
	}
	if owner != nil {
		id := owner.ID
		session.UserID = &id
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.Store("failed to record practice session", err)
	}
	metrics.SessionRecorded(owner == nil)

	return session, nil
}

// NewPage validates a history window. Nil arguments take the defaults.
func NewPage(limit, offset *int) (repository.Page, error) {
	page := repository.Page{Limit: DefaultHistoryLimit}
	if limit != nil {
		if *limit < 1 || *limit > MaxHistoryLimit {
			return page, errors.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxHistoryLimit))
		}
		page.Limit = *limit
	}
	if offset != nil {
		if *offset < 0 {
			return page, errors.Validation("offset must be zero or greater")
		}
		page.Offset = *offset
	}
	return page, nil
}

// History lists ownerID's sessions, newest first.
func (s *PracticeService) History(ctx context.Context, ownerID int64, page repository.Page) ([]*repository.PracticeSession, error) {
	if page.Limit < 1 || page.Limit > MaxHistoryLimit || page.Offset < 0 {
		return nil, errors.Validation("invalid page")
	}

	sessions, err := s.sessions.ListByUser(ctx, ownerID, page)
	if err != nil {
		return nil, errors.Store("failed to list practice sessions", err)
	}
	return sessions, nil
}

// Stats aggregates ownerID's sessions. With no sessions every number is zero
// and both timestamps are nil.
func (s *PracticeService) Stats(ctx context.Context, ownerID int64) (*SessionStats, error) {
	agg, err := s.sessions.AggregateByUser(ctx, ownerID)
	if err != nil {
		return nil, errors.Store("failed to aggregate practice sessions", err)
	}

	stats := &SessionStats{TotalSessions: agg.Total}
	if agg.Average.Valid {
		stats.AverageScore = int64(math.RoundToEven(agg.Average.Float64))
	}
	if agg.Best.Valid {
		stats.BestScore = agg.Best.Int64
	}
	if agg.FirstAt.Valid {
		first := agg.FirstAt.Time
		stats.FirstSession = &first
	}
	if agg.LastAt.Valid {
		last := agg.LastAt.Time
		stats.LastSession = &last
	}

	return stats, nil
}
