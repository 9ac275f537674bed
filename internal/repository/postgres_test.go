package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/fluentmind/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "pgx"), mock
}

func strPtr(s string) *string { return &s }

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresUserRepository(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO users \(uid, email, name\)\s+VALUES \(\$1, \$2, \$3\)\s+ON CONFLICT \(uid\) DO NOTHING\s+RETURNING id, created_at`).
		WithArgs("uid-1", "ada@example.com", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	user := &repository.User{UID: "uid-1", Email: strPtr("ada@example.com")}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, created, user.CreatedAt)
}

func TestPostgresUserRepository_Create_ConflictIsAlreadyExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresUserRepository(db)

	// ON CONFLICT DO NOTHING returns no row.
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("uid-1", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	err := repo.Create(context.Background(), &repository.User{UID: "uid-1"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestPostgresUserRepository_Create_UniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{name: "uid", constraint: "users_uid_key", want: repository.ErrAlreadyExists},
		{name: "email", constraint: "users_email_key", want: repository.ErrEmailTaken},
		{name: "other", constraint: "users_pkey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewPostgresUserRepository(db)

			mock.ExpectQuery(`INSERT INTO users`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repo.Create(context.Background(), &repository.User{UID: "uid-1", Email: strPtr("dup@example.com")})
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			assert.NotErrorIs(t, err, repository.ErrAlreadyExists)
			assert.NotErrorIs(t, err, repository.ErrEmailTaken)
			assert.ErrorContains(t, err, "failed to create user")
		})
	}
}

func TestPostgresUserRepository_GetByUID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresUserRepository(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, uid, email, name, created_at\s+FROM users\s+WHERE uid = \$1`).
		WithArgs("uid-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "email", "name", "created_at"}).
			AddRow(int64(7), "uid-1", "ada@example.com", nil, created))

	user, err := repo.GetByUID(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ada@example.com", *user.Email)
	assert.Nil(t, user.Name)
}

func TestPostgresUserRepository_GetByUID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresUserRepository(db)

	mock.ExpectQuery(`FROM users`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUID(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresUserRepository_GetByUID_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresUserRepository(db)

	mock.ExpectQuery(`FROM users`).WithArgs("uid-1").WillReturnError(errors.New("db down"))

	_, err := repo.GetByUID(context.Background(), "uid-1")
	assert.ErrorContains(t, err, "db down")
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresPracticeSessionRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresPracticeSessionRepository(db)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	score := 85

	mock.ExpectQuery(`INSERT INTO practice_sessions`).
		WithArgs(nil, "hello world", "Hello, world!", "Nice!", int64(85), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	session := &repository.PracticeSession{
		Transcription: "hello world",
		CorrectedText: strPtr("Hello, world!"),
		Feedback:      strPtr("Nice!"),
		Score:         &score,
	}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.Equal(t, int64(11), session.ID)
	assert.Equal(t, created, session.CreatedAt)
}

func TestPostgresPracticeSessionRepository_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresPracticeSessionRepository(db)
	newer := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	uid := int64(3)

	mock.ExpectQuery(`WHERE user_id = \$1\s+ORDER BY created_at DESC, id ASC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(3), int64(20), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "transcription", "corrected_text", "feedback", "score", "audio_url", "created_at"}).
			AddRow(int64(2), uid, "second", nil, nil, int64(90), nil, newer).
			AddRow(int64(1), uid, "first", "First.", "Good", int64(80), nil, older))

	sessions, err := repo.ListByUser(context.Background(), 3, repository.Page{Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "second", sessions[0].Transcription)
	assert.Equal(t, 90, *sessions[0].Score)
	assert.Nil(t, sessions[0].CorrectedText)
	assert.Equal(t, "First.", *sessions[1].CorrectedText)
}

func TestPostgresPracticeSessionRepository_ListByUser_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresPracticeSessionRepository(db)

	mock.ExpectQuery(`FROM practice_sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "transcription", "corrected_text", "feedback", "score", "audio_url", "created_at"}))

	sessions, err := repo.ListByUser(context.Background(), 3, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestPostgresPracticeSessionRepository_AggregateByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresPracticeSessionRepository(db)
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	last := first.Add(48 * time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(id\), AVG\(score\)::float8, MAX\(score\), MIN\(created_at\), MAX\(created_at\)`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "max", "min", "max"}).
			AddRow(int64(3), float64(90), int64(100), first, last))

	agg, err := repo.AggregateByUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Total)
	assert.InDelta(t, 90.0, agg.Average.Float64, 1e-9)
	assert.Equal(t, int64(100), agg.Best.Int64)
	assert.Equal(t, first, agg.FirstAt.Time)
	assert.Equal(t, last, agg.LastAt.Time)
}

func TestPostgresPracticeSessionRepository_AggregateByUser_NoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewPostgresPracticeSessionRepository(db)

	mock.ExpectQuery(`FROM practice_sessions`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "max", "min", "max"}).
			AddRow(int64(0), nil, nil, nil, nil))

	agg, err := repo.AggregateByUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, agg.Total)
	assert.False(t, agg.Average.Valid)
	assert.False(t, agg.Best.Valid)
	assert.False(t, agg.FirstAt.Valid)
	assert.False(t, agg.LastAt.Valid)
}
