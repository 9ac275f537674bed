package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/windfall/fluentmind/internal/auth"
	"github.com/windfall/fluentmind/internal/repository"
	"github.com/windfall/fluentmind/internal/service"
)

// MockVerifier is a mock implementation of auth.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByUID(ctx context.Context, uid string) (*repository.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *repository.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockTranscriber is a mock implementation of service.Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, filename string, audio []byte) (*service.Transcription, error) {
	args := m.Called(ctx, filename, audio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Transcription), args.Error(1)
}

// MockFeedbackModel is a mock implementation of service.FeedbackModel
type MockFeedbackModel struct {
	mock.Mock
}

func (m *MockFeedbackModel) CompleteJSON(ctx context.Context, systemPrompt, text string) (string, error) {
	args := m.Called(ctx, systemPrompt, text)
	return args.String(0), args.Error(1)
}

// MockArchive is a mock implementation of service.AudioArchive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, filename, contentType string, audio []byte) (string, error) {
	args := m.Called(ctx, filename, contentType, audio)
	return args.String(0), args.Error(1)
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }
