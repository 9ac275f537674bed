package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/auth"
	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/internal/metrics"
	"github.com/windfall/fluentmind/internal/repository"
)

// FailureReason says why a credential could not be verified.
type FailureReason int

const (
	FailureNone FailureReason = iota
	// FailureMissing means no Authorization header was sent.
	FailureMissing
	// FailureMalformed means the header is not "Bearer <token>".
	FailureMalformed
	// FailureRejected means the verifier refused the token.
	FailureRejected
)

// Verification is the outcome of checking one Authorization header: either
// Claims is set, or Reason names the failure.
type Verification struct {
	Claims *auth.Claims
	Reason FailureReason
	Err    error
}

// OK reports whether the credential was verified.
func (v Verification) OK() bool {
	return v.Reason == FailureNone && v.Claims != nil
}

// IdentityService maps bearer credentials to stored users.
type IdentityService struct {
	verifier auth.Verifier
	users    repository.UserRepository
	log      zerolog.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(verifier auth.Verifier, users repository.UserRepository, log zerolog.Logger) *IdentityService {
	return &IdentityService{
		verifier: verifier,
		users:    users,
		log:      log,
	}
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, FailureReason) {
	if strings.TrimSpace(header) == "" {
		return "", FailureMissing
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", FailureMalformed
	}
	return parts[1], FailureNone
}

// Verify checks header without touching the store.
func (s *IdentityService) Verify(ctx context.Context, header string) Verification {
	token, reason := ParseBearer(header)
	if reason != FailureNone {
		return Verification{Reason: reason}
	}

	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return Verification{Reason: FailureRejected, Err: err}
	}
	return Verification{Claims: claims}
}

// ResolveRequired returns the user behind header, creating it on first
// sight. Missing or malformed credentials are Unauthenticated; rejected
// tokens are InvalidCredential.
func (s *IdentityService) ResolveRequired(ctx context.Context, header string) (*repository.User, error) {
	v := s.Verify(ctx, header)
	switch v.Reason {
	case FailureMissing:
		return nil, errors.Unauthenticated("missing authorization header")
	case FailureMalformed:
		return nil, errors.Unauthenticated("invalid authorization format")
	case FailureRejected:
		s.log.Debug().Err(v.Err).Msg("token rejected")
		return nil, errors.InvalidCredential("invalid or expired token", v.Err)
	}

	return s.getOrCreate(ctx, v.Claims)
}

// ResolveOptional is ResolveRequired for anonymous-capable endpoints: any
// credential failure yields (nil, nil) without store access. Store errors
// still propagate.
func (s *IdentityService) ResolveOptional(ctx context.Context, header string) (*repository.User, error) {
	v := s.Verify(ctx, header)
	if !v.OK() {
		if v.Reason == FailureRejected {
			s.log.Debug().Err(v.Err).Msg("optional credential rejected, continuing anonymously")
		}
		return nil, nil
	}

	return s.getOrCreate(ctx, v.Claims)
}

func (s *IdentityService) getOrCreate(ctx context.Context, claims *auth.Claims) (*repository.User, error) {
	user, err := s.users.GetByUID(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Store("failed to look up user", err)
	}

	user = &repository.User{
		UID:   claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}
	err = s.users.Create(ctx, user)
	if stderrors.Is(err, repository.ErrEmailTaken) {
		// A recreated provider account keeps its email under a new uid.
		// The old row owns the address, so the new one is stored without it.
		s.log.Warn().Str("uid", user.UID).Msg("email already held by another user, provisioning without it")
		user.Email = nil
		err = s.users.Create(ctx, user)
	}
	switch {
	case err == nil:
		metrics.UserProvisioned()
		s.log.Info().Int64("user_id", user.ID).Str("uid", user.UID).Msg("user provisioned")
		return user, nil
	case stderrors.Is(err, repository.ErrAlreadyExists):
		// Lost a first-sight race; the winner's row is authoritative.
		user, err = s.users.GetByUID(ctx, claims.Subject)
		if err != nil {
			return nil, errors.Store("failed to re-read user", err)
		}
		return user, nil
	default:
		return nil, errors.Store("failed to create user", err)
	}
}
