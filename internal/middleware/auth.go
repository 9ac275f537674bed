package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/repository"
	"github.com/windfall/fluentmind/pkg/response"
)

type contextKey string

const userKey contextKey = "user"

// IdentityResolver maps an Authorization header to a stored user.
type IdentityResolver interface {
	ResolveRequired(ctx context.Context, header string) (*repository.User, error)
	ResolveOptional(ctx context.Context, header string) (*repository.User, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func RequireUser(resolver IdentityResolver, log zerolog.Logger, exposeCause bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.ResolveRequired(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				status := response.Failure(w, err, exposeCause)
				logFailure(log, r, status, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns ctx carrying user.
func WithUser(ctx context.Context, user *repository.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the resolved user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *repository.User {
	if user, ok := ctx.Value(userKey).(*repository.User); ok {
		return user
	}
	return nil
}

func logFailure(log zerolog.Logger, r *http.Request, status int, err error) {
	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request rejected")
}
