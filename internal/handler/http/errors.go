package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/pkg/response"
)

// errorResponder writes failures as the standard envelope. Causes are only
// echoed outside production.
type errorResponder struct {
	log         zerolog.Logger
	exposeCause bool
}

func (e errorResponder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := response.Failure(w, err, e.exposeCause)

	if _, ok := errors.As(err); !ok {
		e.log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Internal server error")
		return
	}
	if status >= http.StatusInternalServerError {
		e.log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
	}
}
