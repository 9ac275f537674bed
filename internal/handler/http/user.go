package http

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/internal/middleware"
	"github.com/windfall/fluentmind/internal/service"
	"github.com/windfall/fluentmind/pkg/response"
)

// UserHandler serves the caller's own profile, history and stats. Routes
// must sit behind middleware.RequireUser.
type UserHandler struct {
	errorResponder
	practice *service.PracticeService
}

// NewUserHandler creates a new User handler.
func NewUserHandler(log zerolog.Logger, practice *service.PracticeService, exposeCause bool) *UserHandler {
	return &UserHandler{
		errorResponder: errorResponder{log: log, exposeCause: exposeCause},
		practice:       practice,
	}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.handleError(w, r, errors.Unauthenticated("missing authorization header"))
		return
	}

	response.JSON(w, http.StatusOK, user)
}

// Sessions handles GET /api/v1/users/me/sessions?limit=&offset=
func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.handleError(w, r, errors.Unauthenticated("missing authorization header"))
		return
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	page, err := service.NewPage(limit, offset)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	sessions, err := h.practice.History(r.Context(), user.ID, page)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, sessions, &response.Meta{
		Limit:  page.Limit,
		Offset: page.Offset,
		Count:  len(sessions),
	})
}

// Stats handles GET /api/v1/users/me/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.handleError(w, r, errors.Unauthenticated("missing authorization header"))
		return
	}

	stats, err := h.practice.Stats(r.Context(), user.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, stats)
}

func intQuery(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.Validation(name + " must be an integer")
	}
	return &v, nil
}
