package controllers

import (
	"log/slog"
	"net/http"

	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/helpers"
	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/middleware"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// sessionHandler resolves the dashboard of the authenticated animator.
type sessionHandler struct {
	Logger   *slog.Logger
	Sessions domain.SessionStore
}

func (s sessionHandler) dashboard(w http.ResponseWriter, r *http.Request) (domain.DashboardService, bool) {
	animatorID, ok := middleware.AnimatorIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return s.Sessions.Get(animatorID), true
}

// fail writes an action error; data is kept in the body for partial failures.
func (s sessionHandler) fail(w http.ResponseWriter, r *http.Request, err error, data any) {
	if status, _ := helpers.StatusForError(err); status >= http.StatusInternalServerError {
		s.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method,
			"request_id", middleware.RequestIDFromContext(r.Context()), "err", err)
	}
	helpers.WriteActionError(w, err, data)
}
