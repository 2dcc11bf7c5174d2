package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/helpers"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

type contextKey string

const animatorIDKey contextKey = "animatorID"

// SetAnimatorID returns a context with the animator ID set. Used by auth middleware.
func SetAnimatorID(ctx context.Context, animatorID string) context.Context {
	return context.WithValue(ctx, animatorIDKey, animatorID)
}

// AnimatorIDFromContext returns the authenticated animator ID from the context, if present.
func AnimatorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(animatorIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the animator ID in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			animatorID, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "error", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetAnimatorID(r.Context(), animatorID))
			next(w, r)
		}
	}
}
