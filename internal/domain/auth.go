package domain

import "time"

// TokenIssuer issues tokens (e.g. JWT) that identify an animator to the roster service.
type TokenIssuer interface {
	Issue(animatorID string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a dashboard token and returns the authenticated animator ID.
type TokenVerifier interface {
	Verify(token string) (animatorID string, err error)
}
