package service

import (
	"context"
	"time"

	"scribe/internal/auth"
	"scribe/internal/models"
)

// Session is a signed login token and the cookie lifetime that carries it.
// A zero Expires means a browser-session cookie.
type Session struct {
	Token   string
	Expires time.Time
	Claims  *auth.Claims
}

// SessionService issues and ends login sessions.
type SessionService struct {
	tokens      *auth.TokenManager
	revoker     auth.Revoker
	sessionTTL  time.Duration
	rememberTTL time.Duration
}

// NewSessionService builds a SessionService. revoker may be nil.
func NewSessionService(tokens *auth.TokenManager, revoker auth.Revoker, sessionTTL, rememberTTL time.Duration) *SessionService {
	return &SessionService{
		tokens:      tokens,
		revoker:     revoker,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
	}
}

// Start issues a session for userID. remember makes the cookie persistent
// for the remember lifetime.
func (s *SessionService) Start(userID string, remember bool) (*Session, error) {
	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
	}
	token, claims, err := s.tokens.IssueSession(userID, ttl)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	session := &Session{Token: token, Claims: claims}
	if remember {
		session.Expires = claims.ExpiresAt.Time
	}
	return session, nil
}

// End revokes the session token until it would have expired.
func (s *SessionService) End(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
