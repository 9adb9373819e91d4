package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"scribe/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// Cookie and locals keys shared with the handlers.
const (
	SessionCookie = "session"
	LocalUserID   = "userID"
	LocalClaims   = "sessionClaims"
)

// SessionConfig wires token verification and logout revocation into CurrentUser.
type SessionConfig struct {
	Tokens  *auth.TokenManager
	Revoker auth.Revoker
	Secure  bool
}

// CurrentUser resolves the session cookie to a user id. Requests without a
// valid session continue anonymously; a stale cookie is cleared.
func CurrentUser(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Next()
		}

		claims, err := cfg.Tokens.ParseSession(token)
		if err != nil {
			ClearSessionCookie(c)
			return c.Next()
		}

		if cfg.Revoker != nil {
			revoked, err := cfg.Revoker.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				Logger.WarnContext(c.UserContext(), "session revocation check failed (allowing session)",
					slog.String("error", err.Error()))
			} else if revoked {
				ClearSessionCookie(c)
				return c.Next()
			}
		}

		c.Locals(LocalUserID, claims.UserID())
		c.Locals(LocalClaims, claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID()))
		return c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, preserving
// the requested URL in the "next" query parameter.
func LoginRequired(c *fiber.Ctx) error {
	if UserID(c) != "" {
		return c.Next()
	}
	SetFlash(c, FlashInfo, "Please log in to access this page.")
	return c.Redirect("/login?next=" + url.QueryEscape(c.OriginalURL()))
}

// UserID returns the authenticated user id or "".
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalUserID).(string)
	return uid
}

// SessionClaims returns the verified session claims, if any.
func SessionClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalClaims).(*auth.Claims)
	return claims
}

// SetSessionCookie stores a session token. A zero expires makes it a browser-session cookie.
func SetSessionCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	cookie := &fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
	} else {
		cookie.SessionOnly = true
	}
	c.Cookie(cookie)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Expires:  time.Unix(0, 0),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
