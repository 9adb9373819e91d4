package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"scribe/internal/middleware"
	"scribe/internal/models"
	"scribe/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	csrfField      = "_csrf"
	csrfContextKey = "csrf"

	msgPostNotFound = "Post not found!"
)

// formValues echoes submitted fields back into a re-rendered form.
type formValues struct {
	Username string
	Email    string
	Title    string
	Content  string
}

// pageData is the binding passed to every page template.
type pageData struct {
	Title       string
	CurrentUser string
	Flashes     []middleware.Flash
	CSRF        string
	Form        formValues
	Errors      validation.Errors

	Feed     *models.FeedPage
	Post     *models.AuthoredPost
	IsAuthor bool
	User     *models.User
	Next     string
	Token    string
	Action   string
	Legend   string
}

// render fills the per-request fields of data and executes the named page.
func (s *Server) render(c *fiber.Ctx, status int, name string, data pageData) error {
	data.CurrentUser = middleware.UserID(c)
	data.Flashes = middleware.PopFlashes(c)
	if token, ok := c.Locals(csrfContextKey).(string); ok {
		data.CSRF = token
	}
	if data.Errors == nil {
		data.Errors = validation.Errors{}
	}
	c.Status(status)
	return c.Render(name, data)
}

// redirectWithFlash queues a message and redirects.
func redirectWithFlash(c *fiber.Ctx, location, category, message string) error {
	middleware.SetFlash(c, category, message)
	return c.Redirect(location)
}

// failPage logs err and sends the user home with a message derived from it.
// Internal errors never leak their cause.
func failPage(c *fiber.Ctx, err error, fallback string) error {
	msg := fallback
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		msg = appErr.Message
	} else {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return redirectWithFlash(c, "/", middleware.FlashDanger, msg)
}

// respondError writes err as a JSON error body with its mapped status.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "api request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		return models.RespondWithError(c, status, models.NewInternalError(err))
	}
	return models.RespondWithError(c, status, err)
}

// safeNext accepts only local paths as a post-login redirect target.
// Browsers read a backslash as a slash, so "/\host" is treated like "//host".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	if strings.ContainsFunc(next, func(r rune) bool { return r == '\\' || unicode.IsControl(r) }) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}

// isMachinePath reports whether path belongs to a non-form surface.
func isMachinePath(path string) bool {
	for _, prefix := range []string{"/api", "/ws", "/health", "/metrics"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
