package middleware

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie carries one-shot messages across a redirect.
const FlashCookie = "flash"

const localFlashes = "flashes"

// Flash categories, matching the alert styles in the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashDanger  = "danger"
)

// Flash is a single one-shot message.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SetFlash queues a message for the next rendered page.
func SetFlash(c *fiber.Ctx, category, message string) {
	pending := append(pendingFlashes(c), Flash{Category: category, Message: message})
	c.Locals(localFlashes, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PopFlashes returns the messages queued by the previous response and by
// this request so far, and clears them.
func PopFlashes(c *fiber.Ctx) []Flash {
	var flashes []Flash
	if raw := c.Cookies(FlashCookie); raw != "" {
		if decoded, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			_ = json.Unmarshal(decoded, &flashes)
		}
	}
	flashes = append(flashes, pendingFlashes(c)...)

	c.Locals(localFlashes, []Flash(nil))
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Expires:  time.Unix(0, 0),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return flashes
}

func pendingFlashes(c *fiber.Ctx) []Flash {
	pending, _ := c.Locals(localFlashes).([]Flash)
	return pending
}
