// Package middleware provides request logging, session, and rate limiting middleware.
package middleware

import (
	"log/slog"
	"net/url"
	"strings"

	"blogicum/internal/auth"
	"blogicum/internal/config"

	"github.com/gofiber/fiber/v2"
)

// LoginURL is where unauthenticated users are sent.
const LoginURL = "/auth/login/"

const principalKey = "principal"

var cfg *config.Config

// InitMiddleware initializes session middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

func sessionCookieName() string {
	if cfg != nil && cfg.SessionCookieName != "" {
		return cfg.SessionCookieName
	}
	return "sessionid"
}

// Session resolves the session cookie into a principal stored in locals.
// Bad or revoked tokens make the request anonymous; a failing store is
// logged and also treated as anonymous.
func Session(sm *auth.SessionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := auth.Anonymous
		if token := c.Cookies(sessionCookieName()); token != "" {
			p, err := sm.Resolve(c.UserContext(), token)
			if err != nil {
				Logger.WarnContext(c.UserContext(), "session lookup failed", slog.String("error", err.Error()))
			}
			principal = p
		}
		c.Locals(principalKey, principal)
		if principal.IsAuthenticated() {
			c.Locals("userID", principal.UserID())
		}
		return c.Next()
	}
}

// CurrentPrincipal returns the principal set by Session, or Anonymous.
func CurrentPrincipal(c *fiber.Ctx) auth.Principal {
	if p, ok := c.Locals(principalKey).(auth.Principal); ok {
		return p
	}
	return auth.Anonymous
}

// SetPrincipal replaces the request principal, e.g. right after login.
func SetPrincipal(c *fiber.Ctx, p auth.Principal) {
	c.Locals(principalKey, p)
	if p.IsAuthenticated() {
		c.Locals("userID", p.UserID())
	}
}

// LoginRedirectURL builds the login URL carrying next as the return path.
func LoginRedirectURL(next string) string {
	return LoginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// RedirectToLogin sends the client to the login page with a return path.
func RedirectToLogin(c *fiber.Ctx) error {
	return c.Redirect(LoginRedirectURL(c.OriginalURL()), fiber.StatusFound)
}

// LoginRequired redirects anonymous requests to the login page.
func LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentPrincipal(c).IsAuthenticated() {
			return RedirectToLogin(c)
		}
		return c.Next()
	}
}

// StaffRequired lets staff through, redirects anonymous users to login and
// answers everyone else with 403.
func StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		if !p.IsAuthenticated() {
			return RedirectToLogin(c)
		}
		if !p.IsStaff() {
			return fiber.NewError(fiber.StatusForbidden, "staff access required")
		}
		return c.Next()
	}
}

// SafeNext returns next when it is a same-site relative path, else fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
