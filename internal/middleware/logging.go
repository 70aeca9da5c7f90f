package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"blogicum/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the application's structured logger. Records logged with a
// request context carry the request, user and trace ids.
var Logger *slog.Logger

type logKey int

const (
	requestIDKey logKey = iota
	usernameKey
	traceIDKey
)

// requestAttrs decorates records with the per-request values that
// RequestContext placed on the context.
type requestAttrs struct {
	slog.Handler
}

func (h requestAttrs) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		r.AddAttrs(slog.String("request_id", v))
	}
	if v, ok := ctx.Value(usernameKey).(string); ok && v != "" {
		r.AddAttrs(slog.String("username", v))
	}
	if v, ok := ctx.Value(traceIDKey).(string); ok && v != "" {
		r.AddAttrs(slog.String("trace_id", v))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestAttrs{h.Handler.WithAttrs(attrs)}
}

func (h requestAttrs) WithGroup(name string) slog.Handler {
	return requestAttrs{h.Handler.WithGroup(name)}
}

func newLogger(env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch env {
	case "production", "prod":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(requestAttrs{h})
}

func init() {
	Logger = newLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	observability.SetLogger(Logger)
}

// ContextMiddleware copies the request id, the signed-in username and the
// trace id from fiber locals onto the user context, so loggers deep in the
// service layer can attach them. It must run after Session.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, requestIDKey, rid)
			ctx = observability.WithCorrelationID(ctx, rid)
		}
		if p := CurrentPrincipal(c); p.IsAuthenticated() {
			ctx = context.WithValue(ctx, usernameKey, p.User.Username)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, traceIDKey, tid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger writes one access log line per request. Server errors
// log at error level and client errors at warn; paths matched by quiet
// (static files, probes) are not logged unless they fail.
func StructuredLogger(quiet func(path string) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil && status < fiber.StatusInternalServerError {
			status = fiber.StatusInternalServerError
		}
		path := c.Path()
		if status < fiber.StatusBadRequest && (strings.HasPrefix(path, "/health") || (quiet != nil && quiet(path))) {
			return err
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if p := CurrentPrincipal(c); p.IsAuthenticated() && p.User.IsStaff {
			attrs = append(attrs, slog.Bool("staff", true))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		ctx := c.UserContext()
		switch {
		case status >= fiber.StatusInternalServerError:
			Logger.ErrorContext(ctx, "request failed", attrs...)
		case status >= fiber.StatusBadRequest:
			Logger.WarnContext(ctx, "request rejected", attrs...)
		default:
			Logger.InfoContext(ctx, "request", attrs...)
		}
		return err
	}
}
