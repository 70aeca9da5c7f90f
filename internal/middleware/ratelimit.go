package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"blogicum/internal/cache"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Throttle caps how often one client may hit a named action, e.g. login
// attempts or password reset mails.
type Throttle struct {
	Name   string
	Limit  int
	Window time.Duration
	// FailClosed rejects requests with 503 while Redis is unreachable.
	// Otherwise they pass through unthrottled.
	FailClosed bool
}

var errNoRedis = errors.New("rate limit store unavailable")

// ThrottlingEnabled reports whether rate limits apply. They are off in
// local, test and stress environments.
func ThrottlingEnabled() bool {
	env := os.Getenv("APP_ENV")
	if env == "" && cfg != nil {
		env = cfg.Env
	}
	switch env {
	case "", "test", "development", "stress":
		return false
	}
	return true
}

// Hit counts one request by client against t. It returns whether the
// request is within the limit and, when it is not, how long until the
// window resets.
func (t Throttle) Hit(ctx context.Context, rdb *redis.Client, client string) (bool, time.Duration, error) {
	if !ThrottlingEnabled() {
		return true, 0, nil
	}
	if rdb == nil {
		return false, 0, errNoRedis
	}

	key := cache.RateLimitKey(t.Name, client)
	hits, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if hits == 1 {
		if err := rdb.Expire(ctx, key, t.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if hits <= int64(t.Limit) {
		return true, 0, nil
	}

	wait, err := rdb.TTL(ctx, key).Result()
	if err != nil || wait <= 0 {
		wait = t.Window
	}
	return false, wait, nil
}

// clientID identifies the caller: the signed-in user, else the remote IP.
func clientID(c *fiber.Ctx) string {
	if p := CurrentPrincipal(c); p.IsAuthenticated() {
		return "user:" + strconv.FormatUint(uint64(p.User.ID), 10)
	}
	return "ip:" + c.IP()
}

// Throttled enforces t in front of a handler. Exceeding the limit answers
// 429 with a Retry-After header.
func Throttled(rdb *redis.Client, t Throttle) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		ok, wait, err := t.Hit(ctx, rdb, clientID(c))
		if err != nil {
			if !t.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(ctx, "throttle store unavailable",
				slog.String("throttle", t.Name),
				slog.String("error", err.Error()),
			)
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable.")
		}
		if !ok {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(wait.Round(time.Second).Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests. Please try again later.")
		}
		return c.Next()
	}
}
