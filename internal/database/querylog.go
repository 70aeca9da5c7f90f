package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger sends gorm's log output to slog. At the default Warn level
// only failed and slow statements are logged; a missing row is not a
// failure.
type queryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func newQueryLogger(l *slog.Logger, slow time.Duration) *queryLogger {
	return &queryLogger{log: l, level: logger.Warn, slow: slow}
}

func (q *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *q
	c.level = level
	return &c
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= logger.Info {
		q.log.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= logger.Warn {
		q.log.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= logger.Error {
		q.log.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && took > q.slow

	var level slog.Level
	switch {
	case failed && q.level >= logger.Error:
		level = slog.LevelError
	case slow && q.level >= logger.Warn:
		level = slog.LevelWarn
	case q.level >= logger.Info:
		level = slog.LevelDebug
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("took", took),
	}
	if failed {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.log.LogAttrs(ctx, level, "sql", attrs...)
}
