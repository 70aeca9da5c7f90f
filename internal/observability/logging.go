// Package observability holds the blog's logging, metrics and tracing
// plumbing shared by repositories and services.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// SetLogger makes l the logger behind L. Nil is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// L returns the current logger.
func L() *slog.Logger {
	return logger.Load()
}

type correlationKey struct{}

// WithCorrelationID tags ctx with the id of the request that caused the work.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// ExtractCorrelationID returns the id set by WithCorrelationID, or "".
func ExtractCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ChangeLogEnabled turns the per-row change log on or off. Command line
// tools that print their own report switch it off.
var ChangeLogEnabled atomic.Bool

func init() {
	ChangeLogEnabled.Store(true)
}

// ChangeLog records writes to one table, one line per changed row.
type ChangeLog struct {
	table string
}

// NewChangeLog returns the change log of table.
func NewChangeLog(table string) *ChangeLog {
	return &ChangeLog{table: table}
}

func (l *ChangeLog) write(ctx context.Context, level slog.Level, msg, op string, id uint, attrs []slog.Attr) {
	if !ChangeLogEnabled.Load() {
		return
	}
	base := []slog.Attr{
		slog.String("table", l.table),
		slog.String("op", op),
	}
	if id != 0 {
		base = append(base, slog.Uint64("id", uint64(id)))
	}
	if cid := ExtractCorrelationID(ctx); cid != "" {
		base = append(base, slog.String("correlation_id", cid))
	}
	L().LogAttrs(ctx, level, msg, append(base, attrs...)...)
}

// Created records a new row.
func (l *ChangeLog) Created(ctx context.Context, id uint, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, "row created", "create", id, attrs)
}

// Updated records a changed row.
func (l *ChangeLog) Updated(ctx context.Context, id uint, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, "row updated", "update", id, attrs)
}

// Deleted records a removed row.
func (l *ChangeLog) Deleted(ctx context.Context, id uint, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, "row deleted", "delete", id, attrs)
}

// Failed records a write that the database refused.
func (l *ChangeLog) Failed(ctx context.Context, op string, err error) {
	l.write(ctx, slog.LevelError, "write failed", op, 0, []slog.Attr{slog.String("error", err.Error())})
}
