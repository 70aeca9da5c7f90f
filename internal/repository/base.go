// Package repository implements the data access layer for the blog.
package repository

import (
	"errors"
	"strings"

	"blogicum/internal/database"
	"blogicum/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// DefaultAdminLimit caps admin listings when no limit is given.
const DefaultAdminLimit = 100

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// AdminFilter narrows the staff listings.
type AdminFilter struct {
	Query       string
	IsPublished *bool
	CategoryID  uint
	Limit       int
	Offset      int
}

func (f AdminFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultAdminLimit {
		return DefaultAdminLimit
	}
	return f.Limit
}

func (f AdminFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// containsPattern builds a case-insensitive LIKE pattern, escaping wildcards.
func containsPattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(q))) + "%"
}

// wrapLookupError converts a missing row into a NotFound AppError.
func wrapLookupError(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
