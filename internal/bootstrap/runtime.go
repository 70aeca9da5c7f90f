// Package bootstrap wires the process-level runtime: database, Redis and
// the optional development staff account.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// LoadFixtures loads the bundled categories and locations.
	LoadFixtures bool
}

// InitRuntime connects to DB and Redis and optionally loads fixtures.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("continuing without redis", slog.String("error", err.Error()))
	}

	if err := EnsureDevRootStaff(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development staff user: %w", err)
	}

	if opts.LoadFixtures {
		if _, err := seed.LoadFixtures(db, seed.DefaultFixtures()); err != nil {
			return nil, nil, fmt.Errorf("failed to load fixtures: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevRootStaff creates or promotes the configured staff account in
// development when DEV_BOOTSTRAP_ROOT is set. Other environments are left alone.
func EnsureDevRootStaff(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "admin@blogicum.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("LOWER(username) = ?", strings.ToLower(username)).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				IsStaff:  true,
				IsActive: true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"is_staff": true, "is_active": true}
			if cfg.DevRootForceCredentials {
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(updates).Error
		}
	}); err != nil {
		return err
	}

	middleware.Logger.Info("development staff user ensured", slog.String("username", username))
	return nil
}
