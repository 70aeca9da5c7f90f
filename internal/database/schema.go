package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a configuration.
type SchemaPlan struct {
	Mode string
	// SQL runs the versioned migrations.
	SQL bool
	// Auto runs gorm AutoMigrate over the persistent models.
	Auto bool
}

func prodLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// PlanSchema decides how the schema is managed. The SQL migrations target
// Postgres, so SQLite always uses AutoMigrate and is refused in
// production-like environments. AutoMigrate never runs in production unless
// DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE opts in.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	prod := prodLike(cfg.Env)

	if cfg.DBDriver == DriverSQLite {
		if prod {
			return SchemaPlan{}, fmt.Errorf("sqlite is not supported in %q", cfg.Env)
		}
		return SchemaPlan{Mode: mode, Auto: true}, nil
	}

	switch mode {
	case SchemaModeSQL:
		return SchemaPlan{Mode: mode, SQL: true}, nil
	case SchemaModeHybrid:
		return SchemaPlan{Mode: mode, SQL: true, Auto: !prod}, nil
	case SchemaModeAuto:
		if prod && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPlan{}, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return SchemaPlan{Mode: mode, Auto: true}, nil
	}
	return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

// ApplySchema brings the database schema up to date according to PlanSchema.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		m, err := NewMigrator(db)
		if err != nil {
			return err
		}
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			middleware.Logger.Info("sql migrations applied", slog.Int("count", n))
		}
	}
	if plan.Auto {
		middleware.Logger.Info("running automigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus reports the plan for cfg and, when SQL migrations are part
// of it, the applied and pending versions.
type SchemaStatus struct {
	SchemaPlan
	Env     string
	Applied []int
	Pending []Migration
}

// GetSchemaStatus inspects the database without changing it.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan, Env: cfg.Env}
	if !plan.SQL {
		return status, nil
	}

	m, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if status.Applied, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
