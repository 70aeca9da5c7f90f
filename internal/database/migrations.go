package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"time"

	"blogicum/internal/middleware"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration is one versioned pair of SQL scripts.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// schemaMigration is a row of the applied-migrations ledger.
type schemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

var upScript = regexp.MustCompile(`^(\d{6})_([a-z0-9_]+)\.up\.sql$`)

// LoadMigrations reads NNNNNN_name.up.sql files and their .down.sql twins
// from the migrations directory of fsys.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		m := upScript.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		if version == 0 {
			return nil, fmt.Errorf("migration %s: version must be positive", e.Name())
		}
		up, err := fs.ReadFile(fsys, "migrations/"+e.Name())
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(fsys, "migrations/"+m[1]+"_"+m[2]+".down.sql")
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: m[2], Up: string(up), Down: string(down)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %06d", out[i].Version)
		}
	}
	return out, nil
}

var bundled = sync.OnceValues(func() ([]Migration, error) {
	return LoadMigrations(embeddedMigrations)
})

// Migrator applies and reverts SQL migrations, keeping a ledger in
// schema_migrations.
type Migrator struct {
	db  *gorm.DB
	set []Migration
}

// NewMigrator returns a Migrator over the migrations compiled into the
// binary.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	set, err := bundled()
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, set: set}, nil
}

// NewMigratorFS is NewMigrator with migrations read from fsys.
func NewMigratorFS(db *gorm.DB, fsys fs.FS) (*Migrator, error) {
	set, err := LoadMigrations(fsys)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, set: set}, nil
}

// Migrations lists the known migrations in version order.
func (m *Migrator) Migrations() []Migration {
	return m.set
}

// Find returns the migration with version, if known.
func (m *Migrator) Find(version int) (Migration, bool) {
	for _, mg := range m.set {
		if mg.Version == version {
			return mg, true
		}
	}
	return Migration{}, false
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Applied returns the versions recorded in the ledger, ascending. A
// database without a ledger has applied nothing.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&schemaMigration{}) {
		return nil, nil
	}
	var versions []int
	if err := db.Model(&schemaMigration{}).Order("version").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

// Pending returns the migrations not yet applied. It fails when the ledger
// names versions this binary does not know, which means the database was
// migrated by a newer or diverged build.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkLedger(applied, m.set); err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mg := range m.set {
		if !slices.Contains(applied, mg.Version) {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

func checkLedger(applied []int, known []Migration) error {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(known, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("schema_migrations lists versions this build does not know: %v", unknown)
	}
	return nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return 0, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for _, mg := range pending {
		middleware.Logger.Info("applying migration", slog.String("migration", mg.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mg.Up).Error; err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: mg.Version, Name: mg.Name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("migration %s: %w", mg, err)
		}
	}
	return len(pending), nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mg, ok := m.Find(version)
	if !ok {
		return fmt.Errorf("unknown migration %06d", version)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s is not applied", mg)
	}

	middleware.Logger.Info("reverting migration", slog.String("migration", mg.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mg.Down).Error; err != nil {
			return fmt.Errorf("migration %s: %w", mg, err)
		}
		return tx.Delete(&schemaMigration{}, version).Error
	})
}
