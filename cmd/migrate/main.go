// Command migrate runs schema operations for the blog database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|auto|status|down <version>|fixtures [file.yml]>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0))); cmd {
	case "up":
		m, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		n, err := m.Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Printf("%d sql migrations applied", n)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s sql=%t auto=%t applied=%d pending=%d",
			status.Mode, status.Env, status.SQL, status.Auto,
			len(status.Applied), len(status.Pending))
		for _, m := range status.Pending {
			log.Printf("pending: %s", m)
		}
	case "down":
		if flag.NArg() < 2 {
			return usage()
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		m, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		if err := m.Down(ctx, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
	case "fixtures":
		data := seed.DefaultFixtures()
		if flag.NArg() >= 2 {
			if data, err = os.ReadFile(flag.Arg(1)); err != nil {
				return fmt.Errorf("read fixtures: %w", err)
			}
		}
		res, err := seed.LoadFixtures(db, data)
		if err != nil {
			return err
		}
		log.Printf("fixtures loaded: %d categories, %d locations", len(res.Categories), len(res.Locations))
	default:
		return usage()
	}

	return nil
}
