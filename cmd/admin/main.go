// Package main provides staff management utilities for Blogicum.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  admin promote <username>   - Grant staff access")
		fmt.Println("  admin demote <username>    - Revoke staff access")
		fmt.Println("  admin list-staff           - List staff users")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	observability.ChangeLogEnabled.Store(false)

	moderation := service.NewModerationService(
		repository.NewCategoryRepository(db),
		repository.NewLocationRepository(db),
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		repository.NewUserRepository(db),
		service.NewImageService(cfg),
	)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: admin %s <username>\n", command)
			os.Exit(1)
		}
		setStaff(ctx, moderation, os.Args[2], command == "promote")
	case "list-staff":
		listStaff(ctx, moderation)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setStaff(ctx context.Context, moderation *service.ModerationService, username string, staff bool) {
	user, err := moderation.SetStaff(ctx, username, staff)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			fmt.Printf("User %s not found\n", username)
			os.Exit(1)
		}
		log.Fatalf("Failed to update user: %v", err)
	}

	verb := "demoted"
	if staff {
		verb = "promoted"
	}
	fmt.Printf("✅ Successfully %s %s (ID: %d)\n", verb, user.Username, user.ID)
}

func listStaff(ctx context.Context, moderation *service.ModerationService) {
	staff, err := moderation.ListStaff(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch staff: %v", err)
	}

	if len(staff) == 0 {
		fmt.Println("No staff users found")
		return
	}

	fmt.Println("\n📋 Current Staff:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range staff {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
