// Command seed fills the database with fixtures and demo content.
package main

import (
	"flag"
	"log"
	"os"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	comments := flag.Int("comments", 3, "Comments per post")
	shouldClean := flag.Bool("clean", false, "Delete existing blog data before seeding")
	fast := flag.Bool("fast", false, "Hash the demo password at minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	maxDays := flag.Int("max-days", 90, "Spread publication dates over this many days")
	fixtures := flag.String("fixtures", "", "YAML fixtures file (defaults to the bundled one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, %d comments per post, clean=%v\n", *numUsers, *numPosts, *comments, *shouldClean)

	opts := seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		ShouldClean:     *shouldClean,
		SkipBcrypt:      *fast,
		DryRun:          *dryRun,
		MaxDays:         *maxDays,
	}
	if *fixtures != "" {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			log.Fatalf("Failed to read fixtures: %v", err)
		}
		opts.Fixtures = data
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.NewSeeder(db, opts).Run()
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d posts, %d comments.", summary.Users, summary.Posts, summary.Comments)
	log.Printf("📧 All generated users have the password: %s", seed.DefaultPassword)
}
