package seed

import (
	"fmt"
	"log"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	ShouldClean     bool
	// SkipBcrypt hashes the demo password at bcrypt.MinCost.
	SkipBcrypt bool
	DryRun     bool
	MaxDays    int
	BatchSize  int
	RandSeed   int64
	// Fixtures overrides the bundled fixtures document.
	Fixtures []byte
}

// Summary counts the rows a Run created.
type Summary struct {
	Categories int
	Locations  int
	Users      int
	Posts      int
	Comments   int
}

// Seeder fills the database with fixtures and generated content.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder over db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying factory.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// ClearAll removes every blog row, children first.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Comment{}, &models.Post{}, &models.Location{}, &models.Category{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run loads fixtures, then creates users, posts and comments.
func (s *Seeder) Run() (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", s.opts.NumUsers, s.opts.NumPosts)

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	data := s.opts.Fixtures
	if data == nil {
		data = DefaultFixtures()
	}
	var fixtures *FixtureResult
	if s.opts.DryRun {
		parsed, err := ParseFixtures(data)
		if err != nil {
			return nil, err
		}
		fixtures = &FixtureResult{}
		for _, c := range parsed.Categories {
			fixtures.Categories = append(fixtures.Categories, models.Category{Title: c.Title, Slug: c.Slug, IsPublished: published(c.IsPublished)})
		}
		for _, l := range parsed.Locations {
			fixtures.Locations = append(fixtures.Locations, models.Location{Name: l.Name, IsPublished: published(l.IsPublished)})
		}
	} else {
		var err error
		if fixtures, err = LoadFixtures(s.db, data); err != nil {
			return nil, fmt.Errorf("failed to load fixtures: %w", err)
		}
	}
	summary := &Summary{Categories: len(fixtures.Categories), Locations: len(fixtures.Locations)}
	log.Printf("✓ %d categories and %d locations available", summary.Categories, summary.Locations)
	if summary.Categories == 0 {
		return summary, fmt.Errorf("fixtures define no categories")
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return summary, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", summary.Users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.factory.faker.Number(0, len(users)-1)]
		category := &fixtures.Categories[s.factory.faker.Number(0, len(fixtures.Categories)-1)]
		var location *models.Location
		if len(fixtures.Locations) > 0 && s.factory.faker.Bool() {
			location = &fixtures.Locations[s.factory.faker.Number(0, len(fixtures.Locations)-1)]
		}
		posts = append(posts, s.factory.BuildPost(author, category, location))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return summary, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)
	log.Printf("✓ %d posts created", summary.Posts)

	for _, post := range posts {
		for j := 0; j < s.opts.CommentsPerPost; j++ {
			author := users[s.factory.faker.Number(0, len(users)-1)]
			if _, err := s.factory.CreateComment(author, post); err != nil {
				return summary, fmt.Errorf("failed to create comments: %w", err)
			}
			summary.Comments++
		}
	}
	log.Printf("✓ %d comments created", summary.Comments)

	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}
