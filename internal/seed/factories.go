// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"blogicum/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "blogicum-demo-password"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the Seeder and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	now   func() time.Time
	// synthetic ID counter when running in DryRun mode
	nextID uint
	// cached hash so bcrypt runs once per factory
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed picks a time based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		now:    func() time.Time { return time.Now().UTC() },
		nextID: 1000,
	}
}

func (f *Factory) password() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		// MinCost keeps the hash valid for login while staying fast.
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.passwordHash = string(hash)
	return f.passwordHash, nil
}

// usernameSafe lowercases s and drops anything a username cannot hold.
func usernameSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			return r
		}
		return -1
	}, strings.ToLower(s))
}

func (f *Factory) assignID(id *uint) {
	f.nextID++
	*id = f.nextID
}

// CreateUser constructs and persists an active `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.password()
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := usernameSafe(fmt.Sprintf("%s.%s%d", first, last, f.faker.Number(100, 9999)))
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: first,
		LastName:  last,
		Password:  hash,
		IsActive:  true,
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.assignID(&user.ID)
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateCategory constructs and persists a published category.
func (f *Factory) CreateCategory(overrides ...func(*models.Category)) (*models.Category, error) {
	word := strings.ToLower(f.faker.Word())
	category := &models.Category{
		Title:       strings.ToUpper(word[:1]) + word[1:],
		Description: f.faker.Sentence(8),
		Slug:        fmt.Sprintf("%s-%d", word, f.faker.Number(100, 9999)),
		IsPublished: true,
	}
	for _, override := range overrides {
		override(category)
	}
	if f.opts.DryRun {
		f.assignID(&category.ID)
		return category, nil
	}
	if err := f.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// CreateLocation constructs and persists a published location.
func (f *Factory) CreateLocation(overrides ...func(*models.Location)) (*models.Location, error) {
	location := &models.Location{Name: f.faker.City(), IsPublished: true}
	for _, override := range overrides {
		override(location)
	}
	if f.opts.DryRun {
		f.assignID(&location.ID)
		return location, nil
	}
	if err := f.db.Create(location).Error; err != nil {
		return nil, err
	}
	return location, nil
}

// BuildPost constructs a post without persisting it. Publication dates are
// spread over the last MaxDays days; about one post in ten is scheduled in
// the future and one in ten is a draft, so every visibility rule has data.
func (f *Factory) BuildPost(author *models.User, category *models.Category, location *models.Location, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	now := f.now()
	pubDate := now.Add(-time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute)

	post := &models.Post{
		Title:       strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), "."),
		Text:        f.faker.Paragraph(f.faker.Number(1, 4), f.faker.Number(2, 6), 12, "\n\n"),
		PubDate:     pubDate.Truncate(time.Minute),
		IsPublished: true,
		AuthorID:    author.ID,
		CategoryID:  category.ID,
	}
	switch f.faker.Number(1, 10) {
	case 1:
		post.PubDate = now.Add(time.Duration(f.faker.Number(1, 14*24)) * time.Hour).Truncate(time.Minute)
	case 2:
		post.IsPublished = false
	}
	if location != nil {
		post.LocationID = &location.ID
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists one post.
func (f *Factory) CreatePost(author *models.User, category *models.Category, location *models.Location, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, category, location, overrides...)
	if f.opts.DryRun {
		f.assignID(&post.ID)
		return post, nil
	}
	if err := f.db.Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.assignID(&p.ID)
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.Omit(clause.Associations).CreateInBatches(posts, batch).Error
}

// CreateComment constructs and persists a comment by author on post, dated
// after the post's publication.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	created := post.PubDate
	if now := f.now(); created.Before(now) {
		span := int(now.Sub(created) / time.Minute)
		created = created.Add(time.Duration(f.faker.Number(0, span)) * time.Minute)
	}
	comment := &models.Comment{
		Text:      f.faker.Sentence(f.faker.Number(4, 16)),
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: created,
	}

	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.assignID(&comment.ID)
		return comment, nil
	}
	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}
