package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"blogicum/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/blog.yml
var defaultFixtures []byte

// CategoryFixture is one category entry of a fixtures file.
type CategoryFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	IsPublished *bool  `yaml:"is_published"`
}

// LocationFixture is one location entry of a fixtures file.
type LocationFixture struct {
	Name        string `yaml:"name"`
	IsPublished *bool  `yaml:"is_published"`
}

// Fixtures is the YAML document loaded by LoadFixtures.
type Fixtures struct {
	Categories []CategoryFixture `yaml:"categories"`
	Locations  []LocationFixture `yaml:"locations"`
}

// FixtureResult reports what LoadFixtures touched.
type FixtureResult struct {
	Categories []models.Category
	Locations  []models.Location
}

// DefaultFixtures returns the bundled fixtures document.
func DefaultFixtures() []byte {
	return defaultFixtures
}

// ParseFixtures decodes and checks a fixtures document. Unknown keys are
// rejected so typos do not silently drop rows.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	seen := make(map[string]bool, len(f.Categories))
	for i, c := range f.Categories {
		if strings.TrimSpace(c.Slug) == "" || strings.TrimSpace(c.Title) == "" {
			return nil, fmt.Errorf("category #%d: title and slug are required", i+1)
		}
		if seen[c.Slug] {
			return nil, fmt.Errorf("category #%d: duplicate slug %q", i+1, c.Slug)
		}
		seen[c.Slug] = true
	}
	for i, l := range f.Locations {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("location #%d: name is required", i+1)
		}
	}
	return &f, nil
}

func published(v *bool) bool {
	return v == nil || *v
}

// LoadFixtures upserts categories by slug and locations by name. Running
// it twice leaves the same rows behind.
func LoadFixtures(db *gorm.DB, data []byte) (*FixtureResult, error) {
	f, err := ParseFixtures(data)
	if err != nil {
		return nil, err
	}

	res := &FixtureResult{}
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, item := range f.Categories {
			category := models.Category{
				Title:       item.Title,
				Slug:        item.Slug,
				Description: item.Description,
				IsPublished: published(item.IsPublished),
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "description", "is_published"}),
			}).Create(&category).Error; err != nil {
				return fmt.Errorf("category %s: %w", item.Slug, err)
			}
			// The upsert may not report the id of an existing row.
			if err := tx.Where("slug = ?", item.Slug).First(&category).Error; err != nil {
				return fmt.Errorf("category %s: %w", item.Slug, err)
			}
			res.Categories = append(res.Categories, category)
		}

		for _, item := range f.Locations {
			var location models.Location
			if err := tx.Where(models.Location{Name: item.Name}).
				Assign(map[string]any{"is_published": published(item.IsPublished)}).
				FirstOrCreate(&location).Error; err != nil {
				return fmt.Errorf("location %s: %w", item.Name, err)
			}
			res.Locations = append(res.Locations, location)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
