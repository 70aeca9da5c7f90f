package visibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"blogicum/internal/models"
)

func TestIsVisible(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	const author, stranger uint = 7, 8

	post := func(published bool, pub time.Time, categoryPublished bool) *models.Post {
		return &models.Post{
			AuthorID:    author,
			IsPublished: published,
			PubDate:     pub,
			Category:    models.Category{IsPublished: categoryPublished},
		}
	}

	tests := []struct {
		name   string
		post   *models.Post
		viewer uint
		want   bool
	}{
		{"public post for anonymous", post(true, now.Add(-time.Hour), true), Anonymous, true},
		{"public post for stranger", post(true, now.Add(-time.Hour), true), stranger, true},
		{"pub date equal to now", post(true, now, true), Anonymous, true},
		{"unpublished hidden from stranger", post(false, now.Add(-time.Hour), true), stranger, false},
		{"future hidden from anonymous", post(true, now.Add(time.Minute), true), Anonymous, false},
		{"hidden category hides post", post(true, now.Add(-time.Hour), false), stranger, false},
		{"author sees unpublished", post(false, now.Add(-time.Hour), true), author, true},
		{"author sees future", post(true, now.Add(48*time.Hour), true), author, true},
		{"author sees hidden category", post(true, now.Add(-time.Hour), false), author, true},
		{"nil post", nil, author, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsVisible(tt.post, tt.viewer, now))
		})
	}
}

func TestIsVisibleMatchesPublicRuleForNonAuthors(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	for _, published := range []bool{true, false} {
		for _, catPublished := range []bool{true, false} {
			for _, offset := range []time.Duration{-time.Hour, 0, time.Hour} {
				p := &models.Post{
					AuthorID:    1,
					IsPublished: published,
					PubDate:     now.Add(offset),
					Category:    models.Category{IsPublished: catPublished},
				}
				want := published && catPublished && offset <= 0
				assert.Equal(t, want, IsVisible(p, 2, now))
				assert.True(t, IsVisible(p, 1, now))
			}
		}
	}
}

func TestShowsAllOnProfile(t *testing.T) {
	t.Parallel()

	assert.True(t, ShowsAllOnProfile(3, 3))
	assert.False(t, ShowsAllOnProfile(3, 4))
	assert.False(t, ShowsAllOnProfile(0, Anonymous))
}
