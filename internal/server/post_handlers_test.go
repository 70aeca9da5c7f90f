package server

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPath(prefix string, id uint, suffix string) string {
	return prefix + strconv.FormatUint(uint64(id), 10) + suffix
}

func TestIndex_ShowsOnlyPublicPosts(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	travel := ts.createCategory("travel", true)
	hidden := ts.createCategory("hidden", false)
	past := time.Now().UTC().Add(-time.Hour)

	ts.createPost(author, travel, "Visible story", past, true)
	ts.createPost(author, travel, "Draft story", past, false)
	ts.createPost(author, travel, "Scheduled story", time.Now().UTC().Add(24*time.Hour), true)
	ts.createPost(author, hidden, "Hidden category story", past, true)

	resp := ts.get("/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Visible story")
	assert.NotContains(t, body, "Draft story")
	assert.NotContains(t, body, "Scheduled story")
	assert.NotContains(t, body, "Hidden category story")
}

func TestIndex_OutOfRangePageFallsBack(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	travel := ts.createCategory("travel", true)
	ts.createPost(author, travel, "Only story", time.Now().UTC().Add(-time.Hour), true)

	for _, q := range []string{"?page=999", "?page=abc", "?page=-1"} {
		resp := ts.get("/" + q)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, q)
		assert.Contains(t, readBody(t, resp), "Only story", q)
	}
}

func TestCategoryUnpublishScenario(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)

	resp := ts.get("/category/travel/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Lake trip")

	require.NoError(t, ts.db.Model(&models.Category{}).Where("id = ?", travel.ID).Update("is_published", false).Error)

	assert.NotContains(t, readBody(t, ts.get("/")), "Lake trip")
	assert.Equal(t, fiber.StatusNotFound, ts.get("/category/travel/").StatusCode)
	assert.Equal(t, fiber.StatusNotFound, ts.get(idPath("/posts/", post.ID, "/")).StatusCode)

	resp = ts.get(idPath("/posts/", post.ID, "/"), ts.sessionCookie(author))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Lake trip")
}

func TestPostDetail(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	reader := ts.createUser("bob", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)
	ts.createComment(reader, post, "Nice view")

	t.Run("anonymous sees post and comments", func(t *testing.T) {
		resp := ts.get(idPath("/posts/", post.ID, "/"))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "Lake trip")
		assert.Contains(t, body, "Nice view")
		assert.NotContains(t, body, idPath("/posts/", post.ID, "/edit/"))
	})

	t.Run("author gets edit links", func(t *testing.T) {
		resp := ts.get(idPath("/posts/", post.ID, "/"), ts.sessionCookie(author))
		assert.Contains(t, readBody(t, resp), idPath("/posts/", post.ID, "/edit/"))
	})

	t.Run("unknown and malformed ids are 404", func(t *testing.T) {
		assert.Equal(t, fiber.StatusNotFound, ts.get("/posts/999/").StatusCode)
		assert.Equal(t, fiber.StatusNotFound, ts.get("/posts/abc/").StatusCode)
	})
}

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	travel := ts.createCategory("travel", true)
	oslo := ts.createLocation("Oslo", true)

	t.Run("anonymous is sent to login", func(t *testing.T) {
		assertRedirect(t, ts.get("/posts/create/"), "/auth/login/?next=/posts/create/")
	})

	t.Run("form lists choices", func(t *testing.T) {
		resp := ts.get("/posts/create/", ts.sessionCookie(author))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "Category travel")
		assert.Contains(t, body, "Oslo")
	})

	t.Run("valid submission with image", func(t *testing.T) {
		fields := url.Values{
			"title":        {"Fjords"},
			"text":         {"Water and rocks"},
			"pub_date":     {"2024-05-01T10:30"},
			"category":     {strconv.FormatUint(uint64(travel.ID), 10)},
			"location":     {strconv.FormatUint(uint64(oslo.ID), 10)},
			"is_published": {"on"},
		}
		resp := ts.postMultipart("/posts/create/", fields, "image", "fjord.png", "image/png", testutil.TinyPNG(t, 16, 16), ts.sessionCookie(author))
		assertRedirect(t, resp, "/profile/alice/")

		var post models.Post
		require.NoError(t, ts.db.Where("title = ?", "Fjords").First(&post).Error)
		assert.Equal(t, author.ID, post.AuthorID)
		assert.True(t, post.IsPublished)
		assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), post.PubDate.UTC())
		require.NotNil(t, post.LocationID)
		assert.Equal(t, oslo.ID, *post.LocationID)
		require.NotEmpty(t, post.Image)
		_, err := os.Stat(filepath.Join(ts.images.MediaRoot(), filepath.FromSlash(post.Image)))
		assert.NoError(t, err)
	})

	t.Run("invalid submission re-renders with errors", func(t *testing.T) {
		fields := url.Values{"title": {""}, "text": {"body"}, "pub_date": {"yesterday"}, "category": {"999"}}
		resp := ts.postMultipart("/posts/create/", fields, "", "", "", nil, ts.sessionCookie(author))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "This field is required.")
		assert.Contains(t, body, "Enter a valid date/time.")

		var count int64
		ts.db.Model(&models.Post{}).Where("text = ?", "body").Count(&count)
		assert.Zero(t, count)
	})
}

func TestEditPost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	other := ts.createUser("bob", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)
	editPath := idPath("/posts/", post.ID, "/edit/")

	t.Run("missing post is 404 even for anonymous", func(t *testing.T) {
		assert.Equal(t, fiber.StatusNotFound, ts.get("/posts/999/edit/").StatusCode)
	})

	t.Run("anonymous is sent to login", func(t *testing.T) {
		assertRedirect(t, ts.get(editPath), "/auth/login/?next="+editPath)
	})

	t.Run("non-author is sent to detail and nothing changes", func(t *testing.T) {
		assertRedirect(t, ts.get(editPath, ts.sessionCookie(other)), idPath("/posts/", post.ID, "/"))

		form := url.Values{
			"title":    {"Hijacked"},
			"text":     {"x"},
			"pub_date": {"2024-01-01T00:00"},
			"category": {strconv.FormatUint(uint64(travel.ID), 10)},
		}
		assertRedirect(t, ts.postForm(editPath, form, ts.sessionCookie(other)), idPath("/posts/", post.ID, "/"))

		var stored models.Post
		require.NoError(t, ts.db.First(&stored, post.ID).Error)
		assert.Equal(t, "Lake trip", stored.Title)
	})

	t.Run("author sees prefilled form", func(t *testing.T) {
		resp := ts.get(editPath, ts.sessionCookie(author))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), `value="Lake trip"`)
	})

	t.Run("invalid edit re-renders", func(t *testing.T) {
		form := url.Values{"title": {""}, "text": {""}, "pub_date": {""}, "category": {""}}
		resp := ts.postForm(editPath, form, ts.sessionCookie(author))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "This field is required.")
	})

	t.Run("author updates", func(t *testing.T) {
		form := url.Values{
			"title":    {"Lake trip, day two"},
			"text":     {"More water"},
			"pub_date": {"2024-01-01T00:00"},
			"category": {strconv.FormatUint(uint64(travel.ID), 10)},
		}
		assertRedirect(t, ts.postForm(editPath, form, ts.sessionCookie(author)), idPath("/posts/", post.ID, "/"))

		var stored models.Post
		require.NoError(t, ts.db.First(&stored, post.ID).Error)
		assert.Equal(t, "Lake trip, day two", stored.Title)
		assert.False(t, stored.IsPublished)
	})
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	other := ts.createUser("bob", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)
	ts.createComment(other, post, "first")
	ts.createComment(author, post, "second")
	deletePath := idPath("/posts/", post.ID, "/delete/")

	resp := ts.get(deletePath, ts.sessionCookie(author))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Lake trip")

	assertRedirect(t, ts.postForm(deletePath, url.Values{}, ts.sessionCookie(other)), idPath("/posts/", post.ID, "/"))
	var count int64
	ts.db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	assertRedirect(t, ts.postForm(deletePath, url.Values{}, ts.sessionCookie(author)), "/profile/alice/")
	ts.db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&count)
	assert.Zero(t, count)
	ts.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Zero(t, count)
}
