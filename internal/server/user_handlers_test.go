package server

import (
	"net/url"
	"testing"
	"time"

	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	reader := ts.createUser("bob", false)
	travel := ts.createCategory("travel", true)
	past := time.Now().UTC().Add(-time.Hour)

	ts.createPost(author, travel, "Public story", past, true)
	ts.createPost(author, travel, "Draft story", past, false)
	ts.createPost(author, travel, "Future story", time.Now().UTC().Add(48*time.Hour), true)

	t.Run("owner sees everything", func(t *testing.T) {
		resp := ts.get("/profile/alice/", ts.sessionCookie(author))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "Public story")
		assert.Contains(t, body, "Draft story")
		assert.Contains(t, body, "Future story")
		assert.Contains(t, body, "/profile/edit/")
	})

	t.Run("others see public posts only", func(t *testing.T) {
		for _, resp := range []string{
			readBody(t, ts.get("/profile/alice/")),
			readBody(t, ts.get("/profile/alice/", ts.sessionCookie(reader))),
		} {
			assert.Contains(t, resp, "Public story")
			assert.NotContains(t, resp, "Draft story")
			assert.NotContains(t, resp, "Future story")
			assert.NotContains(t, resp, `href="/profile/edit/"`)
		}
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		assert.Equal(t, fiber.StatusNotFound, ts.get("/profile/nobody/").StatusCode)
	})
}

func TestEditProfile(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser("alice", false)
	ts.createUser("bob", false)
	cookie := ts.sessionCookie(user)

	assertRedirect(t, ts.get("/profile/edit/"), "/auth/login/?next=/profile/edit/")

	resp := ts.get("/profile/edit/", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `value="alice@example.com"`)

	t.Run("taken username re-renders", func(t *testing.T) {
		resp := ts.postForm("/profile/edit/", url.Values{"username": {"Bob"}, "email": {"alice@example.com"}}, cookie)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "A user with that username already exists.")
	})

	t.Run("rename moves the profile", func(t *testing.T) {
		resp := ts.postForm("/profile/edit/", url.Values{
			"username":   {"alice2"},
			"first_name": {"Alice"},
			"last_name":  {"Smith"},
			"email":      {"alice@Example.COM"},
		}, cookie)
		assertRedirect(t, resp, "/profile/alice2/")

		var stored models.User
		require.NoError(t, ts.db.First(&stored, user.ID).Error)
		assert.Equal(t, "alice2", stored.Username)
		assert.Equal(t, "Smith", stored.LastName)
		assert.Equal(t, "alice@example.com", stored.Email)

		assert.Equal(t, fiber.StatusOK, ts.get("/profile/alice2/").StatusCode)
		assert.Equal(t, fiber.StatusNotFound, ts.get("/profile/alice/").StatusCode)
	})
}
