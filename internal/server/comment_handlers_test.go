package server

import (
	"net/url"
	"testing"
	"time"

	"blogicum/internal/config"
	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentCount(t *testing.T, ts *testServer, postID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, ts.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error)
	return n
}

func TestAddComment(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	reader := ts.createUser("bob", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)
	commentPath := idPath("/posts/", post.ID, "/comment/")
	detail := idPath("/posts/", post.ID, "/")

	t.Run("anonymous is sent to login", func(t *testing.T) {
		assertRedirect(t, ts.postForm(commentPath, url.Values{"text": {"hi"}}), "/auth/login/?next="+commentPath)
		assert.Zero(t, commentCount(t, ts, post.ID))
	})

	t.Run("GET only redirects", func(t *testing.T) {
		assertRedirect(t, ts.get(commentPath, ts.sessionCookie(reader)), detail)
	})

	t.Run("missing post is 404", func(t *testing.T) {
		assert.Equal(t, fiber.StatusNotFound, ts.postForm("/posts/999/comment/", url.Values{"text": {"hi"}}, ts.sessionCookie(reader)).StatusCode)
	})

	t.Run("hidden post only takes its author's comments", func(t *testing.T) {
		draft := ts.createPost(author, travel, "Draft", time.Now().UTC().Add(-time.Hour), false)
		draftPath := idPath("/posts/", draft.ID, "/comment/")

		resp := ts.postForm(draftPath, url.Values{"text": {"sneaky"}}, ts.sessionCookie(reader))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Zero(t, commentCount(t, ts, draft.ID))

		resp = ts.postForm(draftPath, url.Values{"text": {"reminder"}}, ts.sessionCookie(author))
		assertRedirect(t, resp, idPath("/posts/", draft.ID, "/"))
		assert.Equal(t, int64(1), commentCount(t, ts, draft.ID))
	})

	t.Run("empty text is dropped", func(t *testing.T) {
		assertRedirect(t, ts.postForm(commentPath, url.Values{"text": {"   "}}, ts.sessionCookie(reader)), detail)
		assert.Zero(t, commentCount(t, ts, post.ID))
	})

	t.Run("valid comment is stored", func(t *testing.T) {
		assertRedirect(t, ts.postForm(commentPath, url.Values{"text": {"Nice view"}}, ts.sessionCookie(reader)), detail)
		var c models.Comment
		require.NoError(t, ts.db.Where("post_id = ?", post.ID).First(&c).Error)
		assert.Equal(t, "Nice view", c.Text)
		assert.Equal(t, reader.ID, c.AuthorID)
	})
}

func TestAddComment_CommentsClosed(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "comments_closed=on" })
	author := ts.createUser("alice", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)

	resp := ts.postForm(idPath("/posts/", post.ID, "/comment/"), url.Values{"text": {"hello"}}, ts.sessionCookie(author))
	assertRedirect(t, resp, idPath("/posts/", post.ID, "/"))
	assert.Zero(t, commentCount(t, ts, post.ID))

	body := readBody(t, ts.get(idPath("/posts/", post.ID, "/"), ts.sessionCookie(author)))
	assert.Contains(t, body, "Comments are closed.")
}

func TestEditAndDeleteComment(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser("alice", false)
	commenter := ts.createUser("bob", false)
	travel := ts.createCategory("travel", true)
	post := ts.createPost(author, travel, "Lake trip", time.Now().UTC().Add(-time.Hour), true)
	otherPost := ts.createPost(author, travel, "Other trip", time.Now().UTC().Add(-time.Hour), true)
	comment := ts.createComment(commenter, post, "Nice view")

	base := idPath("/posts/", post.ID, "/comment/")
	editPath := idPath(base, comment.ID, "/edit/")
	deletePath := idPath(base, comment.ID, "/delete/")
	detail := idPath("/posts/", post.ID, "/")

	t.Run("comment under another post is 404", func(t *testing.T) {
		wrong := idPath(idPath("/posts/", otherPost.ID, "/comment/"), comment.ID, "/edit/")
		assert.Equal(t, fiber.StatusNotFound, ts.get(wrong, ts.sessionCookie(commenter)).StatusCode)
	})

	t.Run("anonymous is sent to login", func(t *testing.T) {
		assertRedirect(t, ts.get(editPath), "/auth/login/?next="+editPath)
	})

	t.Run("non-author cannot edit or delete", func(t *testing.T) {
		assertRedirect(t, ts.postForm(editPath, url.Values{"text": {"changed"}}, ts.sessionCookie(author)), detail)
		assertRedirect(t, ts.postForm(deletePath, url.Values{}, ts.sessionCookie(author)), detail)

		var stored models.Comment
		require.NoError(t, ts.db.First(&stored, comment.ID).Error)
		assert.Equal(t, "Nice view", stored.Text)
	})

	t.Run("author edits", func(t *testing.T) {
		resp := ts.get(editPath, ts.sessionCookie(commenter))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Nice view")

		resp = ts.postForm(editPath, url.Values{"text": {""}}, ts.sessionCookie(commenter))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "This field is required.")

		assertRedirect(t, ts.postForm(editPath, url.Values{"text": {"Great view"}}, ts.sessionCookie(commenter)), detail)
		var stored models.Comment
		require.NoError(t, ts.db.First(&stored, comment.ID).Error)
		assert.Equal(t, "Great view", stored.Text)
	})

	t.Run("author deletes after confirming", func(t *testing.T) {
		resp := ts.get(deletePath, ts.sessionCookie(commenter))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Delete comment")

		assertRedirect(t, ts.postForm(deletePath, url.Values{}, ts.sessionCookie(commenter)), detail)
		assert.Zero(t, commentCount(t, ts, post.ID))
	})
}
