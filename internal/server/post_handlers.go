package server

import (
	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.postService.Feed(c.UserContext(), pageNumber(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/index", &IndexView{Page: page})
}

// CategoryPosts handles GET /category/:slug/
func (s *Server) CategoryPosts(c *fiber.Ctx) error {
	category, page, err := s.postService.CategoryFeed(c.UserContext(), c.Params("slug"), pageNumber(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/category", &CategoryView{Category: category, Page: page})
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	viewerID := middleware.CurrentPrincipal(c).UserID()

	post, comments, err := s.postService.Detail(c.UserContext(), id, viewerID)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/detail", &PostDetailView{
		Post:           post,
		Comments:       comments,
		CanEdit:        post.IsAuthoredBy(viewerID),
		CommentsClosed: s.featureFlags.Enabled(featureflags.CommentsClosed, viewerID),
	})
}

// CreatePostPage handles GET /posts/create/
func (s *Server) CreatePostPage(c *fiber.Ctx) error {
	return s.renderPostForm(c, &PostFormView{Form: validation.NewPostForm(s.postService.Now())})
}

// CreatePost handles POST /posts/create/
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user := middleware.CurrentPrincipal(c).User

	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	upload, err := s.readUpload(c, "image")
	if err != nil {
		return err
	}

	if _, err := s.postService.Create(c.UserContext(), user.ID, form, upload); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.renderPostForm(c, &PostFormView{Form: form, Errors: fe})
		}
		return err
	}
	return redirect(c, profileURL(user.Username))
}

// EditPostPage handles GET /posts/:id/edit/
func (s *Server) EditPostPage(c *fiber.Ctx) error {
	post, done, err := s.ownPost(c)
	if done || err != nil {
		return err
	}
	return s.renderPostForm(c, &PostFormView{Form: validation.PostFormFrom(post), Post: post})
}

// EditPost handles POST /posts/:id/edit/
func (s *Server) EditPost(c *fiber.Ctx) error {
	post, done, err := s.ownPost(c)
	if done || err != nil {
		return err
	}

	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	upload, err := s.readUpload(c, "image")
	if err != nil {
		return err
	}

	editorID := middleware.CurrentPrincipal(c).UserID()
	if err := s.postService.Update(c.UserContext(), editorID, post, form, upload); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.renderPostForm(c, &PostFormView{Form: form, Errors: fe, Post: post})
		}
		if models.HasCode(err, models.CodeForbidden) {
			return redirect(c, postURL(post.ID))
		}
		return err
	}
	return redirect(c, postURL(post.ID))
}

// DeletePostPage handles GET /posts/:id/delete/
func (s *Server) DeletePostPage(c *fiber.Ctx) error {
	post, done, err := s.ownPost(c)
	if done || err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/create", &PostFormView{
		Form:     validation.PostFormFrom(post),
		Post:     post,
		IsDelete: true,
	})
}

// DeletePost handles POST /posts/:id/delete/
func (s *Server) DeletePost(c *fiber.Ctx) error {
	post, done, err := s.ownPost(c)
	if done || err != nil {
		return err
	}

	user := middleware.CurrentPrincipal(c).User
	if err := s.postService.Delete(c.UserContext(), user.ID, post); err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return redirect(c, postURL(post.ID))
		}
		return err
	}
	return redirect(c, profileURL(user.Username))
}

// ownPost loads the post named by :id for an edit or delete view. A missing
// post is 404 for everyone, then anonymous users go to login and other
// users go back to the detail page. done reports that a response has been
// written.
func (s *Server) ownPost(c *fiber.Ctx) (post *models.Post, done bool, err error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, true, err
	}
	post, err = s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return nil, true, err
	}

	p := middleware.CurrentPrincipal(c)
	if !p.IsAuthenticated() {
		return nil, true, middleware.RedirectToLogin(c)
	}
	if !post.IsAuthoredBy(p.UserID()) {
		return nil, true, redirect(c, postURL(post.ID))
	}
	return post, false, nil
}

func (s *Server) renderPostForm(c *fiber.Ctx, view *PostFormView) error {
	choices, err := s.postService.Choices(c.UserContext())
	if err != nil {
		return err
	}
	view.Categories = choices.Categories
	view.Locations = choices.Locations
	return s.render(c, fiber.StatusOK, "blog/create", view)
}
