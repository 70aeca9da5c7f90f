package server

import (
	"errors"

	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/service"
	"blogicum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AddCommentPage handles GET /posts/:id/comment/. There is no standalone
// form; the client goes back to the post.
func (s *Server) AddCommentPage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.postService.GetPost(c.UserContext(), id); err != nil {
		return err
	}
	return redirect(c, postURL(id))
}

// AddComment handles POST /posts/:id/comment/
// Invalid text and closed comments are dropped silently.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var form validation.CommentForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	userID := middleware.CurrentPrincipal(c).UserID()
	if _, err := s.commentService.Add(c.UserContext(), id, userID, form); err != nil {
		if _, ok := models.AsFieldErrors(err); !ok && !errors.Is(err, service.ErrCommentsClosed) {
			return err
		}
	}
	return redirect(c, postURL(id))
}

// EditCommentPage handles GET /posts/:id/comment/:commentId/edit/
func (s *Server) EditCommentPage(c *fiber.Ctx) error {
	comment, done, err := s.ownComment(c)
	if done || err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/comment", &CommentFormView{
		Comment: comment,
		Form:    validation.CommentForm{Text: comment.Text},
	})
}

// EditComment handles POST /posts/:id/comment/:commentId/edit/
func (s *Server) EditComment(c *fiber.Ctx) error {
	comment, done, err := s.ownComment(c)
	if done || err != nil {
		return err
	}

	var form validation.CommentForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	userID := middleware.CurrentPrincipal(c).UserID()
	if err := s.commentService.Update(c.UserContext(), userID, comment, form); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "blog/comment", &CommentFormView{
				Comment: comment,
				Form:    form,
				Errors:  fe,
			})
		}
		if !models.HasCode(err, models.CodeForbidden) {
			return err
		}
	}
	return redirect(c, postURL(comment.PostID))
}

// DeleteCommentPage handles GET /posts/:id/comment/:commentId/delete/
func (s *Server) DeleteCommentPage(c *fiber.Ctx) error {
	comment, done, err := s.ownComment(c)
	if done || err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/comment", &CommentFormView{
		Comment:  comment,
		IsDelete: true,
	})
}

// DeleteComment handles POST /posts/:id/comment/:commentId/delete/
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	comment, done, err := s.ownComment(c)
	if done || err != nil {
		return err
	}

	userID := middleware.CurrentPrincipal(c).UserID()
	if err := s.commentService.Delete(c.UserContext(), userID, comment); err != nil {
		if !models.HasCode(err, models.CodeForbidden) {
			return err
		}
	}
	return redirect(c, postURL(comment.PostID))
}

// ownComment mirrors ownPost: a comment that is missing or belongs to
// another post is 404, then login, then the author check.
func (s *Server) ownComment(c *fiber.Ctx) (comment *models.Comment, done bool, err error) {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil, true, err
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil, true, err
	}
	comment, err = s.commentService.Get(c.UserContext(), postID, commentID)
	if err != nil {
		return nil, true, err
	}

	p := middleware.CurrentPrincipal(c)
	if !p.IsAuthenticated() {
		return nil, true, middleware.RedirectToLogin(c)
	}
	if !comment.IsAuthoredBy(p.UserID()) {
		return nil, true, redirect(c, postURL(postID))
	}
	return comment, false, nil
}
