package server

import (
	"strconv"
	"strings"

	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// publishRequest is the body of the PATCH endpoints.
type publishRequest struct {
	IsPublished *bool `json:"is_published"`
}

// ListResponse wraps admin listings with the paging that produced them.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// adminFilter reads ?q=, ?is_published=, ?category=, ?limit= and ?offset=.
func adminFilter(c *fiber.Ctx) (repository.AdminFilter, error) {
	p := parsePagination(c, repository.DefaultAdminLimit)
	f := repository.AdminFilter{
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if raw := c.Query("is_published"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, models.NewValidationError("is_published must be true or false")
		}
		f.IsPublished = &v
	}
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, models.NewValidationError("category must be an id")
		}
		f.CategoryID = uint(id)
	}
	return f, nil
}

func listResponse[T any](items []T, f repository.AdminFilter) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: f.Limit, Offset: f.Offset}
}

// respondAdminError answers API errors, with field errors as a 400 that
// lists every message.
func respondAdminError(c *fiber.Ctx, err error) error {
	if fe, ok := models.AsFieldErrors(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Invalid input",
			"code":   models.CodeValidation,
			"fields": fe,
		})
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func parsePublish(c *fiber.Ctx) (bool, error) {
	var req publishRequest
	if err := c.BodyParser(&req); err != nil || req.IsPublished == nil {
		return false, models.NewValidationError("is_published is required")
	}
	return *req.IsPublished, nil
}

// AdminListCategories handles GET /admin/api/categories
func (s *Server) AdminListCategories(c *fiber.Ctx) error {
	f, err := adminFilter(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	items, err := s.moderationService.ListCategories(c.UserContext(), f)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(listResponse(items, f))
}

// AdminCreateCategory handles POST /admin/api/categories
func (s *Server) AdminCreateCategory(c *fiber.Ctx) error {
	var form validation.CategoryForm
	if err := c.BodyParser(&form); err != nil {
		return respondAdminError(c, models.NewValidationError("Invalid request body"))
	}
	category, err := s.moderationService.CreateCategory(c.UserContext(), form)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// AdminUpdateCategory handles PUT /admin/api/categories/:id
func (s *Server) AdminUpdateCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var form validation.CategoryForm
	if err := c.BodyParser(&form); err != nil {
		return respondAdminError(c, models.NewValidationError("Invalid request body"))
	}
	category, err := s.moderationService.UpdateCategory(c.UserContext(), id, form)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(category)
}

// AdminPublishCategory handles PATCH /admin/api/categories/:id
func (s *Server) AdminPublishCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	published, err := parsePublish(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	if err := s.moderationService.SetCategoryPublished(c.UserContext(), id, published); err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "is_published": published})
}

// AdminDeleteCategory handles DELETE /admin/api/categories/:id
// The category's posts, their comments and images go with it.
func (s *Server) AdminDeleteCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.moderationService.DeleteCategory(c.UserContext(), id); err != nil {
		return respondAdminError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListLocations handles GET /admin/api/locations
func (s *Server) AdminListLocations(c *fiber.Ctx) error {
	f, err := adminFilter(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	items, err := s.moderationService.ListLocations(c.UserContext(), f)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(listResponse(items, f))
}

// AdminCreateLocation handles POST /admin/api/locations
func (s *Server) AdminCreateLocation(c *fiber.Ctx) error {
	var form validation.LocationForm
	if err := c.BodyParser(&form); err != nil {
		return respondAdminError(c, models.NewValidationError("Invalid request body"))
	}
	location, err := s.moderationService.CreateLocation(c.UserContext(), form)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(location)
}

// AdminUpdateLocation handles PUT /admin/api/locations/:id
func (s *Server) AdminUpdateLocation(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var form validation.LocationForm
	if err := c.BodyParser(&form); err != nil {
		return respondAdminError(c, models.NewValidationError("Invalid request body"))
	}
	location, err := s.moderationService.UpdateLocation(c.UserContext(), id, form)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(location)
}

// AdminPublishLocation handles PATCH /admin/api/locations/:id
func (s *Server) AdminPublishLocation(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	published, err := parsePublish(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	if err := s.moderationService.SetLocationPublished(c.UserContext(), id, published); err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "is_published": published})
}

// AdminDeleteLocation handles DELETE /admin/api/locations/:id
func (s *Server) AdminDeleteLocation(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.moderationService.DeleteLocation(c.UserContext(), id); err != nil {
		return respondAdminError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListPosts handles GET /admin/api/posts
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	f, err := adminFilter(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	items, err := s.moderationService.ListPosts(c.UserContext(), f)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(listResponse(items, f))
}

// AdminPublishPost handles PATCH /admin/api/posts/:id
func (s *Server) AdminPublishPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	published, err := parsePublish(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	if err := s.moderationService.SetPostPublished(c.UserContext(), id, published); err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "is_published": published})
}

// AdminDeletePost handles DELETE /admin/api/posts/:id
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.moderationService.DeletePost(c.UserContext(), id); err != nil {
		return respondAdminError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListComments handles GET /admin/api/comments
func (s *Server) AdminListComments(c *fiber.Ctx) error {
	f, err := adminFilter(c)
	if err != nil {
		return respondAdminError(c, err)
	}
	items, err := s.moderationService.ListComments(c.UserContext(), f)
	if err != nil {
		return respondAdminError(c, err)
	}
	return c.JSON(listResponse(items, f))
}

// AdminDeleteComment handles DELETE /admin/api/comments/:id
func (s *Server) AdminDeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.moderationService.DeleteComment(c.UserContext(), id); err != nil {
		return respondAdminError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
