package server

import (
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	viewerID := middleware.CurrentPrincipal(c).UserID()
	profile, page, err := s.postService.ProfileFeed(c.UserContext(), c.Params("username"), viewerID, pageNumber(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "blog/profile", &ProfileView{
		Profile: profile,
		Page:    page,
		IsOwner: viewerID != 0 && viewerID == profile.ID,
	})
}

// EditProfilePage handles GET /profile/edit/
func (s *Server) EditProfilePage(c *fiber.Ctx) error {
	user := middleware.CurrentPrincipal(c).User
	return s.render(c, fiber.StatusOK, "blog/user", &ProfileFormView{
		Form: validation.ProfileFormFrom(user),
	})
}

// EditProfile handles POST /profile/edit/
func (s *Server) EditProfile(c *fiber.Ctx) error {
	user := middleware.CurrentPrincipal(c).User

	var form validation.ProfileForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := s.accountService.UpdateProfile(c.UserContext(), user, form); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "blog/user", &ProfileFormView{
				Form:   form,
				Errors: fe,
			})
		}
		return err
	}
	return redirect(c, profileURL(user.Username))
}
