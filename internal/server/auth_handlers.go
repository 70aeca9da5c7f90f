package server

import (
	"log/slog"

	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// RegisterPage handles GET /auth/registration/
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	if err := s.registrationOpen(c); err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "registration/registration_form", &AuthFormView{
		Form: validation.RegistrationForm{},
	})
}

// Register handles POST /auth/registration/
// The new account is signed in straight away.
func (s *Server) Register(c *fiber.Ctx) error {
	if err := s.registrationOpen(c); err != nil {
		return err
	}

	var form validation.RegistrationForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := s.accountService.Register(c.UserContext(), form)
	if err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			form.Password1, form.Password2 = "", ""
			return s.render(c, fiber.StatusOK, "registration/registration_form", &AuthFormView{
				Form:   form,
				Errors: fe,
			})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, profileURL(user.Username))
}

func (s *Server) registrationOpen(c *fiber.Ctx) error {
	if s.featureFlags.Enabled(featureflags.RegistrationClosed, 0) {
		return fiber.NewError(fiber.StatusForbidden, "Registration is closed")
	}
	return nil
}

// LoginPage handles GET /auth/login/
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "registration/login", &AuthFormView{
		Form: validation.LoginForm{},
		Next: c.Query("next"),
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if form.Next == "" {
		form.Next = c.Query("next")
	}

	user, err := s.accountService.Authenticate(c.UserContext(), form)
	if err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "registration/login", &AuthFormView{
				Form:   validation.LoginForm{Username: form.Username},
				Errors: fe,
				Next:   form.Next,
			})
		}
		return err
	}

	if err := s.accountService.RecordLogin(c.UserContext(), user); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to record login",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, middleware.SafeNext(form.Next, "/"))
}

// Logout handles GET and POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.endSession(c); err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "registration/logged_out", &StaticView{})
}

// PasswordChangePage handles GET /auth/password_change/
func (s *Server) PasswordChangePage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "registration/password_change_form", &AuthFormView{
		Form: validation.PasswordChangeForm{},
	})
}

// PasswordChange handles POST /auth/password_change/
// Sessions are bound to the password, so the current one is reissued.
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	user := middleware.CurrentPrincipal(c).User

	var form validation.PasswordChangeForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := s.accountService.ChangePassword(c.UserContext(), user, form); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "registration/password_change_form", &AuthFormView{
				Form:   validation.PasswordChangeForm{},
				Errors: fe,
			})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, "/auth/password_change/done/")
}

// PasswordResetPage handles GET /auth/password_reset/
func (s *Server) PasswordResetPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "registration/password_reset_form", &AuthFormView{
		Form: validation.PasswordResetForm{},
	})
}

// PasswordReset handles POST /auth/password_reset/
// The response is the same whether or not the address is known.
func (s *Server) PasswordReset(c *fiber.Ctx) error {
	var form validation.PasswordResetForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	base := s.siteURL(c)
	link := func(uidb64, token string) string {
		return base + "/auth/reset/" + uidb64 + "/" + token + "/"
	}
	if err := s.accountService.RequestPasswordReset(c.UserContext(), form, link); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "registration/password_reset_form", &AuthFormView{
				Form:   form,
				Errors: fe,
			})
		}
		return err
	}
	return redirect(c, "/auth/password_reset/done/")
}

// PasswordResetConfirmPage handles GET /auth/reset/:uidb64/:token/
func (s *Server) PasswordResetConfirmPage(c *fiber.Ctx) error {
	_, ok, err := s.accountService.ResetUser(c.UserContext(), c.Params("uidb64"), c.Params("token"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "registration/password_reset_confirm", &AuthFormView{
		Form:      validation.SetPasswordForm{},
		ValidLink: ok,
	})
}

// PasswordResetConfirm handles POST /auth/reset/:uidb64/:token/
func (s *Server) PasswordResetConfirm(c *fiber.Ctx) error {
	user, ok, err := s.accountService.ResetUser(c.UserContext(), c.Params("uidb64"), c.Params("token"))
	if err != nil {
		return err
	}
	if !ok {
		return s.render(c, fiber.StatusOK, "registration/password_reset_confirm", &AuthFormView{
			Form: validation.SetPasswordForm{},
		})
	}

	var form validation.SetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.accountService.SetPassword(c.UserContext(), user, form); err != nil {
		if fe, ok := models.AsFieldErrors(err); ok {
			return s.render(c, fiber.StatusOK, "registration/password_reset_confirm", &AuthFormView{
				Form:      validation.SetPasswordForm{},
				Errors:    fe,
				ValidLink: true,
			})
		}
		return err
	}

	middleware.Logger.InfoContext(c.UserContext(), "password reset completed",
		slog.Uint64("user_id", uint64(user.ID)),
	)
	return redirect(c, "/auth/reset/done/")
}

// siteURL is the absolute origin used in mailed links.
func (s *Server) siteURL(c *fiber.Ctx) string {
	if s.config.SiteURL != "" {
		return s.config.SiteURL
	}
	return c.BaseURL()
}
