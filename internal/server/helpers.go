package server

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"blogicum/internal/auth"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = repository.DefaultAdminLimit
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint. Anything
// else cannot name a row, so it answers 404 like an unknown id.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "commentId" -> "Invalid comment ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "Invalid "+humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	// Split on camelCase boundary before the trailing "Id" suffix.
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// pageNumber reads ?page= the way the feeds expect it.
func pageNumber(c *fiber.Ctx) int {
	return repository.ParsePageNumber(c.Query("page"))
}

// pageContext collects the per-request values every template needs.
func (s *Server) pageContext(c *fiber.Ctx) PageContext {
	token, _ := c.Locals(csrfContextKey).(string)
	return PageContext{
		User:      middleware.CurrentPrincipal(c).User,
		CSRFToken: token,
		Path:      c.Path(),
	}
}

// render fills the view's PageContext and renders the named page.
func (s *Server) render(c *fiber.Ctx, status int, name string, view pageView) error {
	*view.page() = s.pageContext(c)
	return c.Status(status).Render(name, view)
}

// redirect answers with 302, the status every form submission ends with.
func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

// StaticPage renders a template that needs nothing but the page context.
func (s *Server) StaticPage(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.render(c, fiber.StatusOK, name, &StaticView{})
	}
}

// startSession issues a session for user, sets the cookie and makes the
// rest of the request see the user as signed in.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	middleware.SetPrincipal(c, auth.Principal{User: user, ExpiresAt: expiresAt})
	return nil
}

// endSession revokes the current session and expires the cookie.
func (s *Server) endSession(c *fiber.Ctx) error {
	p := middleware.CurrentPrincipal(c)
	if p.IsAuthenticated() {
		if err := s.sessions.Revoke(c.UserContext(), p); err != nil {
			return err
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	middleware.SetPrincipal(c, auth.Anonymous)
	return nil
}

// readUpload returns the file posted in field, or nil when the form has
// none. Browsers send an empty part for an untouched file input.
func (s *Server) readUpload(c *fiber.Ctx, field string) (*service.UploadImageInput, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || (fh.Filename == "" && fh.Size == 0) {
		return nil, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	// One byte over the limit is enough for the image service to reject it.
	content, err := io.ReadAll(io.LimitReader(src, s.images.MaxUploadBytes()+1))
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}

	return &service.UploadImageInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// errorHandler renders the 403, 404 and 500 pages for HTML routes and JSON
// for the staff API.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var status int
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else {
		status = models.StatusFor(err)
	}

	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	if strings.HasPrefix(c.Path(), "/admin/api") {
		if fe != nil {
			return c.Status(status).JSON(models.ErrorResponse{Error: fe.Message})
		}
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
		return models.RespondWithError(c, status, err)
	}

	page := ""
	switch {
	case status == fiber.StatusForbidden:
		page = "pages/403csrf"
	case status == fiber.StatusNotFound:
		page = "pages/404"
	case status >= fiber.StatusInternalServerError:
		page = "pages/500"
	}
	if page != "" {
		if rerr := s.render(c, status, page, &StaticView{}); rerr == nil {
			return nil
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	msg := fiber.NewError(status).Message
	if fe != nil && status < fiber.StatusInternalServerError {
		msg = fe.Message
	}
	return c.Status(status).SendString(msg)
}
