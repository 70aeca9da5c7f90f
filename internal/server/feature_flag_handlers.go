package server

import (
	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// FeatureFlagsResponse lists the flags as they evaluate for the caller.
type FeatureFlagsResponse struct {
	Flags []featureflags.Status `json:"flags"`
}

// GetFeatureFlags handles GET /admin/api/feature-flags.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	viewer := middleware.CurrentPrincipal(c).UserID()
	return c.JSON(FeatureFlagsResponse{Flags: s.featureFlags.Statuses(viewer)})
}
