// Package server wires the blog's HTTP routes, page handlers and the staff API.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blogicum/internal/auth"
	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"
	"blogicum/internal/repository"
	"blogicum/internal/service"
	"blogicum/internal/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	siteName = "Blogicum"

	csrfCookieName = "csrftoken"
	csrfFormField  = "csrfmiddlewaretoken"
	csrfHeader     = "X-CSRFToken"
	csrfContextKey = "csrf"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	views          *web.Engine
	sessions       *auth.SessionManager
	featureFlags   *featureflags.Manager
	images         *service.ImageService

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	categoryRepo repository.CategoryRepository
	locationRepo repository.LocationRepository

	postService       *service.PostService
	commentService    *service.CommentService
	accountService    *service.AccountService
	moderationService *service.ModerationService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("continuing without redis", slog.String("error", err.Error()))
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
// redisClient may be nil; sessions are then revoked through the database
// and the per-route rate limits fail open, except password reset.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	views := web.New(cfg.TemplatesDir, cfg.MediaURL)
	if err := views.Load(); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	middleware.InitMiddleware(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blogicum"),
		views:          views,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         service.NewImageService(cfg),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		locationRepo:   repository.NewLocationRepository(db),
	}

	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	s.sessions = auth.NewSessionManager(cfg.SessionSecret, ttl, auth.NewRevocationStore(redisClient, db), s.userRepo)

	var mailer service.Mailer
	if cfg.SentEmailsDir != "" {
		mailer = service.NewFileMailer(cfg.SentEmailsDir, cfg.DefaultFromEmail)
	} else {
		mailer = service.NewLogMailer(cfg.DefaultFromEmail)
	}

	s.postService = service.NewPostService(s.postRepo, s.commentRepo, s.categoryRepo, s.locationRepo, s.userRepo, s.images)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.featureFlags)
	s.accountService = service.NewAccountService(s.userRepo, auth.NewResetTokens(cfg.SessionSecret), mailer, siteName)
	s.moderationService = service.NewModerationService(s.categoryRepo, s.locationRepo, s.postRepo, s.commentRepo, s.userRepo, s.images)

	return s, nil
}

// App returns the configured Fiber app, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	bodyLimit := s.config.ImageMaxUploadSizeMB
	if bodyLimit <= 0 {
		bodyLimit = service.DefaultImageMaxUploadSizeMB
	}

	app := fiber.New(fiber.Config{
		AppName:      siteName,
		Views:        s.views,
		ErrorHandler: s.errorHandler,
		// One extra megabyte leaves room for the other form fields.
		BodyLimit: (bodyLimit + 1) * 1024 * 1024,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Session must run before the context middleware so the user id is
	// available to the logger.
	app.Use(middleware.Session(s.sessions))
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger(func(path string) bool {
		return isAssetPath(path, s.config.MediaURL)
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return !middleware.ThrottlingEnabled() || isAssetPath(c.Path(), s.config.MediaURL)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}))

	if s.config.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			CookieName:     csrfCookieName,
			CookieSameSite: "Lax",
			CookieSecure:   s.config.IsProduction(),
			Expiration:     time.Duration(s.sessionTTLHours()) * time.Hour,
			ContextKey:     csrfContextKey,
			Extractor:      csrfExtractor,
			Next: func(c *fiber.Ctx) bool {
				return isAssetPath(c.Path(), s.config.MediaURL)
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				middleware.Logger.WarnContext(c.UserContext(), "csrf verification failed")
				return fiber.NewError(fiber.StatusForbidden, "CSRF verification failed. Request aborted.")
			},
		}))
	}
}

// csrfExtractor reads the token from the form field HTML forms post, then
// from the header the JSON API uses.
func csrfExtractor(c *fiber.Ctx) (string, error) {
	if token, err := csrf.CsrfFromForm(csrfFormField)(c); err == nil {
		return token, nil
	}
	return csrf.CsrfFromHeader(csrfHeader)(c)
}

func isAssetPath(path, mediaURL string) bool {
	if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/health/") || path == "/metrics" {
		return true
	}
	return mediaURL != "" && strings.HasPrefix(path, mediaURL)
}

func (s *Server) sessionTTLHours() int {
	if s.config.SessionTTLHours > 0 {
		return s.config.SessionTTLHours
	}
	return 14 * 24
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Static()),
		MaxAge: 3600,
	}))
	if s.config.ServeMedia {
		app.Static(strings.TrimSuffix(s.config.MediaURL, "/"), s.images.MediaRoot(), fiber.Static{
			ByteRange: true,
		})
	}

	// Feeds
	app.Get("/", s.Index)
	app.Get("/category/:slug", s.CategoryPosts)

	// Profile; /profile/edit must precede the username route.
	app.Get("/profile/edit", middleware.LoginRequired(), s.EditProfilePage)
	app.Post("/profile/edit", middleware.LoginRequired(), s.EditProfile)
	app.Get("/profile/:username", s.Profile)

	// Posts; /posts/create must precede the id routes.
	posts := app.Group("/posts")
	posts.Get("/create", middleware.LoginRequired(), s.CreatePostPage)
	posts.Post("/create", middleware.LoginRequired(), s.CreatePost)
	posts.Get("/:id/edit", s.EditPostPage)
	posts.Post("/:id/edit", s.EditPost)
	posts.Get("/:id/delete", s.DeletePostPage)
	posts.Post("/:id/delete", s.DeletePost)
	posts.Get("/:id/comment", middleware.LoginRequired(), s.AddCommentPage)
	posts.Post("/:id/comment", middleware.LoginRequired(), s.AddComment)
	posts.Get("/:id/comment/:commentId/edit", s.EditCommentPage)
	posts.Post("/:id/comment/:commentId/edit", s.EditComment)
	posts.Get("/:id/comment/:commentId/delete", s.DeleteCommentPage)
	posts.Post("/:id/comment/:commentId/delete", s.DeleteComment)
	posts.Get("/:id", s.PostDetail)

	// Static pages
	pages := app.Group("/pages")
	pages.Get("/about", s.StaticPage("pages/about"))
	pages.Get("/rules", s.StaticPage("pages/rules"))

	// Auth routes
	authRoutes := app.Group("/auth")
	authRoutes.Get("/registration", s.RegisterPage)
	authRoutes.Post("/registration", middleware.Throttled(s.redis,
		middleware.Throttle{Name: "signup", Limit: 3, Window: cache.SignupRateLimitWindow}), s.Register)
	authRoutes.Get("/login", s.LoginPage)
	authRoutes.Post("/login", middleware.Throttled(s.redis,
		middleware.Throttle{Name: "login", Limit: 10, Window: cache.LoginRateLimitWindow}), s.Login)
	authRoutes.Get("/logout", s.Logout)
	authRoutes.Post("/logout", s.Logout)
	authRoutes.Get("/password_change", middleware.LoginRequired(), s.PasswordChangePage)
	authRoutes.Post("/password_change", middleware.LoginRequired(), s.PasswordChange)
	authRoutes.Get("/password_change/done", middleware.LoginRequired(), s.StaticPage("registration/password_change_done"))
	authRoutes.Get("/password_reset", s.PasswordResetPage)
	authRoutes.Post("/password_reset", middleware.Throttled(s.redis,
		middleware.Throttle{Name: "password_reset", Limit: 5, Window: cache.PasswordResetRateLimitWindow, FailClosed: true}), s.PasswordReset)
	authRoutes.Get("/password_reset/done", s.StaticPage("registration/password_reset_done"))
	authRoutes.Get("/reset/done", s.StaticPage("registration/password_reset_complete"))
	authRoutes.Get("/reset/:uidb64/:token", s.PasswordResetConfirmPage)
	authRoutes.Post("/reset/:uidb64/:token", s.PasswordResetConfirm)

	// Staff routes
	app.Get("/admin/monitor", middleware.StaffRequired(), monitor.New(monitor.Config{
		Title: "Blogicum Metrics Dashboard",
	}))
	admin := app.Group("/admin/api", middleware.StaffRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)

	categories := admin.Group("/categories")
	categories.Get("/", s.AdminListCategories)
	categories.Post("/", s.AdminCreateCategory)
	categories.Put("/:id", s.AdminUpdateCategory)
	categories.Patch("/:id", s.AdminPublishCategory)
	categories.Delete("/:id", s.AdminDeleteCategory)

	locations := admin.Group("/locations")
	locations.Get("/", s.AdminListLocations)
	locations.Post("/", s.AdminCreateLocation)
	locations.Put("/:id", s.AdminUpdateLocation)
	locations.Patch("/:id", s.AdminPublishLocation)
	locations.Delete("/:id", s.AdminDeleteLocation)

	adminPosts := admin.Group("/posts")
	adminPosts.Get("/", s.AdminListPosts)
	adminPosts.Patch("/:id", s.AdminPublishPost)
	adminPosts.Delete("/:id", s.AdminDeletePost)

	adminComments := admin.Group("/comments")
	adminComments.Get("/", s.AdminListComments)
	adminComments.Delete("/:id", s.AdminDeleteComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Sessions fall back to the database without Redis.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
