// Package server contains the HTTP handlers and routing for the API.
package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"twitthon/internal/config"
	"twitthon/internal/middleware"
	"twitthon/internal/models"
	"twitthon/internal/observability"
	"twitthon/internal/repository"
	"twitthon/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	followRepo     repository.FollowRepository
	likeRepo       repository.LikeRepository
	tokenService   *service.TokenService
	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
	followService  *service.FollowService
	likeService    *service.LikeService
	feedService    *service.FeedService
	imageService   *service.ImageService
	rateLimiter    *middleware.RateLimiter
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer establishes DB and Redis; tests pass SQLite and
// miniredis. A nil redis client disables caching and token revocation.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		likeRepo:       repository.NewLikeRepository(db),
	}

	s.rateLimiter = middleware.NewRateLimiter(redisClient, cfg.EnforcesRateLimits())
	s.tokenService = service.NewTokenService(cfg, redisClient)
	s.authService = service.NewAuthService(s.userRepo, s.tokenService)
	s.userService = service.NewUserService(s.userRepo)
	s.imageService = service.NewImageService(cfg)
	s.postService = service.NewPostService(s.postRepo, s.likeRepo, s.imageService)
	s.followService = service.NewFollowService(s.userRepo, s.followRepo)
	s.likeService = service.NewLikeService(s.likeRepo)
	s.feedService = service.NewFeedService(s.postRepo)

	return s, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	maxUpload := s.config.ImageMaxUploadSizeMB
	if maxUpload <= 0 {
		maxUpload = service.DefaultImageMaxUploadSizeMB
	}

	app := fiber.New(fiber.Config{
		AppName:     "Twitthon API",
		BodyLimit:   (maxUpload + 1) * 1024 * 1024,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(models.ExposeDetailsLocal, !s.config.IsProduction())
		return c.Next()
	})

	// Tracing runs before ContextMiddleware so the trace ID reaches the
	// user context.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS
	// headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application. Fiber routing is
// not strict, so every path also matches with a trailing slash.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	mediaURL := s.config.MediaURL
	if mediaURL == "" {
		mediaURL = "/media"
	}
	app.Static(mediaURL, s.imageService.Root())

	api := app.Group("/api/v1")

	// Public auth routes
	// Credential endpoints stop accepting requests in production when their
	// counters cannot be kept.
	strict := s.config.IsProduction()
	api.Post("/users/login", s.rateLimiter.Handler(middleware.RateLimitRule{
		Name: "login", Limit: 10, Window: 5 * time.Minute, FailClosed: strict,
	}), s.Login)
	api.Post("/users/register", s.rateLimiter.Handler(middleware.RateLimitRule{
		Name: "register", Limit: 5, Window: 10 * time.Minute, FailClosed: strict,
	}), s.Register)
	api.Post("/users/logout", s.Logout)
	api.Post("/token/refresh", s.Refresh)

	protected := api.Group("", middleware.AuthRequired(s.tokenService))

	// Static /users/<name> routes are registered before the parameterised
	// ones.
	users := protected.Group("/users")
	users.Get("/feed", s.GetFeed)
	users.Get("/follows", s.ListFollows)
	users.Get("/:identifier/info", s.GetUserInfo)
	users.Get("/:identifier/posts", s.GetUserPosts)
	users.Get("/:identifier/following-status", s.GetFollowingStatus)
	users.Post("/:username/follow", s.FollowUser)
	users.Delete("/:username/follow", s.UnfollowUser)

	posts := protected.Group("/posts")
	posts.Post("/", s.rateLimiter.Handler(middleware.RateLimitRule{
		Name: "create_post", Limit: 30, Window: time.Minute,
	}), s.CreatePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Patch("/:id/edit", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports ready when the database answers a ping. Redis is
// reported but optional.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and blocks serving on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
