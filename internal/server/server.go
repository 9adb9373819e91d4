// Package server contains the HTML, JSON and WebSocket handlers of the blog.
package server

import (
	"context"
	"errors"
	"log"
	"time"

	_ "scribe/docs" // swagger docs
	"scribe/internal/auth"
	"scribe/internal/bootstrap"
	"scribe/internal/config"
	"scribe/internal/featureflags"
	"scribe/internal/mail"
	"scribe/internal/middleware"
	"scribe/internal/models"
	"scribe/internal/notifications"
	"scribe/internal/repository"
	"scribe/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Feature flags read from FEATURE_FLAGS, checked per visitor. Both are on
// unless listed; a percentage rolls out to signed-in users only.
const (
	FlagLiveFeed = "live_feed"
	FlagAPIDocs  = "api_docs"
)

// Deps are the already-initialized dependencies of a Server.
type Deps struct {
	Store  *repository.Store
	Redis  *redis.Client
	Mailer mail.Mailer
	Nats   *notifications.NatsMirror
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *repository.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *auth.TokenManager
	revoker        auth.Revoker
	notifier       *notifications.Notifier
	hub            *notifications.FeedHub
	nats           *notifications.NatsMirror
	postService    *service.PostService
	userService    *service.UserService
	sessions       *service.SessionService
	flags          *featureflags.Manager
}

// NewServer connects the configured store, Redis, mail and NATS and returns
// a ready Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewMailer(cfg, middleware.Logger)
	if err != nil {
		return nil, err
	}

	mirror, err := notifications.ConnectNats(cfg.NatsURL)
	if err != nil {
		log.Printf("NATS unavailable, feed events stay local: %v", err)
		mirror = nil
	}

	return NewServerWithDeps(cfg, Deps{
		Store:  store,
		Redis:  rdb,
		Mailer: mailer,
		Nats:   mirror,
	})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = mail.NewLogMailer(middleware.Logger)
	}

	tokens := auth.NewTokenManager(cfg.SecretKey, cfg.ResetTokenTTL())
	revoker := auth.NewRedisRevoker(deps.Redis)
	posts := repository.NewCachedPostRepository(deps.Store.Posts)

	s := &Server{
		config:         cfg,
		store:          deps.Store,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("scribe"),
		tokens:         tokens,
		revoker:        revoker,
		notifier:       notifications.NewNotifier(deps.Redis),
		hub:            notifications.NewFeedHub(),
		nats:           deps.Nats,
		flags:          featureflags.NewManager(cfg.FeatureFlags),
	}

	broker := notifications.NewBroker(s.hub, s.notifier, s.nats)
	s.postService = service.NewPostService(posts, deps.Store.Users, broker)
	s.userService = service.NewUserService(deps.Store.Users, tokens, mailer, cfg.BaseURL)
	s.sessions = service.NewSessionService(tokens, revoker, cfg.SessionTTL(), cfg.RememberTTL())

	return s, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() (*fiber.App, error) {
	engine := newViews()
	if err := engine.Load(); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName: "Scribe",
		Views:   engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).SendString(fe.Message)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
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

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = s.config.BaseURL
	}
	app.Use("/api", cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
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
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests. Please try again later.")
		},
	}))

	// Resolve the session cookie for every request
	app.Use(middleware.CurrentUser(middleware.SessionConfig{
		Tokens:  s.tokens,
		Revoker: s.revoker,
		Secure:  s.config.IsProduction(),
	}))

	// Form posts carry a CSRF token; JSON and probes are exempt.
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:" + csrfField,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		CookieSecure:   s.config.IsProduction(),
		Expiration:     1 * time.Hour,
		ContextKey:     csrfContextKey,
		Next: func(c *fiber.Ctx) bool {
			return s.config.Env == "test" || isMachinePath(c.Path())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Pages
	app.Get("/", s.Home)
	app.Get("/about", s.About)

	// Accounts
	app.Get("/register", s.RegisterPage)
	app.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)
	app.Get("/account", middleware.LoginRequired, s.AccountPage)
	app.Post("/account", middleware.LoginRequired, s.UpdateAccount)
	app.Get("/reset_password", s.RequestResetPage)
	app.Post("/reset_password", middleware.RateLimit(s.redis, 3, 10*time.Minute, "reset"), s.RequestReset)
	app.Get("/reset_password/:token", s.ResetPasswordPage)
	app.Post("/reset_password/:token", s.ResetPassword)

	// Posts
	app.Get("/posts/add", middleware.LoginRequired, s.NewPostPage)
	app.Post("/posts/add", middleware.LoginRequired, middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	app.Get("/post/:id", s.ShowPost)
	app.Get("/post/:id/update", middleware.LoginRequired, s.EditPostPage)
	app.Post("/post/:id/update", middleware.LoginRequired, s.UpdatePost)
	app.Post("/post/:id/delete", middleware.LoginRequired, s.DeletePost)

	// JSON API
	api := app.Group("/api")
	api.Get("/swagger/*", s.requireFlag(FlagAPIDocs), swagger.HandlerDefault)
	api.Get("/posts", s.APIPosts)
	api.Get("/users", s.APIUsers)
	api.Get("/users/:id/posts", s.APIUserPosts)

	// Live feed
	app.Get("/ws/feed", s.requireFlag(FlagLiveFeed), s.FeedUpgrade, s.FeedWebSocket())
}

// requireFlag answers 404 unless flag is on for the current visitor.
// Unlisted flags are on.
func (s *Server) requireFlag(flag string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.flags.EnabledOr(flag, middleware.UserID(c), true) {
			return fiber.ErrNotFound
		}
		return c.Next()
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	// Redis backs caching and rate limits, both of which degrade gracefully.
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store":  storeStatus,
			"driver": s.store.Driver,
			"redis":  redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app, err := s.NewApp()
	if err != nil {
		return err
	}
	s.app = app

	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the feed subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.store.Close(ctx); err != nil {
		log.Printf("error closing store: %v", err)
	}

	s.nats.Close()

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
