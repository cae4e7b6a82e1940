// Package server contains the HTTP handlers for the escrow API.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/featureflags"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/repository"
	"atelier/internal/service"
	"atelier/internal/sweep"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	projectRepo    repository.ProjectRepository
	milestoneRepo  repository.MilestoneRepository
	paymentRepo    repository.PaymentRequestRepository
	reviewRepo     repository.ReviewRepository
	folderRepo     repository.FolderRepository
	notifier       *notifications.Notifier
	escrowService  *service.EscrowService
	roadmapService *service.RoadmapService
	sweeper        *sweep.Sweeper
	flags          *featureflags.Manager
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	projectRepo := repository.NewProjectRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	paymentRepo := repository.NewPaymentRequestRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	folderRepo := repository.NewFolderRepository(db)

	prom := middleware.InitMetrics("atelier-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		projectRepo:    projectRepo,
		milestoneRepo:  milestoneRepo,
		paymentRepo:    paymentRepo,
		reviewRepo:     reviewRepo,
		folderRepo:     folderRepo,
		flags:          featureflags.NewManager(cfg.FeatureFlags),
	}

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	server.escrowService = service.NewEscrowService(
		db, server.notifier, service.SystemClock(),
		cfg.ReviewWindow(), cfg.DisputeRejectionThreshold)
	server.roadmapService = service.NewRoadmapService(
		projectRepo, milestoneRepo, paymentRepo, reviewRepo, folderRepo,
		server.escrowService)
	server.sweeper = sweep.NewSweeper(
		milestoneRepo, server.escrowService, service.SystemClock(), cfg.SweepSchedule)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing (spans carry request ID and, post-auth, user ID)
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Atelier Escrow Metrics Dashboard",
	}))

	// All escrow routes require an authenticated actor. Token issuance lives
	// in the identity service; this API only validates bearer tokens.
	protected := api.Group("", middleware.AuthRequired, middleware.ContextMiddleware())

	// Rollout flags evaluated for the calling user
	protected.Get("/flags", s.GetFeatureFlags)

	// Project routes
	projects := protected.Group("/projects")
	projects.Post("/", s.CreateProject)
	projects.Get("/", s.ListProjects)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	projects.Get("/:id/milestones", s.ListMilestones)
	projects.Post("/:id/milestones", s.CreateMilestone)
	projects.Get("/:id", s.GetProject)

	// Milestone lifecycle routes
	milestones := protected.Group("/milestones")
	milestones.Post("/:id/start", s.StartMilestone)
	milestones.Post("/:id/complete", s.CompleteMilestone)
	milestones.Post("/:id/request-payment", middleware.RateLimit(
		s.redis, 10, time.Minute, "request_payment"), s.RequestPayment)
	milestones.Post("/:id/open-dispute", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "open_dispute"), s.OpenDispute)
	milestones.Post("/:id/resolve-dispute", s.AdminRequired(), s.ResolveDispute)
	milestones.Post("/:id/folder", s.CreateFolder)
	milestones.Get("/:id/folder", s.GetFolder)
	// Generic /:id routes (for item detail, update, delete)
	milestones.Get("/:id", s.GetMilestone)
	milestones.Put("/:id", s.UpdateMilestone)
	milestones.Delete("/:id", s.DeleteMilestone)

	// Payment request decision routes
	paymentRequests := protected.Group("/payment-requests")
	paymentRequests.Post("/:id/approve", s.ApprovePayment)
	paymentRequests.Post("/:id/reject", s.RejectPayment)
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
		// Notifications degrade gracefully without Redis; readiness only
		// requires the database.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
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

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Admin access required"))
		}

		return c.Next()
	}
}

// GetFeatureFlags returns every rollout flag evaluated for the calling user.
// @Summary Feature flags
// @Tags meta
// @Router /flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{"flags": s.flags.Snapshot(userID)})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Atelier Escrow API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.config.SweepEnabled {
		if err := s.sweeper.Start(s.shutdownCtx); err != nil {
			return fmt.Errorf("starting review-deadline sweep: %w", err)
		}
	}

	// Mirror every published lifecycle event into the structured log so
	// operators have an audit trail even without a downstream consumer.
	if s.notifier != nil {
		err := s.notifier.StartEventSubscriber(s.shutdownCtx, func(channel, payload string) {
			slog.Info("Escrow event", "channel", channel, "payload", payload)
		})
		if err != nil {
			log.Printf("event subscriber not started: %v", err)
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.config.SweepEnabled && s.sweeper != nil {
		s.sweeper.Stop()
	}

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
