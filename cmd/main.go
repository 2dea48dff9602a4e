package main

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shiftpool-service/internal/audit"
	"shiftpool-service/internal/docstore"
	"shiftpool-service/internal/export"
	"shiftpool-service/internal/handler"
	"shiftpool-service/internal/middleware"
	"shiftpool-service/internal/notify"
	"shiftpool-service/internal/poolindex"
	"shiftpool-service/internal/scheduling"
	"shiftpool-service/internal/store/gormstore"
	"shiftpool-service/pkg/config"
	"shiftpool-service/pkg/database"
	"shiftpool-service/pkg/jwtutil"
	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("shiftpool-service")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting shiftpool service...", zap.String("environment", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize database and run migrations
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(gormstore.Models()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.DB.Host), zap.String("db_name", cfg.DB.DBName))

	st := gormstore.New(db, cfg.Store.MaxTxRetries)

	// Public pool index: per-tenant scan by default, redis write-through
	// cache when configured
	var index scheduling.PublicShiftIndex = poolindex.NewScan(st)
	if cfg.PoolIndex.Driver == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.PoolIndex.RedisAddr,
			Password: cfg.PoolIndex.RedisPassword,
			DB:       cfg.PoolIndex.RedisDB,
		})
		index = poolindex.NewRedis(client, st, cfg.PoolIndex.TTL)
		log.Info("Public pool index using redis", zap.String("addr", cfg.PoolIndex.RedisAddr))
	}

	// Document blob storage with HMAC-signed download links
	docs := docstore.NewLocal(cfg.Documents.Dir, cfg.Documents.BaseURL, []byte(cfg.Documents.SigningKey))

	services := scheduling.New(scheduling.Config{
		Store:          st,
		Members:        st,
		Freelancers:    st,
		Audit:          audit.NewStoreSink(st),
		Notifier:       notify.NewLogDispatcher(),
		PoolIndex:      index,
		Documents:      docs,
		MaxUploadBytes: cfg.Documents.MaxUploadBytes,
		DocumentURLTTL: cfg.Documents.URLTTL,
	})

	handler.Init(handler.Deps{
		Services: services,
		Roster:   export.NewRoster(st),
		Docs:     docs,
	})
	log.Info("Scheduling services initialized", zap.String("pool_index", cfg.PoolIndex.Driver))

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process request
			err := next(c)

			// Log request details
			log := logger.FromEcho(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Float64("duration_s", time.Since(start).Seconds()),
				zap.String("ip", c.RealIP()),
			)

			return err
		}
	})

	// Routes
	// Public routes that don't require authentication
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Public pool browsing and signed document downloads
	e.GET("/public/pool", handler.PublicPool)
	e.GET("/public/pool/:id", handler.PublicPoolShift)
	e.GET("/documents/download", handler.DownloadDocument)

	// API routes that require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Freelancer endpoints operating across tenants
	freelancer := api.Group("/public")
	freelancer.Use(middleware.RequireFreelancer)
	freelancer.POST("/pool/:id/apply", handler.ApplyPublic)
	freelancer.GET("/applications", handler.FreelancerApplications)
	freelancer.GET("/my-shifts", handler.FreelancerShifts)

	// Tenant endpoints; manager-only routes carry an extra role check
	tenant := api.Group("")
	tenant.Use(middleware.RequireTenantContext)

	tenant.POST("/shifts", handler.CreateShift, middleware.RequireManager)
	tenant.GET("/shifts", handler.ListShifts, middleware.RequireManager)
	tenant.GET("/shifts/:id", handler.GetShift)
	tenant.PUT("/shifts/:id", handler.UpdateShift, middleware.RequireManager)
	tenant.DELETE("/shifts/:id", handler.DeleteShift, middleware.RequireManager)

	tenant.POST("/shifts/:id/publish", handler.PublishShift, middleware.RequireManager)
	tenant.POST("/shifts/:id/close", handler.CloseShift, middleware.RequireManager)
	tenant.POST("/shifts/:id/cancel", handler.CancelShift, middleware.RequireManager)
	tenant.POST("/shifts/:id/complete", handler.CompleteShift)

	tenant.GET("/shifts/:id/applications", handler.ListShiftApplications, middleware.RequireManager)
	tenant.GET("/shifts/:id/assignees", handler.ListAssignees, middleware.RequireManager)
	tenant.POST("/shifts/:id/apply", handler.ApplyToShift)
	tenant.DELETE("/shifts/:id/application", handler.WithdrawApplicationByShift)
	tenant.POST("/shifts/:id/assignments", handler.AssignWorker, middleware.RequireManager)

	tenant.GET("/pool", handler.ListTenantPool)
	tenant.GET("/my/shifts", handler.ListMyShifts)

	tenant.POST("/applications/:id/accept", handler.AcceptApplication, middleware.RequireManager)
	tenant.POST("/applications/:id/reject", handler.RejectApplication, middleware.RequireManager)
	tenant.POST("/applications/:id/unreject", handler.UnrejectApplication, middleware.RequireManager)
	tenant.POST("/applications/:id/revoke", handler.RevokeApplication, middleware.RequireManager)
	tenant.DELETE("/applications/:id", handler.WithdrawApplication)
	tenant.DELETE("/assignments/:id", handler.RemoveAssignment, middleware.RequireManager)

	tenant.POST("/shifts/:id/time-entries", handler.CreateTimeEntry)
	tenant.PUT("/time-entries/:id", handler.UpdateTimeEntry)
	tenant.GET("/shifts/:id/time-entries", handler.ListTimeEntries, middleware.RequireManager)

	tenant.POST("/shifts/:id/documents", handler.UploadDocument, middleware.RequireManager)
	tenant.GET("/shifts/:id/documents", handler.ListDocuments)
	tenant.GET("/documents/:id/url", handler.DocumentURL)
	tenant.DELETE("/documents/:id", handler.DeleteDocument, middleware.RequireManager)

	tenant.GET("/export/roster", handler.ExportRoster, middleware.RequireManager)
	tenant.GET("/shifts/:id/audit", handler.ShiftAuditTrail, middleware.RequireManager)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
