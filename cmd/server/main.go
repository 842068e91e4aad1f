package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tradeops_app_go/config"
	"tradeops_app_go/db"
	"tradeops_app_go/handlers"
	"tradeops_app_go/logger"
	"tradeops_app_go/middleware"
	"tradeops_app_go/models"
	"tradeops_app_go/services"
	"tradeops_app_go/services/docgen"
	"tradeops_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	services.InitializeStorage(cfg)

	// Document pipeline
	var store docgen.TemplateStore = docgen.DirStore{Root: cfg.TemplateDir}
	if cfg.TemplateSource == config.TemplateSourceStorage {
		store = services.StorageTemplateStore{Provider: services.Storage}
	}
	registry := docgen.NewRegistry(store)
	converter := docgen.NewOfficeConverter(cfg.SofficePath, cfg.TempDir, cfg.ConversionTimeout, zlog.Named("converter"))
	if path, err := converter.ResolveExecutable(); err != nil {
		zlog.Warn("PDF conversion unavailable, only docx output will work", zap.Error(err))
	} else {
		zlog.Info("PDF conversion engine found", zap.String("path", path))
	}

	tax := docgen.TaxPolicy{Rate: cfg.VATRate, Currencies: cfg.VATCurrencies}
	generator := docgen.NewGenerator(registry, converter, tax, zlog.Named("docgen"))
	documents := services.NewDocumentService(db.DB, generator, services.Storage, cfg, zlog.Named("documents"))

	scheduler, err := jobs.StartScheduler(db.DB, services.Storage, cfg)
	if err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	// Middleware
	e.Use(echomiddleware.RequestID())
	e.Use(logger.RequestLogger(zlog))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, middleware.HeaderCompany, "X-User"},
	}))

	e.GET("/healthz", handlers.HealthHandler(db.DB, converter))

	// Company scoped API
	api := e.Group("/api")
	api.Use(middleware.RequireCompany(db.DB))
	api.Use(middleware.APIRateLimiter.Middleware())
	handlers.NewDocumentHandler(documents).Register(api)

	// Template admin is local-only in production
	if cfg.Environment != "production" {
		e.POST("/admin/templates/reload", handlers.ReloadTemplatesHandler(registry))
		e.POST("/admin/templates", handlers.UploadTemplateHandler(cfg, services.Storage, registry))
	}

	// Start server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	<-scheduler.Stop().Done()

	// Give in-flight conversions time to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ConversionTimeout+5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
