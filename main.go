package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/opencare/triage/api"
	"github.com/opencare/triage/config"
	"github.com/opencare/triage/domain"
	"github.com/opencare/triage/extract"
	"github.com/opencare/triage/logger"
	"github.com/opencare/triage/orchestrator"
	"github.com/opencare/triage/policy"
	"github.com/opencare/triage/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting triage orchestrator",
		"http_port", cfg.HTTPPort,
		"internal_port", cfg.InternalPort,
		"database", cfg.DatabaseURL,
		"extractor_url", cfg.ExtractorURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to initialize store", "error", err)
	}
	defer db.Close()

	// Initialize extraction client
	extractor := extract.NewExtractor(cfg.ExtractorURL, cfg.ExtractorAPIKey, cfg.ExtractorModel, cfg.ExtractorTimeout)

	// Initialize disposition policy engine
	policyContent := policy.DefaultPolicy
	if cfg.PolicyPath != "" {
		content, err := os.ReadFile(cfg.PolicyPath)
		if err != nil {
			log.Fatal("failed to read policy file", "path", cfg.PolicyPath, "error", err)
		}
		policyContent = string(content)
	}
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatal("failed to initialize policy engine", "error", err)
	}

	// Initialize orchestrator
	orch := orchestrator.New(db, extractor, policyEngine, domain.DefaultSlotDefinitions(), cfg, log)

	// Initialize handlers
	h := api.NewHandler(db, orch, log)

	// Create public Echo server (webhook for the message transport)
	publicServer := echo.New()
	publicServer.HideBanner = true
	publicServer.Use(middleware.Recover())
	h.RegisterPublicRoutes(publicServer)

	// Create internal Echo server (read-only query surface)
	internalServer := echo.New()
	internalServer.HideBanner = true
	internalServer.Use(middleware.Recover())
	h.RegisterInternalRoutes(internalServer)

	// Start public server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := publicServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start public server", "error", err)
		}
	}()

	// Start internal server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		if err := internalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start internal server", "error", err)
		}
	}()

	log.Info("webhook listening", "port", cfg.HTTPPort)
	log.Info("query API listening", "port", cfg.InternalPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := publicServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown public server gracefully", "error", err)
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown internal server gracefully", "error", err)
	}

	log.Info("stopped")
}
