package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/api/v1/router"
	"app/internal/config"
	"app/internal/logger"
	"app/internal/service"

	_ "app/docs"

	"github.com/joho/godotenv"
)

// @title Entitlements API
// @version 1.0
// @description Entitlement and usage metering API documentation
// @host localhost:8080
// @BasePath /api/v1
// @Schemes http https

func main() {
	logger := logger.New()

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx := context.Background()

	// 2. Resolve the JWT secret. Outside development it may live in Secret
	// Manager rather than the environment.
	if cfg.JWTSecret == "" && cfg.Environment != "development" {
		sm, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
		}
		secret, err := sm.GetSecret(ctx, cfg.JWTSecretName)
		if err != nil {
			logger.Fatal().Msgf("Failed to load JWT secret %q: %v", cfg.JWTSecretName, err)
		}
		cfg.JWTSecret = secret
	}
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET must be set in development")
	}

	// 3. Build router (and get DB connection pool)
	r, pool, err := router.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}
	defer pool.Close()

	// 4. Create HTTP server. WriteTimeout stays unset: the entitlement and
	// feature stream endpoints hold their responses open indefinitely.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// 5. Start server in a goroutine
	go func() {
		logger.Info().Msgf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s\n", err)
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Msgf("Server forced to shutdown: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}
