package router

import (
	"app/internal/api/v1/handler"
	"app/internal/clock"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection pool. Subscriptions each hold a dedicated listen
	// connection from this pool, so it must be sized above the expected number
	// of concurrent streaming sessions.
	dsn := cfg.DatabaseURL
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to parse DB connection string: %v", err)
		return nil, nil, err
	}
	poolCfg.MaxConns = 50

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection pool: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client for report exports
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for domain events
	pubSubPublisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		return nil, nil, err
	}

	// 5. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	entitlementRepo := repository.NewEntitlementRepo(pool)
	featureRepo := repository.NewFeatureRepo(pool)
	reportRepo := repository.NewReportRepo(pool)

	clk := clock.SystemClock{}

	userSvc := service.NewUserService(userRepo, entitlementRepo)
	entitlementSvc := service.NewEntitlementService(entitlementRepo, pubSubPublisher, cfg.EventsTopic, clk, logger)
	adminSvc := service.NewAdminService(entitlementRepo, featureRepo, pubSubPublisher, cfg.EventsTopic, clk, logger)
	reportSvc := service.NewReportService(reportRepo, s3Client, cfg.S3Bucket, logger)

	featureRegistry := service.NewFeatureRegistry(featureRepo, logger)
	if err := featureRegistry.Start(ctx); err != nil {
		logger.Fatal().Msgf("Failed to start feature registry: %v", err)
		return nil, nil, err
	}

	userHandler := handler.NewUserHandler(userSvc, validate)
	entitlementHandler := handler.NewEntitlementHandler(entitlementSvc, validate, logger)
	featureHandler := handler.NewFeatureHandler(featureRegistry, logger)
	adminHandler := handler.NewAdminHandler(adminSvc, validate, logger)
	reportHandler := handler.NewReportHandler(reportSvc, validate, logger)
	sweepHandler := handler.NewSweepHandler(entitlementSvc, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.SweepEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /api/v1 prefix
	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	entitlementHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	featureHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	reportHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	sweepHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Add Swagger documentation
	mux.HandleFunc("/swagger/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger/swagger.json")
	})
	mux.Handle("/swagger/", http.StripPrefix("/swagger/", http.FileServer(http.Dir("./docs/swagger/swagger-ui"))))

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Avoid redirect loops by checking if already under /v1 or /swagger or /api
		if strings.HasPrefix(r.URL.Path, "/v1/") || strings.HasPrefix(r.URL.Path, "/swagger/") || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins for development
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		// This makes the client more robust, especially for operations like presigned URLs
		// that might inspect the middleware stack.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
