package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/gbroads/roadstatus/docs"
	"github.com/gbroads/roadstatus/internal/auth/middleware"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/config"
	"github.com/gbroads/roadstatus/internal/handlers"
	"github.com/gbroads/roadstatus/internal/logger"
	loggerMiddleware "github.com/gbroads/roadstatus/internal/logger/middleware"
	"github.com/gbroads/roadstatus/internal/metrics"
	sharedMiddleware "github.com/gbroads/roadstatus/internal/middlewares"
	"github.com/gbroads/roadstatus/internal/oauth"
	"github.com/gbroads/roadstatus/internal/repositories"
	"github.com/gbroads/roadstatus/internal/security"
	"github.com/gbroads/roadstatus/internal/services"
	"github.com/gbroads/roadstatus/internal/sms"
	"github.com/gbroads/roadstatus/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// maxPhotoSize is the largest accepted report photo
const maxPhotoSize = 8 << 20 // 8MB

// @title Gilgit-Baltistan Road Status API
// @version 1.0
// @description Remote Data Service for the road status site: authentication, road catalog, reports and photo storage

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Road Status API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis (OTP codes, OAuth state, one-time codes)
	rdb, err := connectRedis(cfg.Redis)
	if err != nil {
		logger.Logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Initialize object storage
	objectStore, err := newObjectStorage(cfg.Storage)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Initialize JWT token generator
	tokenGenerator := service.NewTokenGenerator(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)
	userTokenRepo := repositories.NewUserTokenRepository(db)
	userIdentityRepo := repositories.NewUserIdentityRepository(db)
	roadRepo := repositories.NewRoadRepository(db, logger.Logger)
	segmentRepo := repositories.NewRoadSegmentRepository(db, logger.Logger)
	reportRepo := repositories.NewRoadReportRepository(db, logger.Logger)
	otpStore := repositories.NewOTPStore(rdb)
	stateStore := repositories.NewOneTimeStore(rdb, "oauth:state:")
	exchangeStore := repositories.NewOneTimeStore(rdb, "oauth:exchange:")

	// Initialize services
	sanitizer := security.NewTextSanitizer()
	issuer := services.NewSessionIssuer(tokenGenerator, userTokenRepo, cfg.Admin.EmailSuffix)
	authService := services.NewAuthService(userRepo, userTokenRepo, issuer, tokenGenerator, sanitizer, collector, logger.Logger)
	oauthService := services.NewOAuthService(
		oauthProviders(cfg),
		stateStore,
		exchangeStore,
		userRepo,
		userIdentityRepo,
		issuer,
		sanitizer,
		collector,
		logger.Logger,
		cfg.OAuth.AllowedRedirectOrigins,
	)
	otpService := services.NewOTPService(otpStore, sms.NewLogProvider(logger.Logger), userRepo, issuer, collector, logger.Logger, services.OTPOptions{
		TTL:          cfg.OTP.TTL,
		Length:       cfg.OTP.Length,
		SendInterval: cfg.OTP.SendInterval,
		SendBurst:    cfg.OTP.SendBurst,
		MaxAttempts:  cfg.OTP.MaxAttempts,
	})
	catalogService := services.NewCatalogService(roadRepo, segmentRepo, logger.Logger)
	storageService := services.NewStorageService(objectStore, collector, logger.Logger, cfg.Storage.PhotoBucket, maxPhotoSize, cfg.PublicBaseURL)
	reportService := services.NewReportService(
		reportRepo,
		roadRepo,
		segmentRepo,
		sanitizer,
		collector,
		logger.Logger,
		storageService.PublicBucketURL(cfg.Storage.PhotoBucket),
	)
	exportService := services.NewExportService(reportRepo, logger.Logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, oauthService, otpService, logger.Logger)
	catalogHandler := handlers.NewCatalogHandler(catalogService, logger.Logger)
	reportHandler := handlers.NewReportHandler(reportService, exportService, logger.Logger)
	storageHandler := handlers.NewStorageHandler(storageService, maxPhotoSize, logger.Logger)

	// Initialize auth middleware
	authMiddleware := middleware.AuthMiddleware(tokenGenerator)
	apiKeyMiddleware := middleware.APIKeyMiddleware(cfg.APIKey)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(cfg.Server.MaxRequestSize))
	r.Use(collector.Middleware)

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("%s/swagger/doc.json", cfg.PublicBaseURL)),
	))
	r.Handle("/metrics", metrics.Handler(registry))

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		// Routes browsers reach directly, without the API key
		authHandler.RegisterPublicRoutes(r)
		storageHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			authHandler.RegisterRoutes(r, authMiddleware)
			catalogHandler.RegisterRoutes(r)
			reportHandler.RegisterRoutes(r, authMiddleware)
			storageHandler.RegisterRoutes(r, authMiddleware)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// connectRedis connects to Redis and checks the connection
func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// newObjectStorage selects the configured storage backend
func newObjectStorage(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Backend != config.StorageBackendMinIO {
		logger.Logger.Info("Using local object storage", zap.String("path", cfg.LocalPath))
		return storage.NewLocalStorage(cfg.LocalPath), nil
	}

	store, err := storage.NewMinIOStorage(storage.MinIOOptions{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		UseSSL:    cfg.MinIO.UseSSL,
		Region:    cfg.MinIO.Region,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx, cfg.PhotoBucket); err != nil {
		return nil, err
	}

	logger.Logger.Info("Using MinIO object storage", zap.String("endpoint", cfg.MinIO.Endpoint))
	return store, nil
}

// oauthProviders returns the providers that have a client ID configured
func oauthProviders(cfg *config.Config) map[string]oauth.Provider {
	providers := map[string]oauth.Provider{}
	redirectURL := cfg.PublicBaseURL + "/api/v1/auth/callback"

	if cfg.OAuth.Google.ClientID != "" {
		providers[oauth.ProviderGoogle] = oauth.NewGoogleProvider(oauth.Config{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  redirectURL,
		})
	}
	if cfg.OAuth.Facebook.ClientID != "" {
		providers[oauth.ProviderFacebook] = oauth.NewFacebookProvider(oauth.Config{
			ClientID:     cfg.OAuth.Facebook.ClientID,
			ClientSecret: cfg.OAuth.Facebook.ClientSecret,
			RedirectURL:  redirectURL,
		})
	}

	for name := range providers {
		logger.Logger.Info("OAuth provider enabled", zap.String("provider", name))
	}
	return providers
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "roadstatus_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
