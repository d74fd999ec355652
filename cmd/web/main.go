package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gbroads/roadstatus/internal/config"
	"github.com/gbroads/roadstatus/internal/logger"
	"github.com/gbroads/roadstatus/internal/metrics"
	"github.com/gbroads/roadstatus/internal/remote"
	"github.com/gbroads/roadstatus/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadSite()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Road Status site", zap.String("api", cfg.Site.APIBaseURL))

	// One transport for every browser session
	apiClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	site, err := web.NewSite(web.Options{
		Remote: remote.Options{
			BaseURL:    cfg.Site.APIBaseURL,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Site.RequestTimeout,
			MaxRetries: cfg.Site.MaxRetries,
			HTTPClient: apiClient,
			Logger:     logger.Logger,
		},
		PublicOrigin:  cfg.Site.PublicOrigin,
		RedirectDelay: cfg.Site.RedirectDelay,
		CookieSecure:  cfg.Site.CookieSecure,
		PhotoBucket:   cfg.Storage.PhotoBucket,
	}, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize site", zap.Error(err))
	}

	pages, err := site.Routes()
	if err != nil {
		logger.Logger.Fatal("Failed to build routes", zap.Error(err))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	r := chi.NewRouter()
	r.Use(collector.Middleware)
	r.Handle("/metrics", metrics.Handler(registry))
	r.Mount("/", pages)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Site.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Site.Port), zap.String("origin", cfg.Site.PublicOrigin))
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
