package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelagent/config"
	"travelagent/database"
	"travelagent/handlers"
	"travelagent/logger"
	"travelagent/services"
	"travelagent/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load .env file (ignored in production where env vars are set directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl := logger.New(cfg.LogLevel)
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(cfg.TracingEnabled, os.Stdout)
	if err != nil {
		zl.Fatal("failed to set up tracing", zap.Error(err))
	}

	deps := handlers.Deps{Logger: zl, Version: version}

	// ── Location cache (optional) ─────────────────────────────────────────────
	var cache services.Cache
	if cfg.RedisURL != "" {
		rc, err := services.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			zl.Warn("redis unavailable, location cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			cache = rc
			deps.Cache = rc
			zl.Info("location cache enabled", zap.Duration("ttl", cfg.LocationCacheTTL))
		}
	}

	// ── Search history (optional) ─────────────────────────────────────────────
	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		store, err := database.Open(dbCtx, cfg.DatabaseURL, zl)
		cancel()
		if err != nil {
			zl.Error("database unavailable, search history disabled", zap.Error(err))
		} else {
			defer store.Close()
			deps.History = store
		}
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	httpCfg := services.DefaultHTTPConfig()
	httpCfg.Timeout = cfg.UpstreamTimeout
	breaker := services.BreakerSettings{
		Failures:         cfg.BreakerFailures,
		Timeout:          cfg.BreakerTimeout,
		HalfOpenRequests: 1,
	}

	amadeus := services.NewAmadeusClient(services.AmadeusConfig{
		ClientID:     cfg.Amadeus.ClientID,
		ClientSecret: cfg.Amadeus.ClientSecret,
		BaseURL:      cfg.Amadeus.BaseURL,
		HTTP:         httpCfg,
		Breaker:      breaker,
		Cache:        cache,
		CacheTTL:     cfg.LocationCacheTTL,
	}, zl)
	if err := amadeus.Warm(); err != nil {
		zl.Warn("amadeus not ready, its routes will report the error", zap.Error(err))
	} else {
		zl.Info("amadeus authenticated", zap.String("base_url", cfg.Amadeus.BaseURL))
	}

	sherpaHTTP := services.DefaultHTTPConfig()
	sherpaHTTP.Timeout = cfg.Sherpa.Timeout
	sherpa := services.NewSherpaClient(services.SherpaConfig{
		APIKey:  cfg.Sherpa.APIKey,
		BaseURL: cfg.Sherpa.BaseURL,
		HTTP:    sherpaHTTP,
		Breaker: breaker,
	}, zl)
	if !sherpa.Configured() {
		zl.Warn("SHERPA_API_KEY not set, visa requirements will report a configuration error")
	}

	deps.Travel = amadeus
	deps.Visa = sherpa

	// ── HTTP server ───────────────────────────────────────────────────────────
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.NewHandler(deps), zl, cfg.FrontendURLs)
	// Trusted proxies (the hosting platform sits behind a proxy)
	_ = router.SetTrustedProxies([]string{"0.0.0.0/0"})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("travel agent backend starting", zap.String("port", cfg.Port), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Error("tracer shutdown failed", zap.Error(err))
	}
}
