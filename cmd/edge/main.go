package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/velstore/storefront-edge/docs" // Swagger docs (generated)
	"github.com/velstore/storefront-edge/internal/admin"
	"github.com/velstore/storefront-edge/internal/config"
	"github.com/velstore/storefront-edge/internal/cspreport"
	"github.com/velstore/storefront-edge/internal/database"
	edgehttp "github.com/velstore/storefront-edge/internal/http"
	"github.com/velstore/storefront-edge/internal/imageproxy"
	"github.com/velstore/storefront-edge/internal/logging"
	"github.com/velstore/storefront-edge/internal/policy"
	"github.com/velstore/storefront-edge/internal/proxy"
	"github.com/velstore/storefront-edge/internal/ratelimit"
)

// @title           Storefront Edge Gateway
// @version         1.0
// @description     Edge gateway for a server-rendered storefront: route-bucketed security headers, CSP report collection, and image proxying.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the admin session token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(!cfg.App.IsProduction())
	logger.Info("starting edge gateway",
		"env", cfg.App.Env,
		"port", cfg.Server.Port,
		"upstream", cfg.App.UpstreamURL,
	)

	// Security headers are on unless explicitly opted out; make the
	// opt-out loud so it cannot go unnoticed in production.
	if !cfg.Security.HeadersEnabled {
		logger.Warn("SECURITY HEADERS DISABLED via ENABLE_SECURITY_HEADERS=false; responses will carry no hardening headers")
	}

	// Build the header policy once; it is immutable for the process lifetime
	headerPolicy := policy.Build(policy.Flags{
		IsProduction:           cfg.App.IsProduction(),
		SecurityHeadersEnabled: cfg.Security.HeadersEnabled,
		CSPReportURI:           cfg.Security.CSPReportURI,
	})

	// Initialize database connection
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Rate limiter shared by the CSP report sink and admin login
	limiter := ratelimit.NewLimiter(redisClient, cfg.Security.ReportRateLimit, cfg.Security.ReportRateWindow)

	// CSP report sink
	reportRepo := cspreport.NewRepository(db)
	reportHandler := cspreport.NewHandler(reportRepo, limiter, logger, cfg.Security.ReportMaxBytes)

	// Admin API (optional)
	var adminHandler *admin.Handler
	var adminMiddleware *admin.Middleware
	if cfg.Admin.Enabled() {
		pasetoService, err := admin.NewPasetoService(cfg.Admin.PasetoKey)
		if err != nil {
			return fmt.Errorf("failed to initialize PASETO service: %w", err)
		}
		adminHandler = admin.NewHandler(pasetoService, limiter, logger, cfg.Admin.APIKeyHash, cfg.Admin.TokenDuration)
		adminMiddleware = admin.NewMiddleware(pasetoService)
	} else {
		logger.Info("admin API disabled (no ADMIN_API_KEY_HASH configured)")
	}

	// Upstream storefront proxy
	upstreamURL, err := url.Parse(cfg.App.UpstreamURL)
	if err != nil {
		return fmt.Errorf("invalid upstream URL: %w", err)
	}
	upstream := proxy.New(upstreamURL, logger)

	// Image proxy
	imageHandler := imageproxy.NewHandler(cfg.Images, logger)

	// Initialize router
	router := edgehttp.NewRouter(cfg, edgehttp.RouterDeps{
		Policy:     headerPolicy,
		Reports:    reportHandler,
		Admin:      adminHandler,
		AdminAuth:  adminMiddleware,
		ImageProxy: imageHandler,
		Upstream:   upstream,
		Logger:     logger,
	})

	// Initialize HTTP server
	server := edgehttp.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
