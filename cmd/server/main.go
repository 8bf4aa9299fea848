package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spatalkback/talkback/internal/api"
	"github.com/spatalkback/talkback/internal/captcha"
	"github.com/spatalkback/talkback/internal/config"
	"github.com/spatalkback/talkback/internal/database"
	"github.com/spatalkback/talkback/internal/database/repository"
	"github.com/spatalkback/talkback/internal/database/service"
	internalgrpc "github.com/spatalkback/talkback/internal/grpc"
	"github.com/spatalkback/talkback/internal/handler"
	"github.com/spatalkback/talkback/internal/logger"
	"github.com/spatalkback/talkback/internal/metrics"
	"github.com/spatalkback/talkback/internal/middleware"
	"github.com/spatalkback/talkback/internal/scheduler"
	"github.com/spatalkback/talkback/internal/spa"
	"github.com/spatalkback/talkback/internal/storage"
	"github.com/spatalkback/talkback/internal/worker"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		slog.Error("❌ Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Go] Starting talk back API...",
		"environment", cfg.AppEnv,
		"api_base_url", cfg.APIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to Database
	db, err := database.ConnectDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// 5. Initialize Redis Client (captchas + rate limiting)
	var (
		captchaStore captcha.Store
		rateLimiter  middleware.RateLimiter
	)
	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis", "error", err)
		appLogger.Info("💡 Captchas are kept in memory and login attempts are not limited")
		captchaStore = captcha.NewMemoryStore()
		rateLimiter = middleware.NewNoOpRateLimiter(appLogger)
	} else {
		captchaStore = captcha.NewRedisStore(redisClient)
		rateLimiter = middleware.NewRateLimiter(redisClient, appLogger)
	}
	defer rateLimiter.Close()

	// 6. Attachment storage and background workers
	files, err := storage.New(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	pool := worker.NewPool(appLogger)
	defer pool.Shutdown(30 * time.Second)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, captchaStore, files, pool, cfg, appLogger)
	postService := service.NewPostService(postRepo, commentRepo, files, pool, cfg, appLogger)
	commentService := service.NewCommentService(commentRepo, postRepo, files, pool, cfg, appLogger)

	// 8. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, cfg.MaxFileSize, appLogger)
	postHandler := handler.NewPostHandler(postService, commentService, cfg.MaxFileSize, appLogger)
	commentHandler := handler.NewCommentHandler(commentService, cfg.MaxFileSize, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	// 9. Mount the SPA shell
	host, err := spa.NewHost(spa.Config{APIBaseURL: cfg.APIBaseURL}, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to load SPA shell", "error", err)
		os.Exit(1)
	}
	appOpts := []spa.Option{}
	if cfg.SPALightbox {
		appOpts = append(appOpts, spa.WithLightbox(host))
	}
	if err := spa.NewApp(host, appOpts...).Bootstrap(); err != nil {
		appLogger.Error("❌ Failed to mount SPA", "error", err)
		os.Exit(1)
	}

	// 10. Metrics and scheduled jobs
	var appMetrics *metrics.Metrics
	var observer scheduler.TaskObserver
	if cfg.MetricsEnabled {
		appMetrics = metrics.New()
		observer = appMetrics
	}

	sched, err := scheduler.New(observer, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sweepEvery := time.Duration(cfg.TokenSweepInterval) * time.Second
	if err := sched.Every("refresh-token-sweep", sweepEvery, scheduler.TokenSweep(refreshTokenRepo, appLogger)); err != nil {
		appLogger.Error("❌ Failed to schedule token sweep", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// 11. Router
	mediaRoot := ""
	if cfg.StorageDriver == storage.DriverLocal || cfg.StorageDriver == "" {
		mediaRoot = cfg.UploadDir
	}
	r := api.SetupRouter(authHandler, postHandler, commentHandler, authMiddleware, api.Options{
		Limiter:         rateLimiter,
		LoginDailyLimit: cfg.LoginDailyLimit,
		Metrics:         appMetrics,
		MediaURL:        cfg.MediaURL,
		MediaRoot:       mediaRoot,
		SPA:             host,
		Logger:          appLogger,
	})

	// 12. Start gRPC health server
	healthServer := internalgrpc.NewHealthServer(appLogger)
	go func() {
		if err := healthServer.ListenAndServe(ctx, fmt.Sprintf(":%s", cfg.ApiGrpcPort)); err != nil {
			appLogger.Error("❌ gRPC Server failed", "error", err)
		}
	}()
	healthServer.SetServing(true)

	// 13. Start HTTP Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("🌍 [Go] HTTP Server running on port...", "port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("❌ HTTP Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("🛑 [Go] Shutting down...")
	healthServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("❌ HTTP Server shutdown failed", "error", err)
	}
}
