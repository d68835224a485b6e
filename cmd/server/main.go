package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/api"
	"github.com/qs3c/fit_go_server/internal/api/handler"
	"github.com/qs3c/fit_go_server/internal/database"
	"github.com/qs3c/fit_go_server/internal/pkg/cron"
	"github.com/qs3c/fit_go_server/internal/pkg/email"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/oss"
	"github.com/qs3c/fit_go_server/internal/pkg/planner"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/queue"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
	"github.com/qs3c/fit_go_server/internal/pkg/ws"
	"github.com/qs3c/fit_go_server/internal/repository"
	"github.com/qs3c/fit_go_server/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Log.Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatalf("Failed to connect redis: %v", err)
	}
	logger.Log.Info("Redis connected")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	pendingRepo := repository.NewPendingUserRepository(db)
	planRepo, closePlans, err := database.NewPlanRepository(ctx, &cfg.PlanStore, db)
	if err != nil {
		logger.Log.Fatalf("Failed to init plan store: %v", err)
	}
	defer closePlans(context.Background())

	// 邮件与头像存储
	mailer, err := email.NewFromConfig(ctx, &cfg.Email)
	if err != nil {
		logger.Log.Fatalf("Failed to init email service: %v", err)
	}

	var avatars service.AvatarStorage
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to init OSS client, avatar upload disabled")
		} else {
			avatars = ossClient
			logger.Log.Info("OSS client initialized")
		}
	}

	// 同步模式下由 API 进程直接调用模型
	var generator planner.Generator
	if !cfg.Queue.Async {
		g, closeGenerator, err := planner.NewFromConfig(ctx, &cfg.Planner)
		if err != nil {
			logger.Log.Fatalf("Failed to init planner: %v", err)
		}
		defer closeGenerator()
		generator = g
	}

	// 初始化 Service
	sessions := session.NewStore(rdb, time.Duration(cfg.Session.TTLHours)*time.Hour)
	authService := service.NewAuthService(userRepo, pendingRepo, planRepo, sessions, mailer, cfg)
	userService := service.NewUserService(userRepo, pendingRepo, sessions, avatars, cfg)
	planService := service.NewPlanService(userRepo, planRepo, generator, cfg)
	if cfg.Queue.Async {
		planService.WithQueue(queue.NewQueue(rdb, cfg.Queue.PlanQueue), pubsub.NewPublisher(rdb))
	}
	cleanupService := service.NewCleanupService(pendingRepo, time.Duration(cfg.Auth.PendingTTLHours)*time.Hour)

	// 定时清理过期注册
	cronService := cron.NewService(cleanupService, cfg.Cleanup.Schedule)
	if err := cronService.Start(); err != nil {
		logger.Log.Fatalf("Failed to start cleanup scheduler: %v", err)
	}
	defer cronService.Stop()

	// 初始化 WebSocket Hub 并转发 worker 的进度
	wsHub := ws.NewHub()
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.CORS.AllowedOrigins)
	go func() {
		if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, websocketHandler.Forward); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("Plan progress subscriber stopped")
		}
	}()

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService, cfg),
		handler.NewUserHandler(userService, authService, wsHub, cfg),
		handler.NewPlanHandler(planService),
		websocketHandler,
		handler.NewPoseHandler(cfg.CORS.AllowedOrigins),
		sessions,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server shutdown failed")
	}
	logger.Log.Info("Server stopped")
}
