package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/database"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/planner"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/queue"
	"github.com/qs3c/fit_go_server/internal/repository"
	"github.com/qs3c/fit_go_server/internal/service"
	"github.com/qs3c/fit_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log)

	// 监听退出信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatalf("Failed to connect database: %v", err)
	}
	logger.Log.Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatalf("Failed to connect redis: %v", err)
	}
	logger.Log.Info("Redis connected")

	planRepo, closePlans, err := database.NewPlanRepository(ctx, &cfg.PlanStore, db)
	if err != nil {
		logger.Log.Fatalf("Failed to init plan store: %v", err)
	}
	defer closePlans(context.Background())

	generator, closeGenerator, err := planner.NewFromConfig(ctx, &cfg.Planner)
	if err != nil {
		logger.Log.Fatalf("Failed to init planner: %v", err)
	}
	defer closeGenerator()

	planService := service.NewPlanService(repository.NewUserRepository(db), planRepo, generator, cfg)
	processor := worker.NewProcessor(planService, pubsub.NewPublisher(rdb))
	jobQueue := queue.NewQueue(rdb, cfg.Queue.PlanQueue)

	logger.Log.Infof("Worker started, max workers: %d", cfg.Queue.MaxWorkers)
	processor.Run(ctx, jobQueue, cfg.Queue.MaxWorkers)
	logger.Log.Info("Worker shutdown complete")
}
