package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/database"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/repository"
	"github.com/qs3c/fit_go_server/internal/service"
)

var (
	dryRun  = flag.Bool("dry-run", false, "List expired registrations without deleting them")
	ttl     = flag.Duration("ttl", 0, "Override auth.pending_ttl_hours, e.g. 48h")
	timeout = flag.Duration("timeout", 5*time.Minute, "Abort if the purge takes longer than this")
)

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log)

	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatalf("Failed to connect database: %v", err)
	}

	pendingTTL := *ttl
	if pendingTTL <= 0 {
		pendingTTL = time.Duration(cfg.Auth.PendingTTLHours) * time.Hour
	}
	cleanupService := service.NewCleanupService(repository.NewPendingUserRepository(db), pendingTTL)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var result *service.CleanupResult
	if *dryRun {
		result, err = cleanupService.ListExpiredRegistrations(ctx)
	} else {
		result, err = cleanupService.PurgeExpiredRegistrations(ctx)
	}
	if err != nil {
		logger.Log.Fatalf("Cleanup failed: %v", err)
	}

	fields := logrus.Fields{
		"cutoff":    result.Cutoff.Format(time.RFC3339),
		"usernames": strings.Join(result.Usernames, ","),
		"dry_run":   *dryRun,
	}
	if *dryRun {
		logger.Log.WithFields(fields).Infof("%d expired registrations would be purged", len(result.Usernames))
		return
	}
	logger.Log.WithFields(fields).Infof("Purged %d expired registrations", result.Purged)
}
