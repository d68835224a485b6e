package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/service"
)

// DefaultSchedule 每天零点
const DefaultSchedule = "0 0 * * *"

// Cleaner 过期注册清理
type Cleaner interface {
	PurgeExpiredRegistrations(ctx context.Context) (*service.CleanupResult, error)
}

type Service struct {
	cleaner  Cleaner
	schedule string
	cron     *robfig.Cron
	mu       sync.Mutex // 防止两次清理重叠
}

func NewService(cleaner Cleaner, schedule string) *Service {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Service{
		cleaner:  cleaner,
		schedule: schedule,
		cron:     robfig.New(robfig.WithLocation(time.UTC)),
	}
}

// Start 注册并启动定时任务
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	logger.Log.WithField("schedule", s.schedule).Info("cron service started")
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	logger.Log.Info("cron service stopped")
}

// runScheduled 定时触发的清理不设超时
func (s *Service) runScheduled() {
	if _, err := s.RunNow(context.Background()); err != nil {
		logger.Log.WithError(err).Error("scheduled cleanup failed")
	}
}

// RunNow 立即执行一次清理（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) (*service.CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result, err := s.cleaner.PurgeExpiredRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(logrus.Fields{
		"purged":  result.Purged,
		"elapsed": time.Since(start).String(),
	}).Info("cleanup run finished")
	return result, nil
}
