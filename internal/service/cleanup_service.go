package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/repository"
)

// DefaultPendingTTL 待验证注册的有效期
const DefaultPendingTTL = 24 * time.Hour

// CleanupResult 一次清理的结果
type CleanupResult struct {
	Cutoff    time.Time `json:"cutoff"`
	Purged    int64     `json:"purged"`
	Usernames []string  `json:"usernames"`
}

type CleanupService struct {
	pendingRepo *repository.PendingUserRepository
	ttl         time.Duration
	now         func() time.Time
}

func NewCleanupService(pendingRepo *repository.PendingUserRepository, ttl time.Duration) *CleanupService {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &CleanupService{
		pendingRepo: pendingRepo,
		ttl:         ttl,
		now:         time.Now,
	}
}

// ListExpiredRegistrations 只列出过期记录，不删除
func (s *CleanupService) ListExpiredRegistrations(ctx context.Context) (*CleanupResult, error) {
	cutoff := s.now().Add(-s.ttl)
	expired, err := s.pendingRepo.ListExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired registrations: %w", err)
	}

	result := &CleanupResult{Cutoff: cutoff, Usernames: make([]string, 0, len(expired))}
	for _, p := range expired {
		result.Usernames = append(result.Usernames, p.Username)
	}
	return result, nil
}

// PurgeExpiredRegistrations 删除创建超过 ttl 仍未验证的注册记录
// 删除时重新检查过期条件，与正在进行的注册、验证并发执行是安全的
func (s *CleanupService) PurgeExpiredRegistrations(ctx context.Context) (*CleanupResult, error) {
	cutoff := s.now().Add(-s.ttl)
	expired, err := s.pendingRepo.ListExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired registrations: %w", err)
	}

	result := &CleanupResult{Cutoff: cutoff, Usernames: make([]string, 0, len(expired))}
	if len(expired) == 0 {
		logger.Log.WithField("cutoff", cutoff).Info("no expired registrations")
		return result, nil
	}

	ids := make([]int64, 0, len(expired))
	usernames := make(map[int64]string, len(expired))
	for _, p := range expired {
		ids = append(ids, p.ID)
		usernames[p.ID] = p.Username
	}

	deleted, err := s.pendingRepo.DeleteExpired(ctx, ids, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete expired registrations: %w", err)
	}
	for _, id := range deleted {
		result.Usernames = append(result.Usernames, usernames[id])
	}
	result.Purged = int64(len(deleted))

	logger.Log.WithFields(logrus.Fields{
		"count":     result.Purged,
		"skipped":   len(ids) - len(deleted),
		"usernames": result.Usernames,
	}).Info("expired registrations purged")
	return result, nil
}
