package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
	"github.com/qs3c/fit_go_server/internal/repository"
)

// emailAvailable exceptID 非零时忽略该用户自身
func emailAvailable(ctx context.Context, users *repository.UserRepository, pending *repository.PendingUserRepository, addr string, exceptID int64) error {
	var (
		exists bool
		err    error
	)
	if exceptID > 0 {
		exists, err = users.ExistsByEmailExcept(ctx, addr, exceptID)
	} else {
		exists, err = users.ExistsByEmail(ctx, addr)
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return ErrEmailExists
	}

	exists, err = pending.ExistsByEmail(ctx, addr)
	if err != nil {
		return fmt.Errorf("check pending email: %w", err)
	}
	if exists {
		return ErrEmailExists
	}
	return nil
}

func usernameAvailable(ctx context.Context, users *repository.UserRepository, pending *repository.PendingUserRepository, username string) error {
	exists, err := users.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return ErrUsernameExists
	}

	exists, err = pending.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check pending username: %w", err)
	}
	if exists {
		return ErrUsernameExists
	}
	return nil
}

// refreshSession 用最新用户数据重写会话快照
func refreshSession(ctx context.Context, store *session.Store, sessionID string, user *model.User) (session.State, error) {
	current, err := store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.State{}, ErrUnauthenticated
		}
		return session.State{}, fmt.Errorf("get session: %w", err)
	}

	next := current.Refresh(user)
	if err := store.Save(ctx, sessionID, next); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.State{}, ErrUnauthenticated
		}
		return session.State{}, fmt.Errorf("save session: %w", err)
	}
	logger.Log.WithField("user_id", user.ID).Debug("session snapshot refreshed")
	return next, nil
}

// toUserInfo 转换为前端展示结构
func toUserInfo(u *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:                 u.ID,
		Username:           u.Username,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		Height:             u.Height,
		Weight:             u.Weight,
		Goal:               u.Goal,
		FitnessLevel:       u.FitnessLevel,
		WorkoutDays:        []int(u.WorkoutDays),
		AvatarURL:          u.AvatarURL,
		IsVerified:         u.IsVerified,
		OnboardingComplete: u.OnboardingComplete(),
	}
	if info.WorkoutDays == nil {
		info.WorkoutDays = []int{}
	}
	if u.Birthday != nil {
		info.Birthday = u.Birthday.Format(model.DateLayout)
	}
	if !u.CreatedAt.IsZero() {
		info.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	return info
}
