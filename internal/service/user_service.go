package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
	"github.com/qs3c/fit_go_server/internal/repository"
)

// AvatarStorage 头像存储，生产环境为 OSS
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, userID int64, ext string, r io.Reader) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

type UserService struct {
	userRepo    *repository.UserRepository
	pendingRepo *repository.PendingUserRepository
	sessions    *session.Store
	storage     AvatarStorage
	cfg         *config.Config
	now         func() time.Time
}

func NewUserService(
	userRepo *repository.UserRepository,
	pendingRepo *repository.PendingUserRepository,
	sessions *session.Store,
	storage AvatarStorage,
	cfg *config.Config,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		pendingRepo: pendingRepo,
		sessions:    sessions,
		storage:     storage,
		cfg:         cfg,
		now:         time.Now,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// UpdateProfile 更新个人信息，只写入请求中出现的字段
func (s *UserService) UpdateProfile(ctx context.Context, sessionID string, userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.FirstName != nil {
		v := strings.TrimSpace(*req.FirstName)
		if err := validateName("first_name", "First name", v); err != nil {
			return nil, err
		}
		user.FirstName = v
		fields["first_name"] = v
	}
	if req.LastName != nil {
		v := strings.TrimSpace(*req.LastName)
		if err := validateName("last_name", "Last name", v); err != nil {
			return nil, err
		}
		user.LastName = v
		fields["last_name"] = v
	}
	if req.Birthday != nil {
		birthday, err := parseBirthday(*req.Birthday, s.now())
		if err != nil {
			return nil, err
		}
		if birthday == nil {
			return nil, invalid("birthday", "Birthday must be a date in the format YYYY-MM-DD")
		}
		user.Birthday = birthday
		fields["birthday"] = *birthday
	}
	if req.Height != nil {
		if err := validatePositive("height", "Height", req.Height); err != nil {
			return nil, err
		}
		user.Height = *req.Height
		fields["height"] = user.Height
	}
	if req.Weight != nil {
		if err := validatePositive("weight", "Weight", req.Weight); err != nil {
			return nil, err
		}
		user.Weight = *req.Weight
		fields["weight"] = user.Weight
	}
	if req.Email != nil {
		addr := normalizeEmail(*req.Email)
		if err := validateEmail(addr); err != nil {
			return nil, err
		}
		if addr != user.Email {
			// 会话快照可能过期，唯一性必须回库检查
			if err := emailAvailable(ctx, s.userRepo, s.pendingRepo, addr, user.ID); err != nil {
				return nil, err
			}
			user.Email = addr
			fields["email"] = addr
		}
	}

	return s.apply(ctx, sessionID, user, fields)
}

// UpdateWorkoutSettings 更新训练目标、水平和训练日
func (s *UserService) UpdateWorkoutSettings(ctx context.Context, sessionID string, userID int64, req *dto.UpdateWorkoutSettingsRequest) (*dto.UserInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Goal != nil {
		goal, err := validateGoal(*req.Goal)
		if err != nil {
			return nil, err
		}
		user.Goal = goal
		fields["goal"] = goal
	}
	if req.FitnessLevel != nil {
		level, err := validateFitnessLevel(*req.FitnessLevel)
		if err != nil {
			return nil, err
		}
		user.FitnessLevel = level
		fields["fitness_level"] = level
	}
	if req.WorkoutDays != nil || req.WorkoutMask != nil {
		var days []int
		if req.WorkoutDays != nil {
			days = *req.WorkoutDays
		}
		resolved, err := resolveWorkoutDays(days, req.WorkoutMask)
		if err != nil {
			return nil, err
		}
		user.WorkoutDays = resolved
		fields["workout_days"] = resolved
	}

	return s.apply(ctx, sessionID, user, fields)
}

// ChangeUsername 修改用户名，受冷却期限制
func (s *UserService) ChangeUsername(ctx context.Context, sessionID string, userID int64, req *dto.ChangeUsernameRequest) (*dto.UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if username == user.Username {
		return toUserInfo(user), nil
	}

	now := s.now()
	cooldown := time.Duration(s.usernameChangeDays()) * 24 * time.Hour
	if user.UsernameUpdatedAt != nil && now.Sub(*user.UsernameUpdatedAt) < cooldown {
		return nil, ErrUsernameChangeTooSoon
	}

	if err := usernameAvailable(ctx, s.userRepo, s.pendingRepo, username); err != nil {
		return nil, err
	}

	user.Username = username
	user.UsernameUpdatedAt = &now
	return s.apply(ctx, sessionID, user, map[string]interface{}{
		"username":            username,
		"username_updated_at": now,
	})
}

// UploadAvatar 上传头像并保存 URL，旧头像尽力删除
func (s *UserService) UploadAvatar(ctx context.Context, sessionID string, userID int64, filename string, size int64, file io.Reader) (*dto.AvatarResponse, error) {
	if s.storage == nil {
		return nil, errors.New("avatar storage is not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extensionAllowed(ext) {
		return nil, invalid("avatar", "Unsupported image type")
	}
	if limit := s.cfg.Upload.MaxSize; limit > 0 && size > limit {
		return nil, invalid("avatar", fmt.Sprintf("Image must be at most %d KB", limit/1024))
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.AvatarURL

	avatarURL, err := s.storage.UploadAvatar(ctx, userID, ext, file)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user.AvatarURL = avatarURL
	if _, err := s.apply(ctx, sessionID, user, map[string]interface{}{"avatar_url": avatarURL}); err != nil {
		return nil, err
	}

	if previous != "" && previous != avatarURL {
		if err := s.storage.DeleteByURL(ctx, previous); err != nil {
			logger.Log.WithError(err).WithField("user_id", userID).Warn("failed to delete previous avatar")
		}
	}

	return &dto.AvatarResponse{AvatarURL: avatarURL}, nil
}

// apply 写入变更字段并刷新会话快照
func (s *UserService) apply(ctx context.Context, sessionID string, user *model.User, fields map[string]interface{}) (*dto.UserInfo, error) {
	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrAccountExists
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	if sessionID != "" {
		if _, err := refreshSession(ctx, s.sessions, sessionID, user); err != nil {
			return nil, err
		}
	}
	return toUserInfo(user), nil
}

func (s *UserService) getUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) usernameChangeDays() int {
	if s.cfg.Auth.UsernameChangeDays > 0 {
		return s.cfg.Auth.UsernameChangeDays
	}
	return 30
}

func (s *UserService) extensionAllowed(ext string) bool {
	allowed := s.cfg.Upload.AllowedExtensions
	if len(allowed) == 0 {
		allowed = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}
