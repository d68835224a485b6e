package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/email"
	"github.com/qs3c/fit_go_server/internal/pkg/jwt"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
	"github.com/qs3c/fit_go_server/internal/pkg/token"
	"github.com/qs3c/fit_go_server/internal/repository"
)

// hashCost bcrypt 代价，测试中调低
var hashCost = bcrypt.DefaultCost

type AuthService struct {
	userRepo    *repository.UserRepository
	pendingRepo *repository.PendingUserRepository
	planRepo    repository.PlanRepository
	sessions    *session.Store
	mailer      *email.Service
	cfg         *config.Config
	newToken    token.Generator
	now         func() time.Time
}

func NewAuthService(
	userRepo *repository.UserRepository,
	pendingRepo *repository.PendingUserRepository,
	planRepo repository.PlanRepository,
	sessions *session.Store,
	mailer *email.Service,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		pendingRepo: pendingRepo,
		planRepo:    planRepo,
		sessions:    sessions,
		mailer:      mailer,
		cfg:         cfg,
		newToken:    token.Generate,
		now:         time.Now,
	}
}

// WithTokenGenerator 替换 token 生成器
func (s *AuthService) WithTokenGenerator(g token.Generator) *AuthService {
	s.newToken = g
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register 用户注册，只创建待验证记录并发送验证邮件
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = normalizeEmail(req.Email)

	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := validateName("first_name", "First name", req.FirstName); err != nil {
		return nil, err
	}
	if err := validateName("last_name", "Last name", req.LastName); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	birthday, err := parseBirthday(req.Birthday, s.now())
	if err != nil {
		return nil, err
	}
	if birthday == nil {
		return nil, invalid("birthday", "Birthday is required")
	}
	if err := validatePassword("password", req.Password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailAvailable(ctx, req.Email); err != nil {
		return nil, err
	}
	if err := s.ensureUsernameAvailable(ctx, req.Username); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	tok, err := s.newToken()
	if err != nil {
		return nil, err
	}

	pending := &model.PendingUser{
		Username:          req.Username,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Birthday:          birthday,
		PasswordHash:      passwordHash,
		VerificationToken: tok,
	}
	if err := s.pendingRepo.Create(ctx, pending); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create pending user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"pending_id": pending.ID,
		"username":   pending.Username,
	}).Info("registration pending verification")

	if err := s.mailer.SendVerification(ctx, pending.Email, s.verifyLink(tok)); err != nil {
		// 待验证记录保留，用户可以重发验证邮件，过期后由定时任务清理
		logger.Log.WithError(err).WithField("pending_id", pending.ID).Error("failed to send verification email")
		return nil, fmt.Errorf("send verification email: %w", err)
	}

	return &dto.RegisterResponse{Email: pending.Email}, nil
}

// ResendVerification 为待验证记录换发 token 并重发邮件，旧链接失效
func (s *AuthService) ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest) error {
	addr := normalizeEmail(req.Email)
	if err := validateEmail(addr); err != nil {
		return err
	}

	pending, err := s.pendingRepo.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get pending user: %w", err)
	}

	tok, err := s.newToken()
	if err != nil {
		return err
	}
	if err := s.pendingRepo.RotateToken(ctx, pending.ID, tok); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("rotate verification token: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, pending.Email, s.verifyLink(tok)); err != nil {
		logger.Log.WithError(err).WithField("pending_id", pending.ID).Error("failed to resend verification email")
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// VerifyEmail 消费验证 token，创建正式用户并开启会话
func (s *AuthService) VerifyEmail(ctx context.Context, tok string) (*dto.LoginResponse, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.pendingRepo.Promote(ctx, tok)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrInvalidToken
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("promote pending user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("email verified")

	return s.startSession(ctx, user)
}

// Login 用户登录
// 邮箱不存在与密码错误分别返回 ErrUserNotFound 和 ErrInvalidCredentials，由调用方决定是否区分
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	addr := normalizeEmail(req.Email)
	if addr == "" {
		return nil, invalid("email", "Please enter your email")
	}
	if req.Password == "" {
		return nil, invalid("password", "Please enter your password")
	}

	user, err := s.userRepo.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsVerified || !checkPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Logout 销毁当前会话
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// CompleteOnboarding 填写身体数据与训练偏好，可重复提交
func (s *AuthService) CompleteOnboarding(ctx context.Context, sessionID string, principal *session.Principal, req *dto.OnboardingRequest) (*dto.LoginResponse, error) {
	if principal == nil {
		return nil, ErrUnauthenticated
	}

	if err := validatePositive("weight", "Weight", req.Weight); err != nil {
		return nil, err
	}
	if err := validatePositive("height", "Height", req.Height); err != nil {
		return nil, err
	}
	days, err := resolveWorkoutDays(req.WorkoutDays, req.WorkoutMask)
	if err != nil {
		return nil, err
	}
	goal, err := validateGoal(req.Goal)
	if err != nil {
		return nil, err
	}
	level, err := validateFitnessLevel(req.FitnessLevel)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	user.Weight = *req.Weight
	user.Height = *req.Height
	user.WorkoutDays = days
	user.Goal = goal
	user.FitnessLevel = level
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"weight":        user.Weight,
		"height":        user.Height,
		"workout_days":  user.WorkoutDays,
		"goal":          user.Goal,
		"fitness_level": user.FitnessLevel,
	}); err != nil {
		return nil, fmt.Errorf("update onboarding: %w", err)
	}

	state, err := refreshSession(ctx, s.sessions, sessionID, user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{Stage: string(state.Stage), User: toUserInfo(user)}, nil
}

// ChangePassword 修改密码，不影响其他会话
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !checkPassword(user.PasswordHash, req.OldPassword) {
		return ErrInvalidCredentials
	}
	if err := validatePassword("new_password", req.NewPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"password_hash": passwordHash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

// ForgetPassword 签发重置 token 并发送邮件
func (s *AuthService) ForgetPassword(ctx context.Context, req *dto.ForgetPasswordRequest) error {
	addr := normalizeEmail(req.Email)
	if err := validateEmail(addr); err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.cfg.Auth.GenericForgetPassword {
				return nil
			}
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	tok, err := s.newToken()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetVerificationToken(ctx, user.ID, tok); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetLink(tok)); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("failed to send password reset email")
		return fmt.Errorf("send password reset email: %w", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("password reset requested")
	return nil
}

// ResetPassword 消费重置 token 并写入新密码，同时注销该用户的全部会话
func (s *AuthService) ResetPassword(ctx context.Context, tok, password string) error {
	if err := validatePassword("password", password); err != nil {
		return err
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrInvalidToken
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}

	userID, err := s.userRepo.ConsumeResetToken(ctx, tok, passwordHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	if n, err := s.sessions.DestroyUser(ctx, userID); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Warn("failed to destroy sessions after password reset")
	} else if n > 0 {
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "sessions": n}).Info("sessions destroyed after password reset")
	}

	logger.Log.WithField("user_id", userID).Info("password reset")
	return nil
}

// DeleteAccount 先销毁会话再删除用户，会话销毁失败时不删除任何数据
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	if _, err := s.sessions.DestroyUser(ctx, userID); err != nil {
		return fmt.Errorf("destroy sessions: %w", err)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.planRepo.DeleteByUserID(ctx, userID); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("failed to delete workout plan of deleted user")
	}

	logger.Log.WithField("user_id", userID).Info("account deleted")
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*dto.LoginResponse, error) {
	state := session.ForUser(user)
	id, err := s.sessions.Create(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	signed, err := jwt.GenerateToken(id, s.cfg.Session.Secret, s.cfg.Session.TTLHours)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &dto.LoginResponse{
		Token: signed,
		Stage: string(state.Stage),
		User:  toUserInfo(user),
	}, nil
}

func (s *AuthService) getUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ensureEmailAvailable 正式用户与待验证记录共用邮箱空间
func (s *AuthService) ensureEmailAvailable(ctx context.Context, addr string) error {
	return emailAvailable(ctx, s.userRepo, s.pendingRepo, addr, 0)
}

func (s *AuthService) ensureUsernameAvailable(ctx context.Context, username string) error {
	return usernameAvailable(ctx, s.userRepo, s.pendingRepo, username)
}

func (s *AuthService) verifyLink(tok string) string {
	return fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", strings.TrimRight(s.cfg.Server.AppURL, "/"), url.QueryEscape(tok))
}

func (s *AuthService) resetLink(tok string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.Server.AppURL, "/"), url.QueryEscape(tok))
}
