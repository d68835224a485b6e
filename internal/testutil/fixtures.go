package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/fit_go_server/internal/model"
)

// DefaultPassword 测试用户的默认明文密码
const DefaultPassword = "Abc123"

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// HashPassword 以最低 cost 计算 bcrypt，加快测试
func HashPassword(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return string(hash)
}

// TestUser 创建测试用户，默认已验证并完成引导
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	birthday := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	user := &model.User{
		Username:     fmt.Sprintf("testuser%d", n),
		FirstName:    "Test",
		LastName:     "User",
		Email:        fmt.Sprintf("test_%d@example.com", n),
		PasswordHash: HashPassword(t, DefaultPassword),
		Birthday:     &birthday,
		Height:       180,
		Weight:       75,
		Goal:         "build muscle",
		FitnessLevel: model.FitnessIntermediate,
		WorkoutDays:  model.WorkoutDays{1, 3, 5},
		IsVerified:   true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPassword 设置明文密码
func WithPassword(t *testing.T, password string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = HashPassword(t, password)
	}
}

// WithToken 设置验证/重置 token
func WithToken(token string) func(*model.User) {
	return func(u *model.User) {
		u.VerificationToken = &token
	}
}

// WithoutOnboarding 清空引导信息
func WithoutOnboarding() func(*model.User) {
	return func(u *model.User) {
		u.Height = 0
		u.Weight = 0
		u.Goal = ""
		u.FitnessLevel = ""
		u.WorkoutDays = nil
	}
}

// WithUsernameUpdatedAt 设置上次修改用户名的时间
func WithUsernameUpdatedAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.UsernameUpdatedAt = &at
	}
}

// TestPendingUser 创建待验证注册记录
func TestPendingUser(t *testing.T, db *gorm.DB, opts ...func(*model.PendingUser)) *model.PendingUser {
	t.Helper()

	n := nextSeq()
	p := &model.PendingUser{
		Username:          fmt.Sprintf("pending%d", n),
		FirstName:         "Pending",
		LastName:          "User",
		Email:             fmt.Sprintf("pending_%d@example.com", n),
		PasswordHash:      HashPassword(t, DefaultPassword),
		VerificationToken: fmt.Sprintf("token-%d", n),
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create pending user: %v", err)
	}

	return p
}

// WithPendingToken 设置待验证 token
func WithPendingToken(token string) func(*model.PendingUser) {
	return func(p *model.PendingUser) {
		p.VerificationToken = token
	}
}

// WithPendingEmail 设置待验证邮箱
func WithPendingEmail(email string) func(*model.PendingUser) {
	return func(p *model.PendingUser) {
		p.Email = email
	}
}

// WithPendingUsername 设置待验证用户名
func WithPendingUsername(username string) func(*model.PendingUser) {
	return func(p *model.PendingUser) {
		p.Username = username
	}
}

// CreatedAgo 把创建时间设为 d 之前
func CreatedAgo(d time.Duration) func(*model.PendingUser) {
	return func(p *model.PendingUser) {
		p.CreatedAt = time.Now().Add(-d)
	}
}

// TestPlan 创建训练计划
func TestPlan(t *testing.T, db *gorm.DB, userID int64, items ...model.WorkoutItem) *model.WorkoutPlan {
	t.Helper()

	start := time.Now().Truncate(24 * time.Hour)
	plan := &model.WorkoutPlan{
		UserID:    userID,
		Items:     items,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 29),
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}
