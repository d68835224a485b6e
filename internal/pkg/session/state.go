package session

import (
	"errors"
	"time"

	"github.com/qs3c/fit_go_server/internal/model"
)

// Stage 会话所处阶段
type Stage string

const (
	StageAnonymous     Stage = "anonymous"
	StageOnboarding    Stage = "onboarding"    // 已验证邮箱，尚未填写补充信息
	StageAuthenticated Stage = "authenticated" // 已完成引导
)

var ErrInvalidState = errors.New("invalid session state")

// Principal 会话中缓存的用户快照，需要最新数据时应回库查询
type Principal struct {
	UserID       int64   `json:"user_id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Goal         string  `json:"goal"`
	FitnessLevel string  `json:"fitness_level"`
	WorkoutDays  []int   `json:"workout_days"`
	Height       float64 `json:"height"`
	Weight       float64 `json:"weight"`
	AvatarURL    string  `json:"avatar_url"`
}

// State 会话状态；匿名会话不携带 Principal
type State struct {
	Stage     Stage      `json:"stage"`
	Principal *Principal `json:"principal,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func PrincipalFromUser(u *model.User) *Principal {
	return &Principal{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Goal:         u.Goal,
		FitnessLevel: u.FitnessLevel,
		WorkoutDays:  append([]int(nil), u.WorkoutDays...),
		Height:       u.Height,
		Weight:       u.Weight,
		AvatarURL:    u.AvatarURL,
	}
}

func Anonymous() State {
	return State{Stage: StageAnonymous, CreatedAt: time.Now()}
}

// ForUser 根据用户是否完成引导决定阶段
func ForUser(u *model.User) State {
	stage := StageOnboarding
	if u.OnboardingComplete() {
		stage = StageAuthenticated
	}
	return State{Stage: stage, Principal: PrincipalFromUser(u), CreatedAt: time.Now()}
}

// Refresh 用最新的用户数据重写快照，保留创建时间
func (s State) Refresh(u *model.User) State {
	next := ForUser(u)
	if !s.CreatedAt.IsZero() {
		next.CreatedAt = s.CreatedAt
	}
	return next
}

func (s State) Authenticated() bool {
	return s.Stage == StageAuthenticated && s.Principal != nil
}

// HasPrincipal 已登录（包括引导阶段）
func (s State) HasPrincipal() bool {
	return s.Stage != StageAnonymous && s.Principal != nil
}

func (s State) Validate() error {
	switch s.Stage {
	case StageAnonymous:
		if s.Principal != nil {
			return ErrInvalidState
		}
	case StageOnboarding, StageAuthenticated:
		if s.Principal == nil || s.Principal.UserID == 0 {
			return ErrInvalidState
		}
	default:
		return ErrInvalidState
	}
	return nil
}
