package model

import (
	"time"
)

type User struct {
	ID                int64       `gorm:"primaryKey" json:"id"`
	Username          string      `gorm:"size:30;uniqueIndex;not null" json:"username"`
	FirstName         string      `gorm:"size:30" json:"first_name"`
	LastName          string      `gorm:"size:30" json:"last_name"`
	Email             string      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash      string      `gorm:"size:255;not null" json:"-"`
	Birthday          *time.Time  `gorm:"type:date" json:"birthday,omitempty"`
	Height            float64     `json:"height"`
	Weight            float64     `json:"weight"`
	Goal              string      `gorm:"size:200" json:"goal"`
	FitnessLevel      string      `gorm:"size:20" json:"fitness_level"`
	WorkoutDays       WorkoutDays `gorm:"type:text" json:"workout_days"`
	AvatarURL         string      `gorm:"size:500" json:"avatar_url"`
	VerificationToken *string     `gorm:"size:64;uniqueIndex" json:"-"` // 同时用作密码重置 token
	IsVerified        bool        `gorm:"default:false" json:"is_verified"`
	UsernameUpdatedAt *time.Time  `json:"username_updated_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// OnboardingComplete 是否已填写训练目标等补充信息
func (u *User) OnboardingComplete() bool {
	return u.Goal != "" && u.FitnessLevel != "" && len(u.WorkoutDays) > 0
}
