package model

import (
	"time"
)

// PendingUser 等待邮箱验证的注册记录，验证成功后转为 User
type PendingUser struct {
	ID                int64      `gorm:"primaryKey"`
	Username          string     `gorm:"size:30;uniqueIndex;not null"`
	FirstName         string     `gorm:"size:30"`
	LastName          string     `gorm:"size:30"`
	Email             string     `gorm:"size:100;uniqueIndex;not null"`
	Birthday          *time.Time `gorm:"type:date"`
	PasswordHash      string     `gorm:"size:255;not null"`
	VerificationToken string     `gorm:"size:64;uniqueIndex;not null"`
	IsVerified        bool       `gorm:"default:false"`
	CreatedAt         time.Time  `gorm:"index"`
}

func (PendingUser) TableName() string {
	return "pending_users"
}

// ToUser 用待验证记录构造正式用户
func (p *PendingUser) ToUser() *User {
	return &User{
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Birthday:     p.Birthday,
		PasswordHash: p.PasswordHash,
		IsVerified:   true,
	}
}
