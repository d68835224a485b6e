package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/fit_go_server/internal/model"
)

type PendingUserRepository struct {
	db *gorm.DB
}

func NewPendingUserRepository(db *gorm.DB) *PendingUserRepository {
	return &PendingUserRepository{db: db}
}

func (r *PendingUserRepository) Create(ctx context.Context, p *model.PendingUser) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PendingUserRepository) GetByToken(ctx context.Context, token string) (*model.PendingUser, error) {
	var p model.PendingUser
	err := r.db.WithContext(ctx).Where("verification_token = ?", token).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PendingUserRepository) GetByEmail(ctx context.Context, email string) (*model.PendingUser, error) {
	var p model.PendingUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PendingUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PendingUser{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *PendingUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PendingUser{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// RotateToken 替换待验证记录的 token，旧链接随之失效
func (r *PendingUserRepository) RotateToken(ctx context.Context, id int64, token string) error {
	result := r.db.WithContext(ctx).Model(&model.PendingUser{}).
		Where("id = ?", id).
		Update("verification_token", token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Promote 在一个事务里消费 token：删除待验证记录并创建正式用户
// 删除语句带 token 条件，并发请求中只有删到行的那个会继续建用户
func (r *PendingUserRepository) Promote(ctx context.Context, token string) (*model.User, error) {
	var user *model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending model.PendingUser
		if err := tx.Where("verification_token = ?", token).First(&pending).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND verification_token = ?", pending.ID, token).Delete(&model.PendingUser{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		user = pending.ToUser()
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListExpired 列出创建时间早于 cutoff 且未验证的记录
func (r *PendingUserRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]model.PendingUser, error) {
	var list []model.PendingUser
	err := r.db.WithContext(ctx).
		Where("is_verified = ? AND created_at < ?", false, cutoff).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// DeleteExpired 逐条删除并重新检查过期条件，返回实际删掉的 id
// 列出之后被验证或刷新的记录不会出现在结果里
func (r *PendingUserRepository) DeleteExpired(ctx context.Context, ids []int64, cutoff time.Time) ([]int64, error) {
	deleted := make([]int64, 0, len(ids))
	if len(ids) == 0 {
		return deleted, nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			result := tx.Where("id = ? AND is_verified = ? AND created_at < ?", id, false, cutoff).
				Delete(&model.PendingUser{})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				deleted = append(deleted, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
