package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/fit_go_server/internal/model"
)

var ErrPlanNotFound = errors.New("workout plan not found")

// PlanRepository 训练计划存储，每个用户最多一份
type PlanRepository interface {
	Upsert(ctx context.Context, plan *model.WorkoutPlan) error
	GetByUserID(ctx context.Context, userID int64) (*model.WorkoutPlan, error)
	DeleteByUserID(ctx context.Context, userID int64) error
}

type SQLPlanRepository struct {
	db *gorm.DB
}

func NewSQLPlanRepository(db *gorm.DB) *SQLPlanRepository {
	return &SQLPlanRepository{db: db}
}

// Upsert 以 user_id 为键覆盖旧计划
func (r *SQLPlanRepository) Upsert(ctx context.Context, plan *model.WorkoutPlan) error {
	now := time.Now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "start_date", "end_date", "updated_at"}),
	}).Create(plan).Error
}

func (r *SQLPlanRepository) GetByUserID(ctx context.Context, userID int64) (*model.WorkoutPlan, error) {
	var plan model.WorkoutPlan
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *SQLPlanRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.WorkoutPlan{}).Error
}
