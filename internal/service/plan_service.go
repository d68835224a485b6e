package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/planner"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/queue"
	"github.com/qs3c/fit_go_server/internal/repository"
)

// ErrGeneration 计划生成失败
var ErrGeneration = planner.ErrGeneration

// maxPlanDays 单次生成允许的最长窗口
const maxPlanDays = 92

type PlanService struct {
	userRepo  *repository.UserRepository
	planRepo  repository.PlanRepository
	generator planner.Generator
	queue     *queue.Queue
	publisher *pubsub.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewPlanService(
	userRepo *repository.UserRepository,
	planRepo repository.PlanRepository,
	generator planner.Generator,
	cfg *config.Config,
) *PlanService {
	return &PlanService{
		userRepo:  userRepo,
		planRepo:  planRepo,
		generator: generator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithQueue 配置后请求改为异步，由 worker 生成
func (s *PlanService) WithQueue(q *queue.Queue, publisher *pubsub.Publisher) *PlanService {
	s.queue = q
	s.publisher = publisher
	return s
}

// Window 计算生成窗口，未指定时从今天开始取 horizon_days 天
func (s *PlanService) Window(req *dto.GeneratePlanRequest) (time.Time, time.Time, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.StartDate != "" {
		t, err := time.ParseInLocation(model.DateLayout, req.StartDate, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("start_date", "Start date must be in the format YYYY-MM-DD")
		}
		start = t
	}

	horizon := s.cfg.Planner.HorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	end := start.AddDate(0, 0, horizon-1)
	if req.EndDate != "" {
		t, err := time.ParseInLocation(model.DateLayout, req.EndDate, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("end_date", "End date must be in the format YYYY-MM-DD")
		}
		end = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, invalid("end_date", "End date must not be before start date")
	}
	if end.Sub(start) >= maxPlanDays*24*time.Hour {
		return time.Time{}, time.Time{}, invalid("end_date", fmt.Sprintf("A plan can cover at most %d days", maxPlanDays))
	}
	return start, end, nil
}

// RequestPlan 生成训练计划；配置了队列时只入队
func (s *PlanService) RequestPlan(ctx context.Context, userID int64, req *dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	start, end, err := s.Window(req)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.OnboardingComplete() {
		return nil, invalid("onboarding", "Please complete your fitness profile first")
	}

	if s.queue == nil {
		plan, err := s.generate(ctx, user, start, end, nil)
		if err != nil {
			return nil, err
		}
		return &dto.GeneratePlanResponse{Status: dto.PlanStatusCompleted, Plan: toPlanInfo(plan)}, nil
	}

	job := &queue.PlanJob{
		JobID:     uuid.NewString(),
		UserID:    userID,
		StartDate: start.Format(model.DateLayout),
		EndDate:   end.Format(model.DateLayout),
	}
	if err := s.queue.Push(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue plan job: %w", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID: userID,
			JobID:  job.JobID,
			Step:   pubsub.StepQueued,
		}); err != nil {
			logger.Log.WithError(err).WithField("job_id", job.JobID).Warn("failed to publish queued progress")
		}
	}

	logger.Log.WithFields(logrus.Fields{"user_id": userID, "job_id": job.JobID}).Info("plan job queued")
	return &dto.GeneratePlanResponse{Status: dto.PlanStatusQueued, JobID: job.JobID}, nil
}

// Generate 根据用户当前资料调用生成器并覆盖旧计划
func (s *PlanService) Generate(ctx context.Context, userID int64, start, end time.Time) (*model.WorkoutPlan, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, user, start, end, nil)
}

// GenerateWithProgress 同 Generate，模型返回后、写库前调用 beforeSave
func (s *PlanService) GenerateWithProgress(ctx context.Context, userID int64, start, end time.Time, beforeSave func()) (*model.WorkoutPlan, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, user, start, end, beforeSave)
}

func (s *PlanService) generate(ctx context.Context, user *model.User, start, end time.Time, beforeSave func()) (*model.WorkoutPlan, error) {
	params := planner.Params{
		WorkoutDays:  user.WorkoutDays,
		FitnessLevel: user.FitnessLevel,
		Height:       user.Height,
		Weight:       user.Weight,
		Goal:         user.Goal,
		StartDate:    start,
		EndDate:      end,
	}

	items, err := s.generator.Generate(ctx, params)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Warn("plan generation failed")
		if errors.Is(err, planner.ErrGeneration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", planner.ErrGeneration, err)
	}

	plan := &model.WorkoutPlan{
		UserID:    user.ID,
		Items:     items,
		StartDate: start,
		EndDate:   end,
	}
	if beforeSave != nil {
		beforeSave()
	}
	if err := s.planRepo.Upsert(ctx, plan); err != nil {
		return nil, fmt.Errorf("save workout plan: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": user.ID, "items": len(items)}).Info("workout plan saved")
	return plan, nil
}

// GetPlan 获取当前计划
func (s *PlanService) GetPlan(ctx context.Context, userID int64) (*dto.PlanInfo, error) {
	plan, err := s.planRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("get workout plan: %w", err)
	}
	return toPlanInfo(plan), nil
}

func (s *PlanService) getUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func toPlanInfo(plan *model.WorkoutPlan) *dto.PlanInfo {
	items := []model.WorkoutItem(plan.Items)
	if items == nil {
		items = []model.WorkoutItem{}
	}
	return &dto.PlanInfo{
		UserID:    plan.UserID,
		StartDate: plan.StartDate.Format(model.DateLayout),
		EndDate:   plan.EndDate.Format(model.DateLayout),
		Items:     items,
		UpdatedAt: plan.UpdatedAt.Format(time.RFC3339),
	}
}
