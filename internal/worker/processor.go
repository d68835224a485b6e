package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/queue"
)

const defaultPopTimeout = 5 * time.Second

// PlanGenerator 生成并保存训练计划，生产环境为 service.PlanService
type PlanGenerator interface {
	GenerateWithProgress(ctx context.Context, userID int64, start, end time.Time, beforeSave func()) (*model.WorkoutPlan, error)
}

// ProgressPublisher 进度推送
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// Processor 训练计划任务处理器
type Processor struct {
	plans      PlanGenerator
	publisher  ProgressPublisher
	popTimeout time.Duration
}

// NewProcessor 创建任务处理器
func NewProcessor(plans PlanGenerator, publisher ProgressPublisher) *Processor {
	return &Processor{
		plans:      plans,
		publisher:  publisher,
		popTimeout: defaultPopTimeout,
	}
}

// Process 处理一条生成任务，失败时推送 failed 并返回错误
func (p *Processor) Process(ctx context.Context, job *queue.PlanJob) error {
	log := logger.Log.WithFields(logrus.Fields{
		"job_id":  job.JobID,
		"user_id": job.UserID,
	})

	publishProgress := func(step, errMsg string) {
		if p.publisher == nil {
			return
		}
		err := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID: job.UserID,
			JobID:  job.JobID,
			Step:   step,
			Error:  errMsg,
		})
		if err != nil {
			log.WithError(err).WithField("step", step).Warn("failed to publish plan progress")
		}
	}

	handleError := func(err error) error {
		publishProgress(pubsub.StepFailed, err.Error())
		return err
	}

	start, err := time.Parse(model.DateLayout, job.StartDate)
	if err != nil {
		return handleError(fmt.Errorf("invalid start date %q: %w", job.StartDate, err))
	}
	end, err := time.Parse(model.DateLayout, job.EndDate)
	if err != nil {
		return handleError(fmt.Errorf("invalid end date %q: %w", job.EndDate, err))
	}

	began := time.Now()
	publishProgress(pubsub.StepGenerating, "")

	plan, err := p.plans.GenerateWithProgress(ctx, job.UserID, start, end, func() {
		publishProgress(pubsub.StepSaving, "")
	})
	if err != nil {
		return handleError(err)
	}

	publishProgress(pubsub.StepDone, "")

	log.WithFields(logrus.Fields{
		"items":   len(plan.Items),
		"elapsed": time.Since(began).Round(time.Millisecond).String(),
	}).Info("workout plan generated")
	return nil
}

// Run 启动 workers 个消费协程，阻塞直到 ctx 结束且所有协程退出
func (p *Processor) Run(ctx context.Context, q *queue.Queue, workers int) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, q, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, q *queue.Queue, workerID int) {
	log := logger.Log.WithField("worker", workerID)
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		default:
		}

		job, err := q.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("failed to pop plan job")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue // 超时，继续等待
		}

		log.WithField("job_id", job.JobID).Info("processing plan job")
		if err := p.Process(ctx, job); err != nil {
			log.WithError(err).WithField("job_id", job.JobID).Error("plan job failed")
		}
	}
}
