package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/queue"
	"github.com/qs3c/fit_go_server/internal/testutil"
)

type fakePlans struct {
	mu      sync.Mutex
	calls   []time.Time
	err     error
	saveErr error
}

func (f *fakePlans) GenerateWithProgress(_ context.Context, userID int64, start, end time.Time, beforeSave func()) (*model.WorkoutPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, start, end)
	if f.err != nil {
		return nil, f.err
	}
	beforeSave()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &model.WorkoutPlan{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Items:     model.WorkoutItems{{Title: "Plank", Duration: 5, Sets: 3}},
	}, nil
}

type recorder struct {
	mu       sync.Mutex
	messages []pubsub.ProgressMessage
	err      error
}

func (r *recorder) PublishProgress(_ context.Context, msg *pubsub.ProgressMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return r.err
}

func (r *recorder) steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		steps = append(steps, m.Step)
	}
	return steps
}

func TestProcessor_Process(t *testing.T) {
	plans := &fakePlans{}
	rec := &recorder{}
	p := NewProcessor(plans, rec)

	err := p.Process(context.Background(), &queue.PlanJob{
		JobID:     "job-1",
		UserID:    7,
		StartDate: "2024-03-10",
		EndDate:   "2024-03-16",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{pubsub.StepGenerating, pubsub.StepSaving, pubsub.StepDone}, rec.steps())
	require.Len(t, plans.calls, 2)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), plans.calls[0])
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), plans.calls[1])
	for _, m := range rec.messages {
		assert.Equal(t, "job-1", m.JobID)
		assert.Equal(t, int64(7), m.UserID)
	}
}

func TestProcessor_Process_GenerationFailed(t *testing.T) {
	plans := &fakePlans{err: errors.New("model timeout")}
	rec := &recorder{}
	p := NewProcessor(plans, rec)

	err := p.Process(context.Background(), &queue.PlanJob{JobID: "job-2", UserID: 1, StartDate: "2024-03-10", EndDate: "2024-03-12"})

	require.Error(t, err)
	assert.Equal(t, []string{pubsub.StepGenerating, pubsub.StepFailed}, rec.steps())
	assert.Equal(t, "model timeout", rec.messages[1].Error)
}

func TestProcessor_Process_SaveFailed(t *testing.T) {
	plans := &fakePlans{saveErr: errors.New("disk full")}
	rec := &recorder{}
	p := NewProcessor(plans, rec)

	err := p.Process(context.Background(), &queue.PlanJob{JobID: "job-4", UserID: 1, StartDate: "2024-03-10", EndDate: "2024-03-12"})

	require.Error(t, err)
	assert.Equal(t, []string{pubsub.StepGenerating, pubsub.StepSaving, pubsub.StepFailed}, rec.steps())
}

func TestProcessor_Process_InvalidDates(t *testing.T) {
	plans := &fakePlans{}
	rec := &recorder{}
	p := NewProcessor(plans, rec)

	err := p.Process(context.Background(), &queue.PlanJob{JobID: "job-3", StartDate: "10/03/2024", EndDate: "2024-03-12"})

	require.Error(t, err)
	assert.Equal(t, []string{pubsub.StepFailed}, rec.steps())
	assert.Empty(t, plans.calls)
}

func TestProcessor_Process_PublishErrorIgnored(t *testing.T) {
	rec := &recorder{err: errors.New("redis down")}
	p := NewProcessor(&fakePlans{}, rec)

	err := p.Process(context.Background(), &queue.PlanJob{JobID: "job-4", StartDate: "2024-03-10", EndDate: "2024-03-10"})
	assert.NoError(t, err)
}

func TestProcessor_Run(t *testing.T) {
	_, rdb := testutil.SetupTestRedis(t)
	q := queue.NewQueue(rdb, "plan_queue_test")
	plans := &fakePlans{}
	rec := &recorder{}
	p := NewProcessor(plans, rec)
	p.popTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, q, 2)
		close(done)
	}()

	require.NoError(t, q.Push(ctx, &queue.PlanJob{JobID: "a", UserID: 1, StartDate: "2024-03-10", EndDate: "2024-03-11"}))
	require.NoError(t, q.Push(ctx, &queue.PlanJob{JobID: "b", UserID: 2, StartDate: "2024-03-10", EndDate: "2024-03-11"}))

	assert.Eventually(t, func() bool {
		count := 0
		for _, s := range rec.steps() {
			if s == pubsub.StepDone {
				count++
			}
		}
		return count == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("workers did not stop after cancel")
	}
}
