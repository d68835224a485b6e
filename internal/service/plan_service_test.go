package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/planner"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/queue"
	"github.com/qs3c/fit_go_server/internal/testutil"
)

type fakeGenerator struct {
	items  []model.WorkoutItem
	err    error
	calls  int
	params planner.Params
}

func (f *fakeGenerator) Generate(_ context.Context, p planner.Params) ([]model.WorkoutItem, error) {
	f.calls++
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

var planNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func newPlanService(env *testEnv, gen planner.Generator) *PlanService {
	svc := NewPlanService(env.userRepo, env.planRepo, gen, env.cfg)
	svc.now = func() time.Time { return planNow }
	return svc
}

func TestPlanService_Window(t *testing.T) {
	env := newTestEnv(t)
	svc := newPlanService(env, &fakeGenerator{})

	start, end, err := svc.Window(&dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", start.Format(model.DateLayout))
	assert.Equal(t, "2024-03-16", end.Format(model.DateLayout))

	start, end, err = svc.Window(&dto.GeneratePlanRequest{StartDate: "2024-04-01"})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", start.Format(model.DateLayout))
	assert.Equal(t, "2024-04-07", end.Format(model.DateLayout))

	start, end, err = svc.Window(&dto.GeneratePlanRequest{StartDate: "2024-04-01", EndDate: "2024-04-01"})
	require.NoError(t, err)
	assert.True(t, start.Equal(end))

	tests := []struct {
		name  string
		req   dto.GeneratePlanRequest
		field string
	}{
		{"bad start", dto.GeneratePlanRequest{StartDate: "04/01/2024"}, "start_date"},
		{"bad end", dto.GeneratePlanRequest{EndDate: "tomorrow"}, "end_date"},
		{"end before start", dto.GeneratePlanRequest{StartDate: "2024-04-10", EndDate: "2024-04-01"}, "end_date"},
		{"window too long", dto.GeneratePlanRequest{StartDate: "2024-01-01", EndDate: "2024-12-31"}, "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Window(&tt.req)
			ve, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestPlanService_RequestPlan_Inline(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{items: []model.WorkoutItem{
		{Title: "Push-ups", Repetitions: 12, Sets: 3, StartDate: "2024-03-11", EndDate: "2024-03-11"},
		{Title: "Running", Duration: 30, StartDate: "2024-03-13", EndDate: "2024-03-13"},
	}}
	svc := newPlanService(env, gen)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)

	resp, err := svc.RequestPlan(ctx, user.ID, &dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, dto.PlanStatusCompleted, resp.Status)
	require.NotNil(t, resp.Plan)
	assert.Len(t, resp.Plan.Items, 2)
	assert.Equal(t, "2024-03-10", resp.Plan.StartDate)
	assert.Equal(t, "2024-03-16", resp.Plan.EndDate)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, model.WorkoutDays{1, 3, 5}, gen.params.WorkoutDays)
	assert.Equal(t, model.FitnessIntermediate, gen.params.FitnessLevel)
	assert.Equal(t, "build muscle", gen.params.Goal)

	plan, err := svc.GetPlan(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Push-ups", plan.Items[0].Title)

	// 再次生成覆盖旧计划
	gen.items = []model.WorkoutItem{{Title: "Plank", Duration: 5, StartDate: "2024-03-12", EndDate: "2024-03-12"}}
	_, err = svc.RequestPlan(ctx, user.ID, &dto.GeneratePlanRequest{})
	require.NoError(t, err)

	plan, err = svc.GetPlan(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "Plank", plan.Items[0].Title)
}

func TestPlanService_RequestPlan_RequiresOnboarding(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{}
	svc := newPlanService(env, gen)
	user := testutil.TestUser(t, env.db, testutil.WithoutOnboarding())

	_, err := svc.RequestPlan(context.Background(), user.ID, &dto.GeneratePlanRequest{})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "onboarding", ve.Field)
	assert.Zero(t, gen.calls)

	_, err = svc.RequestPlan(context.Background(), 99999, &dto.GeneratePlanRequest{})
	assert.Equal(t, ErrUserNotFound, err)
}

func TestPlanService_RequestPlan_GenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)

	t.Run("upstream error is wrapped", func(t *testing.T) {
		svc := newPlanService(env, &fakeGenerator{err: errors.New("quota exceeded")})
		_, err := svc.RequestPlan(ctx, user.ID, &dto.GeneratePlanRequest{})
		assert.ErrorIs(t, err, ErrGeneration)
	})

	t.Run("parse error passes through", func(t *testing.T) {
		svc := newPlanService(env, &fakeGenerator{err: planner.ErrGeneration})
		_, err := svc.RequestPlan(ctx, user.ID, &dto.GeneratePlanRequest{})
		assert.ErrorIs(t, err, ErrGeneration)
	})

	// 失败不会写入计划
	_, err := newPlanService(env, &fakeGenerator{}).GetPlan(ctx, user.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPlanService_RequestPlan_Queued(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{}
	q := queue.NewQueue(env.rdb, "test_plan_queue")
	svc := newPlanService(env, gen).WithQueue(q, pubsub.NewPublisher(env.rdb))
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)

	resp, err := svc.RequestPlan(ctx, user.ID, &dto.GeneratePlanRequest{StartDate: "2024-05-01", EndDate: "2024-05-03"})
	require.NoError(t, err)
	assert.Equal(t, dto.PlanStatusQueued, resp.Status)
	assert.NotEmpty(t, resp.JobID)
	assert.Nil(t, resp.Plan)
	assert.Zero(t, gen.calls)

	job, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, resp.JobID, job.JobID)
	assert.Equal(t, user.ID, job.UserID)
	assert.Equal(t, "2024-05-01", job.StartDate)
	assert.Equal(t, "2024-05-03", job.EndDate)
	assert.NotZero(t, job.EnqueuedAt)
}

func TestPlanService_Generate(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{items: []model.WorkoutItem{{Title: "Squats", Repetitions: 15, Sets: 4, StartDate: "2024-06-02", EndDate: "2024-06-02"}}}
	svc := newPlanService(env, gen)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	plan, err := svc.Generate(ctx, user.ID, start, start.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, user.ID, plan.UserID)
	assert.Equal(t, start, gen.params.StartDate)

	info, err := svc.GetPlan(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", info.StartDate)
	assert.Equal(t, "2024-06-07", info.EndDate)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title":"Squats"`)
}

func TestPlanService_GenerateWithProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("callback runs before the plan is stored", func(t *testing.T) {
		svc := newPlanService(env, &fakeGenerator{items: []model.WorkoutItem{{Title: "Plank", Duration: 5, Sets: 3}}})

		var called bool
		_, err := svc.GenerateWithProgress(ctx, user.ID, start, start.AddDate(0, 0, 2), func() {
			called = true
			_, err := svc.GetPlan(ctx, user.ID)
			assert.ErrorIs(t, err, ErrPlanNotFound)
		})
		require.NoError(t, err)
		assert.True(t, called)

		_, err = svc.GetPlan(ctx, user.ID)
		assert.NoError(t, err)
	})

	t.Run("callback skipped when generation fails", func(t *testing.T) {
		svc := newPlanService(env, &fakeGenerator{err: errors.New("quota exceeded")})

		var called bool
		_, err := svc.GenerateWithProgress(ctx, user.ID, start, start.AddDate(0, 0, 2), func() { called = true })
		assert.ErrorIs(t, err, ErrGeneration)
		assert.False(t, called)
	})
}

func TestPlanService_GetPlan_Empty(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.TestUser(t, env.db)
	testutil.TestPlan(t, env.db, user.ID)

	info, err := newPlanService(env, &fakeGenerator{}).GetPlan(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, info.Items)
	assert.Empty(t, info.Items)
}
