package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/fit_go_server/internal/testutil"
)

func TestQueue_PushAndLength(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	q := NewQueue(client, "plan_queue")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(ctx, &PlanJob{UserID: int64(i + 1)}))
	}

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

func TestQueue_PopFIFO(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	q := NewQueue(client, "plan_queue")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(ctx, &PlanJob{JobID: string(rune('a' + i - 1)), UserID: int64(i)}))
	}

	for i := 1; i <= 3; i++ {
		job, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, int64(i), job.UserID)
		assert.Equal(t, string(rune('a'+i-1)), job.JobID)
	}
}

func TestQueue_RoundTripFields(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	q := NewQueue(client, "plan_queue")
	ctx := context.Background()

	original := &PlanJob{JobID: "job-1", UserID: 42, StartDate: "2024-03-01", EndDate: "2024-03-30"}
	require.NoError(t, q.Push(ctx, original))
	assert.NotZero(t, original.EnqueuedAt)

	job, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, original, job)
}

func TestQueue_PopEmpty(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	q := NewQueue(client, "empty_queue")

	job, err := q.Pop(context.Background(), 10*time.Millisecond)
	// miniredis 对 BRPOP 超时的处理与真实 Redis 略有不同
	if err == nil {
		assert.Nil(t, job)
	}
}

func TestQueue_Isolation(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	q1 := NewQueue(client, "queue_1")
	q2 := NewQueue(client, "queue_2")
	require.NoError(t, q1.Push(ctx, &PlanJob{UserID: 1}))

	len2, err := q2.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, len2)
}
