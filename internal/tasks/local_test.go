package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalExecutesQueuedTasks(t *testing.T) {
	router := NewRouter(zap.NewNop(), time.Second)
	seen := make(chan string, 3)
	router.Handle(KindScoreAnswer, func(_ context.Context, task Task) error {
		seen <- task.QuestionID
		return nil
	})

	local := NewLocal(router, zap.NewNop(), Options{Workers: 2, QueueSize: 8})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = local.Run(ctx)
	}()

	for _, id := range []string{"q1", "q2", "q3"} {
		require.NoError(t, local.Enqueue(ctx, New(KindScoreAnswer, "run-1").ForQuestion(id, 1)))
	}

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-seen:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for task %d", i+1)
		}
	}
	assert.Equal(t, map[string]bool{"q1": true, "q2": true, "q3": true}, got)

	cancel()
	<-stopped

	assert.ErrorIs(t, local.Enqueue(context.Background(), New(KindScoreAnswer, "run-1")), ErrClosed)
}

func TestLocalEnqueueDoesNotWaitForExecution(t *testing.T) {
	router := NewRouter(zap.NewNop(), time.Second)
	release := make(chan struct{})
	router.Handle(KindGenerateQuestions, func(context.Context, Task) error {
		<-release
		return nil
	})

	local := NewLocal(router, nil, Options{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = local.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, local.Enqueue(ctx, New(KindGenerateQuestions, "run-1")))
	}

	close(release)
	cancel()
	<-stopped
}

func TestLocalEnqueueHonoursContextWhenFull(t *testing.T) {
	local := NewLocal(NewRouter(nil, 0), nil, Options{Workers: 1, QueueSize: 1})
	require.NoError(t, local.Enqueue(context.Background(), New(KindGenerateQuestions, "run-1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, local.Enqueue(ctx, New(KindGenerateQuestions, "run-2")), context.DeadlineExceeded)
}
