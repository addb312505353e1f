package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisEnqueuePushesJSON(t *testing.T) {
	mr, client := newTestRedis(t)
	queue := NewRedis(client, NewRouter(nil, 0), zap.NewNop(), RedisOptions{})

	task := New(KindScoreAnswer, "run-1").ForQuestion("q-1", 2)
	require.NoError(t, queue.Enqueue(context.Background(), task))

	items, err := mr.List(DefaultQueueKey)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var decoded Task
	require.NoError(t, json.Unmarshal([]byte(items[0]), &decoded))
	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, KindScoreAnswer, decoded.Kind)
	assert.Equal(t, "q-1", decoded.QuestionID)
	assert.Equal(t, 2, decoded.Version)
}

func TestRedisWorkersConsumeQueue(t *testing.T) {
	mr, client := newTestRedis(t)

	router := NewRouter(zap.NewNop(), time.Second)
	seen := make(chan Task, 2)
	router.Handle(KindGenerateQuestions, func(_ context.Context, task Task) error {
		seen <- task
		return nil
	})

	queue := NewRedis(client, router, zap.NewNop(), RedisOptions{
		Options:     Options{Workers: 1},
		Key:         "test:tasks",
		PollTimeout: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = queue.Run(ctx)
	}()

	// Malformed payloads are discarded without stopping the worker.
	mr.Lpush("test:tasks", "not-json")
	require.NoError(t, queue.Enqueue(ctx, New(KindGenerateQuestions, "run-7")))

	select {
	case task := <-seen:
		assert.Equal(t, "run-7", task.RunID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for task")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestRedisEnqueueFailsWhenServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	queue := NewRedis(client, NewRouter(nil, 0), nil, RedisOptions{})
	mr.Close()

	err := queue.Enqueue(context.Background(), New(KindGenerateQuestions, "run-1"))
	assert.Error(t, err)
}
