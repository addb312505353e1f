package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/utils"
)

// DefaultQueueKey is the Redis list tasks are pushed to.
const DefaultQueueKey = "intraview:tasks"

// RedisOptions configure the Redis backed scheduler.
type RedisOptions struct {
	Options
	Key         string
	PollTimeout time.Duration
}

// Redis queues tasks as JSON on a Redis list so any API replica can enqueue
// and any worker replica can execute.
type Redis struct {
	client redis.UniversalClient
	router *Router
	logger *zap.Logger

	key         string
	workers     int
	pollTimeout time.Duration
}

// NewRedis returns a Redis backed scheduler. Call Run to start consuming.
func NewRedis(client redis.UniversalClient, router *Router, logger *zap.Logger, opts RedisOptions) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := opts.Options.withDefaults()
	if opts.Key == "" {
		opts.Key = DefaultQueueKey
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	return &Redis{
		client:      client,
		router:      router,
		logger:      logger,
		key:         opts.Key,
		workers:     base.Workers,
		pollTimeout: opts.PollTimeout,
	}
}

// Enqueue pushes the task onto the queue.
func (r *Redis) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	if err := r.client.LPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("push task to %s: %w", r.key, err)
	}

	r.logger.Debug("task queued", append(task.fields(), zap.String("queue", r.key))...)
	return nil
}

// Run consumes the queue until ctx is cancelled.
func (r *Redis) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx)
		}()
	}

	r.logger.Info("redis task workers started", zap.Int("workers", r.workers), zap.String("queue", r.key))
	wg.Wait()
	return nil
}

func (r *Redis) work(ctx context.Context) {
	for ctx.Err() == nil {
		task, err := r.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("failed to pop task", zap.Error(err))
			if waitErr := utils.WaitFor(ctx, time.Second); waitErr != nil {
				return
			}
			continue
		}
		if task == nil {
			continue
		}

		_ = r.router.Run(context.WithoutCancel(ctx), *task)
	}
}

// pop returns nil without error when the poll timed out.
func (r *Redis) pop(ctx context.Context) (*Task, error) {
	res, err := r.client.BRPop(ctx, r.pollTimeout, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}

	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		r.logger.Error("discarding malformed task payload", zap.Error(err), zap.String("payload", res[1]))
		return nil, nil
	}
	return &task, nil
}
