package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/metrics"
)

const defaultTimeout = 2 * time.Minute

// Router maps task kinds to handlers and runs them with recovery, a timeout
// and metrics.
type Router struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	logger   *zap.Logger
	timeout  time.Duration
}

// NewRouter returns an empty router. A non-positive timeout selects the default.
func NewRouter(logger *zap.Logger, timeout time.Duration) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Router{
		handlers: make(map[Kind]Handler),
		logger:   logger,
		timeout:  timeout,
	}
}

// Handle registers the handler for a kind, replacing any previous one.
func (r *Router) Handle(kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Run executes the task synchronously and reports its outcome.
func (r *Router) Run(ctx context.Context, task Task) (err error) {
	r.mu.RLock()
	h, ok := r.handlers[task.Kind]
	r.mu.RUnlock()

	log := r.logger.With(task.fields()...)
	kind := string(task.Kind)

	if !ok {
		log.Warn("no handler registered for task kind")
		metrics.TasksDropped.WithLabelValues(kind, "no_handler").Inc()
		return fmt.Errorf("no handler registered for task kind %q", task.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metrics.TasksActive.WithLabelValues(kind).Inc()
	started := time.Now()
	defer func() {
		metrics.TasksActive.WithLabelValues(kind).Dec()
		metrics.TaskDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("task handler panic", zap.Any("panic", rec))
			metrics.TasksFailed.WithLabelValues(kind).Inc()
			err = fmt.Errorf("task handler panic: %v", rec)
		}
	}()

	log.Debug("running task", zap.Duration("queued_for", started.Sub(task.EnqueuedAt)))

	err = h(ctx, task)

	var drop *DropError
	switch {
	case err == nil:
		metrics.TasksCompleted.WithLabelValues(kind).Inc()
		log.Debug("task completed", zap.Duration("took", time.Since(started)))
	case errors.As(err, &drop):
		metrics.TasksDropped.WithLabelValues(kind, drop.Reason).Inc()
		log.Info("task dropped", zap.String("reason", drop.Reason), zap.Error(drop.Err))
	default:
		metrics.TasksFailed.WithLabelValues(kind).Inc()
		log.Error("task failed", zap.Error(err))
	}

	return err
}
