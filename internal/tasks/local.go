package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Options tune a scheduler's worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	return o
}

// Local runs tasks on an in-process worker pool fed by a buffered channel.
// Queued tasks are lost when the process exits.
type Local struct {
	router *Router
	logger *zap.Logger
	opts   Options

	queue chan Task
	done  chan struct{}
	once  sync.Once
}

// NewLocal returns an in-process scheduler. Call Run to start its workers.
func NewLocal(router *Router, logger *zap.Logger, opts Options) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Local{
		router: router,
		logger: logger,
		opts:   opts,
		queue:  make(chan Task, opts.QueueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue queues the task, blocking only while the buffer is full.
func (l *Local) Enqueue(ctx context.Context, task Task) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}

	select {
	case l.queue <- task:
		l.logger.Debug("task queued", task.fields()...)
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is cancelled and every running
// task returned.
func (l *Local) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < l.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.work(ctx)
		}()
	}

	l.logger.Info("local task workers started", zap.Int("workers", l.opts.Workers))

	<-ctx.Done()
	l.once.Do(func() { close(l.done) })
	wg.Wait()

	if pending := len(l.queue); pending > 0 {
		l.logger.Warn("discarding queued tasks on shutdown", zap.Int("pending", pending))
	}

	return nil
}

func (l *Local) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.queue:
			// Handlers get a context detached from shutdown so an in-flight
			// store write is not torn in half; the router timeout still applies.
			_ = l.router.Run(context.WithoutCancel(ctx), task)
		}
	}
}
