// Package sweeper fails runs whose question generation never finished.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/interview"
	"github.com/spigell/intraview/internal/logger"
	"github.com/spigell/intraview/internal/metrics"
	"github.com/spigell/intraview/internal/store"
)

const (
	DefaultSchedule = "@every 1m"
	DefaultTimeout  = 10 * time.Minute

	timeoutMessage = "question generation timed out"
)

var errNoLongerStale = errors.New("run is no longer stale")

// Sweeper periodically moves runs stuck in waiting or processing to failed.
type Sweeper struct {
	cron    *cron.Cron
	store   store.RunStore
	logger  *zap.Logger
	spec    string
	timeout time.Duration
	now     func() time.Time
}

func New(runs store.RunStore, logger *zap.Logger, spec string, timeout time.Duration) *Sweeper {
	if spec == "" {
		spec = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cron:    cron.New(),
		store:   runs,
		logger:  logger,
		spec:    spec,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run schedules the sweep and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule sweeper %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("sweeper started", zap.String("schedule", s.spec), zap.Duration("timeout", s.timeout))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
	return nil
}

// Sweep fails every pending run not updated within the timeout and returns
// how many runs it failed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	before := s.now().Add(-s.timeout)
	pending := []interview.Status{interview.StatusWaiting, interview.StatusProcessing}

	stale, err := s.store.ListStale(ctx, pending, before)
	if err != nil {
		return 0, fmt.Errorf("list stale runs: %w", err)
	}

	failed := 0
	for _, run := range stale {
		log := logger.WithFields(s.logger, logger.RunFields(run.ID, "")...)

		_, err := s.store.Patch(ctx, run.ID, func(current *interview.Run) error {
			if !current.Status.IsPending() || !current.UpdatedAt.Before(before) {
				return errNoLongerStale
			}
			return current.Fail(timeoutMessage)
		})
		switch {
		case err == nil:
			failed++
			metrics.RunsFailed.WithLabelValues("timeout").Inc()
			log.Warn("run timed out waiting for questions", zap.Time("updated_at", run.UpdatedAt))
		case errors.Is(err, errNoLongerStale), errors.Is(err, store.ErrNotFound):
			log.Debug("run skipped by sweeper", zap.Error(err))
		default:
			log.Error("failed to time out run", zap.Error(err))
		}
	}

	return failed, nil
}
