// Package coach implements the interview run lifecycle: question generation,
// answer submission, asynchronous scoring, score aggregation and resets.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/ai"
	"github.com/spigell/intraview/internal/interview"
	"github.com/spigell/intraview/internal/logger"
	"github.com/spigell/intraview/internal/speech"
	"github.com/spigell/intraview/internal/store"
	"github.com/spigell/intraview/internal/tasks"
)

// Dependencies are the collaborators of a Service. Transcriber and Logger are
// optional.
type Dependencies struct {
	Store       store.RunStore
	Scheduler   tasks.Scheduler
	Generator   ai.QuestionGenerator
	Scorer      ai.AnswerScorer
	Transcriber speech.Transcriber
	Logger      *zap.Logger
}

// Service owns every mutation of a run.
type Service struct {
	store       store.RunStore
	scheduler   tasks.Scheduler
	generator   ai.QuestionGenerator
	scorer      ai.AnswerScorer
	transcriber speech.Transcriber
	logger      *zap.Logger
	newID       func() string
}

func New(deps Dependencies) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("run store is required")
	case deps.Scheduler == nil:
		return nil, errors.New("task scheduler is required")
	case deps.Generator == nil:
		return nil, errors.New("question generator is required")
	case deps.Scorer == nil:
		return nil, errors.New("answer scorer is required")
	}

	return &Service{
		store:       deps.Store,
		scheduler:   deps.Scheduler,
		generator:   deps.Generator,
		scorer:      deps.Scorer,
		transcriber: deps.Transcriber,
		logger:      logger.WithFields(deps.Logger),
		newID:       uuid.NewString,
	}, nil
}

// FetchRun returns the run document.
func (s *Service) FetchRun(ctx context.Context, runID string) (*interview.Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, ErrRunNotFound
	}

	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return nil, s.storeErr("fetch run", err)
	}
	return run, nil
}

// ListRuns returns the user's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, userID string) ([]*interview.Run, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}

	runs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.storeErr("list runs", err)
	}
	return runs, nil
}

// CalculateScore re-derives every score of the run and persists the result.
func (s *Service) CalculateScore(ctx context.Context, runID string) (*interview.Run, error) {
	run, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		interview.Recompute(run)
		return nil
	})
	if err != nil {
		return nil, s.storeErr("calculate score", err)
	}
	return run, nil
}

func (s *Service) log(runID, questionID string) *zap.Logger {
	return logger.WithFields(s.logger, logger.RunFields(runID, questionID)...)
}

// storeErr maps store failures onto the service's error vocabulary. Errors
// raised by our own patch functions pass through unchanged.
func (s *Service) storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrRunNotFound)
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrStaleAnswer),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, interview.ErrInvalidTransition):
		return err
	default:
		return &StoreError{Op: op, Err: err}
	}
}
