package coach

import (
	"context"
	"errors"

	"github.com/spigell/intraview/internal/interview"
	"github.com/spigell/intraview/internal/tasks"
)

// Register installs the task handlers of the service on the router.
func (s *Service) Register(router *tasks.Router) {
	router.Handle(tasks.KindGenerateQuestions, func(ctx context.Context, task tasks.Task) error {
		return taskOutcome(s.StartRun(ctx, task.RunID))
	})
	router.Handle(tasks.KindScoreAnswer, func(ctx context.Context, task tasks.Task) error {
		return taskOutcome(s.QuestionFeedback(ctx, task.RunID, task.QuestionID, task.Version))
	})
}

// taskOutcome turns expected no-op outcomes into drops so they are counted
// apart from real failures.
func taskOutcome(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRunNotFound):
		return tasks.Drop("run_not_found", err)
	case errors.Is(err, ErrQuestionNotFound):
		return tasks.Drop("question_not_found", err)
	case errors.Is(err, ErrStaleAnswer):
		return tasks.Drop("stale_version", err)
	case errors.Is(err, interview.ErrInvalidTransition):
		return tasks.Drop("invalid_transition", err)
	default:
		return err
	}
}
