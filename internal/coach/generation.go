package coach

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/ai"
	"github.com/spigell/intraview/internal/interview"
	"github.com/spigell/intraview/internal/metrics"
	"github.com/spigell/intraview/internal/tasks"
)

// StartReport creates a run for the job description and schedules question
// generation. userID may be empty for anonymous runs.
func (s *Service) StartReport(ctx context.Context, userID, jobDescription string) (string, error) {
	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return "", invalidArgument("job description is required")
	}

	run := &interview.Run{
		ID:             s.newID(),
		UserID:         strings.TrimSpace(userID),
		JobDescription: jobDescription,
		Status:         interview.StatusWaiting,
	}

	if err := s.store.Insert(ctx, run); err != nil {
		return "", s.storeErr("create run", err)
	}
	metrics.RunsCreated.Inc()

	log := s.log(run.ID, "")
	log.Info("run created", zap.Int("job_description_length", len(jobDescription)))

	if err := s.scheduleGeneration(ctx, run.ID); err != nil {
		return "", err
	}

	return run.ID, nil
}

// StartRun generates the questions of a waiting run. It is the handler of the
// generate_questions task.
func (s *Service) StartRun(ctx context.Context, runID string) error {
	log := s.log(runID, "")

	var jobDescription string
	_, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		jobDescription = run.JobDescription
		return run.Transition(interview.StatusProcessing)
	})
	if err != nil {
		return s.storeErr("start run", err)
	}

	log.Info("generating questions")

	set, err := s.generator.GenerateQuestions(ctx, jobDescription)
	if err != nil {
		s.failRun(context.WithoutCancel(ctx), runID, "generation", fmt.Sprintf("question generation failed: %v", err))
		return &UpstreamError{Op: "generate questions", Err: err}
	}

	run, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		run.JobTitle = set.JobTitle
		run.Employer = set.Employer
		run.Category = set.Category
		run.KeySkills = set.KeySkills
		run.Questions = categoriesFrom(set)
		run.AssignIDs(s.newID)
		interview.Recompute(run)
		return run.Transition(interview.StatusReady)
	})
	if err != nil {
		return s.storeErr("save questions", err)
	}

	log.Info("questions ready",
		zap.Int("categories", len(run.Questions)),
		zap.Int("questions", run.QuestionCount()),
	)

	return nil
}

// RetryGeneration moves a failed run back to waiting and schedules generation again.
func (s *Service) RetryGeneration(ctx context.Context, runID string) (*interview.Run, error) {
	run, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		return run.Transition(interview.StatusWaiting)
	})
	if err != nil {
		return nil, s.storeErr("retry generation", err)
	}

	s.log(runID, "").Info("question generation retried")

	if err := s.scheduleGeneration(ctx, runID); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Service) scheduleGeneration(ctx context.Context, runID string) error {
	if err := s.scheduler.Enqueue(ctx, tasks.New(tasks.KindGenerateQuestions, runID)); err != nil {
		s.failRun(context.WithoutCancel(ctx), runID, "enqueue", fmt.Sprintf("could not schedule question generation: %v", err))
		return &StoreError{Op: "schedule question generation", Err: err}
	}
	return nil
}

// failRun records a generation failure. Runs that already left the pending
// states are left untouched.
func (s *Service) failRun(ctx context.Context, runID, reason, message string) {
	log := s.log(runID, "")

	_, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		return run.Fail(message)
	})
	if err != nil {
		log.Warn("could not mark run as failed", zap.Error(err))
		return
	}

	metrics.RunsFailed.WithLabelValues(reason).Inc()
	log.Warn("run failed", zap.String("reason", reason), zap.String("error", message))
}

func categoriesFrom(set *ai.QuestionSet) []*interview.Category {
	categories := make([]*interview.Category, 0, len(set.Categories))
	for _, c := range set.Categories {
		category := &interview.Category{
			Category:  c.Category,
			Questions: make([]*interview.Question, 0, len(c.Questions)),
		}
		for _, q := range c.Questions {
			if strings.TrimSpace(q.Question) == "" {
				continue
			}
			category.Questions = append(category.Questions, &interview.Question{Question: q.Question})
		}
		categories = append(categories, category)
	}
	return categories
}
