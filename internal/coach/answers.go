package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/ai"
	"github.com/spigell/intraview/internal/interview"
	"github.com/spigell/intraview/internal/store"
	"github.com/spigell/intraview/internal/tasks"
)

// UpdateAnswer stores the answer of one question and schedules its scoring.
// The answer is persisted before the scoring task is queued.
func (s *Service) UpdateAnswer(ctx context.Context, runID string, loc interview.Locator, answer string) (*interview.Question, error) {
	if loc.IsZero() {
		return nil, invalidArgument("question locator is required")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, invalidArgument("answer must not be empty")
	}

	var updated *interview.Question
	_, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		_, question, ok := run.Find(loc)
		if !ok {
			return ErrQuestionNotFound
		}
		question.SetAnswer(answer)
		updated = question.Clone()
		return nil
	})
	if err != nil {
		return nil, s.storeErr("update answer", err)
	}

	log := s.log(runID, updated.ID)
	log.Info("answer updated", zap.Int("version", updated.Version))

	task := tasks.New(tasks.KindScoreAnswer, runID).ForQuestion(updated.ID, updated.Version)
	if err := s.scheduler.Enqueue(ctx, task); err != nil {
		s.markScoringFailed(context.WithoutCancel(ctx), runID, updated.ID, updated.Version, 0,
			fmt.Sprintf("could not schedule scoring: %v", err))
		return nil, &StoreError{Op: "schedule scoring", Err: err}
	}

	return updated, nil
}

// QuestionFeedback scores the given version of a question's answer, merges
// the feedback and re-aggregates the run in one patch. It is the handler of
// the score_answer task.
func (s *Service) QuestionFeedback(ctx context.Context, runID, questionID string, version int) error {
	log := s.log(runID, questionID)

	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return s.storeErr("load run for scoring", err)
	}
	if len(run.Questions) == 0 {
		return fmt.Errorf("run has no questions: %w", ErrQuestionNotFound)
	}

	_, question, ok := run.FindByID(questionID)
	if !ok {
		return ErrQuestionNotFound
	}
	if question.Version != version || !question.HasAnswer() {
		return ErrStaleAnswer
	}

	feedback, err := s.scorer.ScoreAnswer(ctx, ai.AnswerRequest{
		Question:       question.Question,
		Answer:         *question.Answer,
		JobDescription: run.JobDescription,
	})
	if err != nil {
		// The handler context may be the one that just expired.
		s.markScoringFailed(context.WithoutCancel(ctx), runID, questionID, version, ai.SpentTokens(err),
			fmt.Sprintf("scoring failed: %v", err))
		return &UpstreamError{Op: "score answer", Err: err}
	}

	stale := false
	patched, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		_, question, ok := run.FindByID(questionID)
		if !ok {
			return ErrQuestionNotFound
		}

		question.AddUsage(feedback.TotalTokens)

		if question.Version != version {
			stale = true
			return nil
		}

		applyFeedback(question, feedback)
		interview.Recompute(run)
		return nil
	})
	if err != nil {
		return s.storeErr("save feedback", err)
	}
	if stale {
		log.Info("answer changed while scoring, feedback discarded", zap.Int("version", version))
		return ErrStaleAnswer
	}

	log.Info("answer scored",
		zap.Int("version", version),
		zap.Int("tokens", feedback.TotalTokens),
		zap.Float64("run_score", patched.Score),
	)

	return nil
}

// RetryQuestion clears the answer of one question and everything derived
// from it, then re-aggregates the run. Usage is kept. Any scoring job still
// in flight for the old answer is discarded when it completes.
func (s *Service) RetryQuestion(ctx context.Context, runID string, loc interview.Locator) (*interview.Question, error) {
	if loc.IsZero() {
		return nil, invalidArgument("question locator is required")
	}

	var reset *interview.Question
	_, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		_, question, ok := run.Find(loc)
		if !ok {
			return ErrQuestionNotFound
		}
		question.Reset()
		interview.Recompute(run)
		reset = question.Clone()
		return nil
	})
	if err != nil {
		return nil, s.storeErr("reset question", err)
	}

	s.log(runID, reset.ID).Info("question reset", zap.Int("version", reset.Version))
	return reset, nil
}

// TranscribeAnswer transcribes recorded audio and submits the transcript as
// the question's answer.
func (s *Service) TranscribeAnswer(ctx context.Context, runID string, loc interview.Locator, audio []byte, mimeType string) (*interview.Question, error) {
	if s.transcriber == nil {
		return nil, ErrTranscriptionDisabled
	}
	if loc.IsZero() {
		return nil, invalidArgument("question locator is required")
	}
	if len(audio) == 0 {
		return nil, invalidArgument("audio must not be empty")
	}

	run, err := s.FetchRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if _, _, ok := run.Find(loc); !ok {
		return nil, ErrQuestionNotFound
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return nil, &UpstreamError{Op: "transcribe answer", Err: err}
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	return s.UpdateAnswer(ctx, runID, loc, transcript)
}

// markScoringFailed moves the given answer version to the failed state and
// accounts for any tokens the failed call consumed. A newer answer is left
// alone apart from the usage.
func (s *Service) markScoringFailed(ctx context.Context, runID, questionID string, version, tokens int, message string) {
	log := s.log(runID, questionID)

	recorded := false
	_, err := s.store.Patch(ctx, runID, func(run *interview.Run) error {
		_, question, ok := run.FindByID(questionID)
		if !ok {
			return ErrQuestionNotFound
		}
		if tokens > 0 {
			question.AddUsage(tokens)
		}
		if question.Version != version {
			if tokens > 0 {
				return nil
			}
			return ErrStaleAnswer
		}
		question.State = interview.StateFailed
		question.Error = message
		recorded = true
		return nil
	})

	switch {
	case errors.Is(err, ErrStaleAnswer), errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		log.Debug("scoring failure not recorded, answer is gone or superseded",
			zap.Int("version", version), zap.String("error", message))
		return
	case err != nil:
		log.Warn("could not record scoring failure", zap.Error(err))
		return
	case !recorded:
		log.Debug("scoring failure not recorded, answer superseded",
			zap.Int("version", version), zap.Int("tokens", tokens), zap.String("error", message))
		return
	}

	log.Warn("scoring failed", zap.Int("version", version), zap.String("error", message))
}

func applyFeedback(question *interview.Question, feedback *ai.Feedback) {
	score := feedback.Score
	areas := feedback.Areas
	text := feedback.Feedback
	improved := feedback.ImprovedAnswer

	question.Score = &score
	question.Areas = &areas
	question.Feedback = &text
	question.ImprovedAnswer = &improved
	question.Suggestions = append([]string(nil), feedback.Suggestions...)
	question.State = interview.StateScored
	question.Error = ""
}
