// Package tasks dispatches fire-and-forget background work such as question
// generation and answer scoring.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/logger"
)

// Kind names a type of background task.
type Kind string

const (
	KindGenerateQuestions Kind = "generate_questions"
	KindScoreAnswer       Kind = "score_answer"
)

// ErrClosed is returned by Enqueue once the scheduler stopped.
var ErrClosed = errors.New("scheduler is closed")

// Task is the payload of one background job. Scoring tasks carry the answer
// version they were scheduled for so a superseded answer is never scored.
type Task struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	RunID      string    `json:"runId"`
	QuestionID string    `json:"questionId,omitempty"`
	Version    int       `json:"version,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// New returns a task of the given kind for a run.
func New(kind Kind, runID string) Task {
	return Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		RunID:      runID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ForQuestion returns a copy of the task addressed to one answer version.
func (t Task) ForQuestion(questionID string, version int) Task {
	t.QuestionID = questionID
	t.Version = version
	return t
}

func (t Task) fields() []zap.Field {
	return logger.TaskFields(t.ID, string(t.Kind), t.RunID, t.QuestionID)
}

// Scheduler accepts tasks for later execution. Enqueue returns once the task
// is queued; it never waits for the task to run.
type Scheduler interface {
	Enqueue(ctx context.Context, task Task) error
}

// Handler executes a task.
type Handler func(ctx context.Context, task Task) error

// DropError marks a task that was discarded on purpose, for example because
// its run vanished or the answer it was scheduled for has been replaced.
type DropError struct {
	Reason string
	Err    error
}

func (e *DropError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task dropped (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("task dropped (%s)", e.Reason)
}

func (e *DropError) Unwrap() error { return e.Err }

// Drop wraps err as a deliberate discard with a short machine-readable reason.
func Drop(reason string, err error) error {
	return &DropError{Reason: reason, Err: err}
}
