package interview

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a run.
//
//	waiting ──► processing ──► ready
//	   │            │
//	   └────────────┴──► failed ──► waiting (manual retry)
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// ErrInvalidTransition is returned when the status graph forbids a move.
var ErrInvalidTransition = errors.New("invalid status transition")

var validTransitions = map[Status][]Status{
	StatusWaiting:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusReady, StatusFailed},
	StatusFailed:     {StatusWaiting},
}

// ParseStatus converts a raw string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusWaiting, StatusProcessing, StatusReady, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

// IsTransitionAllowed reports whether a run may move from one status to another.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the run to the given status or returns ErrInvalidTransition.
func (r *Run) Transition(to Status) error {
	if !IsTransitionAllowed(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	if to != StatusFailed {
		r.Error = ""
	}
	return nil
}

// Fail moves the run to failed and records why.
func (r *Run) Fail(reason string) error {
	if err := r.Transition(StatusFailed); err != nil {
		return err
	}
	r.Error = reason
	return nil
}

// IsPending reports whether question generation has not finished yet.
func (s Status) IsPending() bool {
	return s == StatusWaiting || s == StatusProcessing
}
