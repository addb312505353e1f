// Package store persists Run documents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/intraview/internal/interview"
)

var (
	// ErrNotFound is returned when no run has the requested id.
	ErrNotFound = errors.New("run not found")
	// ErrExists is returned when inserting a run whose id is already taken.
	ErrExists = errors.New("run already exists")
)

// PatchFunc mutates a run in place. Returning an error aborts the patch and
// nothing is written; the error is passed back to the caller unchanged.
type PatchFunc func(run *interview.Run) error

// RunStore is a document store for runs keyed by id with a secondary index on
// the owning user.
type RunStore interface {
	Get(ctx context.Context, id string) (*interview.Run, error)
	Insert(ctx context.Context, run *interview.Run) error
	// Patch applies fn to the current document and persists the result as one
	// atomic read-modify-write.
	Patch(ctx context.Context, id string, fn PatchFunc) (*interview.Run, error)
	// ListByUser returns the user's runs, newest first.
	ListByUser(ctx context.Context, userID string) ([]*interview.Run, error)
	// ListStale returns runs in one of the statuses not updated since before.
	ListStale(ctx context.Context, statuses []interview.Status, before time.Time) ([]*interview.Run, error)
	Close()
}

func containsStatus(statuses []interview.Status, s interview.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func statusStrings(statuses []interview.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
