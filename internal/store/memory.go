package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spigell/intraview/internal/interview"
)

// Memory keeps runs in process memory. Documents are copied on the way in and
// out so callers never share state with the store.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*interview.Run
	now  func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[string]*interview.Run),
		now:  time.Now,
	}
}

// SetClock overrides the time source used for timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Get(_ context.Context, id string) (*interview.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run.Clone(), nil
}

func (m *Memory) Insert(_ context.Context, run *interview.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, run.ID)
	}

	now := m.now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	m.runs[run.ID] = run.Clone()
	return nil
}

func (m *Memory) Patch(_ context.Context, id string, fn PatchFunc) (*interview.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = m.now().UTC()

	m.runs[id] = next
	return next.Clone(), nil
}

func (m *Memory) ListByUser(_ context.Context, userID string) ([]*interview.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*interview.Run, 0)
	for _, run := range m.runs {
		if userID != "" && run.UserID == userID {
			out = append(out, run.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (m *Memory) ListStale(_ context.Context, statuses []interview.Status, before time.Time) ([]*interview.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*interview.Run, 0)
	for _, run := range m.runs {
		if containsStatus(statuses, run.Status) && run.UpdatedAt.Before(before) {
			out = append(out, run.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})

	return out, nil
}

func (m *Memory) Close() {}
