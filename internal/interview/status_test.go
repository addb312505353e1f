package interview_test

import (
	"errors"
	"testing"

	"github.com/spigell/intraview/internal/interview"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"waiting", "processing", "ready", "failed"} {
		got, err := interview.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}

	if _, err := interview.ParseStatus("done"); err == nil {
		t.Error("ParseStatus(\"done\") expected error, got nil")
	}
}

func TestIsTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to interview.Status
		want     bool
	}{
		{interview.StatusWaiting, interview.StatusProcessing, true},
		{interview.StatusWaiting, interview.StatusFailed, true},
		{interview.StatusProcessing, interview.StatusReady, true},
		{interview.StatusProcessing, interview.StatusFailed, true},
		{interview.StatusFailed, interview.StatusWaiting, true},
		{interview.StatusWaiting, interview.StatusReady, false},
		{interview.StatusReady, interview.StatusFailed, false},
		{interview.StatusReady, interview.StatusWaiting, false},
		{interview.StatusFailed, interview.StatusReady, false},
	}

	for _, tc := range cases {
		if got := interview.IsTransitionAllowed(tc.from, tc.to); got != tc.want {
			t.Errorf("IsTransitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRunFailRecordsReason(t *testing.T) {
	run := &interview.Run{Status: interview.StatusProcessing}

	if err := run.Fail("model unavailable"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != interview.StatusFailed || run.Error != "model unavailable" {
		t.Fatalf("unexpected run state: %s %q", run.Status, run.Error)
	}

	if err := run.Transition(interview.StatusWaiting); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Error != "" {
		t.Fatalf("error should be cleared on retry, got %q", run.Error)
	}
}

func TestRunTransitionRejected(t *testing.T) {
	run := &interview.Run{Status: interview.StatusReady}

	err := run.Fail("late failure")
	if !errors.Is(err, interview.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if run.Status != interview.StatusReady {
		t.Fatalf("status changed to %s", run.Status)
	}
}
