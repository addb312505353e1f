package ai

import (
	"errors"
	"strings"
	"testing"
)

const validFeedback = `{
  "score": 0.8,
  "feedback": "Good",
  "improvedAnswer": "Better",
  "suggestions": ["Use STAR"],
  "areas": {
    "clarity": {"score": 0.9, "feedback": "clear"},
    "relevance": {"score": 0.8, "feedback": "relevant"},
    "structure": {"score": 0.7, "feedback": "ok"},
    "competency": {"score": 0.8, "feedback": "solid"}
  }
}`

func TestValidateFeedback(t *testing.T) {
	if err := ValidateFeedback([]byte(validFeedback)); err != nil {
		t.Fatalf("expected valid feedback, got %v", err)
	}
}

func TestValidateFeedbackRejectsOutOfRangeScore(t *testing.T) {
	doc := strings.Replace(validFeedback, `"score": 0.8,`, `"score": 8,`, 1)

	err := ValidateFeedback([]byte(doc))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 1 || verr.Errors[0].Field != "score" {
		t.Fatalf("unexpected violations: %+v", verr.Errors)
	}
}

func TestValidateFeedbackRequiresAreas(t *testing.T) {
	err := ValidateFeedback([]byte(`{"score":0.5,"feedback":"f","improvedAnswer":"i","suggestions":[],"areas":{"clarity":{"score":0.5,"feedback":"x"}}}`))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestValidateQuestions(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{
			name:  "complete",
			doc:   `{"jobTitle":"Go Engineer","employer":"Acme","keySkills":["Go"],"category":"Software","questions":[{"category":"Technical Questions","questions":[{"question":"What is a goroutine?"}]}]}`,
			valid: true,
		},
		{
			name: "missing questions",
			doc:  `{"jobTitle":"Go Engineer","employer":"Acme","keySkills":[],"category":"Software"}`,
		},
		{
			name: "empty question text",
			doc:  `{"jobTitle":"x","employer":"y","keySkills":[],"category":"z","questions":[{"category":"Technical Questions","questions":[{"question":""}]}]}`,
		},
		{
			name: "not json",
			doc:  `Sure! Here are your questions`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestions([]byte(tt.doc))
			if tt.valid && err != nil {
				t.Fatalf("expected valid document, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}
