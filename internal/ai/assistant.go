// Package ai describes the generative collaborators used by the interview coach.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/intraview/internal/interview"
)

// ErrInvalidResponse is returned when the model output cannot be parsed or
// does not match the expected JSON schema.
var ErrInvalidResponse = errors.New("invalid ai response")

// SpentError reports a call that consumed tokens but produced no usable
// result, so the caller can still account for the usage.
type SpentError struct {
	Tokens int
	Err    error
}

func (e *SpentError) Error() string {
	return fmt.Sprintf("%v (%d tokens spent)", e.Err, e.Tokens)
}

func (e *SpentError) Unwrap() error { return e.Err }

// SpentTokens returns the tokens carried by err, or 0.
func SpentTokens(err error) int {
	var spent *SpentError
	if errors.As(err, &spent) {
		return spent.Tokens
	}
	return 0
}

// Question categories the generator is asked to use.
const (
	CategoryCompetency  = "Competency Questions"
	CategoryTechnical   = "Technical Questions"
	CategorySituational = "Situational Questions"
)

// QuestionSet is the generated structure of a run.
type QuestionSet struct {
	JobTitle   string        `json:"jobTitle" mapstructure:"jobTitle"`
	Employer   string        `json:"employer" mapstructure:"employer"`
	KeySkills  []string      `json:"keySkills" mapstructure:"keySkills"`
	Category   string        `json:"category" mapstructure:"category"`
	Categories []CategorySet `json:"questions" mapstructure:"questions"`
}

// CategorySet is one generated category with its questions.
type CategorySet struct {
	Category  string              `json:"category" mapstructure:"category"`
	Questions []GeneratedQuestion `json:"questions" mapstructure:"questions"`
}

type GeneratedQuestion struct {
	Question string `json:"question" mapstructure:"question"`
}

// AnswerRequest is everything the scorer sees about one answer.
type AnswerRequest struct {
	Question       string
	Answer         string
	JobDescription string
}

// Feedback is the assessment of a single answer.
type Feedback struct {
	Score          float64         `json:"score" mapstructure:"score"`
	Feedback       string          `json:"feedback" mapstructure:"feedback"`
	ImprovedAnswer string          `json:"improvedAnswer" mapstructure:"improvedAnswer"`
	Suggestions    []string        `json:"suggestions" mapstructure:"suggestions"`
	Areas          interview.Areas `json:"areas" mapstructure:"areas"`
	// TotalTokens is the token usage reported for the call, 0 when unknown.
	TotalTokens int `json:"-" mapstructure:"-"`
}

// QuestionGenerator turns a job description into categorized questions.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, jobDescription string) (*QuestionSet, error)
}

// AnswerScorer assesses an answer to an interview question.
type AnswerScorer interface {
	ScoreAnswer(ctx context.Context, req AnswerRequest) (*Feedback, error)
}

// Coach is a model that can do both.
type Coach interface {
	QuestionGenerator
	AnswerScorer
}
