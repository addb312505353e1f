// Package interview holds the Run document and the rules that keep its scores consistent.
package interview

import (
	"time"
)

// Run is one interview practice session for a single job description.
// It is stored as a whole document; categories and questions are embedded.
type Run struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId,omitempty"`
	JobDescription string      `json:"jobDescription"`
	JobTitle       string      `json:"jobTitle,omitempty"`
	Employer       string      `json:"employer,omitempty"`
	Category       string      `json:"category,omitempty"`
	KeySkills      []string    `json:"keySkills,omitempty"`
	Status         Status      `json:"status"`
	Error          string      `json:"error,omitempty"`
	Score          float64     `json:"score"`
	Questions      []*Category `json:"questions,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Category groups questions under a display name.
type Category struct {
	ID        string      `json:"id"`
	Category  string      `json:"category"`
	Score     *float64    `json:"score,omitempty"`
	Questions []*Question `json:"questions"`
}

// QuestionState tells an unanswered question apart from one waiting for
// feedback or one whose scoring pass failed.
type QuestionState string

const (
	StateUnanswered QuestionState = ""
	StatePending    QuestionState = "pending"
	StateScored     QuestionState = "scored"
	StateFailed     QuestionState = "failed"
)

// Question is a single interview question with the user's answer and the
// feedback derived from it.
type Question struct {
	ID             string        `json:"id"`
	Question       string        `json:"question"`
	Answer         *string       `json:"answer,omitempty"`
	Feedback       *string       `json:"feedback,omitempty"`
	ImprovedAnswer *string       `json:"improvedAnswer,omitempty"`
	Suggestions    []string      `json:"suggestions,omitempty"`
	Score          *float64      `json:"score,omitempty"`
	Usage          *int          `json:"usage,omitempty"`
	Areas          *Areas        `json:"areas,omitempty"`
	Version        int           `json:"version"`
	State          QuestionState `json:"state,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Areas are the four fixed dimensions an answer is assessed on.
type Areas struct {
	Clarity    Area `json:"clarity" mapstructure:"clarity"`
	Relevance  Area `json:"relevance" mapstructure:"relevance"`
	Structure  Area `json:"structure" mapstructure:"structure"`
	Competency Area `json:"competency" mapstructure:"competency"`
}

// Area is a sub-score in [0,1] with a short comment.
type Area struct {
	Score    float64 `json:"score" mapstructure:"score"`
	Feedback string  `json:"feedback" mapstructure:"feedback"`
}

// Scores returns the area scores in a fixed order.
func (a *Areas) Scores() []float64 {
	if a == nil {
		return nil
	}
	return []float64{a.Clarity.Score, a.Relevance.Score, a.Structure.Score, a.Competency.Score}
}

// HasAnswer reports whether the question carries a non-empty answer.
func (q *Question) HasAnswer() bool {
	return q.Answer != nil && *q.Answer != ""
}

// SetAnswer stores a new answer and starts a new answer version.
func (q *Question) SetAnswer(answer string) {
	q.Answer = &answer
	q.Version++
	q.State = StatePending
	q.Error = ""
}

// Reset drops the answer and everything derived from it. Usage is kept:
// tokens already spent are not refunded.
func (q *Question) Reset() {
	q.Answer = nil
	q.Areas = nil
	q.Feedback = nil
	q.Score = nil
	q.Suggestions = nil
	q.ImprovedAnswer = nil
	q.State = StateUnanswered
	q.Error = ""
	q.Version++
}

// AddUsage accumulates token consumption across scoring passes.
func (q *Question) AddUsage(tokens int) {
	total := tokens
	if q.Usage != nil {
		total += *q.Usage
	}
	q.Usage = &total
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}

	out := *r
	out.KeySkills = cloneStrings(r.KeySkills)

	if r.Questions != nil {
		out.Questions = make([]*Category, len(r.Questions))
		for i, c := range r.Questions {
			out.Questions[i] = c.clone()
		}
	}

	return &out
}

func (c *Category) clone() *Category {
	if c == nil {
		return nil
	}

	out := *c
	out.Score = cloneFloat(c.Score)

	if c.Questions != nil {
		out.Questions = make([]*Question, len(c.Questions))
		for i, q := range c.Questions {
			out.Questions[i] = q.Clone()
		}
	}

	return &out
}

// Clone returns a deep copy of the question.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}

	out := *q
	out.Answer = cloneString(q.Answer)
	out.Feedback = cloneString(q.Feedback)
	out.ImprovedAnswer = cloneString(q.ImprovedAnswer)
	out.Suggestions = cloneStrings(q.Suggestions)
	out.Score = cloneFloat(q.Score)

	if q.Usage != nil {
		usage := *q.Usage
		out.Usage = &usage
	}

	if q.Areas != nil {
		areas := *q.Areas
		out.Areas = &areas
	}

	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
