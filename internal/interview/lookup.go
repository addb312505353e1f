package interview

import "strings"

// Locator addresses one question of a run. A stable QuestionID wins; without
// it the question is matched by exact category name and question text.
type Locator struct {
	QuestionID string `json:"questionId,omitempty"`
	Category   string `json:"category,omitempty"`
	Question   string `json:"question,omitempty"`
}

// IsZero reports whether the locator carries no address at all.
func (l Locator) IsZero() bool {
	return strings.TrimSpace(l.QuestionID) == "" && l.Category == "" && l.Question == ""
}

// Find resolves the locator against the run.
func (r *Run) Find(loc Locator) (*Category, *Question, bool) {
	if r == nil {
		return nil, nil, false
	}

	if id := strings.TrimSpace(loc.QuestionID); id != "" {
		return r.FindByID(id)
	}

	return r.FindByText(loc.Category, loc.Question)
}

// FindByID returns the question with the given stable id.
func (r *Run) FindByID(questionID string) (*Category, *Question, bool) {
	for _, category := range r.Questions {
		if category == nil {
			continue
		}
		for _, question := range category.Questions {
			if question != nil && question.ID == questionID {
				return category, question, true
			}
		}
	}
	return nil, nil, false
}

// FindByText matches the first category with the exact name, then the first
// question in it with the exact text.
func (r *Run) FindByText(category, question string) (*Category, *Question, bool) {
	for _, c := range r.Questions {
		if c == nil || c.Category != category {
			continue
		}
		for _, q := range c.Questions {
			if q != nil && q.Question == question {
				return c, q, true
			}
		}
		return nil, nil, false
	}
	return nil, nil, false
}

// AssignIDs gives every category and question without an id a new one.
func (r *Run) AssignIDs(newID func() string) {
	for _, category := range r.Questions {
		if category == nil {
			continue
		}
		if category.ID == "" {
			category.ID = newID()
		}
		for _, question := range category.Questions {
			if question != nil && question.ID == "" {
				question.ID = newID()
			}
		}
	}
}

// QuestionCount returns the number of questions across all categories.
func (r *Run) QuestionCount() int {
	count := 0
	for _, category := range r.Questions {
		if category != nil {
			count += len(category.Questions)
		}
	}
	return count
}
