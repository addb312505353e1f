package interview

// Recompute derives question, category and run scores from the current
// answers and areas. It never fails and calling it twice gives the same result.
//
//   - question: 0 without an answer, otherwise the mean of its area scores (0 without areas)
//   - category: mean of its question scores, 0 when it has no questions
//   - run: mean of the categories whose score is defined, 0 when none is
func Recompute(run *Run) *Run {
	if run == nil {
		return nil
	}

	for _, category := range run.Questions {
		if category == nil {
			continue
		}

		total := 0.0
		for _, question := range category.Questions {
			if question == nil {
				continue
			}
			score := QuestionScore(question)
			question.Score = &score
			total += score
		}

		score := 0.0
		if len(category.Questions) > 0 {
			score = total / float64(len(category.Questions))
		}
		category.Score = &score
	}

	total := 0.0
	count := 0
	for _, category := range run.Questions {
		if category == nil || category.Score == nil {
			continue
		}
		total += *category.Score
		count++
	}

	run.Score = 0
	if count > 0 {
		run.Score = total / float64(count)
	}

	return run
}

// QuestionScore is the derived score of a single question.
func QuestionScore(q *Question) float64 {
	if !q.HasAnswer() {
		return 0
	}
	return mean(q.Areas.Scores())
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
