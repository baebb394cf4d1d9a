package app

import (
	"fmt"

	"science-quiz/internal/domain"
)

// QuestionLabel is the display/history label of the question at a 1-based position.
func QuestionLabel(ordinal int, prompt string) string {
	return fmt.Sprintf("Câu %d: %s", ordinal, prompt)
}

// Record freezes a selection into an AnswerRecord.
func Record(q domain.Question, ordinal int, sel domain.Selection) domain.AnswerRecord {
	rec := domain.AnswerRecord{
		Question:          QuestionLabel(ordinal, q.Prompt),
		CorrectAnswerText: q.CorrectText(),
		Explanation:       q.Explanation,
		QuestionData:      q,
	}

	key, ok := sel.Key()
	if !ok {
		rec.AnswerKey = domain.Unanswered
		rec.AnswerText = domain.UnansweredText
		return rec
	}

	rec.AnswerKey = domain.RecordedAnswerKey(key)
	rec.AnswerText = q.Option(key)
	rec.IsCorrect = key == q.Correct
	return rec
}

// Score counts the correct records.
func Score(records []domain.AnswerRecord) int {
	score := 0
	for _, r := range records {
		if r.IsCorrect {
			score++
		}
	}
	return score
}
