package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateQuestion checks that all texts are present and the correct key is A-D.
func ValidateQuestion(q Question) error {
	return validate.Struct(q)
}

// ValidateBank checks every question of the bank.
func ValidateBank(b Bank) error {
	return validate.Struct(b)
}

// Persisted attempts are decoded into pointer fields so that a missing field and a
// zero value can be told apart; a type mismatch fails the json decode itself.
type storedQuestion struct {
	Question    *string `json:"question" validate:"required,notblank"`
	A           *string `json:"a" validate:"required,notblank"`
	B           *string `json:"b" validate:"required,notblank"`
	C           *string `json:"c" validate:"required,notblank"`
	D           *string `json:"d" validate:"required,notblank"`
	Correct     *string `json:"correct" validate:"required,oneof=A B C D a b c d"`
	Explanation *string `json:"explanation" validate:"required"`
}

type storedAnswer struct {
	Question          *string         `json:"question" validate:"required"`
	AnswerKey         *string         `json:"answerKey" validate:"required,oneof=A B C D UNANSWERED a b c d unanswered"`
	AnswerText        *string         `json:"answerText" validate:"required"`
	CorrectAnswerText *string         `json:"correctAnswerText" validate:"required"`
	IsCorrect         *bool           `json:"isCorrect" validate:"required"`
	Explanation       *string         `json:"explanation" validate:"required"`
	QuestionData      *storedQuestion `json:"questionData" validate:"required"`
}

type storedAttempt struct {
	ID             *string        `json:"id" validate:"required"`
	Timestamp      *string        `json:"timestamp" validate:"required"`
	StudentName    *string        `json:"studentName" validate:"required,notblank"`
	Score          *float64       `json:"score" validate:"required"`
	TotalQuestions *float64       `json:"totalQuestions" validate:"required"`
	Answers        []storedAnswer `json:"answers" validate:"required,dive"`
}

var (
	attemptKeys  = []string{"id", "timestamp", "studentName", "score", "totalQuestions", "answers"}
	answerKeys   = []string{"question", "answerKey", "answerText", "correctAnswerText", "isCorrect", "explanation", "questionData"}
	questionKeys = []string{"question", "a", "b", "c", "d", "correct", "explanation"}
)

// requireKeys fails unless raw is an object holding every key with its exact case.
// encoding/json matches field names case-insensitively, so the typed decode alone
// would accept "ID" for "id".
func requireKeys(raw json.RawMessage, keys []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("missing field %q", k)
		}
	}
	return fields, nil
}

func checkKeys(raw json.RawMessage) error {
	fields, err := requireKeys(raw, attemptKeys)
	if err != nil {
		return err
	}
	var answers []json.RawMessage
	if err := json.Unmarshal(fields["answers"], &answers); err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	for i, a := range answers {
		af, err := requireKeys(a, answerKeys)
		if err != nil {
			return fmt.Errorf("answers[%d]: %w", i, err)
		}
		if _, err := requireKeys(af["questionData"], questionKeys); err != nil {
			return fmt.Errorf("answers[%d].questionData: %w", i, err)
		}
	}
	return nil
}

// ParseAttempt decodes one persisted history entry and applies the structural gate.
// Entries that fail are reported with ErrMalformedAttempt. Lower-case option keys
// ("a".."d", "unanswered") are accepted and normalized to upper case.
func ParseAttempt(raw json.RawMessage) (QuizAttempt, error) {
	if err := checkKeys(raw); err != nil {
		return QuizAttempt{}, fmt.Errorf("%w: %v", ErrMalformedAttempt, err)
	}
	var stored storedAttempt
	if err := json.Unmarshal(raw, &stored); err != nil {
		return QuizAttempt{}, fmt.Errorf("%w: %v", ErrMalformedAttempt, err)
	}
	if err := validate.Struct(stored); err != nil {
		return QuizAttempt{}, fmt.Errorf("%w: %v", ErrMalformedAttempt, err)
	}

	attempt := QuizAttempt{
		ID:             *stored.ID,
		Timestamp:      *stored.Timestamp,
		StudentName:    *stored.StudentName,
		Score:          int(*stored.Score),
		TotalQuestions: int(*stored.TotalQuestions),
		Answers:        make([]AnswerRecord, 0, len(stored.Answers)),
	}
	for _, a := range stored.Answers {
		q := a.QuestionData
		attempt.Answers = append(attempt.Answers, AnswerRecord{
			Question:          *a.Question,
			AnswerKey:         RecordedAnswerKey(strings.ToUpper(*a.AnswerKey)),
			AnswerText:        *a.AnswerText,
			CorrectAnswerText: *a.CorrectAnswerText,
			IsCorrect:         *a.IsCorrect,
			Explanation:       *a.Explanation,
			QuestionData: Question{
				Prompt:      *q.Question,
				A:           *q.A,
				B:           *q.B,
				C:           *q.C,
				D:           *q.D,
				Correct:     AnswerKey(strings.ToUpper(*q.Correct)),
				Explanation: *q.Explanation,
			},
		})
	}
	return attempt, nil
}
