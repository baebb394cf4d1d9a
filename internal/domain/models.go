package domain

import "time"

// TimestampLayout is the ISO-8601 form used for attempt timestamps (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// UnansweredText is shown in place of an answer for questions left blank.
const UnansweredText = "Chưa trả lời"

// AnswerKey identifies one of the four options of a question.
type AnswerKey string

const (
	KeyA AnswerKey = "A"
	KeyB AnswerKey = "B"
	KeyC AnswerKey = "C"
	KeyD AnswerKey = "D"
)

// AnswerKeys lists the option keys in display order.
var AnswerKeys = []AnswerKey{KeyA, KeyB, KeyC, KeyD}

// Valid reports whether k is one of A-D.
func (k AnswerKey) Valid() bool {
	switch k {
	case KeyA, KeyB, KeyC, KeyD:
		return true
	}
	return false
}

// RecordedAnswerKey is the frozen answer of a finished question: an AnswerKey or Unanswered.
type RecordedAnswerKey string

// Unanswered marks a question that had no selection at finalization.
const Unanswered RecordedAnswerKey = "UNANSWERED"

// Question models an MCQ question with exactly one correct option.
// The JSON layout matches the persisted history blob.
type Question struct {
	Prompt      string    `json:"question" yaml:"question" validate:"required,notblank"`
	A           string    `json:"a" yaml:"a" validate:"required,notblank"`
	B           string    `json:"b" yaml:"b" validate:"required,notblank"`
	C           string    `json:"c" yaml:"c" validate:"required,notblank"`
	D           string    `json:"d" yaml:"d" validate:"required,notblank"`
	Correct     AnswerKey `json:"correct" yaml:"correct" validate:"required,oneof=A B C D"`
	Explanation string    `json:"explanation" yaml:"explanation" validate:"required,notblank"`
}

// Option returns the text of option k, or "" for an unknown key.
func (q Question) Option(k AnswerKey) string {
	switch k {
	case KeyA:
		return q.A
	case KeyB:
		return q.B
	case KeyC:
		return q.C
	case KeyD:
		return q.D
	}
	return ""
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() string {
	return q.Option(q.Correct)
}

// Selection is the mutable per-question answer during an active session.
// The zero value means no option has been chosen yet.
type Selection struct {
	key    AnswerKey
	chosen bool
}

// NotChosen is the selection of a question the student has not answered.
var NotChosen = Selection{}

// Chosen returns a selection holding k.
func Chosen(k AnswerKey) Selection {
	return Selection{key: k, chosen: true}
}

// Key returns the chosen key and whether there is one.
func (s Selection) Key() (AnswerKey, bool) {
	return s.key, s.chosen
}

// IsChosen reports whether an option has been selected.
func (s Selection) IsChosen() bool {
	return s.chosen
}

// AnswerRecord is the immutable outcome of one question in a finished attempt.
type AnswerRecord struct {
	Question          string            `json:"question"`
	AnswerKey         RecordedAnswerKey `json:"answerKey"`
	AnswerText        string            `json:"answerText"`
	CorrectAnswerText string            `json:"correctAnswerText"`
	IsCorrect         bool              `json:"isCorrect"`
	Explanation       string            `json:"explanation"`
	QuestionData      Question          `json:"questionData"`
}

// Answered reports whether the student picked an option for this question.
func (r AnswerRecord) Answered() bool {
	return r.AnswerKey != Unanswered
}

// QuizAttempt is the persisted record of one completed session.
type QuizAttempt struct {
	ID             string         `json:"id"`
	Timestamp      string         `json:"timestamp"`
	StudentName    string         `json:"studentName"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerRecord `json:"answers"`
}

// Time parses the attempt timestamp; the zero time is returned for unparsable values.
func (a QuizAttempt) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, a.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Bank is a named, static list of questions.
type Bank struct {
	ID        string     `json:"id" yaml:"id"`
	Questions []Question `json:"questions" yaml:"questions" validate:"dive"`
}
