package http

import (
	"science-quiz/internal/app"
	"science-quiz/internal/domain"
)

type questionView struct {
	Prompt      string `json:"question"`
	A           string `json:"a"`
	B           string `json:"b"`
	C           string `json:"c"`
	D           string `json:"d"`
	Correct     string `json:"correct,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// stateView is the wire form of app.Snapshot. Correct keys and explanations
// stay hidden until the attempt is finished.
type stateView struct {
	SessionID        string              `json:"sessionId"`
	Status           app.Status          `json:"status"`
	AwaitingName     bool                `json:"awaitingName"`
	DefaultName      string              `json:"defaultName,omitempty"`
	StudentName      string              `json:"studentName,omitempty"`
	Index            int                 `json:"index"`
	Questions        []questionView      `json:"questions"`
	Selections       []string            `json:"selections"`
	Answered         int                 `json:"answered"`
	RemainingSeconds int                 `json:"remainingSeconds"`
	DurationSeconds  int                 `json:"durationSeconds"`
	Confirm          *app.SubmitPrompt   `json:"confirm,omitempty"`
	WarningVisible   bool                `json:"warningVisible"`
	FinishedBy       app.FinishReason    `json:"finishedBy,omitempty"`
	Attempt          *domain.QuizAttempt `json:"attempt,omitempty"`
}

func newStateView(s app.Snapshot) stateView {
	reveal := s.Status == app.StatusFinished
	questions := make([]questionView, len(s.Questions))
	for i, q := range s.Questions {
		questions[i] = questionView{Prompt: q.Prompt, A: q.A, B: q.B, C: q.C, D: q.D}
		if reveal {
			questions[i].Correct = string(q.Correct)
			questions[i].Explanation = q.Explanation
		}
	}
	selections := make([]string, len(s.Selections))
	for i, sel := range s.Selections {
		if k, ok := sel.Key(); ok {
			selections[i] = string(k)
		}
	}
	return stateView{
		SessionID:        s.ID,
		Status:           s.Status,
		AwaitingName:     s.AwaitingName,
		DefaultName:      s.DefaultName,
		StudentName:      s.StudentName,
		Index:            s.Index,
		Questions:        questions,
		Selections:       selections,
		Answered:         s.AnsweredCount(),
		RemainingSeconds: s.RemainingSeconds,
		DurationSeconds:  s.DurationSeconds,
		Confirm:          s.Confirm,
		WarningVisible:   s.WarningVisible,
		FinishedBy:       s.FinishedBy,
		Attempt:          s.Attempt,
	}
}
