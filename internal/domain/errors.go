package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrNotEnoughQuestions is returned when the bank is smaller than the configured draw size.
	ErrNotEnoughQuestions = errors.New("question bank smaller than questions per quiz")
	// ErrBlankStudentName is returned by Start when the display name is empty after trimming.
	ErrBlankStudentName = errors.New("student name must not be blank")
	// ErrSessionInProgress is returned by Start while an attempt is still active.
	ErrSessionInProgress = errors.New("quiz attempt already in progress")
	// ErrAttemptNotFound indicates an unknown attempt id in history.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrAnswerNotFound indicates an answer index outside the attempt.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrMalformedAttempt wraps structural validation failures of persisted attempts.
	ErrMalformedAttempt = errors.New("malformed quiz attempt")
	// ErrExplainerNotConfigured is returned by explanation clients without credentials.
	ErrExplainerNotConfigured = errors.New("explanation service not configured")
)
