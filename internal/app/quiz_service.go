package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"science-quiz/internal/domain"
)

// SessionRepository abstracts where live quiz sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, id string) (domain.Bank, error)
}

// ServiceConfig picks the bank sessions draw from and the quiz parameters.
type ServiceConfig struct {
	BankID  string
	Session SessionConfig
}

// QuizService contains the quiz use cases shared by the terminal and server front ends.
type QuizService struct {
	sessions  SessionRepository
	banks     BankRepository
	history   *HistoryStore
	explainer *ExplanationService
	cfg       ServiceConfig
	logger    *zap.Logger
	metrics   Metrics
	opts      []SessionOption
}

func NewQuizService(sessions SessionRepository, banks BankRepository, history *HistoryStore, explainer *ExplanationService, cfg ServiceConfig, logger *zap.Logger, metrics Metrics, opts ...SessionOption) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if explainer == nil {
		explainer = NewExplanationService(nil, logger, metrics)
	}
	return &QuizService{
		sessions:  sessions,
		banks:     banks,
		history:   history,
		explainer: explainer,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// OpenSession creates an idle session over the configured bank and registers it.
func (s *QuizService) OpenSession(ctx context.Context) (*Session, error) {
	bank, err := s.banks.GetBank(ctx, s.cfg.BankID)
	if err != nil {
		return nil, fmt.Errorf("load bank %q: %w", s.cfg.BankID, err)
	}

	opts := make([]SessionOption, 0, len(s.opts)+2)
	opts = append(opts, WithLogger(s.logger), WithMetrics(s.metrics))
	opts = append(opts, s.opts...)

	session, err := NewSession(uuid.NewString(), bank.Questions, s.history, s.explainer, s.cfg.Session, opts...)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	s.metrics.SessionOpened()
	return session, nil
}

// Session looks up a live session.
func (s *QuizService) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// CloseSession stops the session's timers, ends its subscriptions and unregisters it.
func (s *QuizService) CloseSession(id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(id)
	s.metrics.SessionClosed()
}

// History returns stored attempts, optionally only those of student.
func (s *QuizService) History(student string) []domain.QuizAttempt {
	return s.history.ByStudent(student)
}

// Students lists the names present in history.
func (s *QuizService) Students() []string {
	return s.history.Students()
}

// ExplainHistoryAnswer explains answer index of a stored attempt.
func (s *QuizService) ExplainHistoryAnswer(ctx context.Context, attemptID string, index int) (string, error) {
	attempt, err := s.history.Find(attemptID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(attempt.Answers) {
		return "", domain.ErrAnswerNotFound
	}
	return s.explainer.Explain(ctx, attempt.Answers[index]), nil
}
