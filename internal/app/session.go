package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"science-quiz/internal/domain"
)

// Status is the lifecycle stage of a quiz session.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// FinishReason tells how an attempt was finalized.
type FinishReason string

const (
	FinishSubmitted FinishReason = "submitted"
	FinishConfirmed FinishReason = "confirmed"
	FinishExpired   FinishReason = "expired"
)

const persistTimeout = 5 * time.Second

// SessionConfig holds the fixed quiz parameters.
type SessionConfig struct {
	QuestionsPerQuiz int
	Duration         time.Duration
	WarningThreshold time.Duration
	WarningDisplay   time.Duration
}

// DefaultSessionConfig draws 15 questions with 15 minutes on the clock and a
// low-time warning at 2:30 that stays up for 5 seconds.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		QuestionsPerQuiz: 15,
		Duration:         15 * time.Minute,
		WarningThreshold: 150 * time.Second,
		WarningDisplay:   5 * time.Second,
	}
}

// SubmitPrompt is raised when the student submits with unanswered questions.
type SubmitPrompt struct {
	UnansweredCount      int `json:"unansweredCount"`
	FirstUnansweredIndex int `json:"firstUnansweredIndex"`
}

// Snapshot is a read-only copy of the session state for views.
type Snapshot struct {
	ID               string
	Status           Status
	AwaitingName     bool
	DefaultName      string
	StudentName      string
	Questions        []domain.Question
	Selections       []domain.Selection
	Index            int
	RemainingSeconds int
	DurationSeconds  int
	Confirm          *SubmitPrompt
	WarningVisible   bool
	Attempt          *domain.QuizAttempt
	FinishedBy       FinishReason
}

// Current returns the question under the cursor.
func (s Snapshot) Current() (domain.Question, bool) {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.Index], true
}

// AnsweredCount counts questions with a selection.
func (s Snapshot) AnsweredCount() int {
	n := 0
	for _, sel := range s.Selections {
		if sel.IsChosen() {
			n++
		}
	}
	return n
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(sch Scheduler) SessionOption {
	return func(s *Session) { s.scheduler = sch }
}

// WithClock replaces time.Now for attempt timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithRand fixes the random source used for drawing questions.
func WithRand(rnd *rand.Rand) SessionOption {
	return func(s *Session) { s.rnd = rnd }
}

// WithIDGenerator replaces the attempt id generator.
func WithIDGenerator(next func() string) SessionOption {
	return func(s *Session) { s.newID = next }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session is the quiz state machine: idle -> loading -> active -> finished,
// with finished -> loading on a new Start. It is the only writer of its state;
// triggers that do not apply to the current status are ignored.
type Session struct {
	id        string
	cfg       SessionConfig
	bank      []domain.Question
	history   *HistoryStore
	explainer *ExplanationService
	scheduler Scheduler
	now       func() time.Time
	newID     func() string
	rnd       *rand.Rand
	metrics   Metrics
	logger    *zap.Logger

	mu             sync.Mutex
	status         Status
	awaitingName   bool
	defaultName    string
	studentName    string
	questions      []domain.Question
	selections     []domain.Selection
	index          int
	remaining      int
	confirm        *SubmitPrompt
	warningFired   bool
	warningVisible bool
	attempt        *domain.QuizAttempt
	finishedBy     FinishReason
	epoch          int
	stopTicker     func()
	stopWarning    func()
	closed         bool
	subscribers    map[chan Snapshot]struct{}
}

// NewSession builds an idle session over bank. The bank must hold at least
// cfg.QuestionsPerQuiz questions.
func NewSession(id string, bank []domain.Question, history *HistoryStore, explainer *ExplanationService, cfg SessionConfig, opts ...SessionOption) (*Session, error) {
	if cfg.QuestionsPerQuiz <= 0 {
		return nil, fmt.Errorf("questions per quiz must be positive, got %d", cfg.QuestionsPerQuiz)
	}
	if cfg.QuestionsPerQuiz > len(bank) {
		return nil, fmt.Errorf("%w: need %d, have %d", domain.ErrNotEnoughQuestions, cfg.QuestionsPerQuiz, len(bank))
	}
	if cfg.Duration < time.Second {
		return nil, fmt.Errorf("quiz duration must be at least one second, got %s", cfg.Duration)
	}
	if cfg.WarningThreshold >= cfg.Duration {
		return nil, fmt.Errorf("warning threshold %s must be shorter than quiz duration %s", cfg.WarningThreshold, cfg.Duration)
	}

	s := &Session{
		id:           id,
		cfg:          cfg,
		bank:         bank,
		history:      history,
		explainer:    explainer,
		scheduler:    SystemScheduler{},
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics:      NopMetrics{},
		logger:       zap.NewNop(),
		status:       StatusIdle,
		awaitingName: true,
		subscribers:  make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.explainer == nil {
		s.explainer = NewExplanationService(nil, s.logger, s.metrics)
	}
	s.logger = s.logger.With(zap.String("session_id", id))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start begins a fresh attempt for name. It is valid from idle or finished.
func (s *Session) Start(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrBlankStudentName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionNotFound
	}
	if s.status == StatusActive || s.status == StatusLoading {
		return domain.ErrSessionInProgress
	}

	s.disarmLocked()
	s.epoch++
	s.status = StatusLoading
	s.studentName = name
	s.defaultName = name
	s.awaitingName = false

	s.questions = Draw(s.bank, s.cfg.QuestionsPerQuiz, s.rnd)
	s.selections = make([]domain.Selection, len(s.questions))
	s.index = 0
	s.remaining = s.durationSeconds()
	s.confirm = nil
	s.warningFired = false
	s.warningVisible = false
	s.attempt = nil
	s.finishedBy = ""

	s.status = StatusActive
	epoch := s.epoch
	s.stopTicker = s.scheduler.Every(time.Second, func() { s.tick(epoch) })

	s.logger.Info("quiz started",
		zap.String("student", name),
		zap.Int("questions", len(s.questions)),
		zap.Int("seconds", s.remaining),
	)
	s.broadcastLocked()
	return nil
}

// SelectAnswer sets the selection of the current question. Re-selecting is
// allowed until the attempt is finalized.
func (s *Session) SelectAnswer(key domain.AnswerKey) {
	if !key.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive || len(s.questions) == 0 {
		return
	}
	if current, ok := s.selections[s.index].Key(); ok && current == key {
		return
	}
	s.selections[s.index] = domain.Chosen(key)
	s.broadcastLocked()
}

// Next moves the cursor forward, stopping at the last question.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveLocked(s.index + 1)
}

// Previous moves the cursor back, stopping at the first question.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveLocked(s.index - 1)
}

// JumpTo moves the cursor to index, clamped to the question range.
func (s *Session) JumpTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveLocked(index)
}

// Submit finalizes when every question has a selection; otherwise it raises
// a SubmitPrompt and keeps the attempt active.
func (s *Session) Submit(ctx context.Context) {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}

	gaps, first := 0, -1
	for i, sel := range s.selections {
		if !sel.IsChosen() {
			if first < 0 {
				first = i
			}
			gaps++
		}
	}

	var pending *domain.QuizAttempt
	if gaps == 0 {
		pending = s.finalizeLocked(FinishSubmitted)
	} else {
		s.confirm = &SubmitPrompt{UnansweredCount: gaps, FirstUnansweredIndex: first}
	}
	s.broadcastLocked()
	s.mu.Unlock()

	s.persist(ctx, pending)
}

// ConfirmSubmit accepts a pending SubmitPrompt and finalizes with the gaps.
func (s *Session) ConfirmSubmit(ctx context.Context) {
	s.mu.Lock()
	if s.status != StatusActive || s.confirm == nil {
		s.mu.Unlock()
		return
	}
	s.confirm = nil
	pending := s.finalizeLocked(FinishConfirmed)
	s.broadcastLocked()
	s.mu.Unlock()

	s.persist(ctx, pending)
}

// ReturnToUnanswered declines a pending SubmitPrompt and moves the cursor to
// the first gap recorded when the prompt was raised.
func (s *Session) ReturnToUnanswered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive || s.confirm == nil {
		return
	}
	target := s.confirm.FirstUnansweredIndex
	s.confirm = nil
	s.index = clamp(target, 0, len(s.questions)-1)
	s.broadcastLocked()
}

// DismissWarning hides the low-time warning before its display time runs out.
func (s *Session) DismissWarning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.warningVisible {
		return
	}
	s.warningVisible = false
	if s.stopWarning != nil {
		s.stopWarning()
		s.stopWarning = nil
	}
	s.broadcastLocked()
}

// Retry reopens the name step after a finished attempt and returns the
// previous name as the suggested default.
func (s *Session) Retry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusFinished {
		return ""
	}
	s.awaitingName = true
	s.broadcastLocked()
	return s.defaultName
}

// Explain asks the explanation service about answer index of the last finished attempt.
// The call runs outside the session lock and never changes quiz state.
func (s *Session) Explain(ctx context.Context, index int) (string, error) {
	s.mu.Lock()
	attempt := s.attempt
	s.mu.Unlock()

	if attempt == nil {
		return "", domain.ErrAttemptNotFound
	}
	if index < 0 || index >= len(attempt.Answers) {
		return "", domain.ErrAnswerNotFound
	}
	return s.explainer.Explain(ctx, attempt.Answers[index]), nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// Slow readers only ever miss intermediate states. Call cancel when done.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// The initial snapshot must precede any broadcast; ch is empty and buffered.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close disarms timers and ends all subscriptions. An active attempt is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	s.disarmLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) tick(epoch int) {
	s.mu.Lock()
	if epoch != s.epoch || s.status != StatusActive {
		s.mu.Unlock()
		return
	}

	if s.remaining > 0 {
		s.remaining--
	}
	threshold := int(s.cfg.WarningThreshold / time.Second)
	if threshold > 0 && s.remaining == threshold && !s.warningFired {
		s.raiseWarningLocked()
	}

	var pending *domain.QuizAttempt
	if s.remaining == 0 && len(s.questions) > 0 {
		pending = s.finalizeLocked(FinishExpired)
	}
	s.broadcastLocked()
	s.mu.Unlock()

	if pending != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		s.persist(ctx, pending)
	}
}

func (s *Session) raiseWarningLocked() {
	s.warningFired = true
	s.warningVisible = true
	if s.stopWarning != nil {
		s.stopWarning()
	}
	epoch := s.epoch
	s.stopWarning = s.scheduler.After(s.cfg.WarningDisplay, func() { s.autoDismiss(epoch) })
	s.logger.Info("low time warning", zap.Int("remaining_seconds", s.remaining))
}

func (s *Session) autoDismiss(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || !s.warningVisible {
		return
	}
	s.warningVisible = false
	s.stopWarning = nil
	s.broadcastLocked()
}

// finalizeLocked freezes the attempt and moves to finished. The returned
// attempt still has to be handed to the history store outside the lock.
func (s *Session) finalizeLocked(reason FinishReason) *domain.QuizAttempt {
	if len(s.questions) == 0 {
		return nil
	}

	records := make([]domain.AnswerRecord, len(s.questions))
	for i, q := range s.questions {
		records[i] = Record(q, i+1, s.selections[i])
	}
	score := Score(records)

	attempt := domain.QuizAttempt{
		ID:             s.newID(),
		Timestamp:      s.now().UTC().Format(domain.TimestampLayout),
		StudentName:    s.studentName,
		Score:          score,
		TotalQuestions: len(records),
		Answers:        records,
	}

	s.confirm = nil
	s.warningVisible = false
	s.disarmLocked()
	s.attempt = &attempt
	s.finishedBy = reason
	s.status = StatusFinished

	s.metrics.AttemptFinalized(reason, score, len(records))
	s.logger.Info("quiz finished",
		zap.String("attempt_id", attempt.ID),
		zap.String("reason", string(reason)),
		zap.Int("score", score),
		zap.Int("total", len(records)),
	)
	return &attempt
}

func (s *Session) persist(ctx context.Context, attempt *domain.QuizAttempt) {
	if attempt == nil || s.history == nil {
		return
	}
	s.history.Append(ctx, *attempt)
}

func (s *Session) moveLocked(index int) {
	if s.status != StatusActive || len(s.questions) == 0 {
		return
	}
	index = clamp(index, 0, len(s.questions)-1)
	if index == s.index {
		return
	}
	s.index = index
	s.broadcastLocked()
}

func (s *Session) disarmLocked() {
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	if s.stopWarning != nil {
		s.stopWarning()
		s.stopWarning = nil
	}
}

func (s *Session) durationSeconds() int {
	return int(s.cfg.Duration / time.Second)
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:               s.id,
		Status:           s.status,
		AwaitingName:     s.awaitingName,
		DefaultName:      s.defaultName,
		StudentName:      s.studentName,
		Questions:        append([]domain.Question(nil), s.questions...),
		Selections:       append([]domain.Selection(nil), s.selections...),
		Index:            s.index,
		RemainingSeconds: s.remaining,
		DurationSeconds:  s.durationSeconds(),
		WarningVisible:   s.warningVisible,
		FinishedBy:       s.finishedBy,
	}
	if s.confirm != nil {
		c := *s.confirm
		snap.Confirm = &c
	}
	if s.attempt != nil {
		a := *s.attempt
		a.Answers = append([]domain.AnswerRecord(nil), s.attempt.Answers...)
		snap.Attempt = &a
	}
	return snap
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
