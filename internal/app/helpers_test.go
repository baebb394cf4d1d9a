package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"science-quiz/internal/app"
	"science-quiz/internal/domain"
)

// fakeScheduler records armed tasks; tests drive them with Tick and FireTimers.
type fakeScheduler struct {
	mu      sync.Mutex
	tickers []*fakeTask
	timers  []*fakeTask
}

type fakeTask struct {
	fn      func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (f *fakeScheduler) Every(interval time.Duration, fn func()) func() {
	task := &fakeTask{fn: fn, delay: interval}
	f.mu.Lock()
	f.tickers = append(f.tickers, task)
	f.mu.Unlock()
	return f.stopper(task)
}

func (f *fakeScheduler) After(delay time.Duration, fn func()) func() {
	task := &fakeTask{fn: fn, delay: delay}
	f.mu.Lock()
	f.timers = append(f.timers, task)
	f.mu.Unlock()
	return f.stopper(task)
}

func (f *fakeScheduler) stopper(task *fakeTask) func() {
	return func() {
		f.mu.Lock()
		task.stopped = true
		f.mu.Unlock()
	}
}

// Tick fires every live ticker n times. Callbacks run outside the scheduler lock.
func (f *fakeScheduler) Tick(n int) {
	for i := 0; i < n; i++ {
		for _, task := range f.live(f.tickers) {
			task.fn()
		}
	}
}

// FireTimers runs every pending one-shot task once.
func (f *fakeScheduler) FireTimers() {
	pending := f.live(f.timers)
	f.mu.Lock()
	for _, task := range pending {
		task.fired = true
	}
	f.mu.Unlock()
	for _, task := range pending {
		task.fn()
	}
}

func (f *fakeScheduler) ActiveTickers() int {
	return len(f.live(f.tickers))
}

func (f *fakeScheduler) PendingTimers() int {
	return len(f.live(f.timers))
}

func (f *fakeScheduler) live(tasks []*fakeTask) []*fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeTask, 0, len(tasks))
	for _, task := range tasks {
		if !task.stopped && !task.fired {
			out = append(out, task)
		}
	}
	return out
}

// memStorage is a map-backed app.Storage that can be told to fail.
type memStorage struct {
	mu      sync.Mutex
	values  map[string]string
	sets    int
	failGet bool
	failSet bool
}

var errStorage = errors.New("storage unavailable")

func newMemStorage() *memStorage {
	return &memStorage{values: make(map[string]string)}
}

func (m *memStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errStorage
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errStorage
	}
	m.sets++
	m.values[key] = value
	return nil
}

// countingMetrics tallies the signals the tests assert on.
type countingMetrics struct {
	app.NopMetrics
	mu            sync.Mutex
	finalized     map[app.FinishReason]int
	persistFailed int
	explainOK     int
	explainFailed int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{finalized: make(map[app.FinishReason]int)}
}

func (c *countingMetrics) AttemptFinalized(reason app.FinishReason, _, _ int) {
	c.mu.Lock()
	c.finalized[reason]++
	c.mu.Unlock()
}

func (c *countingMetrics) HistoryPersistFailed() {
	c.mu.Lock()
	c.persistFailed++
	c.mu.Unlock()
}

func (c *countingMetrics) ExplanationServed(ok bool) {
	c.mu.Lock()
	if ok {
		c.explainOK++
	} else {
		c.explainFailed++
	}
	c.mu.Unlock()
}

// fakeExplainer answers with a fixed text or error and remembers prompts.
type fakeExplainer struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeExplainer) Explain(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func makeBank(n int) []domain.Question {
	bank := make([]domain.Question, n)
	for i := range bank {
		bank[i] = domain.Question{
			Prompt:      fmt.Sprintf("question %d", i),
			A:           fmt.Sprintf("a%d", i),
			B:           fmt.Sprintf("b%d", i),
			C:           fmt.Sprintf("c%d", i),
			D:           fmt.Sprintf("d%d", i),
			Correct:     domain.AnswerKeys[i%4],
			Explanation: fmt.Sprintf("because %d", i),
		}
	}
	return bank
}

// wrongKey returns a key that is not the correct one.
func wrongKey(q domain.Question) domain.AnswerKey {
	for _, k := range domain.AnswerKeys {
		if k != q.Correct {
			return k
		}
	}
	return ""
}

type harness struct {
	session   *app.Session
	scheduler *fakeScheduler
	history   *app.HistoryStore
	storage   *memStorage
	metrics   *countingMetrics
	explainer *fakeExplainer
}

func newHarness(t *testing.T, bankSize int, cfg app.SessionConfig) *harness {
	t.Helper()
	h := &harness{
		scheduler: &fakeScheduler{},
		storage:   newMemStorage(),
		metrics:   newCountingMetrics(),
		explainer: &fakeExplainer{reply: "ok"},
	}
	h.history = app.NewHistoryStore(h.storage, app.HistoryConfig{}, nil, h.metrics)
	service := app.NewExplanationService(h.explainer, nil, h.metrics)

	ids := 0
	session, err := app.NewSession("s1", makeBank(bankSize), h.history, service, cfg,
		app.WithScheduler(h.scheduler),
		app.WithRand(rand.New(rand.NewSource(7))),
		app.WithClock(func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }),
		app.WithIDGenerator(func() string { ids++; return fmt.Sprintf("attempt-%d", ids) }),
		app.WithMetrics(h.metrics),
	)
	require.NoError(t, err)
	h.session = session
	return h
}
