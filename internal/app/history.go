package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"science-quiz/internal/domain"
)

const (
	// DefaultHistoryKey is the storage key of the serialized attempt list.
	DefaultHistoryKey = "quizHistory"
	// DefaultMaxAttempts caps the number of stored attempts.
	DefaultMaxAttempts = 50
)

// Storage is the key-value collaborator used for durable history.
// Get reports ok=false when the key has never been written.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// HistoryConfig tunes where and how many attempts are kept.
type HistoryConfig struct {
	Key         string
	MaxAttempts int
}

// HistoryStore keeps attempts most-recent-first, capped, persisted best-effort.
// Storage failures are logged and never returned to callers.
type HistoryStore struct {
	storage Storage
	key     string
	max     int
	logger  *zap.Logger
	metrics Metrics

	mu       sync.Mutex
	attempts []domain.QuizAttempt
}

func NewHistoryStore(storage Storage, cfg HistoryConfig, logger *zap.Logger, metrics Metrics) *HistoryStore {
	if cfg.Key == "" {
		cfg.Key = DefaultHistoryKey
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &HistoryStore{
		storage: storage,
		key:     cfg.Key,
		max:     cfg.MaxAttempts,
		logger:  logger,
		metrics: metrics,
	}
}

// Load replaces the in-memory list with what storage holds.
// Malformed entries are dropped; the normalized list is written back when it changed.
func (h *HistoryStore) Load(ctx context.Context) []domain.QuizAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.attempts = nil

	raw, ok, err := h.storage.Get(ctx, h.key)
	if err != nil {
		h.logger.Warn("history read failed", zap.String("key", h.key), zap.Error(err))
		return []domain.QuizAttempt{}
	}
	if !ok {
		return []domain.QuizAttempt{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		h.logger.Warn("history decode failed", zap.String("key", h.key), zap.Error(err))
		return []domain.QuizAttempt{}
	}

	valid := make([]domain.QuizAttempt, 0, len(entries))
	for i, entry := range entries {
		attempt, err := domain.ParseAttempt(entry)
		if err != nil {
			h.logger.Debug("dropping history entry", zap.Int("position", i), zap.Error(err))
			continue
		}
		valid = append(valid, attempt)
	}

	dropped := len(entries) - len(valid)
	if len(valid) > h.max {
		valid = valid[:h.max]
	}
	h.attempts = valid

	if dropped > 0 || len(entries) > h.max {
		h.logger.Info("normalizing stored history",
			zap.Int("stored", len(entries)),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(valid)),
		)
		if err := h.persistLocked(ctx); err != nil {
			h.logger.Warn("history normalize write failed", zap.Error(err))
		}
	}
	return h.snapshotLocked()
}

// Append prepends attempt, truncates to the cap and persists.
// The updated list is returned even when the write fails.
func (h *HistoryStore) Append(ctx context.Context, attempt domain.QuizAttempt) []domain.QuizAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := make([]domain.QuizAttempt, 0, len(h.attempts)+1)
	list = append(list, attempt)
	list = append(list, h.attempts...)
	if len(list) > h.max {
		list = list[:h.max]
	}
	h.attempts = list

	if err := h.persistLocked(ctx); err != nil {
		h.logger.Warn("history write failed",
			zap.String("attempt_id", attempt.ID),
			zap.Error(err),
		)
	}
	return h.snapshotLocked()
}

// Attempts returns the in-memory list, most recent first.
func (h *HistoryStore) Attempts() []domain.QuizAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// Find looks an attempt up by id.
func (h *HistoryStore) Find(id string) (domain.QuizAttempt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.QuizAttempt{}, domain.ErrAttemptNotFound
}

// ByStudent filters attempts by trimmed student name; an empty name returns everything.
func (h *HistoryStore) ByStudent(name string) []domain.QuizAttempt {
	name = strings.TrimSpace(name)
	h.mu.Lock()
	defer h.mu.Unlock()
	if name == "" {
		return h.snapshotLocked()
	}
	out := make([]domain.QuizAttempt, 0)
	for _, a := range h.attempts {
		if strings.TrimSpace(a.StudentName) == name {
			out = append(out, a)
		}
	}
	return out
}

// Students lists the distinct student names in Vietnamese collation order,
// ignoring case and diacritics when comparing.
func (h *HistoryStore) Students() []string {
	h.mu.Lock()
	seen := make(map[string]struct{}, len(h.attempts))
	names := make([]string, 0, len(h.attempts))
	for _, a := range h.attempts {
		n := strings.TrimSpace(a.StudentName)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	h.mu.Unlock()

	collate.New(language.Vietnamese, collate.Loose).SortStrings(names)
	return names
}

func (h *HistoryStore) persistLocked(ctx context.Context) error {
	list := h.attempts
	if list == nil {
		list = []domain.QuizAttempt{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		h.metrics.HistoryPersistFailed()
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.storage.Set(ctx, h.key, string(data)); err != nil {
		h.metrics.HistoryPersistFailed()
		return fmt.Errorf("store history: %w", err)
	}
	return nil
}

func (h *HistoryStore) snapshotLocked() []domain.QuizAttempt {
	out := make([]domain.QuizAttempt, len(h.attempts))
	copy(out, h.attempts)
	return out
}
