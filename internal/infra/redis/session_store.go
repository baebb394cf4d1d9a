package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"science-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own timers and subscribers, so the objects stay in a local map.
// Redis holds a liveness marker per session with a short status summary,
// refreshed by Touch and dropped on Delete.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

type liveness struct {
	Status  app.Status `json:"status"`
	Student string     `json:"student,omitempty"`
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	s.Touch(context.Background(), session)
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	// best-effort
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// Touch refreshes the liveness marker of session. Errors are ignored.
func (s *SessionStore) Touch(ctx context.Context, session *app.Session) {
	snap := session.Snapshot()
	data, err := json.Marshal(liveness{Status: snap.Status, Student: snap.StudentName})
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, s.key(session.ID()), data, s.ttl).Err()
}

// TouchAll refreshes every local session's marker.
func (s *SessionStore) TouchAll(ctx context.Context) {
	s.mu.RLock()
	sessions := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		s.Touch(ctx, session)
	}
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
