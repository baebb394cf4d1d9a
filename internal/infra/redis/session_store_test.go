package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"science-quiz/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := app.NewSession("s1", sampleBank().Questions, nil, nil, app.SessionConfig{
		QuestionsPerQuiz: 1,
		Duration:         time.Minute,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()

	store.Put(session)
	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be set")
	}
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected local session")
	}

	if err := session.Start("Lan"); err != nil {
		t.Fatalf("start: %v", err)
	}
	store.Touch(context.Background(), session)
	raw, _ := mr.Get("quiz:session:s1")
	if !strings.Contains(raw, `"status":"active"`) || !strings.Contains(raw, `"student":"Lan"`) {
		t.Fatalf("unexpected liveness payload %s", raw)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected marker to expire")
	}
	store.TouchAll(context.Background())
	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected TouchAll to restore marker")
	}

	store.Delete("s1")
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be removed")
	}
}
