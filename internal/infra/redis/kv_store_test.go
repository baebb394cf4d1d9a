package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestKVStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewKVStore(newClient(mr), "science-quiz:")

	if _, ok, err := store.Get(ctx, "quizHistory"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "quizHistory", `[]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("science-quiz:quizHistory"); got != "[]" {
		t.Fatalf("expected prefixed key, got %q", got)
	}
	v, ok, err := store.Get(ctx, "quizHistory")
	if err != nil || !ok || v != "[]" {
		t.Fatalf("unexpected get %q %v %v", v, ok, err)
	}
}

func TestKVStoreReportsOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	store := NewKVStore(newClient(mr), "")
	mr.Close()

	if err := store.Set(context.Background(), "k", "v"); err == nil {
		t.Fatalf("expected error once redis is gone")
	}
	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error once redis is gone")
	}
}
