package stripewebhook

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"test", "idempotency", scope, id}, ":")
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func TestIdempotencyGuard_CheckAndMark(t *testing.T) {
	guard, err := NewIdempotencyGuard(newInMemoryStore(), time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	dup, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if dup {
		t.Fatal("first delivery must not be a duplicate")
	}

	dup, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !dup {
		t.Fatal("second delivery must be flagged as duplicate")
	}

	// A different event id is independent.
	dup, err = guard.CheckAndMark(context.Background(), "evt_2")
	if err != nil || dup {
		t.Fatalf("expected fresh event to pass, dup=%v err=%v", dup, err)
	}
}

func TestIdempotencyGuard_DeleteReleasesKey(t *testing.T) {
	guard, err := NewIdempotencyGuard(newInMemoryStore(), time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_1"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	dup, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if dup {
		t.Fatal("deleted key must allow the event through again")
	}
}

func TestNewIdempotencyGuard_Validation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newInMemoryStore(), -time.Second, "scope"); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	if _, err := NewIdempotencyGuard(newInMemoryStore(), time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}
}

func TestIdempotencyGuard_RequiresEventID(t *testing.T) {
	guard, err := NewIdempotencyGuard(newInMemoryStore(), time.Hour, "scope")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
	if err := guard.Delete(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
