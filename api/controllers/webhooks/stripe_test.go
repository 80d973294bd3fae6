package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/freshfork/mealkit-backend/internal/webhooks/stripe"
	"github.com/freshfork/mealkit-backend/pkg/logger"
)

const testSigningSecret = "whsec_test_secret"

type fakeStripeWebhookService struct {
	events []*stripe.Event
	err    error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.events = append(f.events, event)
	return f.err
}

type fakeSigningClient struct{}

func (fakeSigningClient) SigningSecret() string { return testSigningSecret }

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore { return &memoryStore{data: map[string]string{}} }

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"test", "idempotency", scope, id}, ":")
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newTestGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newMemoryStore(), time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	return guard
}

func testWebhookLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func buildEventPayload(t *testing.T, eventID string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        "payment_intent.succeeded",
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": map[string]any{"id": "pi_123"}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func buildSignatureHeader(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(handler http.HandlerFunc, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestStripeWebhook_Success(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())

	payload := buildEventPayload(t, "evt_1")
	rec := postWebhook(handler, payload, buildSignatureHeader(payload, testSigningSecret, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.events) != 1 || svc.events[0].ID != "evt_1" {
		t.Fatalf("expected one handled event, got %v", svc.events)
	}
}

func TestStripeWebhook_DuplicateDeliveryAcknowledged(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())

	payload := buildEventPayload(t, "evt_1")
	sig := buildSignatureHeader(payload, testSigningSecret, time.Now())

	for i := 0; i < 2; i++ {
		rec := postWebhook(handler, payload, sig)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if len(svc.events) != 1 {
		t.Fatalf("expected the service to run once, got %d", len(svc.events))
	}
}

func TestStripeWebhook_InvalidSignatureRejected(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())

	payload := buildEventPayload(t, "evt_1")
	rec := postWebhook(handler, payload, buildSignatureHeader(payload, "whsec_wrong_secret", time.Now()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("invalid signature must not reach the service")
	}
}

func TestStripeWebhook_MissingSignatureRejected(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())

	rec := postWebhook(handler, buildEventPayload(t, "evt_1"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("missing signature must not reach the service")
	}
}

func TestStripeWebhook_StaleTimestampRejected(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := StripeWebhook(svc, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())

	payload := buildEventPayload(t, "evt_1")
	rec := postWebhook(handler, payload, buildSignatureHeader(payload, testSigningSecret, time.Now().Add(-time.Hour)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStripeWebhook_HandlerErrorReleasesIdempotencyKey(t *testing.T) {
	svc := &fakeStripeWebhookService{err: errors.New("db down")}
	handler := StripeWebhook(svc, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())

	payload := buildEventPayload(t, "evt_1")
	sig := buildSignatureHeader(payload, testSigningSecret, time.Now())

	rec := postWebhook(handler, payload, sig)
	if rec.Code == http.StatusOK {
		t.Fatal("expected the failed delivery to be rejected")
	}

	// Redelivery must reach the service again rather than short-circuit as a
	// duplicate.
	svc.err = nil
	rec = postWebhook(handler, payload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d", rec.Code)
	}
	if len(svc.events) != 2 {
		t.Fatalf("expected two service calls, got %d", len(svc.events))
	}
}

func TestStripeWebhook_NilDependencies(t *testing.T) {
	handler := StripeWebhook(nil, fakeSigningClient{}, newTestGuard(t), testWebhookLogger())
	rec := postWebhook(handler, []byte(`{}`), "t=1,v1=abc")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
