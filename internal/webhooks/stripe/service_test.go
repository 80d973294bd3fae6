package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/internal/fulfillment"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	"github.com/freshfork/mealkit-backend/pkg/logger"
)

type stubEventRepo struct {
	rows      map[string]*models.WebhookEvent
	createErr error
	processed []string
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{rows: map[string]*models.WebhookEvent{}}
}

func (s *stubEventRepo) FindByGatewayEventID(ctx context.Context, gatewayEventID string) (*models.WebhookEvent, error) {
	row, ok := s.rows[gatewayEventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (s *stubEventRepo) Create(ctx context.Context, row *models.WebhookEvent) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.rows[row.GatewayEventID] = row
	return nil
}

func (s *stubEventRepo) MarkProcessed(ctx context.Context, gatewayEventID string) error {
	s.processed = append(s.processed, gatewayEventID)
	return nil
}

type stubHandler struct {
	succeeded []string
	failed    []string
	recurring [][2]string
	syncs     []fulfillment.SubscriptionSyncInput
	err       error
}

func (s *stubHandler) HandlePaymentSucceeded(ctx context.Context, gatewayPaymentID string) error {
	s.succeeded = append(s.succeeded, gatewayPaymentID)
	return s.err
}

func (s *stubHandler) HandlePaymentFailed(ctx context.Context, gatewayPaymentID string) error {
	s.failed = append(s.failed, gatewayPaymentID)
	return s.err
}

func (s *stubHandler) HandleRecurringCharge(ctx context.Context, gatewaySubscriptionID, gatewayInvoiceID string) error {
	s.recurring = append(s.recurring, [2]string{gatewaySubscriptionID, gatewayInvoiceID})
	return s.err
}

func (s *stubHandler) HandleSubscriptionSync(ctx context.Context, input fulfillment.SubscriptionSyncInput) error {
	s.syncs = append(s.syncs, input)
	return s.err
}

func newWebhookService(t *testing.T, repo EventRepository, handler fulfillmentHandler) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, handler, nil, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func paymentIntentEvent(id, eventType, intentID string) *stripe.Event {
	raw, _ := json.Marshal(map[string]any{"id": intentID})
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEvent_PaymentSucceeded(t *testing.T) {
	repo := newStubEventRepo()
	handler := &stubHandler{}
	svc := newWebhookService(t, repo, handler)

	event := paymentIntentEvent("evt_1", "payment_intent.succeeded", "pi_123")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(handler.succeeded) != 1 || handler.succeeded[0] != "pi_123" {
		t.Fatalf("expected one succeeded dispatch for pi_123, got %v", handler.succeeded)
	}
	if len(repo.processed) != 1 || repo.processed[0] != "evt_1" {
		t.Fatalf("expected evt_1 marked processed, got %v", repo.processed)
	}
	if _, ok := repo.rows["evt_1"]; !ok {
		t.Fatal("expected dedupe row recorded")
	}
}

func TestHandleEvent_PaymentFailed(t *testing.T) {
	handler := &stubHandler{}
	svc := newWebhookService(t, newStubEventRepo(), handler)

	event := paymentIntentEvent("evt_2", "payment_intent.payment_failed", "pi_456")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(handler.failed) != 1 || handler.failed[0] != "pi_456" {
		t.Fatalf("expected one failed dispatch for pi_456, got %v", handler.failed)
	}
}

func TestHandleEvent_UnrecognizedTypeAcknowledged(t *testing.T) {
	repo := newStubEventRepo()
	handler := &stubHandler{}
	svc := newWebhookService(t, repo, handler)

	event := &stripe.Event{
		ID:   "evt_3",
		Type: stripe.EventType("charge.refunded"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatal("unrecognized events must not be recorded")
	}
	if len(handler.succeeded)+len(handler.failed)+len(handler.recurring)+len(handler.syncs) != 0 {
		t.Fatal("unrecognized events must not dispatch")
	}
}

func TestHandleEvent_ProcessedDuplicateSkipsDispatch(t *testing.T) {
	repo := newStubEventRepo()
	now := time.Now()
	repo.rows["evt_4"] = &models.WebhookEvent{GatewayEventID: "evt_4", ProcessedAt: &now}
	handler := &stubHandler{}
	svc := newWebhookService(t, repo, handler)

	event := paymentIntentEvent("evt_4", "payment_intent.succeeded", "pi_1")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(handler.succeeded) != 0 {
		t.Fatal("processed duplicate must not dispatch again")
	}
}

func TestHandleEvent_RecordedButUnprocessedIsRetried(t *testing.T) {
	repo := newStubEventRepo()
	repo.rows["evt_5"] = &models.WebhookEvent{GatewayEventID: "evt_5"}
	handler := &stubHandler{}
	svc := newWebhookService(t, repo, handler)

	event := paymentIntentEvent("evt_5", "payment_intent.succeeded", "pi_1")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(handler.succeeded) != 1 {
		t.Fatal("a recorded but unprocessed event must be retried")
	}
}

func TestHandleEvent_SubscriptionSync(t *testing.T) {
	handler := &stubHandler{}
	svc := newWebhookService(t, newStubEventRepo(), handler)

	raw, _ := json.Marshal(map[string]any{
		"id":       "sub_9",
		"status":   "active",
		"metadata": map[string]string{"subscription_id": "4f9e7d7e-0000-0000-0000-000000000000"},
	})
	event := &stripe.Event{
		ID:   "evt_6",
		Type: stripe.EventType("customer.subscription.created"),
		Data: &stripe.EventData{Raw: raw},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(handler.syncs) != 1 {
		t.Fatalf("expected one sync dispatch, got %d", len(handler.syncs))
	}
	sync := handler.syncs[0]
	if sync.EventType != enums.GatewayEventSubscriptionCreated {
		t.Fatalf("unexpected event type %q", sync.EventType)
	}
	if sync.GatewaySubscriptionID != "sub_9" || sync.LocalSubscriptionID != "4f9e7d7e-0000-0000-0000-000000000000" {
		t.Fatalf("unexpected sync input %+v", sync)
	}
}

func TestHandleEvent_InvoicePaid(t *testing.T) {
	handler := &stubHandler{}
	svc := newWebhookService(t, newStubEventRepo(), handler)

	raw := json.RawMessage(`{"id":"in_7","subscription":"sub_7"}`)
	event := &stripe.Event{
		ID:   "evt_7",
		Type: stripe.EventType("invoice.paid"),
		Data: &stripe.EventData{
			Raw:    raw,
			Object: map[string]any{"id": "in_7", "subscription": "sub_7"},
		},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(handler.recurring) != 1 {
		t.Fatalf("expected one recurring dispatch, got %d", len(handler.recurring))
	}
	if got := handler.recurring[0]; got[0] != "sub_7" || got[1] != "in_7" {
		t.Fatalf("unexpected recurring dispatch %v", got)
	}
}

func TestHandleEvent_HandlerErrorLeavesUnprocessed(t *testing.T) {
	repo := newStubEventRepo()
	handler := &stubHandler{err: context.DeadlineExceeded}
	svc := newWebhookService(t, repo, handler)

	event := paymentIntentEvent("evt_8", "payment_intent.succeeded", "pi_1")
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if len(repo.processed) != 0 {
		t.Fatal("failed dispatch must not mark the event processed")
	}
}

func TestHandleEvent_NilEventRejected(t *testing.T) {
	svc := newWebhookService(t, newStubEventRepo(), &stubHandler{})
	if err := svc.HandleEvent(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}
