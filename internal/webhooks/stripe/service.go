package stripewebhook

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/internal/fulfillment"
	pkgdb "github.com/freshfork/mealkit-backend/pkg/db"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/metrics"
)

// fulfillmentHandler is the downstream surface the dispatcher routes to.
type fulfillmentHandler interface {
	HandlePaymentSucceeded(ctx context.Context, gatewayPaymentID string) error
	HandlePaymentFailed(ctx context.Context, gatewayPaymentID string) error
	HandleRecurringCharge(ctx context.Context, gatewaySubscriptionID, gatewayInvoiceID string) error
	HandleSubscriptionSync(ctx context.Context, input fulfillment.SubscriptionSyncInput) error
}

// Service routes verified gateway events to their handlers. Every recognized
// event is recorded in webhook_events before handling and marked processed
// after; replays of processed events are acknowledged without side effects.
type Service struct {
	events  EventRepository
	handler fulfillmentHandler
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
}

func NewService(events EventRepository, handler fulfillmentHandler, pm *metrics.PipelineMetrics, logg *logger.Logger) (*Service, error) {
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	if handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment handler required")
	}
	return &Service{events: events, handler: handler, metrics: pm, logg: logg}, nil
}

// HandleEvent dispatches one verified event. Returning nil acknowledges the
// event to the gateway; any error leaves it unacknowledged for redelivery.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	eventType, recognized := enums.FromStripeEventType(string(event.Type))
	if !recognized {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"gateway_event_id": event.ID,
			"stripe_type":      string(event.Type),
		}), "unrecognized gateway event acknowledged")
		s.metrics.IncWebhookEvent(string(event.Type), "ignored")
		return nil
	}

	ctx = s.logg.WithEventID(ctx, event.ID)

	done, err := s.recordDelivery(ctx, event, eventType)
	if err != nil {
		return err
	}
	if done {
		s.metrics.IncWebhookEvent(string(eventType), "duplicate")
		return nil
	}

	start := time.Now()
	if err := s.dispatch(ctx, event, eventType); err != nil {
		s.metrics.IncWebhookEvent(string(eventType), "failure")
		return err
	}
	s.metrics.ObserveWebhookDuration(string(eventType), time.Since(start))

	if err := s.events.MarkProcessed(ctx, event.ID); err != nil {
		// The side effects are durable and idempotent; a redelivery will
		// land on the dedupe checks inside each handler.
		s.logg.Error(ctx, "marking webhook event processed failed", err)
	}

	s.metrics.IncWebhookEvent(string(eventType), "success")
	s.logg.Info(ctx, "gateway event processed")
	return nil
}

// recordDelivery inserts the dedupe row. It reports done=true when the event
// was already fully processed.
func (s *Service) recordDelivery(ctx context.Context, event *stripe.Event, eventType enums.GatewayEventType) (bool, error) {
	existing, err := s.events.FindByGatewayEventID(ctx, event.ID)
	if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking webhook event ledger")
	}
	if existing != nil {
		if existing.ProcessedAt != nil {
			s.logg.Info(ctx, "gateway event already processed, acknowledging")
			return true, nil
		}
		// Recorded but unprocessed: a prior attempt failed mid-way. Retry.
		return false, nil
	}

	row := &models.WebhookEvent{
		GatewayEventID: event.ID,
		EventType:      eventType,
		Payload:        json.RawMessage(event.Data.Raw),
	}
	if err := s.events.Create(ctx, row); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			// Concurrent delivery won the insert; let that delivery finish.
			return true, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording webhook event")
	}
	return false, nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event, eventType enums.GatewayEventType) error {
	switch eventType {
	case enums.GatewayEventPaymentSucceeded, enums.GatewayEventPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding payment intent event")
		}
		if eventType == enums.GatewayEventPaymentSucceeded {
			return s.handler.HandlePaymentSucceeded(ctx, intent.ID)
		}
		return s.handler.HandlePaymentFailed(ctx, intent.ID)

	case enums.GatewayEventSubscriptionCreated,
		enums.GatewayEventSubscriptionUpdated,
		enums.GatewayEventSubscriptionCanceled:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding subscription event")
		}
		return s.handler.HandleSubscriptionSync(ctx, fulfillment.SubscriptionSyncInput{
			EventType:             eventType,
			GatewaySubscriptionID: sub.ID,
			LocalSubscriptionID:   sub.Metadata["subscription_id"],
			GatewayStatus:         string(sub.Status),
		})

	case enums.GatewayEventRecurringChargeSucceeded:
		subscriptionID := event.GetObjectValue("subscription")
		invoiceID := event.GetObjectValue("id")
		return s.handler.HandleRecurringCharge(ctx, subscriptionID, invoiceID)

	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unhandled gateway event type")
	}
}
