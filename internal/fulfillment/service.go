package fulfillment

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/internal/audit"
	"github.com/freshfork/mealkit-backend/internal/checkout"
	"github.com/freshfork/mealkit-backend/internal/notifications"
	"github.com/freshfork/mealkit-backend/internal/orders"
	"github.com/freshfork/mealkit-backend/internal/subscriptions"
	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/outbox"
)

const systemActor = "system:webhook"

// Service turns confirmed payments into durable business records. Every
// handler is idempotent; gateway delivery is at-least-once.
type Service struct {
	db          *db.Client
	pendingRepo checkout.Repository
	orderRepo   orders.Repository
	subRepo     subscriptions.Repository
	gateway     subscriptions.StripeSubscriptionClient
	audit       *audit.Service
	notify      *notifications.Enqueuer
	cfg         config.CheckoutConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(dbClient *db.Client, pendingRepo checkout.Repository, orderRepo orders.Repository, subRepo subscriptions.Repository, gateway subscriptions.StripeSubscriptionClient, auditSvc *audit.Service, notify *notifications.Enqueuer, cfg config.CheckoutConfig, logg *logger.Logger) *Service {
	return &Service{
		db:          dbClient,
		pendingRepo: pendingRepo,
		orderRepo:   orderRepo,
		subRepo:     subRepo,
		gateway:     gateway,
		audit:       auditSvc,
		notify:      notify,
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}
}

// HandlePaymentSucceeded creates the Order, its items and (when a cart line
// carries a meal plan) exactly one Subscription, in a single transaction.
// Unknown payment handles and duplicate deliveries are skip outcomes, not
// errors.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, gatewayPaymentID string) error {
	pending, err := s.pendingRepo.FindByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "gateway_payment_id", gatewayPaymentID),
				"payment succeeded for unknown pending payment, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pending payment")
	}

	exists, err := s.orderRepo.ExistsByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for existing order")
	}
	if exists {
		s.logg.Info(s.logg.WithField(ctx, "gateway_payment_id", gatewayPaymentID),
			"order already exists for payment, skipping")
		return nil
	}

	var order *models.Order
	var createdSub *models.Subscription
	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		order = &models.Order{
			ID:               uuid.New(),
			GatewayPaymentID: pending.GatewayPaymentID,
			CustomerEmail:    pending.CustomerEmail,
			CustomerName:     pending.CustomerName,
			ShippingAddress:  pending.ShippingAddress,
			SubtotalCents:    pending.SubtotalCents,
			DiscountCents:    pending.DiscountCents,
			TotalCents:       pending.TotalCents,
			DiscountDetails:  pending.DiscountDetails,
			Status:           enums.OrderStatusConfirmed,
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(pending.CartSnapshot.Items))
		for _, line := range pending.CartSnapshot.Items {
			items = append(items, models.OrderItem{
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				Name:           line.Name,
				UnitPriceCents: line.UnitPriceCents,
				Qty:            line.Qty,
				TotalCents:     line.UnitPriceCents * line.Qty,
				MealPlan:       line.MealPlan,
			})
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return err
		}

		sub, err := s.maybeCreateSubscription(ctx, tx, order, pending)
		if err != nil {
			return err
		}
		createdSub = sub

		if err := s.pendingRepo.WithTx(tx).UpdateStatus(ctx, gatewayPaymentID, enums.PaymentStatusSucceeded); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:     systemActor,
			Action:    "payment.succeeded",
			TableName: "orders",
			RecordID:  order.ID.String(),
			After: map[string]any{
				"gateway_payment_id": gatewayPaymentID,
				"total_cents":        order.TotalCents,
			},
		}); err != nil {
			return err
		}

		return s.notify.Enqueue(ctx, tx, notifications.Request{
			Template:  enums.NotificationOrderConfirmation,
			Recipient: order.CustomerEmail,
			Data: map[string]string{
				"order_id": order.ID.String(),
				"total":    formatCents(order.TotalCents),
			},
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Email: systemActor, Role: string(enums.ActorRoleSystem)},
		})
	})
	if txErr != nil {
		// A concurrent delivery may have created the order first; the unique
		// gateway handle turns that into a clean skip.
		if db.IsUniqueViolation(txErr, "") {
			s.logg.Info(s.logg.WithField(ctx, "gateway_payment_id", gatewayPaymentID),
				"concurrent fulfillment detected, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "fulfilling payment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":           order.ID.String(),
		"gateway_payment_id": gatewayPaymentID,
	})
	s.logg.Info(logCtx, "order fulfilled")

	s.openGatewayBilling(ctx, createdSub)
	return nil
}

// openGatewayBilling creates the recurring-billing subscription at the gateway
// once the fulfillment transaction has committed. On failure the local handle
// stays nil and the gateway-side creation event attaches it later via the
// metadata reference.
func (s *Service) openGatewayBilling(ctx context.Context, sub *models.Subscription) {
	if s.gateway == nil || sub == nil {
		return
	}

	logCtx := s.logg.WithField(ctx, "subscription_id", sub.ID.String())
	gatewayID, err := s.gateway.Create(ctx, subscriptions.CreateInput{
		CustomerEmail:       sub.CustomerEmail,
		PlanType:            sub.PlanType,
		PriceCents:          sub.PricePerDeliveryCents,
		IntervalDays:        s.deliveryFrequencyDays(sub),
		LocalSubscriptionID: sub.ID.String(),
	})
	if err != nil {
		s.logg.Error(logCtx, "creating gateway subscription failed", err)
		return
	}

	if err := s.subRepo.Update(ctx, sub.ID, map[string]any{
		"gateway_subscription_id": gatewayID,
	}); err != nil {
		s.logg.Error(s.logg.WithField(logCtx, "gateway_subscription_id", gatewayID),
			"attaching gateway subscription handle failed", err)
	}
}

// HandlePaymentFailed flips the pending payment and tells the customer. A
// missing pending payment is a skip.
func (s *Service) HandlePaymentFailed(ctx context.Context, gatewayPaymentID string) error {
	pending, err := s.pendingRepo.FindByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "gateway_payment_id", gatewayPaymentID),
				"payment failed for unknown pending payment, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pending payment")
	}
	if pending.Status == enums.PaymentStatusFailed {
		return nil
	}

	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.pendingRepo.WithTx(tx).UpdateStatus(ctx, gatewayPaymentID, enums.PaymentStatusFailed); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:     systemActor,
			Action:    "payment.failed",
			TableName: "pending_payments",
			RecordID:  pending.ID.String(),
			Before:    map[string]any{"status": string(pending.Status)},
			After:     map[string]any{"status": string(enums.PaymentStatusFailed)},
		}); err != nil {
			return err
		}
		return s.notify.Enqueue(ctx, tx, notifications.Request{
			Template:      enums.NotificationPaymentFailed,
			Recipient:     pending.CustomerEmail,
			AggregateType: enums.AggregatePendingPayment,
			AggregateID:   pending.ID,
			Actor:         &outbox.ActorRef{Email: systemActor, Role: string(enums.ActorRoleSystem)},
		})
	})
	if txErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "recording failed payment")
	}
	return nil
}

// HandleRecurringCharge records one billing cycle as a delivery and advances
// the next delivery date. The unique invoice handle dedupes redelivery.
func (s *Service) HandleRecurringCharge(ctx context.Context, gatewaySubscriptionID, gatewayInvoiceID string) error {
	if gatewaySubscriptionID == "" || gatewayInvoiceID == "" {
		s.logg.Warn(ctx, "recurring charge event without subscription or invoice handle, skipping")
		return nil
	}

	sub, err := s.subRepo.FindByGatewaySubscriptionID(ctx, gatewaySubscriptionID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "gateway_subscription_id", gatewaySubscriptionID),
				"recurring charge for unknown subscription, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}

	seen, err := s.subRepo.DeliveryExistsByInvoiceID(ctx, gatewayInvoiceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for existing delivery")
	}
	if seen {
		return nil
	}

	scheduled := sub.NextDeliveryDate
	next := scheduled.AddDate(0, 0, s.deliveryFrequencyDays(sub))

	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		if err := repo.CreateDelivery(ctx, &models.SubscriptionDelivery{
			SubscriptionID:   sub.ID,
			GatewayInvoiceID: &gatewayInvoiceID,
			ScheduledDate:    scheduled,
			Status:           enums.DeliveryStatusScheduled,
		}); err != nil {
			return err
		}
		if err := repo.Update(ctx, sub.ID, map[string]any{"next_delivery_date": next}); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:     systemActor,
			Action:    "subscription.recurring_charge",
			TableName: "subscription_deliveries",
			RecordID:  sub.ID.String(),
			After: map[string]any{
				"gateway_invoice_id": gatewayInvoiceID,
				"scheduled_date":     scheduled,
			},
		}); err != nil {
			return err
		}
		return s.notify.Enqueue(ctx, tx, notifications.Request{
			Template:  enums.NotificationDeliveryScheduled,
			Recipient: sub.CustomerEmail,
			Data: map[string]string{
				"scheduled_date": scheduled.Format("2006-01-02"),
			},
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{Email: systemActor, Role: string(enums.ActorRoleSystem)},
		})
	})
	if txErr != nil {
		if db.IsUniqueViolation(txErr, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "recording recurring charge")
	}
	return nil
}

// SubscriptionSyncInput is the normalized gateway-side subscription change.
type SubscriptionSyncInput struct {
	EventType             enums.GatewayEventType
	GatewaySubscriptionID string
	LocalSubscriptionID   string
	GatewayStatus         string
}

// HandleSubscriptionSync attaches the gateway handle on creation and loosely
// mirrors terminal gateway state. Local state stays authoritative otherwise.
func (s *Service) HandleSubscriptionSync(ctx context.Context, input SubscriptionSyncInput) error {
	if input.GatewaySubscriptionID == "" {
		s.logg.Warn(ctx, "subscription event without gateway handle, skipping")
		return nil
	}

	sub, err := s.subRepo.FindByGatewaySubscriptionID(ctx, input.GatewaySubscriptionID)
	if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}

	if sub == nil {
		sub, err = s.attachGatewayHandle(ctx, input)
		if err != nil || sub == nil {
			return err
		}
	}

	switch input.EventType {
	case enums.GatewayEventSubscriptionCanceled:
		if sub.Status == enums.SubscriptionStatusCanceled {
			return nil
		}
		err := s.subRepo.Update(ctx, sub.ID, map[string]any{
			"status":      enums.SubscriptionStatusCanceled,
			"canceled_at": s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "syncing canceled subscription")
		}
		return nil
	case enums.GatewayEventSubscriptionCreated, enums.GatewayEventSubscriptionUpdated:
		// Handle attached above; nothing else to mirror.
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unexpected event type %q", input.EventType))
	}
}

// attachGatewayHandle links a gateway subscription to its local row via the
// local id carried in gateway metadata. Unknown handles are skipped.
func (s *Service) attachGatewayHandle(ctx context.Context, input SubscriptionSyncInput) (*models.Subscription, error) {
	if input.LocalSubscriptionID == "" {
		s.logg.Warn(s.logg.WithField(ctx, "gateway_subscription_id", input.GatewaySubscriptionID),
			"gateway subscription has no local reference, skipping")
		return nil, nil
	}
	localID, err := uuid.Parse(input.LocalSubscriptionID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "local_subscription_id", input.LocalSubscriptionID),
			"gateway subscription carries malformed local reference, skipping")
		return nil, nil
	}

	sub, err := s.subRepo.FindByID(ctx, localID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "local_subscription_id", input.LocalSubscriptionID),
				"gateway subscription references unknown local subscription, skipping")
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}

	if sub.GatewaySubscriptionID == nil {
		if err := s.subRepo.Update(ctx, sub.ID, map[string]any{
			"gateway_subscription_id": input.GatewaySubscriptionID,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching gateway subscription handle")
		}
		sub.GatewaySubscriptionID = &input.GatewaySubscriptionID
	}
	return sub, nil
}

// maybeCreateSubscription creates exactly one subscription from the first
// meal-plan cart line, if any.
func (s *Service) maybeCreateSubscription(ctx context.Context, tx *gorm.DB, order *models.Order, pending *models.PendingPayment) (*models.Subscription, error) {
	for _, line := range pending.CartSnapshot.Items {
		if !line.MealPlan.IsMealPlan() {
			continue
		}

		frequency := s.cfg.DeliveryFrequencyDays
		if frequency <= 0 {
			frequency = 7
		}

		price := line.MealPlan.People * line.MealPlan.Days * s.pricePerPortionCents()
		if price <= 0 {
			price = line.UnitPriceCents * line.Qty
		}

		sub := &models.Subscription{
			ID:                    uuid.New(),
			CustomerEmail:         order.CustomerEmail,
			OrderID:               &order.ID,
			Status:                enums.SubscriptionStatusActive,
			PlanType:              line.ProductID,
			PricePerDeliveryCents: price,
			MealPlan:              line.MealPlan,
			NextDeliveryDate:      s.now().AddDate(0, 0, frequency),
			DeliveryFrequencyDays: frequency,
		}
		if _, err := s.subRepo.WithTx(tx).Create(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}
	return nil, nil
}

func (s *Service) deliveryFrequencyDays(sub *models.Subscription) int {
	if sub.DeliveryFrequencyDays > 0 {
		return sub.DeliveryFrequencyDays
	}
	if s.cfg.DeliveryFrequencyDays > 0 {
		return s.cfg.DeliveryFrequencyDays
	}
	return 7
}

func (s *Service) pricePerPortionCents() int {
	if s.cfg.PricePerPortionCents > 0 {
		return s.cfg.PricePerPortionCents
	}
	return 1250
}

func formatCents(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
