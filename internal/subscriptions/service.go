package subscriptions

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/internal/audit"
	"github.com/freshfork/mealkit-backend/internal/notifications"
	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/outbox"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// ActionInput carries one lifecycle action with its parameters.
type ActionInput struct {
	Action           enums.SubscriptionAction
	PauseUntil       *time.Time
	NextDeliveryDate *time.Time
	MealPlan         *types.MealPlanConfig
}

// Service owns the subscription state machine: active ⇄ paused → canceled.
type Service struct {
	db      *db.Client
	repo    Repository
	gateway StripeSubscriptionClient
	audit   *audit.Service
	notify  *notifications.Enqueuer
	cfg     config.CheckoutConfig
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(dbClient *db.Client, repo Repository, gateway StripeSubscriptionClient, auditSvc *audit.Service, notify *notifications.Enqueuer, cfg config.CheckoutConfig, logg *logger.Logger) *Service {
	return &Service{
		db:      dbClient,
		repo:    repo,
		gateway: gateway,
		audit:   auditSvc,
		notify:  notify,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}
}

// Get returns the subscription when it exists and belongs to the caller.
func (s *Service) Get(ctx context.Context, id uuid.UUID, customerEmail string) (*models.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if !strings.EqualFold(sub.CustomerEmail, strings.TrimSpace(customerEmail)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return sub, nil
}

// Apply runs one lifecycle action. The mutation, its audit entry and the
// change notification commit in a single transaction.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, customerEmail string, input ActionInput) (*models.Subscription, error) {
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", input.Action))
	}

	sub, err := s.Get(ctx, id, customerEmail)
	if err != nil {
		return nil, err
	}

	if sub.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is canceled")
	}

	updates, changeDesc, err := s.planUpdates(sub, input)
	if err != nil {
		return nil, err
	}

	// Cancellation must not diverge from the billing provider: the gateway
	// call happens first and its failure aborts the local mutation. Pause
	// and resume sync best-effort after commit.
	if input.Action == enums.SubscriptionActionCancel {
		if err := s.cancelOnGateway(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "canceling subscription with gateway")
		}
	}

	before := snapshotFor(sub)

	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, sub.ID, updates); err != nil {
			return err
		}
		updated, err := repo.FindByID(ctx, sub.ID)
		if err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:     customerEmail,
			Action:    "subscription." + string(input.Action),
			TableName: "subscriptions",
			RecordID:  sub.ID.String(),
			Before:    before,
			After:     snapshotFor(updated),
		}); err != nil {
			return err
		}

		if err := s.notify.Enqueue(ctx, tx, notifications.Request{
			Template:  enums.NotificationSubscriptionChange,
			Recipient: sub.CustomerEmail,
			Data: map[string]string{
				"change": changeDesc,
				"status": string(updated.Status),
			},
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{Email: customerEmail, Role: string(enums.ActorRoleCustomer)},
		}); err != nil {
			return err
		}

		sub = updated
		return nil
	})
	if txErr != nil {
		if typed := pkgerrors.As(txErr); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "applying subscription action")
	}

	s.syncPauseState(ctx, sub, input)

	return sub, nil
}

// planUpdates validates the transition and returns the column updates plus a
// human-readable change description for the notification.
func (s *Service) planUpdates(sub *models.Subscription, input ActionInput) (map[string]any, string, error) {
	switch input.Action {
	case enums.SubscriptionActionPause:
		if sub.Status != enums.SubscriptionStatusActive {
			return nil, "", pkgerrors.New(pkgerrors.CodeStateConflict, "only active subscriptions can be paused")
		}
		desc := "paused indefinitely"
		if input.PauseUntil != nil {
			desc = fmt.Sprintf("paused until %s", input.PauseUntil.Format("2006-01-02"))
		}
		return map[string]any{
			"status":      enums.SubscriptionStatusPaused,
			"pause_until": input.PauseUntil,
		}, desc, nil

	case enums.SubscriptionActionResume:
		if sub.Status != enums.SubscriptionStatusPaused {
			return nil, "", pkgerrors.New(pkgerrors.CodeStateConflict, "only paused subscriptions can be resumed")
		}
		if input.NextDeliveryDate == nil {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "next_delivery_date is required to resume")
		}
		return map[string]any{
			"status":             enums.SubscriptionStatusActive,
			"pause_until":        nil,
			"next_delivery_date": *input.NextDeliveryDate,
		}, fmt.Sprintf("resumed with next delivery on %s", input.NextDeliveryDate.Format("2006-01-02")), nil

	case enums.SubscriptionActionCancel:
		return map[string]any{
			"status":      enums.SubscriptionStatusCanceled,
			"canceled_at": s.now(),
		}, "canceled", nil

	case enums.SubscriptionActionUpdateDeliveryDate:
		if input.NextDeliveryDate == nil {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "next_delivery_date is required")
		}
		return map[string]any{
			"next_delivery_date": *input.NextDeliveryDate,
		}, fmt.Sprintf("next delivery moved to %s", input.NextDeliveryDate.Format("2006-01-02")), nil

	case enums.SubscriptionActionUpdateMealPlan:
		if input.MealPlan == nil {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "meal_plan is required")
		}
		merged := sub.MealPlan.Merge(*input.MealPlan)
		price := merged.People * merged.Days * s.pricePerPortionCents()
		if price <= 0 {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "meal plan must include people and days")
		}
		return map[string]any{
			"meal_plan":                merged,
			"price_per_delivery_cents": price,
		}, "meal plan updated", nil

	default:
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", input.Action))
	}
}

func (s *Service) cancelOnGateway(ctx context.Context, sub *models.Subscription) error {
	if s.gateway == nil || sub.GatewaySubscriptionID == nil {
		return nil
	}
	_, err := s.gateway.Cancel(ctx, *sub.GatewaySubscriptionID, &stripe.SubscriptionCancelParams{})
	return err
}

// syncPauseState mirrors pause/resume onto the billing provider. Failures
// are logged only; the webhook sync will reconcile later.
func (s *Service) syncPauseState(ctx context.Context, sub *models.Subscription, input ActionInput) {
	if s.gateway == nil || sub.GatewaySubscriptionID == nil {
		return
	}

	switch input.Action {
	case enums.SubscriptionActionPause:
		params := &stripe.SubscriptionParams{
			PauseCollection: &stripe.SubscriptionPauseCollectionParams{
				Behavior: stripe.String(string(stripe.SubscriptionPauseCollectionBehaviorVoid)),
			},
		}
		if input.PauseUntil != nil {
			params.PauseCollection.ResumesAt = stripe.Int64(input.PauseUntil.Unix())
		}
		if _, err := s.gateway.Update(ctx, *sub.GatewaySubscriptionID, params); err != nil {
			s.logg.Error(ctx, "syncing pause to gateway failed", err)
		}
	case enums.SubscriptionActionResume:
		params := &stripe.SubscriptionParams{}
		params.AddExtra("pause_collection", "")
		if _, err := s.gateway.Update(ctx, *sub.GatewaySubscriptionID, params); err != nil {
			s.logg.Error(ctx, "syncing resume to gateway failed", err)
		}
	}
}

func (s *Service) pricePerPortionCents() int {
	if s.cfg.PricePerPortionCents > 0 {
		return s.cfg.PricePerPortionCents
	}
	return 1250
}

// snapshotFor keeps audit rows small and stable.
func snapshotFor(sub *models.Subscription) map[string]any {
	if sub == nil {
		return nil
	}
	return map[string]any{
		"status":                   string(sub.Status),
		"plan_type":                sub.PlanType,
		"price_per_delivery_cents": sub.PricePerDeliveryCents,
		"meal_plan":                sub.MealPlan,
		"next_delivery_date":       sub.NextDeliveryDate,
		"pause_until":              sub.PauseUntil,
		"canceled_at":              sub.CanceledAt,
	}
}
