package orders

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/internal/audit"
	"github.com/freshfork/mealkit-backend/internal/notifications"
	"github.com/freshfork/mealkit-backend/pkg/db"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/outbox"
)

// Service applies operator-driven order status changes.
type Service struct {
	db     *db.Client
	repo   Repository
	audit  *audit.Service
	notify *notifications.Enqueuer
	logg   *logger.Logger
}

func NewService(dbClient *db.Client, repo Repository, auditSvc *audit.Service, notify *notifications.Enqueuer, logg *logger.Logger) *Service {
	return &Service{
		db:     dbClient,
		repo:   repo,
		audit:  auditSvc,
		notify: notify,
		logg:   logg,
	}
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// UpdateStatus moves the order along its state machine, appends the audit
// entry and queues a delivery-status notification, all in one transaction.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, actor string) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", next))
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, next)).
			WithDetails(map[string]any{"from": string(order.Status), "to": string(next)})
	}

	previous := order.Status

	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateStatus(ctx, order.ID, next); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:     actor,
			Action:    "order.status_change",
			TableName: "orders",
			RecordID:  order.ID.String(),
			Before:    map[string]any{"status": string(previous)},
			After:     map[string]any{"status": string(next)},
		}); err != nil {
			return err
		}

		return s.notify.Enqueue(ctx, tx, notifications.Request{
			Template:  enums.NotificationDeliveryStatus,
			Recipient: order.CustomerEmail,
			Data: map[string]string{
				"order_id": order.ID.String(),
				"status":   string(next),
			},
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Email: actor, Role: string(enums.ActorRoleOperator)},
		})
	})
	if txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "updating order status")
	}

	order.Status = next
	return order, nil
}
