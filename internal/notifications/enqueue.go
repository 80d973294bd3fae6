package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/outbox"
	"github.com/freshfork/mealkit-backend/pkg/outbox/payloads"
)

// Request describes one transactional notification to enqueue.
type Request struct {
	Template      enums.NotificationTemplate
	Recipient     string
	Subject       string
	Data          map[string]string
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *outbox.ActorRef
}

// Enqueuer queues notifications through the outbox so they commit together
// with the business mutation and never block the request path.
type Enqueuer struct {
	outbox *outbox.Service
}

func NewEnqueuer(outboxSvc *outbox.Service) *Enqueuer {
	return &Enqueuer{outbox: outboxSvc}
}

// Enqueue writes one notification_requested outbox row in the caller's
// transaction.
func (e *Enqueuer) Enqueue(ctx context.Context, tx *gorm.DB, req Request) error {
	if !req.Template.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification template")
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: req.AggregateType,
		AggregateID:   req.AggregateID,
		Actor:         req.Actor,
		Version:       1,
		Data: payloads.NotificationRequestedEvent{
			Template:  req.Template,
			Recipient: req.Recipient,
			Subject:   req.Subject,
			Data:      req.Data,
		},
	}
	return e.outbox.Emit(ctx, tx, event)
}
