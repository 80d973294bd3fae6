package stripewebhook

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
)

// EventRepository is the durable dedupe ledger for gateway webhook delivery.
type EventRepository interface {
	FindByGatewayEventID(ctx context.Context, gatewayEventID string) (*models.WebhookEvent, error)
	Create(ctx context.Context, row *models.WebhookEvent) error
	MarkProcessed(ctx context.Context, gatewayEventID string) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository builds a webhook-event repository bound to the provided DB.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByGatewayEventID(ctx context.Context, gatewayEventID string) (*models.WebhookEvent, error) {
	var row models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("gateway_event_id = ?", gatewayEventID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *eventRepository) Create(ctx context.Context, row *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *eventRepository) MarkProcessed(ctx context.Context, gatewayEventID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("gateway_event_id = ?", gatewayEventID).
		Update("processed_at", now).Error
}
