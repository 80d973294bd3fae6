package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/pkg/enums"
)

// SubscriptionDelivery is one recurring billing cycle. A row is created when
// the billing provider reports a successful recurring charge; the unique
// invoice handle dedupes redelivered charge events.
type SubscriptionDelivery struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID   uuid.UUID            `gorm:"column:subscription_id;type:uuid;not null;index"`
	GatewayInvoiceID *string              `gorm:"column:gateway_invoice_id;unique"`
	ScheduledDate    time.Time            `gorm:"column:scheduled_date;not null"`
	Status           enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'scheduled'"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
}
