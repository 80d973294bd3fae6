package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/pkg/enums"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// PendingPayment records a payment opened with the gateway before the
// asynchronous confirmation arrives. The cart snapshot is authoritative and
// immutable once the row is created; only the status column is mutated, and
// only by the webhook dispatcher.
type PendingPayment struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GatewayPaymentID string                 `gorm:"column:gateway_payment_id;not null;unique"`
	CustomerEmail    string                 `gorm:"column:customer_email;not null;index"`
	CustomerName     string                 `gorm:"column:customer_name;not null"`
	ShippingAddress  types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	SubtotalCents    int                    `gorm:"column:subtotal_cents;not null"`
	DiscountCents    int                    `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int                    `gorm:"column:total_cents;not null"`
	DiscountDetails  []types.DiscountDetail `gorm:"column:discount_details;type:jsonb;serializer:json"`
	CartSnapshot     types.CartSnapshot     `gorm:"column:cart_snapshot;type:jsonb;serializer:json"`
	Status           enums.PaymentStatus    `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
