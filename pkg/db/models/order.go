package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/pkg/enums"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// Order is the durable record created exactly once per succeeded payment.
// The unique gateway_payment_id is the idempotence guard against duplicate
// webhook delivery.
type Order struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GatewayPaymentID string                 `gorm:"column:gateway_payment_id;not null;unique"`
	CustomerEmail    string                 `gorm:"column:customer_email;not null;index"`
	CustomerName     string                 `gorm:"column:customer_name;not null"`
	ShippingAddress  types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	SubtotalCents    int                    `gorm:"column:subtotal_cents;not null"`
	DiscountCents    int                    `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int                    `gorm:"column:total_cents;not null"`
	DiscountDetails  []types.DiscountDetail `gorm:"column:discount_details;type:jsonb;serializer:json"`
	Status           enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'confirmed'"`
	Items            []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
