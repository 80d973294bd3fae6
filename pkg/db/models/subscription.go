package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/pkg/enums"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// Subscription is the recurring-delivery record created by fulfillment when
// an order carries a meal-plan line. The gateway subscription handle stays
// nil until the billing provider confirms its side.
type Subscription struct {
	ID                    uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerEmail         string                   `gorm:"column:customer_email;not null;index"`
	OrderID               *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	Status                enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	PlanType              string                   `gorm:"column:plan_type;not null"`
	PricePerDeliveryCents int                      `gorm:"column:price_per_delivery_cents;not null"`
	MealPlan              types.MealPlanConfig     `gorm:"column:meal_plan;type:jsonb;serializer:json"`
	NextDeliveryDate      time.Time                `gorm:"column:next_delivery_date;not null"`
	DeliveryFrequencyDays int                      `gorm:"column:delivery_frequency_days;not null;default:7"`
	PauseUntil            *time.Time               `gorm:"column:pause_until"`
	GatewaySubscriptionID *string                  `gorm:"column:gateway_subscription_id;unique"`
	CanceledAt            *time.Time               `gorm:"column:canceled_at"`
	Deliveries            []SubscriptionDelivery   `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
