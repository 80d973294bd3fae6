package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/pkg/types"
)

// OrderItem snapshots one cart line inside an order. Product name, price and
// meal-plan details are denormalized because the catalog may change after the
// order is placed.
type OrderItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	ProductID      string               `gorm:"column:product_id;not null"`
	Name           string               `gorm:"column:name;not null"`
	UnitPriceCents int                  `gorm:"column:unit_price_cents;not null"`
	Qty            int                  `gorm:"column:qty;not null"`
	TotalCents     int                  `gorm:"column:total_cents;not null"`
	MealPlan       types.MealPlanConfig `gorm:"column:meal_plan;type:jsonb;serializer:json"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
