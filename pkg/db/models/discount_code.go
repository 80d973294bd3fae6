package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountCode is a rate-limited promo code. Codes match case-insensitively
// and used_count is only ever mutated by an atomic conditional increment, so
// used_count never exceeds usage_limit even under concurrent redemption.
type DiscountCode struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string     `gorm:"column:code;not null;unique"`
	Percentage int        `gorm:"column:percentage;not null"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	UsageLimit *int       `gorm:"column:usage_limit"`
	UsedCount  int        `gorm:"column:used_count;not null;default:0"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
