package discounts

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
)

// Repository defines persistence operations for discount codes and the order
// history reads behind first-order eligibility.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	Redeem(ctx context.Context, code string) (bool, error)
	CountOrdersByEmail(ctx context.Context, email string) (int64, error)
	CountOrdersByAddress(ctx context.Context, street, city, postalCode string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a discounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var row models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("upper(code) = upper(?)", strings.TrimSpace(code)).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Redeem increments used_count with a single conditional UPDATE so two
// concurrent checkouts can never both pass a code's usage limit. The boolean
// reports whether this caller won the increment.
func (r *repository) Redeem(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("upper(code) = upper(?)", strings.TrimSpace(code)).
		Where("active = ?", true).
		Where("expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP").
		Where("usage_limit IS NULL OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CountOrdersByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("lower(customer_email) = lower(?)", strings.TrimSpace(email)).
		Count(&count).Error
	return count, err
}

// CountOrdersByAddress matches prior orders whose shipping address carries
// the same street, city and postal code fragments. Address is stored as
// JSONB; the comparison happens on extracted lowercased fields.
func (r *repository) CountOrdersByAddress(ctx context.Context, street, city, postalCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("lower(shipping_address->>'street') LIKE ?", "%"+strings.ToLower(strings.TrimSpace(street))+"%").
		Where("lower(shipping_address->>'city') LIKE ?", "%"+strings.ToLower(strings.TrimSpace(city))+"%").
		Where("lower(shipping_address->>'postal_code') LIKE ?", "%"+strings.ToLower(strings.TrimSpace(postalCode))+"%").
		Count(&count).Error
	return count, err
}
