package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
)

// Repository defines persistence operations for pending payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.PendingPayment) (*models.PendingPayment, error)
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.PendingPayment, error)
	UpdateStatus(ctx context.Context, gatewayPaymentID string, status enums.PaymentStatus) error
	UpdateGatewayPaymentID(ctx context.Context, id string, gatewayPaymentID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pending-payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.PendingPayment) (*models.PendingPayment, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.PendingPayment, error) {
	var row models.PendingPayment
	err := r.db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateStatus(ctx context.Context, gatewayPaymentID string, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingPayment{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Update("status", status).Error
}

func (r *repository) UpdateGatewayPaymentID(ctx context.Context, id string, gatewayPaymentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingPayment{}).
		Where("id = ?", id).
		Update("gateway_payment_id", gatewayPaymentID).Error
}
