package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
)

// Repository defines persistence operations for subscriptions and their
// recurring deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindByGatewaySubscriptionID(ctx context.Context, gatewayID string) (*models.Subscription, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateDelivery(ctx context.Context, delivery *models.SubscriptionDelivery) error
	DeliveryExistsByInvoiceID(ctx context.Context, gatewayInvoiceID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if err := r.db.WithContext(ctx).Omit("Deliveries").Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindByGatewaySubscriptionID(ctx context.Context, gatewayID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("gateway_subscription_id = ?", gatewayID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.SubscriptionDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) DeliveryExistsByInvoiceID(ctx context.Context, gatewayInvoiceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionDelivery{}).
		Where("gateway_invoice_id = ?", gatewayInvoiceID).
		Count(&count).Error
	return count > 0, err
}
