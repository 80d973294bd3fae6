package discounts

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/config"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// CodeResult is the outcome of validating a promo code.
type CodeResult struct {
	Code       string
	Percentage int
}

// Service decides first-order eligibility and validates promo codes.
type Service struct {
	repo Repository
	cfg  config.CheckoutConfig
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, cfg config.CheckoutConfig, logg *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, logg: logg, now: time.Now}
}

// IsFirstOrderEligible grants the first-order discount only when no prior
// order exists for the email or for the same normalized shipping address.
// Any persistence error fails closed: no discount.
func (s *Service) IsFirstOrderEligible(ctx context.Context, email string, address types.Address) bool {
	byEmail, err := s.repo.CountOrdersByEmail(ctx, email)
	if err != nil {
		s.logg.Error(ctx, "first-order eligibility check failed, denying discount", err)
		return false
	}
	if byEmail > 0 {
		return false
	}

	norm := address.Normalized()
	if norm.Street == "" || norm.City == "" || norm.PostalCode == "" {
		return false
	}
	byAddress, err := s.repo.CountOrdersByAddress(ctx, norm.Street, norm.City, norm.PostalCode)
	if err != nil {
		s.logg.Error(ctx, "first-order address check failed, denying discount", err)
		return false
	}
	return byAddress == 0
}

// ValidateCode looks up the code case-insensitively and checks active flag,
// expiry and remaining usage. It never mutates used_count.
func (s *Service) ValidateCode(ctx context.Context, code string) (*CodeResult, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}

	row, err := s.repo.FindByCode(ctx, trimmed)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up discount code")
	}

	if !row.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is no longer active")
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code has expired")
	}
	if row.UsageLimit != nil && row.UsedCount >= *row.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code usage limit reached")
	}

	return &CodeResult{Code: row.Code, Percentage: row.Percentage}, nil
}

// Redeem performs the atomic conditional increment. Returning a validation
// error here means another checkout consumed the last redemption between
// validation and redemption.
func (s *Service) Redeem(ctx context.Context, code string) error {
	ok, err := s.repo.Redeem(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeeming discount code")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount code is no longer available")
	}
	return nil
}

// FirstOrderPercent exposes the configured first-order percentage.
func (s *Service) FirstOrderPercent() int {
	if s.cfg.FirstOrderDiscountPercent > 0 {
		return s.cfg.FirstOrderDiscountPercent
	}
	return 25
}
