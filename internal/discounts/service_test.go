package discounts

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

type stubRepo struct {
	code         *models.DiscountCode
	findErr      error
	redeemOK     bool
	redeemErr    error
	byEmail      int64
	byEmailErr   error
	byAddress    int64
	byAddressErr error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.code, nil
}

func (s *stubRepo) Redeem(ctx context.Context, code string) (bool, error) {
	return s.redeemOK, s.redeemErr
}

func (s *stubRepo) CountOrdersByEmail(ctx context.Context, email string) (int64, error) {
	return s.byEmail, s.byEmailErr
}

func (s *stubRepo) CountOrdersByAddress(ctx context.Context, street, city, postalCode string) (int64, error) {
	return s.byAddress, s.byAddressErr
}

func newTestService(repo Repository) *Service {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(repo, config.CheckoutConfig{FirstOrderDiscountPercent: 25}, logg)
}

var testAddress = types.Address{Street: "1 Main St", City: "Springfield", PostalCode: "12345"}

func TestIsFirstOrderEligible(t *testing.T) {
	svc := newTestService(&stubRepo{})
	if !svc.IsFirstOrderEligible(context.Background(), "new@example.com", testAddress) {
		t.Fatal("expected fresh customer to be eligible")
	}
}

func TestIsFirstOrderEligible_PriorOrderByEmail(t *testing.T) {
	svc := newTestService(&stubRepo{byEmail: 1})
	if svc.IsFirstOrderEligible(context.Background(), "repeat@example.com", testAddress) {
		t.Fatal("expected repeat email to be ineligible")
	}
}

func TestIsFirstOrderEligible_PriorOrderByAddress(t *testing.T) {
	svc := newTestService(&stubRepo{byAddress: 1})
	if svc.IsFirstOrderEligible(context.Background(), "new@example.com", testAddress) {
		t.Fatal("expected repeat address to be ineligible")
	}
}

func TestIsFirstOrderEligible_FailsClosedOnError(t *testing.T) {
	svc := newTestService(&stubRepo{byEmailErr: errors.New("db down")})
	if svc.IsFirstOrderEligible(context.Background(), "new@example.com", testAddress) {
		t.Fatal("expected eligibility to fail closed on repository error")
	}

	svc = newTestService(&stubRepo{byAddressErr: errors.New("db down")})
	if svc.IsFirstOrderEligible(context.Background(), "new@example.com", testAddress) {
		t.Fatal("expected eligibility to fail closed on address check error")
	}
}

func TestIsFirstOrderEligible_IncompleteAddress(t *testing.T) {
	svc := newTestService(&stubRepo{})
	if svc.IsFirstOrderEligible(context.Background(), "new@example.com", types.Address{Street: "1 Main St"}) {
		t.Fatal("expected incomplete address to be ineligible")
	}
}

func TestValidateCode(t *testing.T) {
	svc := newTestService(&stubRepo{code: &models.DiscountCode{Code: "SAVE10", Percentage: 10, Active: true}})
	result, err := svc.ValidateCode(context.Background(), " save10 ")
	if err != nil {
		t.Fatalf("validate code: %v", err)
	}
	if result.Code != "SAVE10" || result.Percentage != 10 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestValidateCode_Rejections(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	limit := 5

	cases := []struct {
		name string
		repo *stubRepo
		code string
	}{
		{"empty", &stubRepo{}, "  "},
		{"unknown", &stubRepo{findErr: gorm.ErrRecordNotFound}, "NOPE"},
		{"inactive", &stubRepo{code: &models.DiscountCode{Code: "OLD", Percentage: 10}}, "OLD"},
		{"expired", &stubRepo{code: &models.DiscountCode{Code: "EXP", Percentage: 10, Active: true, ExpiresAt: &past}}, "EXP"},
		{"exhausted", &stubRepo{code: &models.DiscountCode{Code: "FULL", Percentage: 10, Active: true, UsageLimit: &limit, UsedCount: 5}}, "FULL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestService(tc.repo).ValidateCode(context.Background(), tc.code)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRedeem(t *testing.T) {
	if err := newTestService(&stubRepo{redeemOK: true}).Redeem(context.Background(), "SAVE10"); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	err := newTestService(&stubRepo{redeemOK: false}).Redeem(context.Background(), "SAVE10")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error when the increment loses, got %v", err)
	}

	err = newTestService(&stubRepo{redeemErr: errors.New("db down")}).Redeem(context.Background(), "SAVE10")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestFirstOrderPercentDefault(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc := NewService(&stubRepo{}, config.CheckoutConfig{}, logg)
	if got := svc.FirstOrderPercent(); got != 25 {
		t.Fatalf("expected default 25, got %d", got)
	}
}
