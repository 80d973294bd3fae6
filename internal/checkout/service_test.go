package checkout

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/internal/discounts"
	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubPendingRepo struct {
	created        *models.PendingPayment
	statusUpdates  map[string]enums.PaymentStatus
	attachedHandle string
	createErr      error
}

func (s *stubPendingRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPendingRepo) Create(ctx context.Context, row *models.PendingPayment) (*models.PendingPayment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = row
	return row, nil
}

func (s *stubPendingRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.PendingPayment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPendingRepo) UpdateStatus(ctx context.Context, gatewayPaymentID string, status enums.PaymentStatus) error {
	if s.statusUpdates == nil {
		s.statusUpdates = map[string]enums.PaymentStatus{}
	}
	s.statusUpdates[gatewayPaymentID] = status
	return nil
}

func (s *stubPendingRepo) UpdateGatewayPaymentID(ctx context.Context, id string, gatewayPaymentID string) error {
	s.attachedHandle = gatewayPaymentID
	return nil
}

type stubDiscountRepo struct {
	code        *models.DiscountCode
	ordersSeen  int64
	redeemOK    bool
	redeemCalls int
}

func (s *stubDiscountRepo) WithTx(tx *gorm.DB) discounts.Repository { return s }

func (s *stubDiscountRepo) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	if s.code == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.code, nil
}

func (s *stubDiscountRepo) Redeem(ctx context.Context, code string) (bool, error) {
	s.redeemCalls++
	return s.redeemOK, nil
}

func (s *stubDiscountRepo) CountOrdersByEmail(ctx context.Context, email string) (int64, error) {
	return s.ordersSeen, nil
}

func (s *stubDiscountRepo) CountOrdersByAddress(ctx context.Context, street, city, postalCode string) (int64, error) {
	return s.ordersSeen, nil
}

type stubGateway struct {
	lastReq PaymentRequest
	handle  *PaymentHandle
	err     error
}

func (s *stubGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentHandle, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.handle, nil
}

func newCheckoutService(pending *stubPendingRepo, discountRepo *stubDiscountRepo, gateway *stubGateway) *Service {
	logg := testLogger()
	cfg := config.CheckoutConfig{FirstOrderDiscountPercent: 25}
	discountSvc := discounts.NewService(discountRepo, cfg, logg)
	return NewService(pending, discountSvc, gateway, cfg, logg)
}

func baseInput() CreatePaymentRequestInput {
	return CreatePaymentRequestInput{
		CustomerEmail: "Jamie@Example.com",
		CustomerName:  "Jamie",
		ShippingAddress: types.Address{
			Street:     "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
		},
		Items: []types.CartItem{
			{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 10000, Qty: 1},
		},
	}
}

func TestCreatePaymentRequest_Success(t *testing.T) {
	pending := &stubPendingRepo{}
	gateway := &stubGateway{handle: &PaymentHandle{GatewayPaymentID: "pi_123", ClientSecret: "secret"}}
	svc := newCheckoutService(pending, &stubDiscountRepo{ordersSeen: 1}, gateway)

	result, err := svc.CreatePaymentRequest(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}

	if pending.created == nil {
		t.Fatal("expected pending payment to be persisted")
	}
	if pending.created.CustomerEmail != "jamie@example.com" {
		t.Fatalf("expected lowercased email, got %q", pending.created.CustomerEmail)
	}
	if !strings.HasPrefix(pending.created.GatewayPaymentID, "local:") {
		t.Fatalf("expected provisional handle, got %q", pending.created.GatewayPaymentID)
	}
	if gateway.lastReq.IdempotencyKey != result.PendingPaymentID {
		t.Fatalf("expected idempotency key %q, got %q", result.PendingPaymentID, gateway.lastReq.IdempotencyKey)
	}
	if pending.attachedHandle != "pi_123" {
		t.Fatalf("expected gateway handle attached, got %q", pending.attachedHandle)
	}
	if result.GatewayPaymentID != "pi_123" || result.ClientSecret != "secret" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Quote.TotalCents != 10000 {
		t.Fatalf("expected total 10000, got %d", result.Quote.TotalCents)
	}
}

func TestCreatePaymentRequest_FirstOrderDiscountApplied(t *testing.T) {
	pending := &stubPendingRepo{}
	gateway := &stubGateway{handle: &PaymentHandle{GatewayPaymentID: "pi_1", ClientSecret: "s"}}
	svc := newCheckoutService(pending, &stubDiscountRepo{ordersSeen: 0}, gateway)

	result, err := svc.CreatePaymentRequest(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}
	if result.Quote.DiscountCents != 2500 {
		t.Fatalf("expected 25%% discount, got %d", result.Quote.DiscountCents)
	}
	if result.Quote.TotalCents != 7500 {
		t.Fatalf("expected total 7500, got %d", result.Quote.TotalCents)
	}
}

func TestCreatePaymentRequest_CodeRedeemedOnce(t *testing.T) {
	pending := &stubPendingRepo{}
	discountRepo := &stubDiscountRepo{
		ordersSeen: 1,
		redeemOK:   true,
		code:       &models.DiscountCode{Code: "SAVE10", Percentage: 10, Active: true},
	}
	gateway := &stubGateway{handle: &PaymentHandle{GatewayPaymentID: "pi_1", ClientSecret: "s"}}
	svc := newCheckoutService(pending, discountRepo, gateway)

	input := baseInput()
	input.DiscountCode = "save10"
	result, err := svc.CreatePaymentRequest(context.Background(), input)
	if err != nil {
		t.Fatalf("create payment request: %v", err)
	}
	if discountRepo.redeemCalls != 1 {
		t.Fatalf("expected one redemption, got %d", discountRepo.redeemCalls)
	}
	if result.Quote.DiscountCents != 1000 {
		t.Fatalf("expected 10%% discount, got %d", result.Quote.DiscountCents)
	}
}

func TestCreatePaymentRequest_RedemptionRace(t *testing.T) {
	pending := &stubPendingRepo{}
	discountRepo := &stubDiscountRepo{
		ordersSeen: 1,
		redeemOK:   false,
		code:       &models.DiscountCode{Code: "SAVE10", Percentage: 10, Active: true},
	}
	svc := newCheckoutService(pending, discountRepo, &stubGateway{})

	input := baseInput()
	input.DiscountCode = "SAVE10"
	_, err := svc.CreatePaymentRequest(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pending.created != nil {
		t.Fatal("expected no pending payment when redemption fails")
	}
}

func TestCreatePaymentRequest_GatewayFailureMarksPendingFailed(t *testing.T) {
	pending := &stubPendingRepo{}
	gateway := &stubGateway{err: errors.New("stripe down")}
	svc := newCheckoutService(pending, &stubDiscountRepo{ordersSeen: 1}, gateway)

	_, err := svc.CreatePaymentRequest(context.Background(), baseInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if pending.created == nil {
		t.Fatal("expected pending payment persisted before the gateway call")
	}
	status, ok := pending.statusUpdates[pending.created.GatewayPaymentID]
	if !ok || status != enums.PaymentStatusFailed {
		t.Fatalf("expected pending payment marked failed, got %v", pending.statusUpdates)
	}
}

func TestCreatePaymentRequest_RequiresIdentityAndItems(t *testing.T) {
	svc := newCheckoutService(&stubPendingRepo{}, &stubDiscountRepo{ordersSeen: 1}, &stubGateway{})

	input := baseInput()
	input.CustomerEmail = "  "
	if _, err := svc.CreatePaymentRequest(context.Background(), input); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	input = baseInput()
	input.Items = nil
	if _, err := svc.CreatePaymentRequest(context.Background(), input); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
