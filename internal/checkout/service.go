package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/internal/discounts"
	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// CreatePaymentRequestInput is the validated checkout submission.
type CreatePaymentRequestInput struct {
	CustomerEmail   string
	CustomerName    string
	ShippingAddress types.Address
	Items           []types.CartItem
	DiscountCode    string
}

// CreatePaymentRequestResult carries the quote plus the client handle the
// storefront needs to confirm the payment.
type CreatePaymentRequestResult struct {
	Quote            *Quote `json:"quote"`
	PendingPaymentID string `json:"pending_payment_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	ClientSecret     string `json:"client_secret"`
}

// Service prices the cart and opens the payment with the gateway.
type Service struct {
	repo      Repository
	discounts *discounts.Service
	gateway   PaymentGateway
	cfg       config.CheckoutConfig
	logg      *logger.Logger
}

func NewService(repo Repository, discountSvc *discounts.Service, gateway PaymentGateway, cfg config.CheckoutConfig, logg *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		discounts: discountSvc,
		gateway:   gateway,
		cfg:       cfg,
		logg:      logg,
	}
}

// CreatePaymentRequest validates the cart, applies discounts, persists the
// PendingPayment and only then opens the payment with the gateway. The
// gateway call is idempotency-keyed on the PendingPayment id so a retried
// call cannot double-charge.
func (s *Service) CreatePaymentRequest(ctx context.Context, input CreatePaymentRequestInput) (*CreatePaymentRequestResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.CustomerEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	applied := make([]AppliedDiscount, 0, 2)
	if s.discounts.IsFirstOrderEligible(ctx, email, input.ShippingAddress) {
		applied = append(applied, AppliedDiscount{
			Type:        DiscountTypeFirstOrder,
			Description: "first order discount",
			Percentage:  s.discounts.FirstOrderPercent(),
		})
	}

	var codeResult *discounts.CodeResult
	if strings.TrimSpace(input.DiscountCode) != "" {
		result, err := s.discounts.ValidateCode(ctx, input.DiscountCode)
		if err != nil {
			return nil, err
		}
		codeResult = result
		applied = append(applied, AppliedDiscount{
			Type:        DiscountTypeCode,
			Description: fmt.Sprintf("discount code %s", result.Code),
			Percentage:  result.Percentage,
		})
	}

	quote, err := ComputeQuote(input.Items, applied)
	if err != nil {
		return nil, err
	}

	// One checkout consumes one redemption. A later gateway failure does not
	// release it; the storefront retries with a fresh quote.
	if codeResult != nil {
		if err := s.discounts.Redeem(ctx, codeResult.Code); err != nil {
			return nil, err
		}
	}

	snapshot := types.CartSnapshot{
		Items:           quote.Items,
		SubtotalCents:   quote.SubtotalCents,
		DiscountCents:   quote.DiscountCents,
		TotalCents:      quote.TotalCents,
		DiscountDetails: quote.DiscountDetails,
	}

	pendingID := uuid.New()
	pending := &models.PendingPayment{
		ID:               pendingID,
		GatewayPaymentID: provisionalHandle(pendingID),
		CustomerEmail:    email,
		CustomerName:     strings.TrimSpace(input.CustomerName),
		ShippingAddress:  input.ShippingAddress,
		SubtotalCents:    quote.SubtotalCents,
		DiscountCents:    quote.DiscountCents,
		TotalCents:       quote.TotalCents,
		DiscountDetails:  quote.DiscountDetails,
		CartSnapshot:     snapshot,
	}
	if _, err := s.repo.Create(ctx, pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting pending payment")
	}

	handle, err := s.gateway.CreatePayment(ctx, PaymentRequest{
		AmountCents:     quote.TotalCents,
		CustomerEmail:   email,
		IdempotencyKey:  pendingID.String(),
		CartSummary:     snapshot,
		DiscountDetails: quote.DiscountDetails,
	})
	if err != nil {
		if markErr := s.repo.UpdateStatus(ctx, provisionalHandle(pendingID), enums.PaymentStatusFailed); markErr != nil {
			s.logg.Error(ctx, "marking pending payment failed after gateway error", markErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening payment with gateway")
	}

	if err := s.repo.UpdateGatewayPaymentID(ctx, pendingID.String(), handle.GatewayPaymentID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching gateway payment id")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"pending_payment_id": pendingID.String(),
		"gateway_payment_id": handle.GatewayPaymentID,
		"total_cents":        quote.TotalCents,
	})
	s.logg.Info(logCtx, "payment request opened")

	return &CreatePaymentRequestResult{
		Quote:            quote,
		PendingPaymentID: pendingID.String(),
		GatewayPaymentID: handle.GatewayPaymentID,
		ClientSecret:     handle.ClientSecret,
	}, nil
}

// provisionalHandle fills the unique gateway handle column until the gateway
// assigns the real one.
func provisionalHandle(id uuid.UUID) string {
	return "local:" + id.String()
}
