package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgstripe "github.com/freshfork/mealkit-backend/pkg/stripe"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// Gateway metadata values are string-only and size-limited; anything longer
// is summarized. The authoritative cart lives on PendingPayment.
const maxMetadataValueLen = 480

// PaymentRequest is one payment to open with the gateway.
type PaymentRequest struct {
	AmountCents     int
	Currency        string
	CustomerEmail   string
	IdempotencyKey  string
	CartSummary     types.CartSnapshot
	DiscountDetails []types.DiscountDetail
}

// PaymentHandle is the gateway's reference for an opened payment.
type PaymentHandle struct {
	GatewayPaymentID string
	ClientSecret     string
}

// PaymentGateway opens payments with the external processor.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentHandle, error)
}

type stripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway adapts the shared Stripe client to the checkout surface.
func NewStripeGateway(client *pkgstripe.Client) PaymentGateway {
	return &stripeGateway{client: client}
}

func (g *stripeGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentHandle, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.client.CallTimeout())
	defer cancel()

	currency := req.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(int64(req.AmountCents)),
		Currency:     stripe.String(currency),
		ReceiptEmail: stripe.String(req.CustomerEmail),
	}
	params.Context = callCtx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.AddMetadata("cart_summary", truncateMetadata(summarizeCart(req.CartSummary)))
	params.AddMetadata("discounts", truncateMetadata(summarizeDiscounts(req.DiscountDetails)))

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentHandle{
		GatewayPaymentID: intent.ID,
		ClientSecret:     intent.ClientSecret,
	}, nil
}

func summarizeCart(cart types.CartSnapshot) string {
	summary := make([]map[string]any, 0, len(cart.Items))
	for _, item := range cart.Items {
		summary = append(summary, map[string]any{
			"product_id": item.ProductID,
			"qty":        item.Qty,
		})
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Sprintf("%d items", len(cart.Items))
	}
	return string(raw)
}

func summarizeDiscounts(details []types.DiscountDetail) string {
	raw, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(raw)
}

// truncateMetadata cuts on a rune boundary so an oversized value never ends
// in a partial UTF-8 sequence.
func truncateMetadata(value string) string {
	if len(value) <= maxMetadataValueLen {
		return value
	}
	cut := maxMetadataValueLen
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
