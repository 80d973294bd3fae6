package subscriptions

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/freshfork/mealkit-backend/pkg/stripe"
)

// CreateInput carries what the gateway needs to open recurring billing for a
// locally created subscription. LocalSubscriptionID travels as gateway
// metadata so subscription events can be linked back to the local row.
type CreateInput struct {
	CustomerEmail       string
	PlanType            string
	PriceCents          int
	IntervalDays        int
	LocalSubscriptionID string
}

// StripeSubscriptionClient exposes the subset of Stripe operations required by the lifecycle manager.
type StripeSubscriptionClient interface {
	Create(ctx context.Context, input CreateInput) (string, error)
	Update(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Cancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

type stripeClientWrapper struct {
	productID string
}

// NewStripeClient wraps the provided Stripe client so the lifecycle service can
// be tested. productID names the catalog product recurring prices hang off.
func NewStripeClient(api *pkgstripe.Client, productID string) StripeSubscriptionClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{productID: productID}
}

func (w *stripeClientWrapper) Create(ctx context.Context, input CreateInput) (string, error) {
	if w.productID == "" {
		return "", fmt.Errorf("stripe product id is not configured")
	}

	custParams := &stripe.CustomerParams{Email: stripe.String(input.CustomerEmail)}
	custParams.Context = ctx
	cust, err := customer.New(custParams)
	if err != nil {
		return "", err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.SubscriptionItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				Product:    stripe.String(w.productID),
				UnitAmount: stripe.Int64(int64(input.PriceCents)),
				Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
					Interval:      stripe.String(string(stripe.PriceRecurringIntervalDay)),
					IntervalCount: stripe.Int64(int64(input.IntervalDays)),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("subscription_id", input.LocalSubscriptionID)
	params.AddMetadata("plan_type", input.PlanType)

	created, err := subscription.New(params)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (w *stripeClientWrapper) Update(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.Update(id, params)
}

func (w *stripeClientWrapper) Cancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.Cancel(id, params)
}
