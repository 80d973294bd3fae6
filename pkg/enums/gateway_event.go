package enums

import "fmt"

// GatewayEventType is the closed set of payment gateway webhook events this
// system consumes. Gateway event names outside this set are acknowledged and
// dropped so the gateway does not retry them.
type GatewayEventType string

const (
	GatewayEventPaymentSucceeded         GatewayEventType = "payment_succeeded"
	GatewayEventPaymentFailed            GatewayEventType = "payment_failed"
	GatewayEventSubscriptionCreated      GatewayEventType = "subscription_created"
	GatewayEventSubscriptionUpdated      GatewayEventType = "subscription_updated"
	GatewayEventSubscriptionCanceled     GatewayEventType = "subscription_canceled"
	GatewayEventRecurringChargeSucceeded GatewayEventType = "recurring_charge_succeeded"
)

var validGatewayEventTypes = []GatewayEventType{
	GatewayEventPaymentSucceeded,
	GatewayEventPaymentFailed,
	GatewayEventSubscriptionCreated,
	GatewayEventSubscriptionUpdated,
	GatewayEventSubscriptionCanceled,
	GatewayEventRecurringChargeSucceeded,
}

// Stripe wire names for each recognized event.
var gatewayEventByStripeType = map[string]GatewayEventType{
	"payment_intent.succeeded":      GatewayEventPaymentSucceeded,
	"payment_intent.payment_failed": GatewayEventPaymentFailed,
	"customer.subscription.created": GatewayEventSubscriptionCreated,
	"customer.subscription.updated": GatewayEventSubscriptionUpdated,
	"customer.subscription.deleted": GatewayEventSubscriptionCanceled,
	"invoice.paid":                  GatewayEventRecurringChargeSucceeded,
}

// String implements fmt.Stringer.
func (g GatewayEventType) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatewayEventType.
func (g GatewayEventType) IsValid() bool {
	for _, candidate := range validGatewayEventTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// FromStripeEventType maps a raw Stripe event name onto the closed enum.
// The second return is false for event names this system does not consume.
func FromStripeEventType(value string) (GatewayEventType, bool) {
	mapped, ok := gatewayEventByStripeType[value]
	return mapped, ok
}

// ParseGatewayEventType converts raw input into a GatewayEventType.
func ParseGatewayEventType(value string) (GatewayEventType, error) {
	for _, candidate := range validGatewayEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway event type %q", value)
}
