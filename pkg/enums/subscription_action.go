package enums

import "fmt"

// SubscriptionAction is the closed set of customer lifecycle actions.
type SubscriptionAction string

const (
	SubscriptionActionPause              SubscriptionAction = "pause"
	SubscriptionActionResume             SubscriptionAction = "resume"
	SubscriptionActionCancel             SubscriptionAction = "cancel"
	SubscriptionActionUpdateDeliveryDate SubscriptionAction = "update_delivery_date"
	SubscriptionActionUpdateMealPlan     SubscriptionAction = "update_meal_plan"
)

var validSubscriptionActions = []SubscriptionAction{
	SubscriptionActionPause,
	SubscriptionActionResume,
	SubscriptionActionCancel,
	SubscriptionActionUpdateDeliveryDate,
	SubscriptionActionUpdateMealPlan,
}

// String implements fmt.Stringer.
func (a SubscriptionAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known SubscriptionAction.
func (a SubscriptionAction) IsValid() bool {
	for _, candidate := range validSubscriptionActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseSubscriptionAction converts raw input into a SubscriptionAction.
func ParseSubscriptionAction(value string) (SubscriptionAction, error) {
	for _, candidate := range validSubscriptionActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription action %q", value)
}
