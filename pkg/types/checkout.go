package types

import "strings"

// Address is the customer shipping address snapshot, stored as JSONB.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// Normalized returns the lowercased, whitespace-trimmed fields used by the
// repeat-address fraud heuristic.
func (a Address) Normalized() Address {
	return Address{
		Street:     strings.ToLower(strings.TrimSpace(a.Street)),
		City:       strings.ToLower(strings.TrimSpace(a.City)),
		PostalCode: strings.ToLower(strings.TrimSpace(a.PostalCode)),
		Country:    strings.ToLower(strings.TrimSpace(a.Country)),
	}
}

// MealPlanConfig describes the recurring meal-plan attributes attached to a
// cart line and, later, to a subscription.
type MealPlanConfig struct {
	SelectedMeals   []string `json:"selected_meals,omitempty"`
	DietPreferences []string `json:"diet_preferences,omitempty"`
	People          int      `json:"people,omitempty"`
	Days            int      `json:"days,omitempty"`
}

// IsMealPlan reports whether the line opts the customer into a subscription.
func (m MealPlanConfig) IsMealPlan() bool {
	return len(m.SelectedMeals) > 0
}

// Merge overlays non-zero fields of other onto a copy of m.
func (m MealPlanConfig) Merge(other MealPlanConfig) MealPlanConfig {
	merged := m
	if len(other.SelectedMeals) > 0 {
		merged.SelectedMeals = other.SelectedMeals
	}
	if len(other.DietPreferences) > 0 {
		merged.DietPreferences = other.DietPreferences
	}
	if other.People > 0 {
		merged.People = other.People
	}
	if other.Days > 0 {
		merged.Days = other.Days
	}
	return merged
}

// CartItem is one checkout line as submitted by the client.
type CartItem struct {
	ProductID      string         `json:"product_id"`
	Name           string         `json:"name"`
	UnitPriceCents int            `json:"unit_price_cents"`
	Qty            int            `json:"qty"`
	MealPlan       MealPlanConfig `json:"meal_plan,omitempty"`
}

// DiscountDetail is one applied discount in a quote breakdown.
type DiscountDetail struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	AmountCents int    `json:"amount_cents"`
}

// CartSnapshot is the authoritative cart copy persisted on PendingPayment.
type CartSnapshot struct {
	Items           []CartItem       `json:"items"`
	SubtotalCents   int              `json:"subtotal_cents"`
	DiscountCents   int              `json:"discount_cents"`
	TotalCents      int              `json:"total_cents"`
	DiscountDetails []DiscountDetail `json:"discount_details,omitempty"`
}
