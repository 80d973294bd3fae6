package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusConfirmed, OrderStatusCanceled, true},
		{OrderStatusConfirmed, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusDelivered, false},
		{OrderStatusPreparing, OrderStatusShipped, true},
		{OrderStatusPreparing, OrderStatusCanceled, true},
		{OrderStatusPreparing, OrderStatusConfirmed, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCanceled, false},
		{OrderStatusDelivered, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	for _, status := range validOrderStatuses {
		if !status.IsValid() {
			t.Errorf("expected %q to be valid", status)
		}
	}
	if OrderStatus("teleported").IsValid() {
		t.Error("unexpected status accepted")
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status != OrderStatusShipped {
		t.Fatalf("unexpected status %q", status)
	}
	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Fatal("expected case-sensitive parse to fail")
	}
}
