package notifications

import (
	"fmt"
	"strings"

	"github.com/freshfork/mealkit-backend/pkg/enums"
	"github.com/freshfork/mealkit-backend/pkg/mailer"
	"github.com/freshfork/mealkit-backend/pkg/outbox/payloads"
)

// Render turns a notification payload into a sendable message. Templates are
// plain text; the storefront owns anything fancier.
func Render(event payloads.NotificationRequestedEvent) (mailer.Message, error) {
	body, err := renderBody(event.Template, event.Data)
	if err != nil {
		return mailer.Message{}, err
	}
	subject := event.Subject
	if subject == "" {
		subject = defaultSubject(event.Template)
	}
	return mailer.Message{
		To:       event.Recipient,
		Subject:  subject,
		TextBody: body,
	}, nil
}

func renderBody(template enums.NotificationTemplate, data map[string]string) (string, error) {
	get := func(key string) string { return data[key] }
	switch template {
	case enums.NotificationOrderConfirmation:
		return fmt.Sprintf(
			"Thanks for your order!\n\nOrder: %s\nTotal: %s\n\nWe'll let you know when it ships.",
			get("order_id"), get("total"),
		), nil
	case enums.NotificationPaymentFailed:
		return "Your payment could not be completed. No order was created; please try again.", nil
	case enums.NotificationSubscriptionChange:
		return fmt.Sprintf(
			"Your subscription was updated.\n\nChange: %s\nStatus: %s",
			get("change"), get("status"),
		), nil
	case enums.NotificationDeliveryScheduled:
		return fmt.Sprintf(
			"Your next meal-kit delivery is scheduled for %s.",
			get("scheduled_date"),
		), nil
	case enums.NotificationDeliveryStatus:
		return fmt.Sprintf(
			"Order %s is now %s.",
			get("order_id"), get("status"),
		), nil
	default:
		return "", fmt.Errorf("unknown notification template %q", template)
	}
}

func defaultSubject(template enums.NotificationTemplate) string {
	switch template {
	case enums.NotificationOrderConfirmation:
		return "Your order is confirmed"
	case enums.NotificationPaymentFailed:
		return "Payment failed"
	case enums.NotificationSubscriptionChange:
		return "Your subscription was updated"
	case enums.NotificationDeliveryScheduled:
		return "Your next delivery is scheduled"
	case enums.NotificationDeliveryStatus:
		return "Order status update"
	default:
		return strings.ReplaceAll(string(template), "_", " ")
	}
}
