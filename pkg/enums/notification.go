package enums

import "fmt"

// NotificationTemplate names a transactional email template.
type NotificationTemplate string

const (
	NotificationOrderConfirmation  NotificationTemplate = "order_confirmation"
	NotificationPaymentFailed      NotificationTemplate = "payment_failed"
	NotificationSubscriptionChange NotificationTemplate = "subscription_change"
	NotificationDeliveryScheduled  NotificationTemplate = "delivery_scheduled"
	NotificationDeliveryStatus     NotificationTemplate = "delivery_status"
)

var validNotificationTemplates = []NotificationTemplate{
	NotificationOrderConfirmation,
	NotificationPaymentFailed,
	NotificationSubscriptionChange,
	NotificationDeliveryScheduled,
	NotificationDeliveryStatus,
}

// IsValid checks whether the given template matches the canonical enum.
func (n NotificationTemplate) IsValid() bool {
	for _, candidate := range validNotificationTemplates {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationTemplate converts raw strings into NotificationTemplate.
func ParseNotificationTemplate(value string) (NotificationTemplate, error) {
	for _, candidate := range validNotificationTemplates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification template %q", value)
}
