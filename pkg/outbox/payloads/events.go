package payloads

import (
	"github.com/freshfork/mealkit-backend/pkg/enums"
)

// NotificationRequestedEvent asks the notification worker to send one
// templated transactional email. Delivery is best-effort with the worker's
// own retry policy; the emitting request never waits on it.
type NotificationRequestedEvent struct {
	Template  enums.NotificationTemplate `json:"template"`
	Recipient string                     `json:"recipient"`
	Subject   string                     `json:"subject"`
	Data      map[string]string          `json:"data,omitempty"`
}
