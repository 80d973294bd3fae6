package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/pkg/enums"
)

// WebhookEvent is the durable dedupe record for gateway webhook delivery.
// The unique gateway event id guarantees at-least-once delivery collapses to
// exactly-once side effects; processed_at is set only after the handler
// completed.
type WebhookEvent struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GatewayEventID string                 `gorm:"column:gateway_event_id;not null;unique"`
	EventType      enums.GatewayEventType `gorm:"column:event_type;not null"`
	Payload        json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ProcessedAt    *time.Time             `gorm:"column:processed_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
