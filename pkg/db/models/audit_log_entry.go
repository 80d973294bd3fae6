package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is an immutable append-only record of a mutating operation.
// Rows are never updated or deleted.
type AuditLogEntry struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Actor       string          `gorm:"column:actor;not null"`
	Action      string          `gorm:"column:action;not null"`
	TableName   string          `gorm:"column:table_name;not null"`
	RecordID    string          `gorm:"column:record_id;not null;index"`
	BeforeState json.RawMessage `gorm:"column:before_state;type:jsonb"`
	AfterState  json.RawMessage `gorm:"column:after_state;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
