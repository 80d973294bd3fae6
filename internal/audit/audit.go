package audit

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/logger"
)

// Entry is one mutating operation to record.
type Entry struct {
	Actor     string
	Action    string
	TableName string
	RecordID  string
	Before    any
	After     any
}

// Repository persists append-only audit rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.AuditLogEntry) error
	ListByRecordID(ctx context.Context, recordID string) ([]models.AuditLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListByRecordID(ctx context.Context, recordID string) ([]models.AuditLogEntry, error) {
	var rows []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Service serializes before/after snapshots and appends audit rows inside
// the caller's transaction.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Record appends one audit row using the provided transaction.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	row := &models.AuditLogEntry{
		Actor:       entry.Actor,
		Action:      entry.Action,
		TableName:   entry.TableName,
		RecordID:    entry.RecordID,
		BeforeState: marshalState(entry.Before),
		AfterState:  marshalState(entry.After),
	}
	return s.repo.WithTx(tx).Create(ctx, row)
}

func marshalState(state any) json.RawMessage {
	if state == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil
	}
	return raw
}
