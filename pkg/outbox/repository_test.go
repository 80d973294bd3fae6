package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freshfork/mealkit-backend/pkg/db/models"
	"github.com/freshfork/mealkit-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedOutboxEvent(t *testing.T, db *gorm.DB, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestInsert_RequiresTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	err := repo.Insert(nil, models.OutboxEvent{})
	require.Error(t, err)
}

func TestInsert_WithinTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.Insert(tx, models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
		})
	})
	require.NoError(t, err)

	count, err := repo.CountUnpublished()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFetchUnpublished_OldestFirst(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	newer := seedOutboxEvent(t, db, now)
	older := seedOutboxEvent(t, db, now.Add(-time.Minute))

	rows, err := repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, newer.ID, rows[1].ID)

	rows, err = repo.FetchUnpublished(1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, older.ID, rows[0].ID)
}

func TestFetchUnpublished_SkipsExhaustedAndPublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	pending := seedOutboxEvent(t, db, now)

	exhausted := seedOutboxEvent(t, db, now)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", exhausted.ID).UpdateColumn("attempt_count", 10).Error)

	published := seedOutboxEvent(t, db, now)
	require.NoError(t, repo.MarkPublished(published.ID))

	rows, err := repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].ID)

	// The exhausted row still counts toward the backlog gauge.
	count, err := repo.CountUnpublished()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMarkPublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := seedOutboxEvent(t, db, time.Now())

	require.NoError(t, repo.MarkPublished(row.ID))

	var stored models.OutboxEvent
	require.NoError(t, db.Where("id = ?", row.ID).First(&stored).Error)
	require.NotNil(t, stored.PublishedAt)
}

func TestMarkFailed_IncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := seedOutboxEvent(t, db, time.Now())

	require.NoError(t, repo.MarkFailed(row.ID, errors.New("smtp timeout")))
	require.NoError(t, repo.MarkFailed(row.ID, errors.New("smtp timeout again")))

	var stored models.OutboxEvent
	require.NoError(t, db.Where("id = ?", row.ID).First(&stored).Error)
	assert.Equal(t, 2, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "smtp timeout again", *stored.LastError)
	assert.Nil(t, stored.PublishedAt)
}
