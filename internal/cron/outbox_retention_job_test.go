package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	"github.com/renatoqp/puntoventa-backend/pkg/outbox"
)

func TestOutboxRetentionJobPrunesOldRows(t *testing.T) {
	t.Parallel()
	gormDB := openCronDB(t)
	repo := outbox.NewRepository(gormDB)

	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	oldPublished := seedOutboxRow(t, gormDB, &old, 1, old)
	recentPublished := seedOutboxRow(t, gormDB, &now, 1, now)
	deadLetter := seedOutboxRow(t, gormDB, nil, 5, old)
	pending := seedOutboxRow(t, gormDB, nil, 2, old)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      testLogger(),
		Repository:  repo,
		Retention:   30,
		MinAttempts: 5,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}

	assertExists := func(id uuid.UUID, want bool) {
		t.Helper()
		var count int64
		if err := gormDB.Model(&models.OutboxEvent{}).Where("id = ?", id).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if (count == 1) != want {
			t.Fatalf("row %s: expected exists=%v", id, want)
		}
	}
	assertExists(oldPublished, false)
	assertExists(deadLetter, false)
	assertExists(recentPublished, true)
	assertExists(pending, true)
}

func seedOutboxRow(t *testing.T, gormDB *gorm.DB, publishedAt *time.Time, attempts int, createdAt time.Time) uuid.UUID {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	if err := gormDB.Create(&row).Error; err != nil {
		t.Fatalf("seed outbox row: %v", err)
	}
	err := gormDB.Model(&models.OutboxEvent{}).Where("id = ?", row.ID).
		UpdateColumn("created_at", createdAt).Error
	if err != nil {
		t.Fatalf("age outbox row: %v", err)
	}
	return row.ID
}
