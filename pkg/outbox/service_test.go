package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

func openOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormDB
}

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	t.Parallel()
	gormDB := openOutboxDB(t)
	repo := NewRepository(gormDB)
	svc := NewService(repo, nil)

	saleID := uuid.New()
	err := gormDB.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   saleID,
			Data:          SaleCompletedPayload{SaleID: saleID},
			Version:       1,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(rows))
	}
	if rows[0].EventType != enums.EventSaleCompleted {
		t.Fatalf("unexpected event type %s", rows[0].EventType)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("payload is not an envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" || envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope incomplete: %+v", envelope)
	}
}

func TestEmitRollsBackWithDomainWrite(t *testing.T) {
	t.Parallel()
	gormDB := openOutboxDB(t)
	repo := NewRepository(gormDB)
	svc := NewService(repo, nil)

	wantErr := gorm.ErrInvalidData
	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPointsGranted,
			AggregateType: enums.AggregatePointsAccount,
			AggregateID:   uuid.New(),
			Data:          PointsGrantedPayload{Points: 10},
			Version:       1,
		}); err != nil {
			return err
		}
		return wantErr
	})
	if err == nil {
		t.Fatalf("expected transaction error")
	}

	rows, err := repo.FetchUnpublished(10, 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected rollback to discard the event, got %d rows", len(rows))
	}
}

func TestMarkPublishedAndFailed(t *testing.T) {
	t.Parallel()
	gormDB := openOutboxDB(t)
	repo := NewRepository(gormDB)
	svc := NewService(repo, nil)

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"k": "v"},
			Version:       1,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, _ := repo.FetchUnpublished(10, 5)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	if err := repo.MarkFailed(rows[0].ID, gorm.ErrInvalidDB); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	var failed models.OutboxEvent
	if err := gormDB.First(&failed, "id = ?", rows[0].ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if failed.AttemptCount != 1 || failed.LastError == nil {
		t.Fatalf("attempt bookkeeping missing: %+v", failed)
	}

	if err := repo.MarkPublished(rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	remaining, _ := repo.FetchUnpublished(10, 5)
	if len(remaining) != 0 {
		t.Fatalf("published event should not be refetched")
	}
}
