package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/renatoqp/puntoventa-backend/internal/tickets"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

func openCronDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cron_" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.Ticket{}, &models.TicketLine{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormDB
}

func TestTicketTTLJobSweepsOnlyStaleOpenTickets(t *testing.T) {
	t.Parallel()
	gormDB := openCronDB(t)
	repo := tickets.NewRepository(gormDB)

	staleOpen := models.Ticket{ID: uuid.New(), Status: enums.TicketStatusOpen}
	freshOpen := models.Ticket{ID: uuid.New(), Status: enums.TicketStatusOpen}
	stalePaid := models.Ticket{ID: uuid.New(), Status: enums.TicketStatusPaid}
	for _, ticket := range []*models.Ticket{&staleOpen, &freshOpen, &stalePaid} {
		if err := gormDB.Create(ticket).Error; err != nil {
			t.Fatalf("seed ticket: %v", err)
		}
	}
	staleTime := time.Now().UTC().Add(-48 * time.Hour)
	for _, id := range []uuid.UUID{staleOpen.ID, stalePaid.ID} {
		err := gormDB.Model(&models.Ticket{}).Where("id = ?", id).
			UpdateColumn("updated_at", staleTime).Error
		if err != nil {
			t.Fatalf("age ticket: %v", err)
		}
	}

	job, err := NewTicketTTLJob(TicketTTLJobParams{
		Logger:     testLogger(),
		Repository: repo,
		TTL:        24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}

	assertStatus := func(id uuid.UUID, want enums.TicketStatus) {
		t.Helper()
		var ticket models.Ticket
		if err := gormDB.First(&ticket, "id = ?", id).Error; err != nil {
			t.Fatalf("reload ticket: %v", err)
		}
		if ticket.Status != want {
			t.Fatalf("ticket %s: expected status %s, got %s", id, want, ticket.Status)
		}
	}
	assertStatus(staleOpen.ID, enums.TicketStatusDeleted)
	assertStatus(freshOpen.ID, enums.TicketStatusOpen)
	assertStatus(stalePaid.ID, enums.TicketStatusPaid)
}
