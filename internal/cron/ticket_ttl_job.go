package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

const defaultTicketTTL = 24 * time.Hour

// TicketTTLJobParams configure the abandoned ticket sweeper.
type TicketTTLJobParams struct {
	Logger     *logger.Logger
	Repository staleTicketRepo
	TTL        time.Duration
}

type staleTicketRepo interface {
	FindOpenBefore(ctx context.Context, cutoff time.Time) ([]models.Ticket, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TicketStatus) (bool, error)
}

// NewTicketTTLJob builds the job that soft-deletes open tickets nobody has
// touched within the TTL. A cashier who walks away mid-sale leaves the draft
// behind; the sweep keeps the register's open list usable.
func NewTicketTTLJob(params TicketTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	return &ticketTTLJob{
		logg: params.Logger,
		repo: params.Repository,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

type ticketTTLJob struct {
	logg *logger.Logger
	repo staleTicketRepo
	ttl  time.Duration
	now  func() time.Time
}

func (j *ticketTTLJob) Name() string { return "ticket-ttl" }

func (j *ticketTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.repo.FindOpenBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale tickets: %w", err)
	}

	swept := 0
	for _, ticket := range stale {
		// The guard loses to a concurrent checkout; that ticket is left alone.
		ok, err := j.repo.TransitionStatus(ctx, ticket.ID, enums.TicketStatusOpen, enums.TicketStatusDeleted)
		if err != nil {
			return fmt.Errorf("sweep ticket %s: %w", ticket.ID, err)
		}
		if ok {
			swept++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"found":  len(stale),
		"swept":  swept,
	})
	j.logg.Info(logCtx, "abandoned ticket sweep complete")
	return nil
}
