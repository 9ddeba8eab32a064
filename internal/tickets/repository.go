package tickets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// Repository persists draft tickets and their lines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if ticket.Status == "" {
		ticket.Status = enums.TicketStatusOpen
	}
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

// FindByID loads the ticket with its lines in position order and the
// assigned customer.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Customer").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// List returns tickets filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status *enums.TicketStatus, limit int) ([]models.Ticket, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tickets []models.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// FindOpenBefore returns open tickets whose last activity is older than the
// cutoff. The maintenance worker uses it to sweep abandoned tickets.
func (r *Repository) FindOpenBefore(ctx context.Context, cutoff time.Time) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.TicketStatusOpen, cutoff).
		Order("updated_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// Save persists scalar ticket fields. Lines are managed through the line
// helpers, never through Save.
func (r *Repository) Save(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]any{
			"customer_id":  ticket.CustomerID,
			"observations": ticket.Observations,
		}).Error
}

// TransitionStatus moves the ticket from one status to another. The guard on
// the current status makes concurrent transitions safe: only one caller wins.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TicketStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) InsertLine(ctx context.Context, line *models.TicketLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *Repository) UpdateLine(ctx context.Context, line *models.TicketLine) error {
	return r.db.WithContext(ctx).
		Model(&models.TicketLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"quantity": line.Quantity,
			"subtotal": line.Subtotal,
		}).Error
}

func (r *Repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.TicketLine{}, "id = ?", lineID).Error
}
