package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// Ticket is a draft sale in progress at the register. A register juggles
// several open tickets at once; each is independent until checkout.
type Ticket struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Status       enums.TicketStatus `gorm:"column:status;not null;default:'open'"`
	CustomerID   *uuid.UUID         `gorm:"column:customer_id;type:uuid"`
	Customer     *Customer          `gorm:"foreignKey:CustomerID"`
	Observations *string            `gorm:"column:observations"`
	Lines        []TicketLine       `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Subtotal sums the line subtotals of the ticket.
func (t *Ticket) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range t.Lines {
		subtotal = subtotal.Add(line.Subtotal)
	}
	return subtotal
}

// TicketLine is one product entry inside a ticket. UnitPrice is captured when
// the line is added; later catalog price changes do not affect open tickets.
type TicketLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TicketID    uuid.UUID       `gorm:"column:ticket_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Position    int             `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
