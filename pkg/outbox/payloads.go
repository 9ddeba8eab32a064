package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleCompletedPayload is the data section of sale.completed events.
type SaleCompletedPayload struct {
	SaleID        uuid.UUID           `json:"saleId"`
	TicketID      uuid.UUID           `json:"ticketId"`
	CustomerID    *uuid.UUID          `json:"customerId,omitempty"`
	PaymentMethod string              `json:"paymentMethod"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	Lines         []SaleCompletedLine `json:"lines"`
	CompletedAt   time.Time           `json:"completedAt"`
}

type SaleCompletedLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// PointsGrantedPayload is the data section of points.granted events.
type PointsGrantedPayload struct {
	CustomerID uuid.UUID  `json:"customerId"`
	SaleID     *uuid.UUID `json:"saleId,omitempty"`
	Points     int        `json:"points"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}
