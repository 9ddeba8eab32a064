package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// PointsTransaction is one append-only entry in the loyalty ledger. Points is
// always positive; the sign is implied by Type. Add entries carry an expiry;
// expired entries stop counting toward the balance but are never deleted.
type PointsTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  uuid.UUID                   `gorm:"column:customer_id;type:uuid;not null;index"`
	Type        enums.PointsTransactionType `gorm:"column:type;not null"`
	Points      int                         `gorm:"column:points;not null"`
	Reason      enums.PointsReason          `gorm:"column:reason;not null"`
	Description *string                     `gorm:"column:description"`
	SaleID      *uuid.UUID                  `gorm:"column:sale_id;type:uuid"`
	ExpiresAt   *time.Time                  `gorm:"column:expires_at"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
