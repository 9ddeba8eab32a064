package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// StockMovement is an append-only audit entry for every stock adjustment.
// Rows are never edited or deleted.
type StockMovement struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Delta          int                       `gorm:"column:delta;not null"`
	Reason         enums.StockMovementReason `gorm:"column:reason;not null"`
	ResultingStock int                       `gorm:"column:resulting_stock;not null"`
	SaleID         *uuid.UUID                `gorm:"column:sale_id;type:uuid"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
