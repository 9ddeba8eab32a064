package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceHistory records the previous price before every price mutation so the
// catalog stays auditable without snapshot reconstruction.
type PriceHistory struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	OldPrice  decimal.Decimal `gorm:"column:old_price;type:numeric(12,2);not null"`
	NewPrice  decimal.Decimal `gorm:"column:new_price;type:numeric(12,2);not null"`
	Reason    string          `gorm:"column:reason;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
