package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a stock-bearing catalog entry. The inventory ledger owns
// the Stock and TotalSold columns; everything else belongs to the catalog.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Barcode       string          `gorm:"column:barcode;not null;uniqueIndex"`
	Name          string          `gorm:"column:name;not null"`
	Category      *string         `gorm:"column:category"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Cost          decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null"`
	Stock         int             `gorm:"column:stock;not null;default:0"`
	MinStock      int             `gorm:"column:min_stock;not null;default:0"`
	TotalSold     int             `gorm:"column:total_sold;not null;default:0"`
	Bonified      bool            `gorm:"column:bonified;not null;default:false"`
	EnablesPoints bool            `gorm:"column:enables_points;not null;default:true"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
