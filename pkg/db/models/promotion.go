package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// Promotion is an administrator-managed discount rule. The engine reads
// promotions; only a committed sale increments UsageCount.
type Promotion struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name         string              `gorm:"column:name;not null"`
	Type         enums.PromotionType `gorm:"column:type;not null"`
	Value        decimal.Decimal     `gorm:"column:value;type:numeric(12,2);not null;default:0"`
	BuyQuantity  int                 `gorm:"column:buy_quantity;not null;default:0"`
	GetQuantity  int                 `gorm:"column:get_quantity;not null;default:0"`
	ComboPrice   *decimal.Decimal    `gorm:"column:combo_price;type:numeric(12,2)"`
	MinAmount    *decimal.Decimal    `gorm:"column:min_amount;type:numeric(12,2)"`
	AppliesToAll bool                `gorm:"column:applies_to_all;not null;default:false"`
	Products     []PromotionProduct  `gorm:"foreignKey:PromotionID;constraint:OnDelete:CASCADE"`
	Combinable   bool                `gorm:"column:combinable;not null;default:false"`
	StartDate    time.Time           `gorm:"column:start_date;not null"`
	EndDate      time.Time           `gorm:"column:end_date;not null"`
	MaxUsage     *int                `gorm:"column:max_usage"`
	UsageCount   int                 `gorm:"column:usage_count;not null;default:0"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// MatchesProduct reports whether the promotion's product filter covers the
// given product.
func (p *Promotion) MatchesProduct(productID uuid.UUID) bool {
	if p.AppliesToAll {
		return true
	}
	for _, entry := range p.Products {
		if entry.ProductID == productID {
			return true
		}
	}
	return false
}

// PromotionProduct binds a promotion to one product. For combo promotions,
// Quantity is the required count of that constituent.
type PromotionProduct struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity    int       `gorm:"column:quantity;not null;default:1"`
}
