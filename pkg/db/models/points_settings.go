package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointsSettings is the single-row loyalty program configuration. Updates
// replace the whole row atomically; the core never mutates it in place.
type PointsSettings struct {
	ID                  int             `gorm:"column:id;primaryKey"`
	SolsPerPoint        decimal.Decimal `gorm:"column:sols_per_point;type:numeric(12,2);not null"`
	PointValue          decimal.Decimal `gorm:"column:point_value;type:numeric(12,2);not null"`
	MinimumRedeemPoints int             `gorm:"column:minimum_redeem_points;not null"`
	ExpiryDays          int             `gorm:"column:expiry_days;not null"`
	WelcomeBonus        int             `gorm:"column:welcome_bonus;not null;default:0"`
	BirthdayBonus       int             `gorm:"column:birthday_bonus;not null;default:0"`
	ReferralBonus       int             `gorm:"column:referral_bonus;not null;default:0"`
	Enabled             bool            `gorm:"column:enabled;not null;default:true"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PointsSettingsRowID is the fixed primary key of the singleton row.
const PointsSettingsRowID = 1
