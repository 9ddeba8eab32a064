package points

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/clock"
	"github.com/renatoqp/puntoventa-backend/pkg/config"
	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the loyalty points ledger.
type Service interface {
	Grant(ctx context.Context, input GrantInput) (*models.PointsTransaction, error)
	GrantForSaleTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int, saleID uuid.UUID) (*models.PointsTransaction, error)
	Redeem(ctx context.Context, input RedeemInput) (*models.PointsTransaction, error)
	Balance(ctx context.Context, customerID uuid.UUID) (int, error)
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.PointsTransaction, error)
	GetSettings(ctx context.Context) (*models.PointsSettings, error)
	UpdateSettings(ctx context.Context, input SettingsInput) (*models.PointsSettings, error)
	PointsForAmount(ctx context.Context, amount decimal.Decimal) (int, error)
	PointsForAmountTx(ctx context.Context, tx *gorm.DB, amount decimal.Decimal) (int, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	clk      clock.Clock
	defaults config.Points
}

// NewService builds the points service. Defaults seed the settings row the
// first time the program is consulted.
func NewService(repo *Repository, tx txRunner, clk clock.Clock, defaults config.Points) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("points repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{repo: repo, tx: tx, clk: clk, defaults: defaults}, nil
}

// GrantInput adds points to a customer's ledger.
type GrantInput struct {
	CustomerID  uuid.UUID
	Points      int
	Reason      enums.PointsReason
	Description *string
	SaleID      *uuid.UUID
}

// RedeemInput spends points from a customer's balance.
type RedeemInput struct {
	CustomerID  uuid.UUID
	Points      int
	Description *string
}

// SettingsInput replaces the loyalty program configuration atomically.
type SettingsInput struct {
	SolsPerPoint        decimal.Decimal
	PointValue          decimal.Decimal
	MinimumRedeemPoints int
	ExpiryDays          int
	WelcomeBonus        int
	BirthdayBonus       int
	ReferralBonus       int
	Enabled             bool
}

// Grant appends an add entry. Grants always succeed for a valid input; the
// expiry is stamped from the program's expiry days.
func (s *service) Grant(ctx context.Context, input GrantInput) (*models.PointsTransaction, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid points reason")
	}

	var entry *models.PointsTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		settings, err := s.settingsTx(ctx, tx)
		if err != nil {
			return err
		}
		entry = s.buildAdd(input, settings)
		if err := s.repo.WithTx(tx).Insert(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append grant entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GrantForSaleTx appends a purchase grant inside the caller's checkout
// transaction.
func (s *service) GrantForSaleTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int, saleID uuid.UUID) (*models.PointsTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if customerID == uuid.Nil || points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer and positive points required")
	}
	settings, err := s.settingsTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	entry := s.buildAdd(GrantInput{
		CustomerID: customerID,
		Points:     points,
		Reason:     enums.PointsReasonPurchase,
		SaleID:     &saleID,
	}, settings)
	if err := s.repo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append purchase grant")
	}
	return entry, nil
}

func (s *service) buildAdd(input GrantInput, settings *models.PointsSettings) *models.PointsTransaction {
	entry := &models.PointsTransaction{
		CustomerID:  input.CustomerID,
		Type:        enums.PointsTransactionTypeAdd,
		Points:      input.Points,
		Reason:      input.Reason,
		Description: input.Description,
		SaleID:      input.SaleID,
	}
	if settings.ExpiryDays > 0 {
		expires := s.clk.Now().AddDate(0, 0, settings.ExpiryDays)
		entry.ExpiresAt = &expires
	}
	return entry
}

// Redeem appends a redeem entry after checking the program minimum and the
// derived balance, all inside one transaction so concurrent redeems cannot
// overdraw.
func (s *service) Redeem(ctx context.Context, input RedeemInput) (*models.PointsTransaction, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}

	var entry *models.PointsTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		settings, err := s.settingsTx(ctx, tx)
		if err != nil {
			return err
		}
		// program minimum is a hard rule, checked before the balance
		if input.Points < settings.MinimumRedeemPoints {
			return pkgerrors.New(pkgerrors.CodeBelowMinimumRedeem, "redeem amount below program minimum").
				WithDetails(map[string]any{
					"requested": input.Points,
					"minimum":   settings.MinimumRedeemPoints,
				})
		}

		repo := s.repo.WithTx(tx)
		balance, err := repo.Balance(ctx, input.CustomerID, s.clk.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "derive balance")
		}
		if input.Points > balance {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "balance does not cover redeem").
				WithDetails(map[string]any{
					"requested": input.Points,
					"balance":   balance,
				})
		}

		entry = &models.PointsTransaction{
			CustomerID:  input.CustomerID,
			Type:        enums.PointsTransactionTypeRedeem,
			Points:      input.Points,
			Reason:      enums.PointsReasonRedemption,
			Description: input.Description,
		}
		if err := repo.Insert(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append redeem entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, customerID uuid.UUID) (int, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	balance, err := s.repo.Balance(ctx, customerID, s.clk.Now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "derive balance")
	}
	return balance, nil
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.PointsTransaction, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	entries, err := s.repo.History(ctx, customerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load history")
	}
	return entries, nil
}

// GetSettings returns the program settings, seeding the singleton row from
// the configured defaults on first use.
func (s *service) GetSettings(ctx context.Context) (*models.PointsSettings, error) {
	var settings *models.PointsSettings
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.settingsTx(ctx, tx)
		if err != nil {
			return err
		}
		settings = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *service) settingsTx(ctx context.Context, tx *gorm.DB) (*models.PointsSettings, error) {
	repo := s.repo.WithTx(tx)
	settings, err := repo.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !dbpkg.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load points settings")
	}

	seeded := &models.PointsSettings{
		ID:                  models.PointsSettingsRowID,
		SolsPerPoint:        s.defaults.SolsPerPoint,
		PointValue:          s.defaults.PointValue,
		MinimumRedeemPoints: s.defaults.MinimumRedeemPoints,
		ExpiryDays:          s.defaults.ExpiryDays,
		WelcomeBonus:        s.defaults.WelcomeBonus,
		BirthdayBonus:       s.defaults.BirthdayBonus,
		ReferralBonus:       s.defaults.ReferralBonus,
		Enabled:             true,
	}
	if err := repo.SaveSettings(ctx, seeded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed points settings")
	}
	return seeded, nil
}

func (s *service) UpdateSettings(ctx context.Context, input SettingsInput) (*models.PointsSettings, error) {
	if input.SolsPerPoint.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sols per point must be positive")
	}
	if input.PointValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "point value must be non-negative")
	}
	if input.MinimumRedeemPoints < 0 || input.ExpiryDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum redeem and expiry days must be non-negative")
	}

	settings := &models.PointsSettings{
		ID:                  models.PointsSettingsRowID,
		SolsPerPoint:        input.SolsPerPoint,
		PointValue:          input.PointValue,
		MinimumRedeemPoints: input.MinimumRedeemPoints,
		ExpiryDays:          input.ExpiryDays,
		WelcomeBonus:        input.WelcomeBonus,
		BirthdayBonus:       input.BirthdayBonus,
		ReferralBonus:       input.ReferralBonus,
		Enabled:             input.Enabled,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SaveSettings(ctx, settings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save points settings")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// PointsForAmount converts a sale amount into grantable points:
// floor(amount / solsPerPoint). Returns zero when the program is disabled.
func (s *service) PointsForAmount(ctx context.Context, amount decimal.Decimal) (int, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return convertAmount(settings, amount), nil
}

// PointsForAmountTx is PointsForAmount inside the caller's transaction, used
// by checkout so the settings read shares the sale's snapshot.
func (s *service) PointsForAmountTx(ctx context.Context, tx *gorm.DB, amount decimal.Decimal) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	settings, err := s.settingsTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	return convertAmount(settings, amount), nil
}

func convertAmount(settings *models.PointsSettings, amount decimal.Decimal) int {
	if !settings.Enabled || amount.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	if settings.SolsPerPoint.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return int(amount.Div(settings.SolsPerPoint).Floor().IntPart())
}
