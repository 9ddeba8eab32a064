package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the inventory ledger.
type Service interface {
	Adjust(ctx context.Context, input AdjustInput) (*models.StockMovement, error)
	DecrementForSaleTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int, saleID uuid.UUID) error
	LowStock(ctx context.Context) ([]models.Product, error)
	Movements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the inventory service.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// AdjustInput describes one manual stock adjustment.
type AdjustInput struct {
	ProductID uuid.UUID
	Delta     int
	Reason    enums.StockMovementReason
}

// Adjust applies the delta atomically and appends the audit row in the same
// transaction. A delta that would push stock below zero aborts with
// CodeInsufficientStock and leaves the row untouched.
func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.StockMovement, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement reason")
	}

	var movement *models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.Exists(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		countSold := input.Reason == enums.StockMovementReasonSale
		applied, err := repo.ApplyDelta(ctx, input.ProductID, input.Delta, countSold)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock delta")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "adjustment would make stock negative").
				WithDetails(map[string]any{"product_id": input.ProductID, "delta": input.Delta})
		}

		resulting, err := repo.CurrentStock(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock")
		}

		movement = &models.StockMovement{
			ProductID:      input.ProductID,
			Delta:          input.Delta,
			Reason:         input.Reason,
			ResultingStock: resulting,
		}
		if err := repo.InsertMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record movement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		fields := map[string]any{
			"product_id":      input.ProductID.String(),
			"delta":           input.Delta,
			"reason":          input.Reason.String(),
			"resulting_stock": movement.ResultingStock,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "stock adjusted")
	}
	return movement, nil
}

// DecrementForSaleTx removes sold quantity inside the caller's checkout
// transaction, advancing total_sold and auditing the movement. A shortfall
// surfaces as CodeInsufficientStock so the caller can roll everything back.
func (s *service) DecrementForSaleTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int, saleID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	applied, err := repo.ApplyDelta(ctx, productID, -quantity, true)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for sale").
			WithDetails(map[string]any{"product_id": productID, "requested": quantity})
	}

	resulting, err := repo.CurrentStock(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock")
	}
	movement := &models.StockMovement{
		ProductID:      productID,
		Delta:          -quantity,
		Reason:         enums.StockMovementReasonSale,
		ResultingStock: resulting,
		SaleID:         &saleID,
	}
	if err := repo.InsertMovement(ctx, movement); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale movement")
	}
	return nil
}

func (s *service) LowStock(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return products, nil
}

func (s *service) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	exists, err := s.repo.Exists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	movements, err := s.repo.Movements(ctx, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	return movements, nil
}
