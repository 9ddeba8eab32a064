package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	BulkAdjustPrices(ctx context.Context, input BulkAdjustPricesInput) (int, error)
}

type service struct {
	repo ProductRepository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds a catalog service backed by the provided stack.
func NewService(repo ProductRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// CreateProductInput captures the payload for a new catalog entry.
type CreateProductInput struct {
	Barcode       string
	Name          string
	Category      *string
	Price         decimal.Decimal
	Cost          decimal.Decimal
	InitialStock  int
	MinStock      int
	Bonified      bool
	EnablesPoints bool
}

// UpdateProductInput carries the mutable fields of a product. Nil means
// leave the field untouched. Stock is owned by the inventory ledger and is
// not updatable here.
type UpdateProductInput struct {
	Name          *string
	Category      *string
	Price         *decimal.Decimal
	Cost          *decimal.Decimal
	MinStock      *int
	Bonified      *bool
	EnablesPoints *bool
}

// BulkAdjustPricesInput adjusts prices by a percentage across an optional
// category filter. Percent 10 raises prices 10%, -10 lowers them.
type BulkAdjustPricesInput struct {
	Category *string
	Percent  decimal.Decimal
	Reason   string
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Barcode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() || input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price and cost must be non-negative")
	}
	if input.InitialStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock must be non-negative")
	}

	product := &models.Product{
		ID:            uuid.New(),
		Barcode:       strings.TrimSpace(input.Barcode),
		Name:          strings.TrimSpace(input.Name),
		Category:      input.Category,
		Price:         input.Price,
		Cost:          input.Cost,
		Stock:         input.InitialStock,
		MinStock:      input.MinStock,
		Bonified:      input.Bonified,
		EnablesPoints: input.EnablesPoints,
		IsActive:      true,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "barcode already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
			}
			product.Name = strings.TrimSpace(*input.Name)
		}
		if input.Category != nil {
			product.Category = input.Category
		}
		if input.Price != nil {
			if input.Price.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
			}
			if !input.Price.Equal(product.Price) {
				history := &models.PriceHistory{
					ProductID: product.ID,
					OldPrice:  product.Price,
					NewPrice:  *input.Price,
					Reason:    "manual update",
				}
				if err := repo.InsertPriceHistory(ctx, history); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record price history")
				}
				product.Price = *input.Price
			}
		}
		if input.Cost != nil {
			if input.Cost.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "cost must be non-negative")
			}
			product.Cost = *input.Cost
		}
		if input.MinStock != nil {
			if *input.MinStock < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "min stock must be non-negative")
			}
			product.MinStock = *input.MinStock
		}
		if input.Bonified != nil {
			product.Bonified = *input.Bonified
		}
		if input.EnablesPoints != nil {
			product.EnablesPoints = *input.EnablesPoints
		}

		updated, err = repo.Update(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	if strings.TrimSpace(barcode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	product, err := s.repo.FindByBarcode(ctx, strings.TrimSpace(barcode))
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product by barcode")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return nil
	}
	product.IsActive = false
	if _, err := s.repo.Update(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

// BulkAdjustPrices applies a percentage adjustment to every active product in
// the filter, recording a price history row per product before mutating it.
// The whole batch commits or rolls back together.
func (s *service) BulkAdjustPrices(ctx context.Context, input BulkAdjustPricesInput) (int, error) {
	if input.Percent.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "percent must not be zero")
	}
	if input.Percent.LessThanOrEqual(decimal.NewFromInt(-100)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "percent would zero out prices")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "bulk adjustment"
	}

	factor := decimal.NewFromInt(1).Add(input.Percent.Div(decimal.NewFromInt(100)))

	adjusted := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products, err := repo.List(ctx, ListFilter{Category: input.Category, ActiveOnly: true})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products for adjustment")
		}
		for i := range products {
			product := &products[i]
			newPrice := product.Price.Mul(factor).Round(2)
			if newPrice.Equal(product.Price) {
				continue
			}
			history := &models.PriceHistory{
				ProductID: product.ID,
				OldPrice:  product.Price,
				NewPrice:  newPrice,
				Reason:    reason,
			}
			if err := repo.InsertPriceHistory(ctx, history); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record price history")
			}
			product.Price = newPrice
			if _, err := repo.Update(ctx, product); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product price")
			}
			adjusted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "adjusted", adjusted), "bulk price adjustment applied")
	}
	return adjusted, nil
}
