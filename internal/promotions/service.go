package promotions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/renatoqp/puntoventa-backend/pkg/clock"
	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
)

// Service exposes promotion administration and the candidate listing the
// checkout path consumes.
type Service interface {
	Create(ctx context.Context, input PromotionInput) (*models.Promotion, error)
	Update(ctx context.Context, id uuid.UUID, input PromotionInput) (*models.Promotion, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	List(ctx context.Context) ([]models.Promotion, error)
	ListActive(ctx context.Context) ([]models.Promotion, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
	clk  clock.Clock
}

// NewService builds the promotion service.
func NewService(repo *Repository, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{repo: repo, clk: clk}, nil
}

// PromotionInput is the admin payload for creating or replacing a promotion.
type PromotionInput struct {
	Name         string
	Type         enums.PromotionType
	Value        decimal.Decimal
	BuyQuantity  int
	GetQuantity  int
	ComboPrice   *decimal.Decimal
	MinAmount    *decimal.Decimal
	AppliesToAll bool
	ProductIDs   []ProductRef
	Combinable   bool
	StartDate    time.Time
	EndDate      time.Time
	MaxUsage     *int
}

// ProductRef binds a product to the promotion, with the required quantity
// for combo constituents.
type ProductRef struct {
	ProductID uuid.UUID
	Quantity  int
}

func (s *service) validate(input PromotionInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion type")
	}
	if input.EndDate.Before(input.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must not precede start date")
	}
	if !input.AppliesToAll && len(input.ProductIDs) == 0 && input.Type != enums.PromotionTypeCombo {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion needs a product filter or applies_to_all")
	}
	if input.MaxUsage != nil && *input.MaxUsage <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max usage must be positive")
	}

	switch input.Type {
	case enums.PromotionTypePercentage, enums.PromotionTypeBirthday:
		hundred := decimal.NewFromInt(100)
		if input.Value.LessThanOrEqual(decimal.Zero) || input.Value.GreaterThan(hundred) {
			return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be in (0, 100]")
		}
	case enums.PromotionTypeFixedAmount:
		if input.Value.LessThanOrEqual(decimal.Zero) {
			return pkgerrors.New(pkgerrors.CodeValidation, "fixed amount must be positive")
		}
		if input.MinAmount != nil && input.MinAmount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "min amount must be non-negative")
		}
	case enums.PromotionTypeBuyXGetY:
		if input.BuyQuantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "buy quantity must be positive")
		}
		if input.GetQuantity <= 0 || input.GetQuantity > input.BuyQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "get quantity must be in [1, buy quantity]")
		}
	case enums.PromotionTypeCombo:
		if input.ComboPrice == nil || input.ComboPrice.LessThanOrEqual(decimal.Zero) {
			return pkgerrors.New(pkgerrors.CodeValidation, "combo price must be positive")
		}
		if len(input.ProductIDs) < 2 {
			return pkgerrors.New(pkgerrors.CodeValidation, "combo needs at least two constituents")
		}
	}
	return nil
}

func (s *service) build(input PromotionInput) *models.Promotion {
	promo := &models.Promotion{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Type:         input.Type,
		Value:        input.Value,
		BuyQuantity:  input.BuyQuantity,
		GetQuantity:  input.GetQuantity,
		ComboPrice:   input.ComboPrice,
		MinAmount:    input.MinAmount,
		AppliesToAll: input.AppliesToAll,
		Combinable:   input.Combinable,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		MaxUsage:     input.MaxUsage,
		IsActive:     true,
	}
	for _, ref := range input.ProductIDs {
		quantity := ref.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		promo.Products = append(promo.Products, models.PromotionProduct{
			ID:        uuid.New(),
			ProductID: ref.ProductID,
			Quantity:  quantity,
		})
	}
	return promo
}

func (s *service) Create(ctx context.Context, input PromotionInput) (*models.Promotion, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, s.build(input))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promotion")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input PromotionInput) (*models.Promotion, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion id is required")
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	replacement := s.build(input)
	replacement.ID = existing.ID
	replacement.UsageCount = existing.UsageCount
	replacement.CreatedAt = existing.CreatedAt
	for i := range replacement.Products {
		replacement.Products[i].PromotionID = existing.ID
	}

	updated, err := s.repo.Update(ctx, replacement)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promotion")
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}
	return promo, nil
}

func (s *service) List(ctx context.Context) ([]models.Promotion, error) {
	promos, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotions")
	}
	return promos, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Promotion, error) {
	promos, err := s.repo.ListActive(ctx, s.clk.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active promotions")
	}
	return promos, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate promotion")
	}
	return nil
}
