package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
)

// Repository exposes promotion persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, promo *models.Promotion) (*models.Promotion, error) {
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	for i := range promo.Products {
		if promo.Products[i].ID == uuid.Nil {
			promo.Products[i].ID = uuid.New()
		}
		promo.Products[i].PromotionID = promo.ID
	}
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *Repository) Update(ctx context.Context, promo *models.Promotion) (*models.Promotion, error) {
	if err := r.db.WithContext(ctx).Save(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&promo, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Products").
		Order("created_at ASC").
		Find(&promos).Error
	return promos, err
}

// ListActive returns window-open, active promotions that are still under
// their usage cap. The engine re-checks eligibility per ticket; this is the
// candidate pre-filter.
func (r *Repository) ListActive(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("is_active = ?", true).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("max_usage IS NULL OR usage_count < max_usage").
		Order("created_at ASC").
		Find(&promos).Error
	return promos, err
}

// IncrementUsage advances the usage counter with the cap guard pushed into
// the database. Returns false when the cap is already reached.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND (max_usage IS NULL OR usage_count < max_usage)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
