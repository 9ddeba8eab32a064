package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
)

// Repository owns the stock columns on products and the stock_movements
// audit table.
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

// ApplyDelta adds delta to the product's stock with a non-negativity guard
// pushed into the database. Returns false when the guard rejected the change;
// the row is untouched in that case. Negative deltas also advance total_sold
// when countSold is set.
func (r *Repository) ApplyDelta(ctx context.Context, productID uuid.UUID, delta int, countSold bool) (bool, error) {
	updates := map[string]any{
		"stock": gorm.Expr("stock + ?", delta),
	}
	if countSold && delta < 0 {
		updates["total_sold"] = gorm.Expr("total_sold + ?", -delta)
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CurrentStock reloads the product's stock after an adjustment.
func (r *Repository) CurrentStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Select("stock").
		First(&product, "id = ?", productID).Error
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// InsertMovement appends one audit row. Movements are never updated.
func (r *Repository) InsertMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

// Movements returns the audit trail for one product, newest first.
func (r *Repository) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var movements []models.StockMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// LowStock lists active products at or below their minimum stock level.
func (r *Repository) LowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND stock <= min_stock", true).
		Order("stock ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Exists reports whether the product row is present.
func (r *Repository) Exists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}
