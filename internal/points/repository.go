package points

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
)

// Repository persists the append-only loyalty ledger and the settings row.
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

// Insert appends one ledger entry. Entries are never updated or deleted.
func (r *Repository) Insert(ctx context.Context, entry *models.PointsTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Balance derives the customer's balance at asOf: unexpired adds minus all
// redeems. Expired add entries stop counting but stay in the ledger.
func (r *Repository) Balance(ctx context.Context, customerID uuid.UUID, asOf time.Time) (int, error) {
	type row struct{ Total int }

	var adds row
	err := r.db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Select("COALESCE(SUM(points), 0) AS total").
		Where("customer_id = ? AND type = ?", customerID, enums.PointsTransactionTypeAdd).
		Where("expires_at IS NULL OR expires_at > ?", asOf).
		Scan(&adds).Error
	if err != nil {
		return 0, err
	}

	var redeems row
	err = r.db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Select("COALESCE(SUM(points), 0) AS total").
		Where("customer_id = ? AND type = ?", customerID, enums.PointsTransactionTypeRedeem).
		Scan(&redeems).Error
	if err != nil {
		return 0, err
	}

	return adds.Total - redeems.Total, nil
}

// History returns the customer's full ledger, newest first.
func (r *Repository) History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.PointsTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.PointsTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetSettings loads the singleton settings row.
func (r *Repository) GetSettings(ctx context.Context) (*models.PointsSettings, error) {
	var settings models.PointsSettings
	err := r.db.WithContext(ctx).
		First(&settings, "id = ?", models.PointsSettingsRowID).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings replaces the singleton settings row.
func (r *Repository) SaveSettings(ctx context.Context, settings *models.PointsSettings) error {
	settings.ID = models.PointsSettingsRowID
	return r.db.WithContext(ctx).Save(settings).Error
}
