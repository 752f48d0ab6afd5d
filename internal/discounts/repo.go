package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
)

// Repository defines the persistence surface for discounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, discount *models.Discount) error
	Update(ctx context.Context, discount *models.Discount) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Discount, error)
	FindByProduct(ctx context.Context, productID uuid.UUID, now time.Time) ([]models.Discount, error)
	FindByCategoryVendor(ctx context.Context, categoryID, vendorID uuid.UUID, now time.Time) ([]models.Discount, error)
	IncrementUsage(ctx context.Context, code string) (int64, error)
	ListAll(ctx context.Context) ([]models.Discount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a discounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, discount *models.Discount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *repository) Update(ctx context.Context, discount *models.Discount) error {
	return r.db.WithContext(ctx).Save(discount).Error
}

// SoftDelete deactivates the discount. The row stays fetchable and updatable
// so it can be inspected or reactivated later; only the active-filtered
// lookups stop seeing it.
func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repository) FindActiveByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// FindByProduct returns product-scoped discounts currently redeemable at now:
// active, inside their date window, with usage remaining.
func (r *repository) FindByProduct(ctx context.Context, productID uuid.UUID, now time.Time) ([]models.Discount, error) {
	var rows []models.Discount
	err := r.redeemableAt(ctx, now).
		Where("product_id = ?", productID).
		Find(&rows).Error
	return rows, err
}

// FindByCategoryVendor matches redeemable discounts scoped to the exact pair
// or globally scoped on either axis.
func (r *repository) FindByCategoryVendor(ctx context.Context, categoryID, vendorID uuid.UUID, now time.Time) ([]models.Discount, error) {
	var rows []models.Discount
	err := r.redeemableAt(ctx, now).
		Where("(category_id = ? OR category_id IS NULL)", categoryID).
		Where("(vendor_id = ? OR vendor_id IS NULL)", vendorID).
		Find(&rows).Error
	return rows, err
}

func (r *repository) redeemableAt(ctx context.Context, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("starts_at <= ? AND ends_at >= ?", now, now).
		Where("(usage_limit = 0 OR usage_count < usage_limit)")
}

func (r *repository) IncrementUsage(ctx context.Context, code string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("code = ? AND is_active = ?", code, true).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	return res.RowsAffected, res.Error
}

func (r *repository) ListAll(ctx context.Context) ([]models.Discount, error) {
	var rows []models.Discount
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}
