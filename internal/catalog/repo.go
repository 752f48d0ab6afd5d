package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

// Repository defines the persistence surface for products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindOwned(ctx context.Context, productID, ownerUserID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Product, *string, error)
	ListRelated(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
	SetListedByVendor(ctx context.Context, vendorID uuid.UUID, listed bool) error
}

// ListFilter narrows product listings.
type ListFilter struct {
	CategoryID *uuid.UUID
	VendorID   *uuid.UUID
	ListedOnly bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

// FindOwned resolves a product only when the acting user owns the vendor
// profile behind it. Ownership is checked with an explicit join rather than
// loading the vendor separately.
func (r *repository) FindOwned(ctx context.Context, productID, ownerUserID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN vendor_profiles ON vendor_profiles.id = products.vendor_id").
		Where("products.id = ? AND vendor_profiles.user_id = ?", productID, ownerUserID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Product, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1)

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.ListedOnly {
		query = query.Where("is_listed = ?", true)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &encoded
	}
	return rows, next, nil
}

// ListRelated returns listed products sharing a category, excluding the
// product the caller started from.
func (r *repository) ListRelated(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND id <> ? AND is_listed = ?", categoryID, excludeID, true).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DecrementStock subtracts qty only when enough stock remains. The conditional
// update keeps concurrent placements from driving stock negative; callers must
// treat zero rows affected as insufficient stock.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	return res.RowsAffected, res.Error
}

func (r *repository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}

func (r *repository) SetListedByVendor(ctx context.Context, vendorID uuid.UUID, listed bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("vendor_id = ?", vendorID).
		Update("is_listed", listed).Error
}
