package vendors

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

// Repository defines the persistence surface for vendor profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile *models.VendorProfile) error
	Update(ctx context.Context, profile *models.VendorProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
	ListByStatus(ctx context.Context, status enums.ApprovalStatus, params pagination.Params) ([]models.VendorProfile, *string, error)
	DashboardStats(ctx context.Context, vendorID uuid.UUID) (*DashboardStats, error)
}

// DashboardStats aggregates the vendor-facing overview numbers.
type DashboardStats struct {
	ProductCount    int64           `json:"product_count"`
	OrderCount      int64           `json:"order_count"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	PendingEarnings decimal.Decimal `json:"pending_earnings"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vendor profile repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, profile *models.VendorProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) Update(ctx context.Context, profile *models.VendorProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	var profile models.VendorProfile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	var profile models.VendorProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.ApprovalStatus, params pagination.Params) ([]models.VendorProfile, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("approval_status = ?", status).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit + 1)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.VendorProfile
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

func (r *repository) DashboardStats(ctx context.Context, vendorID uuid.UUID) (*DashboardStats, error) {
	stats := DashboardStats{
		TotalSales:      decimal.Zero,
		PendingEarnings: decimal.Zero,
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("vendor_id = ?", vendorID).
		Count(&stats.ProductCount).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("vendor_id = ?", vendorID).
		Count(&stats.OrderCount).Error; err != nil {
		return nil, err
	}

	var totalSales decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("SUM(total_amount)").
		Where("vendor_id = ? AND status <> ?", vendorID, enums.OrderStatusCancelled).
		Scan(&totalSales).Error; err != nil {
		return nil, err
	}
	if totalSales.Valid {
		stats.TotalSales = totalSales.Decimal
	}

	var pending decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select("SUM(vendor_earnings)").
		Where("vendor_id = ? AND status = ?", vendorID, enums.CommissionStatusPending).
		Scan(&pending).Error; err != nil {
		return nil, err
	}
	if pending.Valid {
		stats.PendingEarnings = pending.Decimal
	}

	return &stats, nil
}
