package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

// Repository defines the persistence surface for the commission ledger and
// the configured rates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, commission *models.Commission) error
	Update(ctx context.Context, commission *models.Commission) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Commission, *string, error)
	SumPendingEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
	SumCommissionBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)

	FindActiveRate(ctx context.Context, vendorID, categoryID *uuid.UUID) (*models.CommissionRate, error)
	FindRateByScope(ctx context.Context, vendorID, categoryID *uuid.UUID) (*models.CommissionRate, error)
	SaveRate(ctx context.Context, rate *models.CommissionRate) error
	ListRates(ctx context.Context) ([]models.CommissionRate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, commission *models.Commission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *repository) Update(ctx context.Context, commission *models.Commission) error {
	return r.db.WithContext(ctx).Save(commission).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Commission, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Commission
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

func (r *repository) SumPendingEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select("SUM(vendor_earnings)").
		Where("vendor_id = ? AND status = ?", vendorID, enums.CommissionStatusPending).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *repository) SumCommissionBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select("SUM(commission_amount)").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// FindActiveRate matches the exact scope: a nil vendor or category means the
// column must be NULL, not "any".
func (r *repository) FindActiveRate(ctx context.Context, vendorID, categoryID *uuid.UUID) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := scopeRateQuery(r.db.WithContext(ctx), vendorID, categoryID).
		Where("is_active = ?", true).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindRateByScope matches the exact scope regardless of the active flag.
func (r *repository) FindRateByScope(ctx context.Context, vendorID, categoryID *uuid.UUID) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := scopeRateQuery(r.db.WithContext(ctx), vendorID, categoryID).First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) SaveRate(ctx context.Context, rate *models.CommissionRate) error {
	return r.db.WithContext(ctx).Save(rate).Error
}

func (r *repository) ListRates(ctx context.Context) ([]models.CommissionRate, error) {
	var rates []models.CommissionRate
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rates).Error
	return rates, err
}

func scopeRateQuery(query *gorm.DB, vendorID, categoryID *uuid.UUID) *gorm.DB {
	query = query.Model(&models.CommissionRate{})
	if vendorID != nil {
		query = query.Where("vendor_id = ?", *vendorID)
	} else {
		query = query.Where("vendor_id IS NULL")
	}
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	} else {
		query = query.Where("category_id IS NULL")
	}
	return query
}
