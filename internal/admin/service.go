package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
)

// roleCounter is the slice of the user repository the dashboard needs.
type roleCounter interface {
	CountByRole(ctx context.Context) (map[string]int64, error)
}

// commissionTotaler is the slice of the commission service the
// dashboard needs.
type commissionTotaler interface {
	TotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

// DashboardStats is the platform-wide snapshot served to admins.
type DashboardStats struct {
	UsersByRole       map[string]int64 `json:"users_by_role"`
	ProductCount      int64            `json:"product_count"`
	OrderCount        int64            `json:"order_count"`
	PendingVendors    int64            `json:"pending_vendors"`
	PendingReviews    int64            `json:"pending_reviews"`
	CommissionsEarned decimal.Decimal  `json:"commissions_earned"`
	PeriodStart       time.Time        `json:"period_start"`
	PeriodEnd         time.Time        `json:"period_end"`
}

// Service exposes the admin dashboard.
type Service interface {
	Dashboard(ctx context.Context, from, to time.Time) (*DashboardStats, error)
}

type service struct {
	db          *gorm.DB
	users       roleCounter
	commissions commissionTotaler
	logger      *logger.Logger
}

// NewService wires an admin service.
func NewService(db *gorm.DB, users roleCounter, commissions commissionTotaler, lg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user counter is required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission totaler is required")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{db: db, users: users, commissions: commissions, logger: lg}, nil
}

// Dashboard aggregates platform-wide counts and the commission revenue
// earned in the requested window.
func (s *service) Dashboard(ctx context.Context, from, to time.Time) (*DashboardStats, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count users")
	}

	stats := &DashboardStats{
		UsersByRole: usersByRole,
		PeriodStart: from,
		PeriodEnd:   to,
	}

	counts := []struct {
		model any
		query string
		args  []any
		dest  *int64
	}{
		{model: &models.Product{}, dest: &stats.ProductCount},
		{model: &models.Order{}, dest: &stats.OrderCount},
		{model: &models.VendorProfile{}, query: "approval_status = ?", args: []any{"pending"}, dest: &stats.PendingVendors},
		{model: &models.Review{}, query: "is_approved = ?", args: []any{false}, dest: &stats.PendingReviews},
	}
	for _, c := range counts {
		q := s.db.WithContext(ctx).Model(c.model)
		if c.query != "" {
			q = q.Where(c.query, c.args...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count dashboard rows")
		}
	}

	earned, err := s.commissions.TotalBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	stats.CommissionsEarned = earned

	return stats, nil
}
