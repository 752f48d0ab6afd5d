package commissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/outbox"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

var oneHundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string)
}

// productFinder provides the category of the order's first item.
type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// vendorResolver maps a vendor profile to the user behind it.
type vendorResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error)
}

// SetRateInput configures a commission override. At least one of VendorID or
// CategoryID must be set.
type SetRateInput struct {
	VendorID    *uuid.UUID
	CategoryID  *uuid.UUID
	RatePercent decimal.Decimal
	Description *string
	IsActive    *bool
}

// CommissionRecordedEvent is emitted when a ledger row is written.
type CommissionRecordedEvent struct {
	CommissionID     uuid.UUID       `json:"commission_id"`
	OrderID          uuid.UUID       `json:"order_id"`
	VendorID         uuid.UUID       `json:"vendor_id"`
	RatePercent      decimal.Decimal `json:"rate_percent"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	VendorEarnings   decimal.Decimal `json:"vendor_earnings"`
}

// CommissionPaidEvent is emitted when a commission reaches PAID.
type CommissionPaidEvent struct {
	CommissionID   uuid.UUID       `json:"commission_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	VendorEarnings decimal.Decimal `json:"vendor_earnings"`
	PaidAt         time.Time       `json:"paid_at"`
}

// Service exposes the commission rate resolver and the ledger operations.
type Service interface {
	ResolveRate(ctx context.Context, vendorID, categoryID uuid.UUID) (decimal.Decimal, error)
	Record(ctx context.Context, order *models.Order) (*models.Commission, error)
	ProcessPayment(ctx context.Context, commissionID uuid.UUID) (*models.Commission, error)
	VendorPendingEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
	ListVendorCommissions(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Commission, *string, error)
	SetRate(ctx context.Context, input SetRateInput) (*models.CommissionRate, error)
	ListRates(ctx context.Context) ([]models.CommissionRate, error)
	TotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type service struct {
	repo        Repository
	products    productFinder
	vendors     vendorResolver
	tx          txRunner
	outbox      outboxPublisher
	notify      notifier
	defaultRate decimal.Decimal
}

// NewService builds a commissions service. defaultRatePercent is the global
// fallback used when no configured rate matches.
func NewService(
	repo Repository,
	products productFinder,
	vendors vendorResolver,
	tx txRunner,
	outboxSvc outboxPublisher,
	notify notifier,
	defaultRatePercent string,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	defaultRate, err := decimal.NewFromString(defaultRatePercent)
	if err != nil {
		return nil, fmt.Errorf("invalid default commission percent %q: %w", defaultRatePercent, err)
	}
	if defaultRate.IsNegative() || defaultRate.GreaterThan(oneHundred) {
		return nil, fmt.Errorf("default commission percent must be within [0,100]")
	}
	return &service{
		repo:        repo,
		products:    products,
		vendors:     vendors,
		tx:          tx,
		outbox:      outboxSvc,
		notify:      notify,
		defaultRate: defaultRate,
	}, nil
}

// ResolveRate returns the applicable percentage for a vendor/category pair.
// Most specific scope wins: (vendor, category), then category-wide, then
// vendor-wide, then the global default.
func (s *service) ResolveRate(ctx context.Context, vendorID, categoryID uuid.UUID) (decimal.Decimal, error) {
	if vendorID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	lookups := []struct {
		vendor   *uuid.UUID
		category *uuid.UUID
	}{
		{&vendorID, &categoryID},
		{nil, &categoryID},
		{&vendorID, nil},
	}
	for _, lookup := range lookups {
		if lookup.category != nil && *lookup.category == uuid.Nil {
			continue
		}
		rate, err := s.repo.FindActiveRate(ctx, lookup.vendor, lookup.category)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up commission rate")
		}
		return rate.RatePercent, nil
	}
	return s.defaultRate, nil
}

// Record writes the ledger row for an order in PENDING state. The category
// used for rate resolution is taken from the order's first item only, even
// when a single-vendor order spans categories.
func (s *service) Record(ctx context.Context, order *models.Order) (*models.Commission, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	if existing, err := s.repo.FindByOrderID(ctx, order.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing commission")
	}

	categoryID := uuid.Nil
	product, err := s.products.FindByID(ctx, order.Items[0].ProductID)
	if err == nil {
		categoryID = product.CategoryID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading first item product")
	}

	rate, err := s.ResolveRate(ctx, order.VendorID, categoryID)
	if err != nil {
		return nil, err
	}

	commissionAmount := order.TotalAmount.Mul(rate).Div(oneHundred).Round(2)
	vendorEarnings := order.TotalAmount.Sub(commissionAmount)

	commission := models.Commission{
		OrderID:          order.ID,
		VendorID:         order.VendorID,
		OrderAmount:      order.TotalAmount,
		RatePercent:      rate,
		CommissionAmount: commissionAmount,
		VendorEarnings:   vendorEarnings,
		Status:           enums.CommissionStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &commission); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating commission")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventCommissionRecorded,
			AggregateType: enums.AggregateCommission,
			AggregateID:   commission.ID,
			Data: CommissionRecordedEvent{
				CommissionID:     commission.ID,
				OrderID:          commission.OrderID,
				VendorID:         commission.VendorID,
				RatePercent:      commission.RatePercent,
				CommissionAmount: commission.CommissionAmount,
				VendorEarnings:   commission.VendorEarnings,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing commission event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

// ProcessPayment advances a PENDING commission through PROCESSING to PAID in
// one call, two writes. Any other starting state is rejected.
func (s *service) ProcessPayment(ctx context.Context, commissionID uuid.UUID) (*models.Commission, error) {
	if commissionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}

	var paid *models.Commission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		commission, err := repo.FindByID(ctx, commissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading commission")
		}
		if commission.Status != enums.CommissionStatusPending {
			return pkgerrors.New(pkgerrors.CodeBadRequest, fmt.Sprintf("commission is %s, payment requires pending", commission.Status))
		}

		commission.Status = enums.CommissionStatusProcessing
		if err := repo.Update(ctx, commission); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking commission processing")
		}

		now := time.Now()
		commission.Status = enums.CommissionStatusPaid
		commission.PaidAt = &now
		if err := repo.Update(ctx, commission); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking commission paid")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCommissionPaid,
			AggregateType: enums.AggregateCommission,
			AggregateID:   commission.ID,
			Data: CommissionPaidEvent{
				CommissionID:   commission.ID,
				OrderID:        commission.OrderID,
				VendorID:       commission.VendorID,
				VendorEarnings: commission.VendorEarnings,
				PaidAt:         now,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing commission event")
		}

		paid = commission
		return nil
	})
	if err != nil {
		return nil, err
	}

	if profile, err := s.vendors.FindByID(ctx, paid.VendorID); err == nil {
		s.notify.Notify(ctx, profile.UserID, enums.NotificationCommissionPaid,
			"Commission paid",
			fmt.Sprintf("Earnings of %s for order %s have been paid out.", paid.VendorEarnings.StringFixed(2), paid.OrderID))
	}

	return paid, nil
}

func (s *service) VendorPendingEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	if vendorID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	sum, err := s.repo.SumPendingEarnings(ctx, vendorID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing pending earnings")
	}
	return sum, nil
}

func (s *service) ListVendorCommissions(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Commission, *string, error) {
	if vendorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.repo.ListByVendor(ctx, vendorID, params)
}

// SetRate upserts the override for the exact (vendor, category) scope.
func (s *service) SetRate(ctx context.Context, input SetRateInput) (*models.CommissionRate, error) {
	if input.VendorID == nil && input.CategoryID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor or category scope required")
	}
	if input.RatePercent.IsNegative() || input.RatePercent.GreaterThan(oneHundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be within [0,100]")
	}

	rate, err := s.repo.FindRateByScope(ctx, input.VendorID, input.CategoryID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up commission rate")
		}
		rate = &models.CommissionRate{
			VendorID:   input.VendorID,
			CategoryID: input.CategoryID,
			IsActive:   true,
		}
	}

	rate.RatePercent = input.RatePercent
	if input.Description != nil {
		rate.Description = input.Description
	}
	if input.IsActive != nil {
		rate.IsActive = *input.IsActive
	}
	if err := s.repo.SaveRate(ctx, rate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving commission rate")
	}
	return rate, nil
}

func (s *service) ListRates(ctx context.Context) ([]models.CommissionRate, error) {
	return s.repo.ListRates(ctx)
}

func (s *service) TotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if !to.After(from) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "date range end must be after start")
	}
	sum, err := s.repo.SumCommissionBetween(ctx, from, to)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing commissions")
	}
	return sum, nil
}
