package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/martello/marketplace-backend/pkg/db"
	"github.com/martello/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
)

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type categoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type vendorFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error)
}

// Service exposes discount resolution and administration.
type Service interface {
	ResolveByCode(ctx context.Context, code string) (*models.Discount, error)
	ApplicableFor(ctx context.Context, filter ApplicableFilter) ([]models.Discount, error)
	IncrementUsage(ctx context.Context, code string) error
	Create(ctx context.Context, input CreateInput) (*models.Discount, error)
	Update(ctx context.Context, input UpdateInput) (*models.Discount, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Discount, error)
	List(ctx context.Context) ([]models.Discount, error)
}

type service struct {
	repo       Repository
	products   productFinder
	categories categoryFinder
	vendors    vendorFinder
	now        func() time.Time
}

// NewService builds a discounts service with the required dependencies.
func NewService(repo Repository, products productFinder, categories categoryFinder, vendors vendorFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discounts repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category finder required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor finder required")
	}
	return &service{
		repo:       repo,
		products:   products,
		categories: categories,
		vendors:    vendors,
		now:        time.Now,
	}, nil
}

// ResolveByCode returns the discount only when the code names an active
// discount, the current time falls inside its window, and usage remains.
// Each failure mode is reported distinctly.
func (s *service) ResolveByCode(ctx context.Context, code string) (*models.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}

	discount, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "discount code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up discount")
	}

	now := s.now()
	if now.Before(discount.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "discount is not active yet")
	}
	if now.After(discount.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "discount has expired")
	}
	if discount.UsageLimit > 0 && discount.UsageCount >= discount.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "discount usage limit reached")
	}
	return discount, nil
}

// ApplicableFor unions product-scoped matches with category/vendor matches,
// deduplicated by id. Both lookups only return discounts redeemable right
// now: active, inside their window, with usage remaining. The two lookups are
// independent: the category/vendor query runs only when both identifiers are
// supplied.
func (s *service) ApplicableFor(ctx context.Context, filter ApplicableFilter) ([]models.Discount, error) {
	seen := map[uuid.UUID]struct{}{}
	var out []models.Discount

	now := s.now()

	if filter.ProductID != nil && *filter.ProductID != uuid.Nil {
		rows, err := s.repo.FindByProduct(ctx, *filter.ProductID, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up product discounts")
		}
		for _, row := range rows {
			if _, ok := seen[row.ID]; ok {
				continue
			}
			seen[row.ID] = struct{}{}
			out = append(out, row)
		}
	}

	if filter.CategoryID != nil && *filter.CategoryID != uuid.Nil &&
		filter.VendorID != nil && *filter.VendorID != uuid.Nil {
		rows, err := s.repo.FindByCategoryVendor(ctx, *filter.CategoryID, *filter.VendorID, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up scoped discounts")
		}
		for _, row := range rows {
			if _, ok := seen[row.ID]; ok {
				continue
			}
			seen[row.ID] = struct{}{}
			out = append(out, row)
		}
	}

	return out, nil
}

// IncrementUsage bumps the redemption counter. It is an explicit operation;
// order placement does not call it.
func (s *service) IncrementUsage(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	affected, err := s.repo.IncrementUsage(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incrementing discount usage")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Discount, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.Value.IsNegative() || input.Value.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.UsageLimit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit cannot be negative")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}

	if _, err := s.repo.FindActiveByCode(ctx, code); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active discount with this code already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking discount code")
	}

	if err := s.validateScope(ctx, input.ProductID, input.CategoryID, input.VendorID); err != nil {
		return nil, err
	}

	discount := models.Discount{
		Code:           code,
		Description:    input.Description,
		Type:           input.Type,
		Value:          input.Value,
		MinOrderAmount: input.MinOrderAmount,
		UsageLimit:     input.UsageLimit,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		IsActive:       true,
		ProductID:      input.ProductID,
		CategoryID:     input.CategoryID,
		VendorID:       input.VendorID,
	}
	if err := s.repo.Create(ctx, &discount); err != nil {
		if pkgdb.IsUniqueViolation(err, "discounts_active_code_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active discount with this code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating discount")
	}
	return &discount, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Discount, error) {
	discount, err := s.GetByID(ctx, input.DiscountID)
	if err != nil {
		return nil, err
	}

	if input.Description != nil {
		discount.Description = input.Description
	}
	if input.Value != nil {
		if input.Value.IsNegative() || input.Value.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
		}
		discount.Value = *input.Value
	}
	if input.MinOrderAmount != nil {
		discount.MinOrderAmount = input.MinOrderAmount
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit cannot be negative")
		}
		discount.UsageLimit = *input.UsageLimit
	}
	if input.StartsAt != nil {
		discount.StartsAt = *input.StartsAt
	}
	if input.EndsAt != nil {
		discount.EndsAt = *input.EndsAt
	}
	if !discount.EndsAt.After(discount.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.IsActive != nil {
		discount.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, discount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating discount")
	}
	return discount, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting discount")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount")
	}
	return discount, nil
}

func (s *service) List(ctx context.Context) ([]models.Discount, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) validateScope(ctx context.Context, productID, categoryID, vendorID *uuid.UUID) error {
	if productID != nil {
		if _, err := s.products.FindByID(ctx, *productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "scoped product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking scoped product")
		}
	}
	if categoryID != nil {
		if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "scoped category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking scoped category")
		}
	}
	if vendorID != nil {
		if _, err := s.vendors.FindByID(ctx, *vendorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "scoped vendor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking scoped vendor")
		}
	}
	return nil
}
