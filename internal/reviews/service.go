package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	pkgdb "github.com/martello/marketplace-backend/pkg/db"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CreateInput carries the fields for a new review.
type CreateInput struct {
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// RatingSummary aggregates the approved reviews of a product.
type RatingSummary struct {
	ProductID   uuid.UUID `json:"product_id"`
	Average     float64   `json:"average"`
	ReviewCount int64     `json:"review_count"`
}

// Service exposes review operations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Review, error)
	Approve(ctx context.Context, reviewID uuid.UUID) (*models.Review, error)
	Reject(ctx context.Context, reviewID uuid.UUID) error
	ListApproved(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, error)
	ListPending(ctx context.Context, params pagination.Params) ([]models.Review, error)
	ProductRating(ctx context.Context, productID uuid.UUID) (*RatingSummary, error)
}

type service struct {
	repo     Repository
	products productFinder
	logger   *logger.Logger
}

// NewService wires a review service.
func NewService(repo Repository, products productFinder, lg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, products: products, logger: lg}, nil
}

// Create records a review pending moderation. A customer may review a
// product at most once.
func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if _, err := s.products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	if _, err := s.repo.FindByProductAndUser(ctx, in.ProductID, userID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed by this customer")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check existing review")
	}

	review := &models.Review{
		ProductID: in.ProductID,
		UserID:    userID,
		Rating:    in.Rating,
	}
	if comment := strings.TrimSpace(in.Comment); comment != "" {
		review.Comment = &comment
	}
	if err := s.repo.Create(ctx, review); err != nil {
		// The unique index backstops the pre-check under concurrency.
		if pkgdb.IsUniqueViolation(err, "reviews_product_user_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed by this customer")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create review")
	}
	return review, nil
}

// Approve publishes a pending review.
func (s *service) Approve(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.find(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.IsApproved {
		return review, nil
	}
	review.IsApproved = true
	if err := s.repo.Update(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to approve review")
	}
	s.logger.Info(s.logger.WithField(ctx, "review_id", review.ID.String()), "review approved")
	return review, nil
}

// Reject removes a review from the moderation queue.
func (s *service) Reject(ctx context.Context, reviewID uuid.UUID) error {
	review, err := s.find(ctx, reviewID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, review.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reject review")
	}
	s.logger.Info(s.logger.WithField(ctx, "review_id", review.ID.String()), "review rejected")
	return nil
}

func (s *service) ListApproved(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, error) {
	rows, err := s.repo.ListApprovedByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list reviews")
	}
	return rows, nil
}

func (s *service) ListPending(ctx context.Context, params pagination.Params) ([]models.Review, error) {
	rows, err := s.repo.ListPending(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list pending reviews")
	}
	return rows, nil
}

func (s *service) ProductRating(ctx context.Context, productID uuid.UUID) (*RatingSummary, error) {
	avg, count, err := s.repo.AverageRating(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to compute product rating")
	}
	return &RatingSummary{ProductID: productID, Average: avg, ReviewCount: count}, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load review")
	}
	return review, nil
}
