package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
)

// productFinder is the slice of the catalog repository the wishlist
// service needs to validate product references.
type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CreateInput carries the fields for a new wishlist.
type CreateInput struct {
	Name     string
	IsPublic bool
}

// UpdateInput carries optional wishlist mutations.
type UpdateInput struct {
	Name     *string
	IsPublic *bool
}

// Service exposes wishlist operations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Wishlist, error)
	Update(ctx context.Context, userID, wishlistID uuid.UUID, in UpdateInput) (*models.Wishlist, error)
	Delete(ctx context.Context, userID, wishlistID uuid.UUID) error
	Get(ctx context.Context, requesterID, wishlistID uuid.UUID) (*models.Wishlist, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error)
	AddProduct(ctx context.Context, userID, wishlistID, productID uuid.UUID) (*models.Wishlist, error)
	RemoveProduct(ctx context.Context, userID, wishlistID, productID uuid.UUID) (*models.Wishlist, error)
}

type service struct {
	repo     Repository
	products productFinder
	logger   *logger.Logger
}

// NewService wires a wishlist service.
func NewService(repo Repository, products productFinder, lg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, products: products, logger: lg}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Wishlist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist name is required")
	}
	wishlist := &models.Wishlist{
		UserID:   userID,
		Name:     name,
		IsPublic: in.IsPublic,
	}
	if err := s.repo.Create(ctx, wishlist); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create wishlist")
	}
	return wishlist, nil
}

func (s *service) Update(ctx context.Context, userID, wishlistID uuid.UUID, in UpdateInput) (*models.Wishlist, error) {
	wishlist, err := s.findOwned(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist name is required")
		}
		wishlist.Name = name
	}
	if in.IsPublic != nil {
		wishlist.IsPublic = *in.IsPublic
	}
	if err := s.repo.Update(ctx, wishlist); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update wishlist")
	}
	return wishlist, nil
}

func (s *service) Delete(ctx context.Context, userID, wishlistID uuid.UUID) error {
	if _, err := s.findOwned(ctx, userID, wishlistID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, wishlistID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete wishlist")
	}
	return nil
}

// Get returns a wishlist when the requester owns it or it is public.
func (s *service) Get(ctx context.Context, requesterID, wishlistID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.repo.FindByID(ctx, wishlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wishlist")
	}
	if wishlist.UserID != requesterID && !wishlist.IsPublic {
		// Private lists are invisible to everyone but their owner.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
	}
	return wishlist, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list wishlists")
	}
	return rows, nil
}

func (s *service) AddProduct(ctx context.Context, userID, wishlistID, productID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.findOwned(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	exists, err := s.repo.HasItem(ctx, wishlist.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check wishlist item")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already in wishlist")
	}
	item := &models.WishlistItem{WishlistID: wishlist.ID, ProductID: productID}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add wishlist item")
	}
	return s.reload(ctx, wishlist.ID)
}

func (s *service) RemoveProduct(ctx context.Context, userID, wishlistID, productID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.findOwned(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.RemoveItem(ctx, wishlist.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove wishlist item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in wishlist")
	}
	return s.reload(ctx, wishlist.ID)
}

func (s *service) findOwned(ctx context.Context, userID, wishlistID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.repo.FindByID(ctx, wishlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wishlist")
	}
	if wishlist.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
	}
	return wishlist, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload wishlist")
	}
	return wishlist, nil
}
