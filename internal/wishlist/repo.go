package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
)

// Repository defines the persistence surface for wishlists.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wishlist *models.Wishlist) error
	Update(ctx context.Context, wishlist *models.Wishlist) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error)
	AddItem(ctx context.Context, item *models.WishlistItem) error
	RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) (int64, error)
	HasItem(ctx context.Context, wishlistID, productID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wishlist repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wishlist *models.Wishlist) error {
	return r.db.WithContext(ctx).Create(wishlist).Error
}

func (r *repository) Update(ctx context.Context, wishlist *models.Wishlist) error {
	return r.db.WithContext(ctx).Omit("Items").Save(wishlist).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Wishlist{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&wishlist).Error
	if err != nil {
		return nil, err
	}
	return &wishlist, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error) {
	var rows []models.Wishlist
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) AddItem(ctx context.Context, item *models.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("wishlist_id = ? AND product_id = ?", wishlistID, productID).
		Delete(&models.WishlistItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) HasItem(ctx context.Context, wishlistID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("wishlist_id = ? AND product_id = ?", wishlistID, productID).
		Count(&count).Error
	return count > 0, err
}
