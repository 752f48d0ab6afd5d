package wishlist

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
)

type stubWishlistRepo struct {
	byID  map[uuid.UUID]*models.Wishlist
	items map[uuid.UUID][]uuid.UUID
}

func newStubWishlistRepo() *stubWishlistRepo {
	return &stubWishlistRepo{
		byID:  map[uuid.UUID]*models.Wishlist{},
		items: map[uuid.UUID][]uuid.UUID{},
	}
}

func (s *stubWishlistRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubWishlistRepo) Create(ctx context.Context, wishlist *models.Wishlist) error {
	if wishlist.ID == uuid.Nil {
		wishlist.ID = uuid.New()
	}
	s.byID[wishlist.ID] = wishlist
	return nil
}

func (s *stubWishlistRepo) Update(ctx context.Context, wishlist *models.Wishlist) error {
	s.byID[wishlist.ID] = wishlist
	return nil
}

func (s *stubWishlistRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	delete(s.items, id)
	return nil
}

func (s *stubWishlistRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	wishlist, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *wishlist
	copied.Items = nil
	for _, productID := range s.items[id] {
		copied.Items = append(copied.Items, models.WishlistItem{WishlistID: id, ProductID: productID})
	}
	return &copied, nil
}

func (s *stubWishlistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wishlist, error) {
	var rows []models.Wishlist
	for _, wishlist := range s.byID {
		if wishlist.UserID == userID {
			rows = append(rows, *wishlist)
		}
	}
	return rows, nil
}

func (s *stubWishlistRepo) AddItem(ctx context.Context, item *models.WishlistItem) error {
	s.items[item.WishlistID] = append(s.items[item.WishlistID], item.ProductID)
	return nil
}

func (s *stubWishlistRepo) RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) (int64, error) {
	kept := s.items[wishlistID][:0]
	var removed int64
	for _, id := range s.items[wishlistID] {
		if id == productID {
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.items[wishlistID] = kept
	return removed, nil
}

func (s *stubWishlistRepo) HasItem(ctx context.Context, wishlistID, productID uuid.UUID) (bool, error) {
	for _, id := range s.items[wishlistID] {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

type stubProductFinder struct {
	exists bool
}

func (s *stubProductFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if !s.exists {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Product{ID: id}, nil
}

func newWishlistService(t *testing.T, repo *stubWishlistRepo, productExists bool) Service {
	t.Helper()
	svc, err := NewService(repo, &stubProductFinder{exists: productExists}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCreateRequiresName(t *testing.T) {
	svc := newWishlistService(t, newStubWishlistRepo(), true)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Name: "   "})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}

	wishlist, err := svc.Create(context.Background(), uuid.New(), CreateInput{Name: "  Birthday  ", IsPublic: true})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if wishlist.Name != "Birthday" || !wishlist.IsPublic {
		t.Fatalf("unexpected wishlist %+v", wishlist)
	}
}

func TestGetHidesPrivateListsFromStrangers(t *testing.T) {
	repo := newStubWishlistRepo()
	svc := newWishlistService(t, repo, true)
	owner := uuid.New()
	private := &models.Wishlist{ID: uuid.New(), UserID: owner, Name: "Private"}
	public := &models.Wishlist{ID: uuid.New(), UserID: owner, Name: "Public", IsPublic: true}
	repo.byID[private.ID] = private
	repo.byID[public.ID] = public

	if _, err := svc.Get(context.Background(), owner, private.ID); err != nil {
		t.Fatalf("owner must see private list got %v", err)
	}
	if _, err := svc.Get(context.Background(), uuid.New(), public.ID); err != nil {
		t.Fatalf("stranger must see public list got %v", err)
	}

	_, err := svc.Get(context.Background(), uuid.New(), private.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
	if typed.Message() != "wishlist not found" {
		t.Fatalf("private list must be indistinguishable from missing got %q", typed.Message())
	}
}

func TestAddProductRejectsDuplicate(t *testing.T) {
	repo := newStubWishlistRepo()
	svc := newWishlistService(t, repo, true)
	owner := uuid.New()
	wishlist := &models.Wishlist{ID: uuid.New(), UserID: owner, Name: "Gear"}
	repo.byID[wishlist.ID] = wishlist
	productID := uuid.New()

	updated, err := svc.AddProduct(context.Background(), owner, wishlist.ID, productID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("expected one item got %d", len(updated.Items))
	}

	_, err = svc.AddProduct(context.Background(), owner, wishlist.ID, productID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestAddProductRequiresExistingProduct(t *testing.T) {
	repo := newStubWishlistRepo()
	svc := newWishlistService(t, repo, false)
	owner := uuid.New()
	wishlist := &models.Wishlist{ID: uuid.New(), UserID: owner, Name: "Gear"}
	repo.byID[wishlist.ID] = wishlist

	_, err := svc.AddProduct(context.Background(), owner, wishlist.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestAddProductRejectsForeignWishlist(t *testing.T) {
	repo := newStubWishlistRepo()
	svc := newWishlistService(t, repo, true)
	wishlist := &models.Wishlist{ID: uuid.New(), UserID: uuid.New(), Name: "Gear"}
	repo.byID[wishlist.ID] = wishlist

	_, err := svc.AddProduct(context.Background(), uuid.New(), wishlist.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestRemoveProductMissingItem(t *testing.T) {
	repo := newStubWishlistRepo()
	svc := newWishlistService(t, repo, true)
	owner := uuid.New()
	wishlist := &models.Wishlist{ID: uuid.New(), UserID: owner, Name: "Gear"}
	repo.byID[wishlist.ID] = wishlist
	productID := uuid.New()

	if _, err := svc.AddProduct(context.Background(), owner, wishlist.ID, productID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	updated, err := svc.RemoveProduct(context.Background(), owner, wishlist.ID, productID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(updated.Items) != 0 {
		t.Fatalf("expected empty list got %d items", len(updated.Items))
	}

	_, err = svc.RemoveProduct(context.Background(), owner, wishlist.ID, productID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
	if typed.Message() != "product not in wishlist" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestUpdateRenamesAndToggles(t *testing.T) {
	repo := newStubWishlistRepo()
	svc := newWishlistService(t, repo, true)
	owner := uuid.New()
	wishlist := &models.Wishlist{ID: uuid.New(), UserID: owner, Name: "Old"}
	repo.byID[wishlist.ID] = wishlist

	name := "New"
	public := true
	updated, err := svc.Update(context.Background(), owner, wishlist.ID, UpdateInput{Name: &name, IsPublic: &public})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.Name != "New" || !updated.IsPublic {
		t.Fatalf("unexpected wishlist %+v", updated)
	}

	blank := "  "
	_, err = svc.Update(context.Background(), owner, wishlist.ID, UpdateInput{Name: &blank})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}
