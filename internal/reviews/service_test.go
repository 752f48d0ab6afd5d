package reviews

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

type reviewKey struct {
	productID uuid.UUID
	userID    uuid.UUID
}

type stubReviewsRepo struct {
	byID    map[uuid.UUID]*models.Review
	byPair  map[reviewKey]*models.Review
	updated *models.Review
	deleted uuid.UUID
	avg     float64
	count   int64
}

func newStubReviewsRepo() *stubReviewsRepo {
	return &stubReviewsRepo{
		byID:   map[uuid.UUID]*models.Review{},
		byPair: map[reviewKey]*models.Review{},
	}
}

func (s *stubReviewsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubReviewsRepo) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	s.byID[review.ID] = review
	s.byPair[reviewKey{productID: review.ProductID, userID: review.UserID}] = review
	return nil
}

func (s *stubReviewsRepo) Update(ctx context.Context, review *models.Review) error {
	s.updated = review
	return nil
}

func (s *stubReviewsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = id
	delete(s.byID, id)
	return nil
}

func (s *stubReviewsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return review, nil
}

func (s *stubReviewsRepo) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	review, ok := s.byPair[reviewKey{productID: productID, userID: userID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return review, nil
}

func (s *stubReviewsRepo) ListApprovedByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, error) {
	var rows []models.Review
	for _, review := range s.byID {
		if review.ProductID == productID && review.IsApproved {
			rows = append(rows, *review)
		}
	}
	return rows, nil
}

func (s *stubReviewsRepo) ListPending(ctx context.Context, params pagination.Params) ([]models.Review, error) {
	var rows []models.Review
	for _, review := range s.byID {
		if !review.IsApproved {
			rows = append(rows, *review)
		}
	}
	return rows, nil
}

func (s *stubReviewsRepo) AverageRating(ctx context.Context, productID uuid.UUID) (float64, int64, error) {
	return s.avg, s.count, nil
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

func newReviewService(t *testing.T, repo *stubReviewsRepo, productExists bool) Service {
	t.Helper()
	svc, err := NewService(repo, &stubProductFinder{exists: productExists}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCreateStartsUnapproved(t *testing.T) {
	repo := newStubReviewsRepo()
	svc := newReviewService(t, repo, true)

	review, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		ProductID: uuid.New(),
		Rating:    4,
		Comment:   "  solid roast  ",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if review.IsApproved {
		t.Fatal("review must start unapproved")
	}
	if review.Comment == nil || *review.Comment != "solid roast" {
		t.Fatalf("expected trimmed comment got %v", review.Comment)
	}
}

func TestCreateValidatesRating(t *testing.T) {
	svc := newReviewService(t, newStubReviewsRepo(), true)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
			ProductID: uuid.New(),
			Rating:    rating,
		})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("rating %d: expected validation error got %v", rating, err)
		}
	}
}

func TestCreateRequiresExistingProduct(t *testing.T) {
	svc := newReviewService(t, newStubReviewsRepo(), false)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		ProductID: uuid.New(),
		Rating:    5,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestCreateRejectsSecondReview(t *testing.T) {
	repo := newStubReviewsRepo()
	svc := newReviewService(t, repo, true)
	userID := uuid.New()
	productID := uuid.New()

	if _, err := svc.Create(context.Background(), userID, CreateInput{ProductID: productID, Rating: 5}); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	_, err := svc.Create(context.Background(), userID, CreateInput{ProductID: productID, Rating: 3})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	repo := newStubReviewsRepo()
	svc := newReviewService(t, repo, true)
	review := &models.Review{ID: uuid.New(), ProductID: uuid.New(), UserID: uuid.New(), Rating: 4}
	repo.byID[review.ID] = review

	approved, err := svc.Approve(context.Background(), review.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !approved.IsApproved {
		t.Fatal("expected approved review")
	}

	repo.updated = nil
	if _, err := svc.Approve(context.Background(), review.ID); err != nil {
		t.Fatalf("second approve must succeed got %v", err)
	}
	if repo.updated != nil {
		t.Fatal("second approve must not rewrite the row")
	}
}

func TestRejectDeletesReview(t *testing.T) {
	repo := newStubReviewsRepo()
	svc := newReviewService(t, repo, true)
	review := &models.Review{ID: uuid.New(), ProductID: uuid.New(), UserID: uuid.New(), Rating: 1}
	repo.byID[review.ID] = review

	if err := svc.Reject(context.Background(), review.ID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.deleted != review.ID {
		t.Fatal("expected deletion")
	}

	err := svc.Reject(context.Background(), review.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestProductRating(t *testing.T) {
	repo := newStubReviewsRepo()
	repo.avg = 4.5
	repo.count = 12
	svc := newReviewService(t, repo, true)

	summary, err := svc.ProductRating(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if summary.Average != 4.5 || summary.ReviewCount != 12 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
