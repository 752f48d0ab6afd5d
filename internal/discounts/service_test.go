package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
)

type stubDiscountsRepo struct {
	byCode     map[string]*models.Discount
	byID       map[uuid.UUID]*models.Discount
	byProduct  []models.Discount
	byScope    []models.Discount
	created    *models.Discount
	updated    *models.Discount
	deleted    uuid.UUID
	usageLeft  int64
	usageCalls []string
}

func (s *stubDiscountsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubDiscountsRepo) Create(ctx context.Context, discount *models.Discount) error {
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	s.created = discount
	return nil
}

func (s *stubDiscountsRepo) Update(ctx context.Context, discount *models.Discount) error {
	s.updated = discount
	return nil
}

func (s *stubDiscountsRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	s.deleted = id
	return nil
}

func (s *stubDiscountsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	discount, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return discount, nil
}

func (s *stubDiscountsRepo) FindActiveByCode(ctx context.Context, code string) (*models.Discount, error) {
	discount, ok := s.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return discount, nil
}

func (s *stubDiscountsRepo) FindByProduct(ctx context.Context, productID uuid.UUID, now time.Time) ([]models.Discount, error) {
	return s.byProduct, nil
}

func (s *stubDiscountsRepo) FindByCategoryVendor(ctx context.Context, categoryID, vendorID uuid.UUID, now time.Time) ([]models.Discount, error) {
	return s.byScope, nil
}

func (s *stubDiscountsRepo) IncrementUsage(ctx context.Context, code string) (int64, error) {
	s.usageCalls = append(s.usageCalls, code)
	return s.usageLeft, nil
}

func (s *stubDiscountsRepo) ListAll(ctx context.Context) ([]models.Discount, error) {
	return nil, nil
}

type stubProductFinder struct{ exists bool }

func (s *stubProductFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if !s.exists {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Product{ID: id}, nil
}

type stubCategoryFinder struct{ exists bool }

func (s *stubCategoryFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if !s.exists {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Category{ID: id}, nil
}

type stubVendorFinder struct{ exists bool }

func (s *stubVendorFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	if !s.exists {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.VendorProfile{ID: id}, nil
}

type discountFixture struct {
	repo *stubDiscountsRepo
	svc  *service
}

func newDiscountFixture(t *testing.T) *discountFixture {
	t.Helper()
	repo := &stubDiscountsRepo{
		byCode: map[string]*models.Discount{},
		byID:   map[uuid.UUID]*models.Discount{},
	}
	svc, err := NewService(repo, &stubProductFinder{exists: true}, &stubCategoryFinder{exists: true}, &stubVendorFinder{exists: true})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &discountFixture{repo: repo, svc: svc.(*service)}
}

func activeDiscount(code string, now time.Time) *models.Discount {
	return &models.Discount{
		ID:         uuid.New(),
		Code:       code,
		Type:       enums.DiscountTypePercentage,
		Value:      decimal.NewFromInt(10),
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
		IsActive:   true,
		UsageLimit: 0,
	}
}

func TestResolveByCodeHappyPath(t *testing.T) {
	f := newDiscountFixture(t)
	now := time.Now()
	f.svc.now = func() time.Time { return now }
	f.repo.byCode["SAVE10"] = activeDiscount("SAVE10", now)

	discount, err := f.svc.ResolveByCode(context.Background(), "  SAVE10  ")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if discount.Code != "SAVE10" {
		t.Fatalf("unexpected discount %s", discount.Code)
	}
}

func TestResolveByCodeFailureModes(t *testing.T) {
	now := time.Now()

	notYet := activeDiscount("SOON", now)
	notYet.StartsAt = now.Add(time.Hour)
	notYet.EndsAt = now.Add(2 * time.Hour)

	expired := activeDiscount("GONE", now)
	expired.StartsAt = now.Add(-2 * time.Hour)
	expired.EndsAt = now.Add(-time.Hour)
	expired.UsageLimit = 100
	expired.UsageCount = 1

	exhausted := activeDiscount("USED", now)
	exhausted.UsageLimit = 5
	exhausted.UsageCount = 5

	cases := []struct {
		name     string
		code     string
		discount *models.Discount
		message  string
	}{
		{"unknown code", "NOPE", nil, "discount code not found"},
		{"not started", "SOON", notYet, "discount is not active yet"},
		{"expired despite remaining usage", "GONE", expired, "discount has expired"},
		{"usage exhausted", "USED", exhausted, "discount usage limit reached"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newDiscountFixture(t)
			f.svc.now = func() time.Time { return now }
			if tc.discount != nil {
				f.repo.byCode[tc.code] = tc.discount
			}
			_, err := f.svc.ResolveByCode(context.Background(), tc.code)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeBadRequest {
				t.Fatalf("expected bad request got %v", err)
			}
			if typed.Message() != tc.message {
				t.Fatalf("expected %q got %q", tc.message, typed.Message())
			}
		})
	}
}

func TestApplicableForDeduplicates(t *testing.T) {
	f := newDiscountFixture(t)
	shared := models.Discount{ID: uuid.New(), Code: "BOTH"}
	f.repo.byProduct = []models.Discount{shared, {ID: uuid.New(), Code: "PROD"}}
	f.repo.byScope = []models.Discount{shared, {ID: uuid.New(), Code: "SCOPE"}}

	productID := uuid.New()
	categoryID := uuid.New()
	vendorID := uuid.New()
	rows, err := f.svc.ApplicableFor(context.Background(), ApplicableFilter{
		ProductID:  &productID,
		CategoryID: &categoryID,
		VendorID:   &vendorID,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 deduplicated rows got %d", len(rows))
	}
}

func TestApplicableForSkipsScopedLookupWithoutBothIDs(t *testing.T) {
	f := newDiscountFixture(t)
	f.repo.byScope = []models.Discount{{ID: uuid.New(), Code: "SCOPE"}}

	categoryID := uuid.New()
	rows, err := f.svc.ApplicableFor(context.Background(), ApplicableFilter{CategoryID: &categoryID})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows without vendor id, got %d", len(rows))
	}
}

func TestIncrementUsageUnknownCode(t *testing.T) {
	f := newDiscountFixture(t)
	f.repo.usageLeft = 0

	err := f.svc.IncrementUsage(context.Background(), "NOPE")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestCreateRejectsDuplicateActiveCode(t *testing.T) {
	f := newDiscountFixture(t)
	now := time.Now()
	f.repo.byCode["SAVE10"] = activeDiscount("SAVE10", now)

	_, err := f.svc.Create(context.Background(), CreateInput{
		Code:     "SAVE10",
		Type:     enums.DiscountTypePercentage,
		Value:    decimal.NewFromInt(10),
		StartsAt: now,
		EndsAt:   now.Add(time.Hour),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestCreateValidatesWindowAndValue(t *testing.T) {
	f := newDiscountFixture(t)
	now := time.Now()

	_, err := f.svc.Create(context.Background(), CreateInput{
		Code:     "BAD",
		Type:     enums.DiscountTypePercentage,
		Value:    decimal.NewFromInt(10),
		StartsAt: now,
		EndsAt:   now,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for window got %v", err)
	}

	_, err = f.svc.Create(context.Background(), CreateInput{
		Code:     "BAD",
		Type:     enums.DiscountTypePercentage,
		Value:    decimal.Zero,
		StartsAt: now,
		EndsAt:   now.Add(time.Hour),
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for value got %v", err)
	}
}

func TestCreateValidatesScopeReferences(t *testing.T) {
	repo := &stubDiscountsRepo{byCode: map[string]*models.Discount{}, byID: map[uuid.UUID]*models.Discount{}}
	svc, err := NewService(repo, &stubProductFinder{exists: false}, &stubCategoryFinder{exists: true}, &stubVendorFinder{exists: true})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	productID := uuid.New()
	now := time.Now()
	_, err = svc.Create(context.Background(), CreateInput{
		Code:      "SCOPED",
		Type:      enums.DiscountTypeFixed,
		Value:     decimal.NewFromInt(5),
		StartsAt:  now,
		EndsAt:    now.Add(time.Hour),
		ProductID: &productID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestUpdateKeepsWindowConsistent(t *testing.T) {
	f := newDiscountFixture(t)
	now := time.Now()
	existing := activeDiscount("SAVE10", now)
	f.repo.byID[existing.ID] = existing

	badEnd := existing.StartsAt.Add(-time.Minute)
	_, err := f.svc.Update(context.Background(), UpdateInput{
		DiscountID: existing.ID,
		EndsAt:     &badEnd,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}

	newValue := decimal.NewFromInt(15)
	updated, err := f.svc.Update(context.Background(), UpdateInput{
		DiscountID: existing.ID,
		Value:      &newValue,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !updated.Value.Equal(newValue) {
		t.Fatalf("expected value 15 got %s", updated.Value)
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	f := newDiscountFixture(t)
	existing := activeDiscount("SAVE10", time.Now())
	f.repo.byID[existing.ID] = existing

	if err := f.svc.Delete(context.Background(), existing.ID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if f.repo.deleted != existing.ID {
		t.Fatal("expected soft delete call")
	}

	err := f.svc.Delete(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
