package vendors

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/internal/catalog"
	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/outbox"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

type stubVendorsRepo struct {
	profile *models.VendorProfile
	updated *models.VendorProfile
}

func (s *stubVendorsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubVendorsRepo) Create(ctx context.Context, profile *models.VendorProfile) error {
	panic("not implemented")
}

func (s *stubVendorsRepo) Update(ctx context.Context, profile *models.VendorProfile) error {
	s.updated = profile
	return nil
}

func (s *stubVendorsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	if s.profile == nil || s.profile.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

func (s *stubVendorsRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	if s.profile == nil || s.profile.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

func (s *stubVendorsRepo) ListByStatus(ctx context.Context, status enums.ApprovalStatus, params pagination.Params) ([]models.VendorProfile, *string, error) {
	return nil, nil, nil
}

func (s *stubVendorsRepo) DashboardStats(ctx context.Context, vendorID uuid.UUID) (*DashboardStats, error) {
	return &DashboardStats{ProductCount: 2}, nil
}

type relistCall struct {
	vendorID uuid.UUID
	listed   bool
}

type stubProductsRepo struct {
	relists []relistCall
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubProductsRepo) Create(ctx context.Context, product *models.Product) error {
	panic("not implemented")
}

func (s *stubProductsRepo) Update(ctx context.Context, product *models.Product) error {
	panic("not implemented")
}

func (s *stubProductsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindOwned(ctx context.Context, productID, ownerUserID uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) List(ctx context.Context, filter catalog.ListFilter, params pagination.Params) ([]models.Product, *string, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	panic("not implemented")
}

func (s *stubProductsRepo) ListRelated(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductsRepo) SetListedByVendor(ctx context.Context, vendorID uuid.UUID, listed bool) error {
	s.relists = append(s.relists, relistCall{vendorID: vendorID, listed: listed})
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubNotifier struct {
	users  []uuid.UUID
	titles []string
}

func (s *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string) {
	s.users = append(s.users, userID)
	s.titles = append(s.titles, title)
}

type vendorFixture struct {
	repo     *stubVendorsRepo
	products *stubProductsRepo
	outbox   *stubOutboxPublisher
	notify   *stubNotifier
	svc      Service
}

func newVendorFixture(t *testing.T, profile *models.VendorProfile) *vendorFixture {
	t.Helper()
	f := &vendorFixture{
		repo:     &stubVendorsRepo{profile: profile},
		products: &stubProductsRepo{},
		outbox:   &stubOutboxPublisher{},
		notify:   &stubNotifier{},
	}
	svc, err := NewService(f.repo, f.products, stubTxRunner{}, f.outbox, f.notify)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func pendingProfile() *models.VendorProfile {
	return &models.VendorProfile{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		BusinessName:   "Acme Roasters",
		ApprovalStatus: enums.ApprovalStatusPending,
	}
}

func TestDecideApprovesPendingVendor(t *testing.T) {
	profile := pendingProfile()
	f := newVendorFixture(t, profile)

	decided, err := f.svc.Decide(context.Background(), DecisionInput{
		VendorID:    profile.ID,
		Target:      enums.ApprovalStatusApproved,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if decided.ApprovalStatus != enums.ApprovalStatusApproved {
		t.Fatalf("expected approved got %s", decided.ApprovalStatus)
	}
	if decided.ApprovedAt == nil {
		t.Fatal("expected approval timestamp")
	}
	if len(f.products.relists) != 1 || !f.products.relists[0].listed {
		t.Fatalf("expected products to be relisted got %+v", f.products.relists)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventVendorApproved {
		t.Fatalf("expected approved event got %+v", f.outbox.events)
	}
	if len(f.notify.users) != 1 || f.notify.users[0] != profile.UserID {
		t.Fatalf("expected applicant notification got %+v", f.notify.users)
	}
}

func TestDecideRejectRequiresReason(t *testing.T) {
	profile := pendingProfile()
	f := newVendorFixture(t, profile)

	_, err := f.svc.Decide(context.Background(), DecisionInput{
		VendorID: profile.ID,
		Target:   enums.ApprovalStatusRejected,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}

	blank := "   "
	_, err = f.svc.Decide(context.Background(), DecisionInput{
		VendorID: profile.ID,
		Target:   enums.ApprovalStatusRejected,
		Reason:   &blank,
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank reason got %v", err)
	}
}

func TestDecideRejectStoresReason(t *testing.T) {
	profile := pendingProfile()
	f := newVendorFixture(t, profile)

	reason := "incomplete documentation"
	decided, err := f.svc.Decide(context.Background(), DecisionInput{
		VendorID:    profile.ID,
		Target:      enums.ApprovalStatusRejected,
		Reason:      &reason,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if decided.ApprovalStatus != enums.ApprovalStatusRejected {
		t.Fatalf("expected rejected got %s", decided.ApprovalStatus)
	}
	if decided.RejectionReason == nil || *decided.RejectionReason != reason {
		t.Fatalf("expected stored reason got %v", decided.RejectionReason)
	}
	if len(f.products.relists) != 0 {
		t.Fatal("rejection must not touch product listings")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventVendorRejected {
		t.Fatalf("expected rejected event got %+v", f.outbox.events)
	}
}

func TestDecideRejectsDecidedApplication(t *testing.T) {
	profile := pendingProfile()
	profile.ApprovalStatus = enums.ApprovalStatusApproved
	f := newVendorFixture(t, profile)

	_, err := f.svc.Decide(context.Background(), DecisionInput{
		VendorID:    profile.ID,
		Target:      enums.ApprovalStatusApproved,
		ActorUserID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if f.repo.updated != nil {
		t.Fatal("profile must not be updated")
	}
}

func TestDecideRejectsInvalidTarget(t *testing.T) {
	f := newVendorFixture(t, pendingProfile())

	_, err := f.svc.Decide(context.Background(), DecisionInput{
		VendorID: uuid.New(),
		Target:   enums.ApprovalStatusPending,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestDecideUnknownVendor(t *testing.T) {
	f := newVendorFixture(t, nil)

	_, err := f.svc.Decide(context.Background(), DecisionInput{
		VendorID: uuid.New(),
		Target:   enums.ApprovalStatusApproved,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestDashboardRequiresProfile(t *testing.T) {
	f := newVendorFixture(t, nil)

	_, err := f.svc.Dashboard(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
