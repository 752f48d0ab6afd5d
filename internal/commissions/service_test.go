package commissions

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
	"github.com/martello/marketplace-backend/pkg/outbox"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

type rateScope struct {
	vendor   bool
	category bool
}

type stubCommissionsRepo struct {
	rates       map[rateScope]*models.CommissionRate
	savedRate   *models.CommissionRate
	existing    *models.Commission
	commission  *models.Commission
	created     *models.Commission
	updates     []models.Commission
	pendingSum  decimal.Decimal
	totalBetwen decimal.Decimal
}

func (s *stubCommissionsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCommissionsRepo) Create(ctx context.Context, commission *models.Commission) error {
	if commission.ID == uuid.Nil {
		commission.ID = uuid.New()
	}
	s.created = commission
	return nil
}

func (s *stubCommissionsRepo) Update(ctx context.Context, commission *models.Commission) error {
	s.updates = append(s.updates, *commission)
	return nil
}

func (s *stubCommissionsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	if s.commission == nil || s.commission.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.commission, nil
}

func (s *stubCommissionsRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	if s.existing == nil || s.existing.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubCommissionsRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Commission, *string, error) {
	return nil, nil, nil
}

func (s *stubCommissionsRepo) SumPendingEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return s.pendingSum, nil
}

func (s *stubCommissionsRepo) SumCommissionBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return s.totalBetwen, nil
}

func (s *stubCommissionsRepo) FindActiveRate(ctx context.Context, vendorID, categoryID *uuid.UUID) (*models.CommissionRate, error) {
	rate, ok := s.rates[rateScope{vendor: vendorID != nil, category: categoryID != nil}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rate, nil
}

func (s *stubCommissionsRepo) FindRateByScope(ctx context.Context, vendorID, categoryID *uuid.UUID) (*models.CommissionRate, error) {
	return s.FindActiveRate(ctx, vendorID, categoryID)
}

func (s *stubCommissionsRepo) SaveRate(ctx context.Context, rate *models.CommissionRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	s.savedRate = rate
	return nil
}

func (s *stubCommissionsRepo) ListRates(ctx context.Context) ([]models.CommissionRate, error) {
	return nil, nil
}

type stubProductFinder struct {
	product *models.Product
}

func (s *stubProductFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.product == nil || s.product.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.product, nil
}

type stubVendorFinder struct {
	profile *models.VendorProfile
}

func (s *stubVendorFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	if s.profile == nil || s.profile.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
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
	users []uuid.UUID
}

func (s *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string) {
	s.users = append(s.users, userID)
}

type commissionFixture struct {
	repo    *stubCommissionsRepo
	product *stubProductFinder
	vendors *stubVendorFinder
	outbox  *stubOutboxPublisher
	notify  *stubNotifier
	svc     Service
}

func newCommissionFixture(t *testing.T, defaultRate string) *commissionFixture {
	t.Helper()
	f := &commissionFixture{
		repo:    &stubCommissionsRepo{rates: map[rateScope]*models.CommissionRate{}},
		product: &stubProductFinder{},
		vendors: &stubVendorFinder{},
		outbox:  &stubOutboxPublisher{},
		notify:  &stubNotifier{},
	}
	svc, err := NewService(f.repo, f.product, f.vendors, stubTxRunner{}, f.outbox, f.notify, defaultRate)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func rateOf(t *testing.T, value string) *models.CommissionRate {
	t.Helper()
	return &models.CommissionRate{
		ID:          uuid.New(),
		RatePercent: decimal.RequireFromString(value),
		IsActive:    true,
	}
}

func TestResolveRatePrecedence(t *testing.T) {
	vendorID := uuid.New()
	categoryID := uuid.New()

	cases := []struct {
		name   string
		rates  map[rateScope]*models.CommissionRate
		expect string
	}{
		{
			name: "vendor and category scope wins",
			rates: map[rateScope]*models.CommissionRate{
				{vendor: true, category: true}: rateOf(t, "12"),
				{vendor: false, category: true}: rateOf(t, "8"),
				{vendor: true, category: false}: rateOf(t, "6"),
			},
			expect: "12",
		},
		{
			name: "category scope beats vendor scope",
			rates: map[rateScope]*models.CommissionRate{
				{vendor: false, category: true}: rateOf(t, "8"),
				{vendor: true, category: false}: rateOf(t, "6"),
			},
			expect: "8",
		},
		{
			name: "vendor scope when no category match",
			rates: map[rateScope]*models.CommissionRate{
				{vendor: true, category: false}: rateOf(t, "6"),
			},
			expect: "6",
		},
		{
			name:   "global default as last resort",
			rates:  map[rateScope]*models.CommissionRate{},
			expect: "10",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCommissionFixture(t, "10")
			f.repo.rates = tc.rates
			rate, err := f.svc.ResolveRate(context.Background(), vendorID, categoryID)
			if err != nil {
				t.Fatalf("expected success got %v", err)
			}
			if !rate.Equal(decimal.RequireFromString(tc.expect)) {
				t.Fatalf("expected %s got %s", tc.expect, rate)
			}
		})
	}
}

func TestRecordSplitsOrderTotal(t *testing.T) {
	f := newCommissionFixture(t, "10")
	order := &models.Order{
		ID:          uuid.New(),
		VendorID:    uuid.New(),
		TotalAmount: decimal.RequireFromString("100.00"),
		Items:       []models.OrderItem{{ProductID: uuid.New(), Quantity: 1}},
	}

	commission, err := f.svc.Record(context.Background(), order)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !commission.CommissionAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected commission 10.00 got %s", commission.CommissionAmount)
	}
	if !commission.VendorEarnings.Equal(decimal.RequireFromString("90.00")) {
		t.Fatalf("expected earnings 90.00 got %s", commission.VendorEarnings)
	}
	if commission.Status != enums.CommissionStatusPending {
		t.Fatalf("expected pending got %s", commission.Status)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventCommissionRecorded {
		t.Fatalf("expected recorded event got %+v", f.outbox.events)
	}
}

func TestRecordRoundsHalfUp(t *testing.T) {
	f := newCommissionFixture(t, "7.25")
	order := &models.Order{
		ID:          uuid.New(),
		VendorID:    uuid.New(),
		TotalAmount: decimal.RequireFromString("50.00"),
		Items:       []models.OrderItem{{ProductID: uuid.New(), Quantity: 1}},
	}

	commission, err := f.svc.Record(context.Background(), order)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	// 50.00 * 7.25% = 3.625, rounded to 3.63
	if !commission.CommissionAmount.Equal(decimal.RequireFromString("3.63")) {
		t.Fatalf("expected commission 3.63 got %s", commission.CommissionAmount)
	}
	if !commission.VendorEarnings.Equal(decimal.RequireFromString("46.37")) {
		t.Fatalf("expected earnings 46.37 got %s", commission.VendorEarnings)
	}
}

func TestRecordIsIdempotentPerOrder(t *testing.T) {
	f := newCommissionFixture(t, "10")
	orderID := uuid.New()
	f.repo.existing = &models.Commission{ID: uuid.New(), OrderID: orderID}

	commission, err := f.svc.Record(context.Background(), &models.Order{
		ID:          orderID,
		VendorID:    uuid.New(),
		TotalAmount: decimal.NewFromInt(100),
		Items:       []models.OrderItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if commission.ID != f.repo.existing.ID {
		t.Fatal("expected the existing ledger row")
	}
	if f.repo.created != nil {
		t.Fatal("no second row may be written")
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("no event may be emitted for a replay")
	}
}

func TestProcessPaymentAdvancesPendingToPaid(t *testing.T) {
	f := newCommissionFixture(t, "10")
	vendorID := uuid.New()
	vendorUserID := uuid.New()
	f.vendors.profile = &models.VendorProfile{ID: vendorID, UserID: vendorUserID}
	f.repo.commission = &models.Commission{
		ID:             uuid.New(),
		OrderID:        uuid.New(),
		VendorID:       vendorID,
		VendorEarnings: decimal.RequireFromString("90.00"),
		Status:         enums.CommissionStatusPending,
	}

	paid, err := f.svc.ProcessPayment(context.Background(), f.repo.commission.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if paid.Status != enums.CommissionStatusPaid {
		t.Fatalf("expected paid got %s", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatal("expected paid timestamp")
	}
	if len(f.repo.updates) != 2 || f.repo.updates[0].Status != enums.CommissionStatusProcessing {
		t.Fatalf("expected processing then paid writes got %+v", f.repo.updates)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventCommissionPaid {
		t.Fatalf("expected paid event got %+v", f.outbox.events)
	}
	if len(f.notify.users) != 1 || f.notify.users[0] != vendorUserID {
		t.Fatalf("expected vendor notification got %+v", f.notify.users)
	}
}

func TestProcessPaymentRejectsNonPending(t *testing.T) {
	f := newCommissionFixture(t, "10")
	paidAt := time.Now()
	f.repo.commission = &models.Commission{
		ID:     uuid.New(),
		Status: enums.CommissionStatusPaid,
		PaidAt: &paidAt,
	}

	_, err := f.svc.ProcessPayment(context.Background(), f.repo.commission.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeBadRequest {
		t.Fatalf("expected bad request got %v", err)
	}
	if len(f.repo.updates) != 0 {
		t.Fatal("commission must stay unchanged")
	}
}

func TestProcessPaymentUnknownCommission(t *testing.T) {
	f := newCommissionFixture(t, "10")
	_, err := f.svc.ProcessPayment(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestVendorPendingEarnings(t *testing.T) {
	f := newCommissionFixture(t, "10")
	f.repo.pendingSum = decimal.RequireFromString("123.45")

	sum, err := f.svc.VendorPendingEarnings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("expected 123.45 got %s", sum)
	}

	if _, err := f.svc.VendorPendingEarnings(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected validation error for nil vendor")
	}
}

func TestSetRateValidatesScopeAndRange(t *testing.T) {
	f := newCommissionFixture(t, "10")

	_, err := f.svc.SetRate(context.Background(), SetRateInput{RatePercent: decimal.NewFromInt(5)})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}

	vendorID := uuid.New()
	_, err = f.svc.SetRate(context.Background(), SetRateInput{
		VendorID:    &vendorID,
		RatePercent: decimal.NewFromInt(101),
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}

	rate, err := f.svc.SetRate(context.Background(), SetRateInput{
		VendorID:    &vendorID,
		RatePercent: decimal.RequireFromString("7.5"),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !rate.RatePercent.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("expected 7.5 got %s", rate.RatePercent)
	}
	if f.repo.savedRate == nil {
		t.Fatal("rate must be persisted")
	}
}

func TestTotalBetweenRejectsEmptyRange(t *testing.T) {
	f := newCommissionFixture(t, "10")
	now := time.Now()

	_, err := f.svc.TotalBetween(context.Background(), now, now)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestNewServiceRejectsBadDefaultRate(t *testing.T) {
	repo := &stubCommissionsRepo{}
	_, err := NewService(repo, &stubProductFinder{}, &stubVendorFinder{}, stubTxRunner{}, &stubOutboxPublisher{}, &stubNotifier{}, "150")
	if err == nil {
		t.Fatal("expected constructor error")
	}
}
