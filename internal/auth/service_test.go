package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/internal/users"
	"github.com/martello/marketplace-backend/internal/vendors"
	pkgauth "github.com/martello/marketplace-backend/pkg/auth"
	"github.com/martello/marketplace-backend/pkg/config"
	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/pagination"
	"github.com/martello/marketplace-backend/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTCfg = config.JWTConfig{
	Secret:            "test-secret-key",
	Issuer:            "martello-test",
	ExpirationMinutes: 60,
}

type stubUsersRepo struct {
	byEmail     map[string]*models.User
	created     *models.User
	touched     []uuid.UUID
	touchFails  bool
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) users.Repository { return s }

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.created = user
	s.byEmail[user.Email] = user
	return nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUsersRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if s.touchFails {
		return gorm.ErrInvalidDB
	}
	s.touched = append(s.touched, id)
	return nil
}

func (s *stubUsersRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

type stubVendorsRepo struct {
	profile *models.VendorProfile
	created *models.VendorProfile
}

func (s *stubVendorsRepo) WithTx(tx *gorm.DB) vendors.Repository { return s }

func (s *stubVendorsRepo) Create(ctx context.Context, profile *models.VendorProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	s.created = profile
	return nil
}

func (s *stubVendorsRepo) Update(ctx context.Context, profile *models.VendorProfile) error {
	panic("not implemented")
}

func (s *stubVendorsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	panic("not implemented")
}

func (s *stubVendorsRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	if s.profile == nil || s.profile.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

func (s *stubVendorsRepo) ListByStatus(ctx context.Context, status enums.ApprovalStatus, params pagination.Params) ([]models.VendorProfile, *string, error) {
	panic("not implemented")
}

func (s *stubVendorsRepo) DashboardStats(ctx context.Context, vendorID uuid.UUID) (*vendors.DashboardStats, error) {
	panic("not implemented")
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type authFixture struct {
	users   *stubUsersRepo
	vendors *stubVendorsRepo
	svc     Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:   &stubUsersRepo{byEmail: map[string]*models.User{}},
		vendors: &stubVendorsRepo{},
	}
	svc, err := NewService(f.users, f.vendors, stubTxRunner{}, testPasswordCfg, testJWTCfg)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func (f *authFixture) seedUser(t *testing.T, email, password string, role enums.Role, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     active,
	}
	f.users.byEmail[email] = user
	return user
}

func TestRegisterCustomer(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "  Jamie@Example.COM ",
		Password:  "correct-horse",
		FirstName: "Jamie",
		LastName:  "Doe",
		Role:      enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if user.Email != "jamie@example.com" {
		t.Fatalf("expected normalized email got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Fatal("password must be hashed")
	}
	if !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
		t.Fatalf("unexpected hash format %q", user.PasswordHash)
	}
	if f.vendors.created != nil {
		t.Fatal("customer registration must not create a vendor profile")
	}
}

func TestRegisterVendorCreatesPendingProfile(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:        "vendor@example.com",
		Password:     "correct-horse",
		FirstName:    "Val",
		LastName:     "Vendor",
		Role:         enums.RoleVendor,
		BusinessName: "Acme Roasters",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if f.vendors.created == nil {
		t.Fatal("expected vendor profile")
	}
	if f.vendors.created.UserID != user.ID {
		t.Fatal("profile must reference the new user")
	}
	if f.vendors.created.ApprovalStatus != enums.ApprovalStatusPending {
		t.Fatalf("expected pending got %s", f.vendors.created.ApprovalStatus)
	}
}

func TestRegisterVendorRequiresBusinessName(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "vendor@example.com",
		Password:  "correct-horse",
		FirstName: "Val",
		LastName:  "Vendor",
		Role:      enums.RoleVendor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "taken@example.com", "password-123", enums.RoleCustomer, true)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "taken@example.com",
		Password:  "password-123",
		FirstName: "Jamie",
		LastName:  "Doe",
		Role:      enums.RoleCustomer,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "root@example.com",
		Password:  "password-123",
		FirstName: "Jamie",
		LastName:  "Doe",
		Role:      enums.RoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestLoginMintsToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "jamie@example.com", "correct-horse", enums.RoleCustomer, true)

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "Jamie@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTCfg, result.Token)
	if err != nil {
		t.Fatalf("token must parse: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected subject %s got %s", user.ID, claims.UserID)
	}
	if claims.Role != enums.RoleCustomer {
		t.Fatalf("expected customer role got %s", claims.Role)
	}
	if claims.VendorID != nil {
		t.Fatal("customer token must not carry a vendor id")
	}
	if len(f.users.touched) != 1 || f.users.touched[0] != user.ID {
		t.Fatalf("expected last-login touch got %+v", f.users.touched)
	}
}

func TestLoginVendorCarriesVendorID(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "vendor@example.com", "correct-horse", enums.RoleVendor, true)
	f.vendors.profile = &models.VendorProfile{ID: uuid.New(), UserID: user.ID}

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "vendor@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTCfg, result.Token)
	if err != nil {
		t.Fatalf("token must parse: %v", err)
	}
	if claims.VendorID == nil || *claims.VendorID != f.vendors.profile.ID {
		t.Fatalf("expected vendor id in claims got %v", claims.VendorID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "jamie@example.com", "correct-horse", enums.RoleCustomer, true)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "correct-horse"},
		{"wrong password", "jamie@example.com", "wrong-horse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), LoginInput{Email: tc.email, Password: tc.password})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized got %v", err)
			}
			if typed.Message() != "invalid credentials" {
				t.Fatalf("message must not leak which field failed: %q", typed.Message())
			}
		})
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "jamie@example.com", "correct-horse", enums.RoleCustomer, false)

	_, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "jamie@example.com",
		Password: "correct-horse",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestLoginSurvivesTouchFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "jamie@example.com", "correct-horse", enums.RoleCustomer, true)
	f.users.touchFails = true

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "jamie@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login must stand got %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected token")
	}
}
