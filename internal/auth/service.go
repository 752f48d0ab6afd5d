package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/internal/users"
	"github.com/martello/marketplace-backend/internal/vendors"
	pkgauth "github.com/martello/marketplace-backend/pkg/auth"
	"github.com/martello/marketplace-backend/pkg/config"
	dbpkg "github.com/martello/marketplace-backend/pkg/db"
	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterInput carries a registration request. BusinessName is required when
// registering a vendor.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.Role
	BusinessName string
	Description  *string
}

// LoginInput carries a credential pair.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult bundles the signed token with the authenticated account.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Service handles account registration and credential login.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type service struct {
	users    users.Repository
	vendors  vendors.Repository
	tx       txRunner
	password config.PasswordConfig
	jwt      config.JWTConfig
}

// NewService builds an auth service with the required dependencies.
func NewService(usersRepo users.Repository, vendorsRepo vendors.Repository, tx txRunner, password config.PasswordConfig, jwt config.JWTConfig) (Service, error) {
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if vendorsRepo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		users:    usersRepo,
		vendors:  vendorsRepo,
		tx:       tx,
		password: password,
		jwt:      jwt,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name required")
	}
	if input.Role != enums.RoleCustomer && input.Role != enums.RoleVendor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be customer or vendor")
	}
	if input.Role == enums.RoleVendor && strings.TrimSpace(input.BusinessName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name required for vendors")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking email")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Role:         input.Role,
		IsActive:     true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, &user); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating user")
		}
		if input.Role == enums.RoleVendor {
			profile := models.VendorProfile{
				UserID:         user.ID,
				BusinessName:   strings.TrimSpace(input.BusinessName),
				Description:    input.Description,
				ApprovalStatus: enums.ApprovalStatusPending,
			}
			if err := s.vendors.WithTx(tx).Create(ctx, &profile); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating vendor profile")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Login verifies the credential pair and mints an access token. Vendor
// accounts carry their vendor profile id in the token claims.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up account")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account disabled")
	}

	var vendorID *uuid.UUID
	if user.Role == enums.RoleVendor {
		profile, err := s.vendors.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up vendor profile")
		}
		if profile != nil {
			vendorID = &profile.ID
		}
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		VendorID: vendorID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		// Login stands even when the timestamp write fails.
		return &LoginResult{
			Token:     token,
			ExpiresAt: now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
			User:      user,
		}, nil
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		User:      user,
	}, nil
}
