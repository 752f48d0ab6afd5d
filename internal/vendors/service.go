package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/internal/catalog"
	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/outbox"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string)
}

// DecisionInput captures an admin ruling on a pending vendor.
type DecisionInput struct {
	VendorID    uuid.UUID
	Target      enums.ApprovalStatus
	Reason      *string
	ActorUserID uuid.UUID
}

// VendorDecisionEvent is emitted when an admin decides a vendor application.
type VendorDecisionEvent struct {
	VendorID uuid.UUID            `json:"vendor_id"`
	UserID   uuid.UUID            `json:"user_id"`
	Status   enums.ApprovalStatus `json:"status"`
	Reason   *string              `json:"reason,omitempty"`
}

// Service exposes vendor moderation and vendor-facing reads.
type Service interface {
	Decide(ctx context.Context, input DecisionInput) (*models.VendorProfile, error)
	ListPending(ctx context.Context, params pagination.Params) ([]models.VendorProfile, *string, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardStats, error)
}

type service struct {
	repo     Repository
	products catalog.Repository
	tx       txRunner
	outbox   outboxPublisher
	notify   notifier
}

// NewService builds a vendors service with the required dependencies.
func NewService(repo Repository, products catalog.Repository, tx txRunner, outboxSvc outboxPublisher, notify notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		outbox:   outboxSvc,
		notify:   notify,
	}, nil
}

func (s *service) Decide(ctx context.Context, input DecisionInput) (*models.VendorProfile, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.Target != enums.ApprovalStatusApproved && input.Target != enums.ApprovalStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}
	if input.Target == enums.ApprovalStatusRejected {
		if input.Reason == nil || strings.TrimSpace(*input.Reason) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
		}
	}

	var decided *models.VendorProfile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindByID(ctx, input.VendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor")
		}
		if profile.ApprovalStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vendor application already decided")
		}

		profile.ApprovalStatus = input.Target
		switch input.Target {
		case enums.ApprovalStatusApproved:
			now := time.Now()
			profile.ApprovedAt = &now
			profile.RejectionReason = nil
		case enums.ApprovalStatusRejected:
			profile.RejectionReason = input.Reason
		}
		if err := repo.Update(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating vendor")
		}

		if input.Target == enums.ApprovalStatusApproved {
			if err := s.products.WithTx(tx).SetListedByVendor(ctx, profile.ID, true); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "relisting vendor products")
			}
		}

		eventType := enums.EventVendorApproved
		if input.Target == enums.ApprovalStatusRejected {
			eventType = enums.EventVendorRejected
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateVendor,
			AggregateID:   profile.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.RoleAdmin.String()},
			Data: VendorDecisionEvent{
				VendorID: profile.ID,
				UserID:   profile.UserID,
				Status:   profile.ApprovalStatus,
				Reason:   profile.RejectionReason,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing vendor event")
		}

		decided = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	title := "Vendor application approved"
	message := fmt.Sprintf("%s is now live on the marketplace.", decided.BusinessName)
	if decided.ApprovalStatus == enums.ApprovalStatusRejected {
		title = "Vendor application rejected"
		message = fmt.Sprintf("Your application for %s was rejected: %s", decided.BusinessName, *decided.RejectionReason)
	}
	s.notify.Notify(ctx, decided.UserID, enums.NotificationVendorDecision, title, message)

	return decided, nil
}

func (s *service) ListPending(ctx context.Context, params pagination.Params) ([]models.VendorProfile, *string, error) {
	return s.repo.ListByStatus(ctx, enums.ApprovalStatusPending, params)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor")
	}
	return profile, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor profile")
	}
	return profile, nil
}

func (s *service) Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	profile, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.DashboardStats(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading dashboard stats")
	}
	return stats, nil
}
