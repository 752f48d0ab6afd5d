package notifications

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
	"github.com/martello/marketplace-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	created    []models.Notification
	createErr  error
	markedRead int64
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *notification)
	return nil
}

func (s *stubNotificationsRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, *string, error) {
	var rows []models.Notification
	for _, row := range s.created {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	return rows, nil, nil
}

func (s *stubNotificationsRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(s.created)), nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (int64, error) {
	return s.markedRead, nil
}

func (s *stubNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func newNotificationsService(t *testing.T, repo *stubNotificationsRepo) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestNotifyRecordsRow(t *testing.T) {
	repo := &stubNotificationsRepo{}
	svc := newNotificationsService(t, repo)
	userID := uuid.New()

	svc.Notify(context.Background(), userID, enums.NotificationOrderPlaced, "Order placed", "Your order is on its way")
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.UserID != userID || row.Type != enums.NotificationOrderPlaced {
		t.Fatalf("unexpected notification %+v", row)
	}
}

func TestNotifySwallowsWriteFailures(t *testing.T) {
	repo := &stubNotificationsRepo{createErr: errors.New("db down")}
	svc := newNotificationsService(t, repo)

	// Must not panic or surface the error to the caller.
	svc.Notify(context.Background(), uuid.New(), enums.NotificationOrderPlaced, "Order placed", "body")
}

func TestNotifyIgnoresMissingRecipient(t *testing.T) {
	repo := &stubNotificationsRepo{}
	svc := newNotificationsService(t, repo)

	svc.Notify(context.Background(), uuid.Nil, enums.NotificationOrderPlaced, "Order placed", "body")
	if len(repo.created) != 0 {
		t.Fatal("nil recipient must not be recorded")
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	repo := &stubNotificationsRepo{markedRead: 0}
	svc := newNotificationsService(t, repo)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}

	repo.markedRead = 1
	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
}

func TestListRequiresIdentity(t *testing.T) {
	svc := newNotificationsService(t, &stubNotificationsRepo{})

	_, _, err := svc.List(context.Background(), uuid.Nil, pagination.Params{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized got %v", err)
	}
}
