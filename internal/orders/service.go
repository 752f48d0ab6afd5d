package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/internal/catalog"
	"github.com/martello/marketplace-backend/pkg/db/models"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
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

// commissionRecorder writes the ledger row after a placement commits.
type commissionRecorder interface {
	Record(ctx context.Context, order *models.Order) (*models.Commission, error)
}

// vendorResolver maps between vendor profiles and the users behind them.
type vendorResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
}

// Service exposes order placement and lifecycle operations.
type Service interface {
	Place(ctx context.Context, customerID uuid.UUID, input PlaceInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	GetForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, *string, error)
	ListForVendorUser(ctx context.Context, vendorUserID uuid.UUID, params pagination.Params) ([]models.Order, *string, error)
}

type service struct {
	repo        Repository
	products    catalog.Repository
	vendors     vendorResolver
	commissions commissionRecorder
	tx          txRunner
	outbox      outboxPublisher
	notify      notifier
	logg        *logger.Logger
}

// NewService builds an orders service with the required dependencies.
func NewService(
	repo Repository,
	products catalog.Repository,
	vendors vendorResolver,
	commissions commissionRecorder,
	tx txRunner,
	outboxSvc outboxPublisher,
	notify notifier,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor resolver required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission recorder required")
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
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		products:    products,
		vendors:     vendors,
		commissions: commissions,
		tx:          tx,
		outbox:      outboxSvc,
		notify:      notify,
		logg:        logg,
	}, nil
}

// Place validates the item list, decrements stock, and persists the order
// with its items in one transaction. Commission recording runs in its own
// transaction after the order commits; a crash between the two leaves an
// order without a commission and no recovery job attempts to repair it.
func (s *service) Place(ctx context.Context, customerID uuid.UUID, input PlaceInput) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if strings.TrimSpace(input.BillingAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing address required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every item")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("products not found: %s", strings.Join(missing, ", ")))
	}

	vendorID := byID[ids[0]].VendorID
	for _, product := range byID {
		if product.VendorID != vendorID {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "all products must belong to the same vendor")
		}
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		product := byID[item.ProductID]
		if product.StockQuantity < item.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest,
				fmt.Sprintf("insufficient stock for product %s", product.Name))
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, models.OrderItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			PriceAtPurchase: product.Price,
			Quantity:        item.Quantity,
		})
	}

	order := models.Order{
		OrderNumber:     newOrderNumber(),
		CustomerID:      customerID,
		VendorID:        vendorID,
		Status:          enums.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		BillingAddress:  strings.TrimSpace(input.BillingAddress),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		for _, item := range input.Items {
			affected, err := products.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrementing stock")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeBadRequest,
					fmt.Sprintf("insufficient stock for product %s", byID[item.ProductID].Name))
			}
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order items")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: enums.RoleCustomer.String()},
			Data: OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				TotalAmount: order.TotalAmount,
				ItemCount:   len(items),
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing order event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.Items = items

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	if _, err := s.commissions.Record(ctx, &order); err != nil {
		// The order already committed; the ledger gap is surfaced in logs
		// rather than failing the placement.
		s.logg.Error(logCtx, "commission recording failed after order commit", err)
	}

	if profile, err := s.vendors.FindByID(ctx, order.VendorID); err == nil {
		s.notify.Notify(ctx, profile.UserID, enums.NotificationOrderPlaced,
			"New order received",
			fmt.Sprintf("Order %s for %s has been placed.", order.OrderNumber, order.TotalAmount.StringFixed(2)))
	} else {
		s.logg.Error(logCtx, "loading vendor for order notification failed", err)
	}

	return &order, nil
}

// UpdateStatus applies a guarded transition on behalf of the owning vendor.
// Cancelling restores the stock the placement took.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	var previous enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOwnedByVendorUser(ctx, input.OrderID, input.ActorUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}
		if !order.Status.CanTransitionTo(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Target))
		}

		previous = order.Status
		order.Status = input.Target
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order")
		}

		if input.Target == enums.OrderStatusCancelled {
			products := s.products.WithTx(tx)
			for _, item := range order.Items {
				if err := products.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring stock")
				}
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.RoleVendor.String()},
			Data: OrderStatusChangedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				VendorID:   order.VendorID,
				From:       previous,
				To:         order.Status,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing order event")
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, updated.CustomerID, enums.NotificationOrderStatus,
		"Order status updated",
		fmt.Sprintf("Order %s is now %s.", updated.OrderNumber, updated.Status))

	return updated, nil
}

func (s *service) GetForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, *string, error) {
	if customerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByCustomer(ctx, customerID, params)
}

func (s *service) ListForVendorUser(ctx context.Context, vendorUserID uuid.UUID, params pagination.Params) ([]models.Order, *string, error) {
	if vendorUserID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.vendors.FindByUserID(ctx, vendorUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile required")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vendor profile")
	}
	return s.repo.ListByVendor(ctx, profile.ID, params)
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
