package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

const (
	orderEventCreated   = "order.created"
	orderEventCancelled = "order.cancelled"

	orderNumberMaxAttempts = 10
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the caller does not own the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidState indicates a business rule rejected the operation in
	// the order's current state.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderConflict indicates a uniqueness or concurrency conflict.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrCartEmpty indicates checkout was attempted on an empty cart.
	ErrCartEmpty = errors.New("order: cart is empty")
	// ErrProductUnavailable indicates a cart line references a product that no
	// longer exists or is inactive.
	ErrProductUnavailable = errors.New("order: product unavailable")
	// ErrInsufficientStock indicates a cart line asked for more units than the
	// product has left.
	ErrInsufficientStock = errors.New("order: insufficient stock")
	// ErrOrderNumberExhausted indicates no unique order number could be
	// generated within the retry budget.
	ErrOrderNumberExhausted = errors.New("order: order number generation exhausted")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders          repositories.OrderRepository
	Trackings       repositories.TrackingRepository
	Products        repositories.ProductRepository
	Carts           repositories.CartRepository
	UnitOfWork      repositories.UnitOfWork
	Clock           func() time.Time
	NumberGenerator func(now time.Time) string
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	trackings  repositories.TrackingRepository
	products   repositories.ProductRepository
	carts      repositories.CartRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newNumber  func(time.Time) string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Trackings == nil {
		return nil, errors.New("order service: tracking repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	newNumber := deps.NumberGenerator
	if newNumber == nil {
		newNumber = defaultOrderNumber
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		trackings:  deps.Trackings,
		products:   deps.Products,
		carts:      deps.Carts,
		unitOfWork: deps.UnitOfWork,
		clock: func() time.Time {
			return clock().UTC()
		},
		newNumber: newNumber,
		logger:    logger,
	}, nil
}

// defaultOrderNumber builds "ORD-{yyyyMMddHHmmss}-{nnnn}" with a random
// four-digit suffix.
func defaultOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102150405"), 1000+rand.Intn(9000))
}

func (s *orderService) CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if cmd.UserID <= 0 {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if cmd.PaymentMethod != nil && !cmd.PaymentMethod.Valid() {
		return Order{}, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, *cmd.PaymentMethod)
	}

	var created Order
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		cart, err := s.carts.GetByUserWithItems(txCtx, cmd.UserID)
		if err != nil {
			if isNotFound(err) {
				return ErrCartEmpty
			}
			return s.mapRepositoryError(err)
		}
		if len(cart.Items) == 0 {
			return ErrCartEmpty
		}

		// Lock products in a stable order so two concurrent checkouts over the
		// same products cannot deadlock.
		lines := make([]domain.CartItem, len(cart.Items))
		copy(lines, cart.Items)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		now := s.clock()
		total := decimal.Zero
		items := make([]domain.OrderItem, 0, len(lines))

		for _, line := range lines {
			product, err := s.products.FindByIDForUpdate(txCtx, line.ProductID)
			if err != nil {
				if isNotFound(err) {
					return fmt.Errorf("%w: product %d", ErrProductUnavailable, line.ProductID)
				}
				return s.mapRepositoryError(err)
			}
			if !product.IsActive {
				return fmt.Errorf("%w: product %d is inactive", ErrProductUnavailable, product.ID)
			}
			if line.Quantity <= 0 {
				return fmt.Errorf("%w: quantity for product %d must be positive", ErrOrderInvalidInput, product.ID)
			}
			if product.StockQuantity < line.Quantity {
				return fmt.Errorf("%w: %w", ErrInsufficientStock, &repositories.InsufficientStockError{
					ProductID: product.ID,
					Requested: line.Quantity,
					Remaining: product.StockQuantity,
				})
			}
			if line.ColorID != nil {
				ok, err := s.products.HasColor(txCtx, product.ID, *line.ColorID)
				if err != nil {
					return s.mapRepositoryError(err)
				}
				if !ok {
					return fmt.Errorf("%w: color %d is not offered for product %d",
						ErrOrderInvalidInput, *line.ColorID, product.ID)
				}
			}

			unitPrice := product.EffectivePrice()
			subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(subtotal)
			items = append(items, domain.OrderItem{
				ProductID:  product.ID,
				ColorID:    line.ColorID,
				Quantity:   line.Quantity,
				UnitPrice:  unitPrice,
				Subtotal:   subtotal,
				IsReviewed: false,
			})
		}

		number, err := s.generateOrderNumber(txCtx, now)
		if err != nil {
			return err
		}

		order := domain.Order{
			UserID:          cmd.UserID,
			OrderNumber:     number,
			TotalAmount:     total,
			Status:          domain.OrderStatusPending,
			ShippingAddress: cmd.ShippingAddress,
			PaymentMethod:   cmd.PaymentMethod,
			PaymentStatus:   domain.PaymentStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
			Items:           items,
		}
		if err := s.orders.Create(txCtx, &order); err != nil {
			return s.mapRepositoryError(err)
		}

		description := "Order created"
		tracking := domain.OrderTracking{
			OrderID:     order.ID,
			Status:      domain.OrderStatusPending,
			Description: &description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.trackings.Append(txCtx, &tracking); err != nil {
			return s.mapRepositoryError(err)
		}
		order.Trackings = []domain.OrderTracking{tracking}

		for _, item := range items {
			if err := s.products.DecrementStock(txCtx, item.ProductID, item.Quantity); err != nil {
				var insufficient *repositories.InsufficientStockError
				if errors.As(err, &insufficient) {
					return fmt.Errorf("%w: %w", ErrInsufficientStock, insufficient)
				}
				return s.mapRepositoryError(err)
			}
		}

		if err := s.carts.ClearItems(txCtx, cart.ID); err != nil {
			return s.mapRepositoryError(err)
		}

		created = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.logger(ctx, orderEventCreated, map[string]any{
		"orderId":     created.ID,
		"orderNumber": created.OrderNumber,
		"userId":      created.UserID,
		"totalAmount": created.TotalAmount.String(),
		"itemCount":   created.ItemCount(),
	})

	return created, nil
}

func (s *orderService) GetMyOrders(ctx context.Context, userID int64) ([]OrderSummary, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, OrderSummary{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			TotalAmount: order.TotalAmount,
			Status:      order.Status,
			ItemCount:   order.ItemCount(),
			CreatedAt:   order.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *orderService) GetMyOrderByID(ctx context.Context, userID, orderID int64) (Order, error) {
	order, err := s.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, userID, orderID int64) (Order, error) {
	if userID <= 0 || orderID <= 0 {
		return Order{}, fmt.Errorf("%w: user id and order id are required", ErrOrderInvalidInput)
	}

	var cancelled Order
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if order.UserID != userID {
			return fmt.Errorf("%w: order %d", ErrOrderForbidden, orderID)
		}
		if order.Status != domain.OrderStatusPending {
			return fmt.Errorf("%w: only PENDING orders can be cancelled, order is %s",
				ErrOrderInvalidState, order.Status)
		}

		now := s.clock()
		if err := s.orders.UpdateStatus(txCtx, order.ID, domain.OrderStatusCancelled, now); err != nil {
			return s.mapRepositoryError(err)
		}

		description := "Order cancelled by customer"
		tracking := domain.OrderTracking{
			OrderID:     order.ID,
			Status:      domain.OrderStatusCancelled,
			Description: &description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.trackings.Append(txCtx, &tracking); err != nil {
			return s.mapRepositoryError(err)
		}

		for _, item := range order.Items {
			if err := s.products.IncrementStock(txCtx, item.ProductID, item.Quantity); err != nil {
				return s.mapRepositoryError(err)
			}
		}

		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = now
		cancelled = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.logger(ctx, orderEventCancelled, map[string]any{
		"orderId":     cancelled.ID,
		"orderNumber": cancelled.OrderNumber,
		"userId":      cancelled.UserID,
	})

	return cancelled, nil
}

func (s *orderService) GetTracking(ctx context.Context, userID, orderID int64) ([]OrderTracking, error) {
	if _, err := s.findOwnedOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	trackings, err := s.trackings.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return trackings, nil
}

func (s *orderService) findOwnedOrder(ctx context.Context, userID, orderID int64) (Order, error) {
	if userID <= 0 || orderID <= 0 {
		return Order{}, fmt.Errorf("%w: user id and order id are required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if order.UserID != userID {
		return Order{}, fmt.Errorf("%w: order %d", ErrOrderForbidden, orderID)
	}
	return order, nil
}

// generateOrderNumber probes for an unused number up to the retry budget. The
// unique index on order_number remains the final arbiter when two transactions
// probe the same candidate.
func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < orderNumberMaxAttempts; attempt++ {
		candidate := s.newNumber(now)
		exists, err := s.orders.ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", s.mapRepositoryError(err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrOrderNumberExhausted
}

func (s *orderService) mapRepositoryError(err error) error {
	return mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
}

// mapRepositoryError translates classified repository failures into the
// service error taxonomy. Unclassified errors pass through unchanged.
func mapRepositoryError(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("repository unavailable: %w", err)
		}
	}

	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
