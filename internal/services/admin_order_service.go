package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

const (
	orderEventStatusChanged   = "order.status.changed"
	orderEventPaymentUpdated  = "order.payment.updated"
	orderEventTrackingAdded   = "order.tracking.added"
	orderEventTrackingUpdated = "order.tracking.updated"
	orderEventTrackingDeleted = "order.tracking.deleted"
)

// ErrTrackingNotFound indicates the tracking row could not be located on the
// given order.
var ErrTrackingNotFound = errors.New("order: tracking not found")

// orderStateTransitions is the admin fulfillment machine. CANCELLED never
// appears as a target: cancellation is exclusively the customer flow.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:  {},
	domain.OrderStatusCancelled:  {},
}

func canTransition(from, to domain.OrderStatus) bool {
	return slices.Contains(orderStateTransitions[from], to)
}

// AdminOrderServiceDeps bundles collaborators required to construct the admin order service.
type AdminOrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Trackings  repositories.TrackingRepository
	UnitOfWork repositories.UnitOfWork
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type adminOrderService struct {
	orders     repositories.OrderRepository
	trackings  repositories.TrackingRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewAdminOrderService wires dependencies into a concrete AdminOrderService implementation.
func NewAdminOrderService(deps AdminOrderServiceDeps) (AdminOrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("admin order service: order repository is required")
	}
	if deps.Trackings == nil {
		return nil, errors.New("admin order service: tracking repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("admin order service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &adminOrderService{
		orders:     deps.Orders,
		trackings:  deps.Trackings,
		unitOfWork: deps.UnitOfWork,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *adminOrderService) List(ctx context.Context, query repositories.AdminOrderQuery) (OrderPage, error) {
	if query.Status != nil && !query.Status.Valid() {
		return OrderPage{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *query.Status)
	}
	if query.PaymentStatus != nil && !query.PaymentStatus.Valid() {
		return OrderPage{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, *query.PaymentStatus)
	}
	if query.PaymentMethod != nil && !query.PaymentMethod.Valid() {
		return OrderPage{}, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, *query.PaymentMethod)
	}
	switch query.SortBy {
	case "", "createdAt", "totalAmount", "status":
	default:
		return OrderPage{}, fmt.Errorf("%w: unknown sort field %q", ErrOrderInvalidInput, query.SortBy)
	}
	switch query.SortDir {
	case "", "asc", "desc":
	default:
		return OrderPage{}, fmt.Errorf("%w: unknown sort direction %q", ErrOrderInvalidInput, query.SortDir)
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 20
	}

	orders, total, err := s.orders.List(ctx, query)
	if err != nil {
		return OrderPage{}, s.mapRepositoryError(err)
	}
	return OrderPage{
		Orders:   orders,
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

func (s *adminOrderService) GetByID(ctx context.Context, orderID int64) (Order, error) {
	if orderID <= 0 {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *adminOrderService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (Order, error) {
	if cmd.OrderID <= 0 {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Status.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}
	if cmd.Status == domain.OrderStatusCancelled {
		return Order{}, fmt.Errorf("%w: cancellation is reserved for the order owner", ErrOrderInvalidState)
	}

	var updated Order
	var changed bool
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-read under the row lock so a racing customer cancel serialises
		// ahead of or behind this transition, never interleaved with it.
		order, err := s.orders.FindByIDForUpdate(txCtx, cmd.OrderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		if order.Status == cmd.Status {
			updated = order
			return nil
		}
		if !canTransition(order.Status, cmd.Status) {
			return fmt.Errorf("%w: cannot move order from %s to %s",
				ErrOrderInvalidState, order.Status, cmd.Status)
		}

		now := s.clock()
		if err := s.orders.UpdateStatus(txCtx, order.ID, cmd.Status, now); err != nil {
			return s.mapRepositoryError(err)
		}

		description := cmd.Description
		if description == nil {
			text := fmt.Sprintf("Status changed from %s to %s", order.Status, cmd.Status)
			description = &text
		}
		tracking := domain.OrderTracking{
			OrderID:     order.ID,
			Status:      cmd.Status,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.trackings.Append(txCtx, &tracking); err != nil {
			return s.mapRepositoryError(err)
		}

		order.Status = cmd.Status
		order.UpdatedAt = now
		updated = order
		changed = true
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if changed {
		s.logger(ctx, orderEventStatusChanged, map[string]any{
			"orderId": updated.ID,
			"status":  string(updated.Status),
		})
	}

	return updated, nil
}

func (s *adminOrderService) UpdatePayment(ctx context.Context, cmd UpdatePaymentCommand) (Order, error) {
	if cmd.OrderID <= 0 {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Status.Valid() {
		return Order{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, cmd.Status)
	}
	if cmd.Method != nil && !cmd.Method.Valid() {
		return Order{}, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, *cmd.Method)
	}

	now := s.clock()
	if err := s.orders.UpdatePayment(ctx, cmd.OrderID, cmd.Method, cmd.Status, now); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, orderEventPaymentUpdated, map[string]any{
		"orderId":       order.ID,
		"paymentStatus": string(order.PaymentStatus),
	})

	return order, nil
}

func (s *adminOrderService) AddTracking(ctx context.Context, cmd AddTrackingCommand) (OrderTracking, error) {
	if cmd.OrderID <= 0 {
		return OrderTracking{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Status.Valid() {
		return OrderTracking{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	if _, err := s.orders.FindByID(ctx, cmd.OrderID); err != nil {
		return OrderTracking{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	tracking := domain.OrderTracking{
		OrderID:           cmd.OrderID,
		Status:            cmd.Status,
		Location:          cmd.Location,
		Description:       cmd.Description,
		Note:              cmd.Note,
		TrackingNumber:    cmd.TrackingNumber,
		ShippingPattern:   cmd.ShippingPattern,
		EstimatedDelivery: cmd.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.trackings.Append(ctx, &tracking); err != nil {
		return OrderTracking{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, orderEventTrackingAdded, map[string]any{
		"orderId":    tracking.OrderID,
		"trackingId": tracking.ID,
	})

	return tracking, nil
}

func (s *adminOrderService) UpdateTracking(ctx context.Context, cmd UpdateTrackingCommand) (OrderTracking, error) {
	if cmd.OrderID <= 0 || cmd.TrackingID <= 0 {
		return OrderTracking{}, fmt.Errorf("%w: order id and tracking id are required", ErrOrderInvalidInput)
	}
	if cmd.Patch.Status != nil && !cmd.Patch.Status.Valid() {
		return OrderTracking{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *cmd.Patch.Status)
	}

	if _, err := s.findTrackingOnOrder(ctx, cmd.OrderID, cmd.TrackingID); err != nil {
		return OrderTracking{}, err
	}

	tracking, err := s.trackings.Update(ctx, cmd.TrackingID, cmd.Patch, s.clock())
	if err != nil {
		return OrderTracking{}, s.mapTrackingError(err)
	}

	s.logger(ctx, orderEventTrackingUpdated, map[string]any{
		"orderId":    tracking.OrderID,
		"trackingId": tracking.ID,
	})

	return tracking, nil
}

func (s *adminOrderService) DeleteTracking(ctx context.Context, orderID, trackingID int64) error {
	if orderID <= 0 || trackingID <= 0 {
		return fmt.Errorf("%w: order id and tracking id are required", ErrOrderInvalidInput)
	}

	if _, err := s.findTrackingOnOrder(ctx, orderID, trackingID); err != nil {
		return err
	}

	if err := s.trackings.Delete(ctx, trackingID); err != nil {
		return s.mapTrackingError(err)
	}

	s.logger(ctx, orderEventTrackingDeleted, map[string]any{
		"orderId":    orderID,
		"trackingId": trackingID,
	})

	return nil
}

func (s *adminOrderService) Stats(ctx context.Context, from, to *time.Time) (OrderStats, error) {
	if from != nil && to != nil && to.Before(*from) {
		return OrderStats{}, fmt.Errorf("%w: date range end precedes start", ErrOrderInvalidInput)
	}
	stats, err := s.orders.Stats(ctx, from, to)
	if err != nil {
		return OrderStats{}, s.mapRepositoryError(err)
	}
	return stats, nil
}

// findTrackingOnOrder loads the tracking row and verifies it belongs to the
// given order. A tracking attached to another order is invalid input, not a
// missing resource.
func (s *adminOrderService) findTrackingOnOrder(ctx context.Context, orderID, trackingID int64) (OrderTracking, error) {
	tracking, err := s.trackings.FindByID(ctx, trackingID)
	if err != nil {
		return OrderTracking{}, s.mapTrackingError(err)
	}
	if tracking.OrderID != orderID {
		return OrderTracking{}, fmt.Errorf("%w: tracking %d does not belong to order %d",
			ErrOrderInvalidInput, trackingID, orderID)
	}
	return tracking, nil
}

func (s *adminOrderService) mapRepositoryError(err error) error {
	return mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
}

func (s *adminOrderService) mapTrackingError(err error) error {
	return mapRepositoryError(err, ErrTrackingNotFound, ErrOrderConflict)
}
