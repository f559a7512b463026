package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

// memoryRepoError satisfies repositories.RepositoryError for the fakes.
type memoryRepoError struct {
	msg      string
	notFound bool
	conflict bool
}

func (e *memoryRepoError) Error() string       { return e.msg }
func (e *memoryRepoError) IsNotFound() bool    { return e.notFound }
func (e *memoryRepoError) IsConflict() bool    { return e.conflict }
func (e *memoryRepoError) IsUnavailable() bool { return false }

func memNotFound(format string, args ...any) error {
	return &memoryRepoError{msg: fmt.Sprintf(format, args...), notFound: true}
}

func memConflict(format string, args ...any) error {
	return &memoryRepoError{msg: fmt.Sprintf(format, args...), conflict: true}
}

// memoryStore holds all aggregate state behind one mutex so the memory unit
// of work can serialise transactions and roll back on failure.
type memoryStore struct {
	mu sync.Mutex

	orders    map[int64]domain.Order
	trackings map[int64]domain.OrderTracking
	products  map[int64]domain.Product
	colors    map[[2]int64]bool
	carts     map[int64]domain.Cart
	reviews   map[int64]domain.Review

	nextOrderID    int64
	nextItemID     int64
	nextTrackingID int64
	nextReviewID   int64

	// failures maps operation names to injected errors; a matching operation
	// fails once and clears itself.
	failures map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders:    make(map[int64]domain.Order),
		trackings: make(map[int64]domain.OrderTracking),
		products:  make(map[int64]domain.Product),
		colors:    make(map[[2]int64]bool),
		carts:     make(map[int64]domain.Cart),
		reviews:   make(map[int64]domain.Review),
		failures:  make(map[string]error),
	}
}

func (s *memoryStore) failOnce(op string, err error) {
	s.failures[op] = err
}

func (s *memoryStore) checkFailure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *memoryStore) snapshot() *memoryStore {
	clone := newMemoryStore()
	for id, order := range s.orders {
		copied := order
		copied.Items = append([]domain.OrderItem(nil), order.Items...)
		copied.Trackings = append([]domain.OrderTracking(nil), order.Trackings...)
		clone.orders[id] = copied
	}
	for id, tracking := range s.trackings {
		clone.trackings[id] = tracking
	}
	for id, product := range s.products {
		clone.products[id] = product
	}
	for key, ok := range s.colors {
		clone.colors[key] = ok
	}
	for userID, cart := range s.carts {
		copied := cart
		copied.Items = append([]domain.CartItem(nil), cart.Items...)
		clone.carts[userID] = copied
	}
	for id, review := range s.reviews {
		clone.reviews[id] = review
	}
	clone.nextOrderID = s.nextOrderID
	clone.nextItemID = s.nextItemID
	clone.nextTrackingID = s.nextTrackingID
	clone.nextReviewID = s.nextReviewID
	return clone
}

func (s *memoryStore) restore(from *memoryStore) {
	s.orders = from.orders
	s.trackings = from.trackings
	s.products = from.products
	s.colors = from.colors
	s.carts = from.carts
	s.reviews = from.reviews
	s.nextOrderID = from.nextOrderID
	s.nextItemID = from.nextItemID
	s.nextTrackingID = from.nextTrackingID
	s.nextReviewID = from.nextReviewID
}

func (s *memoryStore) addProduct(product domain.Product) {
	s.products[product.ID] = product
}

func (s *memoryStore) addProductColor(productID, colorID int64) {
	s.colors[[2]int64{productID, colorID}] = true
}

func (s *memoryStore) addCart(userID int64, items ...domain.CartItem) {
	s.carts[userID] = domain.Cart{ID: userID, UserID: userID, Items: items}
}

func (s *memoryStore) addOrder(order domain.Order) {
	if order.ID == 0 {
		s.nextOrderID++
		order.ID = s.nextOrderID
	} else if order.ID > s.nextOrderID {
		s.nextOrderID = order.ID
	}
	for i := range order.Items {
		if order.Items[i].ID == 0 {
			s.nextItemID++
			order.Items[i].ID = s.nextItemID
		} else if order.Items[i].ID > s.nextItemID {
			s.nextItemID = order.Items[i].ID
		}
		order.Items[i].OrderID = order.ID
	}
	s.orders[order.ID] = order
}

// memoryUnitOfWork serialises transactions over the shared store and restores
// a pre-transaction snapshot when fn fails.
type memoryUnitOfWork struct {
	store *memoryStore
}

func (u *memoryUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	before := u.store.snapshot()
	if err := fn(ctx); err != nil {
		u.store.restore(before)
		return err
	}
	return nil
}

type memoryOrderRepo struct {
	store *memoryStore
}

func (r *memoryOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	if err := r.store.checkFailure("order.create"); err != nil {
		return err
	}
	for _, existing := range r.store.orders {
		if existing.OrderNumber == order.OrderNumber {
			return memConflict("order number %s exists", order.OrderNumber)
		}
	}
	r.store.nextOrderID++
	order.ID = r.store.nextOrderID
	for i := range order.Items {
		r.store.nextItemID++
		order.Items[i].ID = r.store.nextItemID
		order.Items[i].OrderID = order.ID
	}
	copied := *order
	copied.Items = append([]domain.OrderItem(nil), order.Items...)
	copied.Trackings = nil
	r.store.orders[order.ID] = copied
	return nil
}

func (r *memoryOrderRepo) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	order, ok := r.store.orders[orderID]
	if !ok {
		return domain.Order{}, memNotFound("order %d not found", orderID)
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	order.Trackings = r.trackingsFor(orderID)
	return order, nil
}

func (r *memoryOrderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (domain.Order, error) {
	order, ok := r.store.orders[orderID]
	if !ok {
		return domain.Order{}, memNotFound("order %d not found", orderID)
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order, nil
}

func (r *memoryOrderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	for _, order := range r.store.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (r *memoryOrderRepo) List(ctx context.Context, query repositories.AdminOrderQuery) ([]domain.Order, int64, error) {
	var filtered []domain.Order
	for _, order := range r.store.orders {
		if query.Status != nil && order.Status != *query.Status {
			continue
		}
		if query.UserID != nil && order.UserID != *query.UserID {
			continue
		}
		filtered = append(filtered, order)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID > filtered[j].ID })
	total := int64(len(filtered))

	start := (query.Page - 1) * query.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + query.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

func (r *memoryOrderRepo) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	for _, order := range r.store.orders {
		if order.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, updatedAt time.Time) error {
	if err := r.store.checkFailure("order.updateStatus"); err != nil {
		return err
	}
	order, ok := r.store.orders[orderID]
	if !ok {
		return memNotFound("order %d not found", orderID)
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	r.store.orders[orderID] = order
	return nil
}

func (r *memoryOrderRepo) UpdatePayment(ctx context.Context, orderID int64, method *domain.PaymentMethod, status domain.PaymentStatus, updatedAt time.Time) error {
	order, ok := r.store.orders[orderID]
	if !ok {
		return memNotFound("order %d not found", orderID)
	}
	if method != nil {
		order.PaymentMethod = method
	}
	order.PaymentStatus = status
	order.UpdatedAt = updatedAt
	r.store.orders[orderID] = order
	return nil
}

func (r *memoryOrderRepo) Stats(ctx context.Context, from, to *time.Time) (domain.OrderStats, error) {
	stats := domain.OrderStats{
		From:          from,
		To:            to,
		TotalRevenue:  decimal.Zero,
		CountByStatus: make(map[domain.OrderStatus]int64, len(domain.OrderStatuses)),
	}
	for _, status := range domain.OrderStatuses {
		stats.CountByStatus[status] = 0
	}
	for _, order := range r.store.orders {
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}
		stats.TotalOrders++
		stats.CountByStatus[order.Status]++
		stats.TotalRevenue = stats.TotalRevenue.Add(order.TotalAmount)
	}
	return stats, nil
}

func (r *memoryOrderRepo) trackingsFor(orderID int64) []domain.OrderTracking {
	var trackings []domain.OrderTracking
	for _, tracking := range r.store.trackings {
		if tracking.OrderID == orderID {
			trackings = append(trackings, tracking)
		}
	}
	sort.Slice(trackings, func(i, j int) bool { return trackings[i].ID < trackings[j].ID })
	return trackings
}

type memoryTrackingRepo struct {
	store *memoryStore
}

func (r *memoryTrackingRepo) Append(ctx context.Context, tracking *domain.OrderTracking) error {
	if err := r.store.checkFailure("tracking.append"); err != nil {
		return err
	}
	r.store.nextTrackingID++
	tracking.ID = r.store.nextTrackingID
	r.store.trackings[tracking.ID] = *tracking
	return nil
}

func (r *memoryTrackingRepo) FindByID(ctx context.Context, trackingID int64) (domain.OrderTracking, error) {
	tracking, ok := r.store.trackings[trackingID]
	if !ok {
		return domain.OrderTracking{}, memNotFound("tracking %d not found", trackingID)
	}
	return tracking, nil
}

func (r *memoryTrackingRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderTracking, error) {
	repo := memoryOrderRepo{store: r.store}
	return repo.trackingsFor(orderID), nil
}

func (r *memoryTrackingRepo) Update(ctx context.Context, trackingID int64, patch repositories.TrackingPatch, updatedAt time.Time) (domain.OrderTracking, error) {
	tracking, ok := r.store.trackings[trackingID]
	if !ok {
		return domain.OrderTracking{}, memNotFound("tracking %d not found", trackingID)
	}
	if patch.Status != nil {
		tracking.Status = *patch.Status
	}
	if patch.Location != nil {
		tracking.Location = patch.Location
	}
	if patch.Description != nil {
		tracking.Description = patch.Description
	}
	if patch.Note != nil {
		tracking.Note = patch.Note
	}
	if patch.TrackingNumber != nil {
		tracking.TrackingNumber = patch.TrackingNumber
	}
	if patch.ShippingPattern != nil {
		tracking.ShippingPattern = patch.ShippingPattern
	}
	if patch.EstimatedDelivery != nil {
		tracking.EstimatedDelivery = patch.EstimatedDelivery
	}
	tracking.UpdatedAt = updatedAt
	r.store.trackings[trackingID] = tracking
	return tracking, nil
}

func (r *memoryTrackingRepo) Delete(ctx context.Context, trackingID int64) error {
	if _, ok := r.store.trackings[trackingID]; !ok {
		return memNotFound("tracking %d not found", trackingID)
	}
	delete(r.store.trackings, trackingID)
	return nil
}

type memoryOrderItemRepo struct {
	store *memoryStore
}

func (r *memoryOrderItemRepo) FindWithOrder(ctx context.Context, orderItemID int64) (domain.OrderItem, error) {
	for _, order := range r.store.orders {
		for _, item := range order.Items {
			if item.ID == orderItemID {
				owner := order
				owner.Items = nil
				item.Order = &owner
				return item, nil
			}
		}
	}
	return domain.OrderItem{}, memNotFound("order item %d not found", orderItemID)
}

func (r *memoryOrderItemRepo) SetReviewed(ctx context.Context, orderItemID int64, reviewed bool) error {
	if err := r.store.checkFailure("orderItem.setReviewed"); err != nil {
		return err
	}
	for orderID, order := range r.store.orders {
		for i, item := range order.Items {
			if item.ID == orderItemID {
				order.Items[i].IsReviewed = reviewed
				r.store.orders[orderID] = order
				return nil
			}
		}
	}
	return memNotFound("order item %d not found", orderItemID)
}

func (r *memoryOrderItemRepo) HasDeliveredPurchase(ctx context.Context, userID, productID int64) (bool, error) {
	for _, order := range r.store.orders {
		if order.UserID != userID || order.Status != domain.OrderStatusDelivered {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

type memoryProductRepo struct {
	store *memoryStore
}

func (r *memoryProductRepo) FindByID(ctx context.Context, productID int64) (domain.Product, error) {
	product, ok := r.store.products[productID]
	if !ok {
		return domain.Product{}, memNotFound("product %d not found", productID)
	}
	return product, nil
}

func (r *memoryProductRepo) FindByIDForUpdate(ctx context.Context, productID int64) (domain.Product, error) {
	return r.FindByID(ctx, productID)
}

func (r *memoryProductRepo) HasColor(ctx context.Context, productID, colorID int64) (bool, error) {
	return r.store.colors[[2]int64{productID, colorID}], nil
}

func (r *memoryProductRepo) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	if err := r.store.checkFailure("product.decrement"); err != nil {
		return err
	}
	product, ok := r.store.products[productID]
	if !ok {
		return memNotFound("product %d not found", productID)
	}
	if product.StockQuantity < quantity {
		return &repositories.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Remaining: product.StockQuantity,
		}
	}
	product.StockQuantity -= quantity
	r.store.products[productID] = product
	return nil
}

func (r *memoryProductRepo) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	if err := r.store.checkFailure("product.increment"); err != nil {
		return err
	}
	product, ok := r.store.products[productID]
	if !ok {
		return memNotFound("product %d not found", productID)
	}
	product.StockQuantity += quantity
	r.store.products[productID] = product
	return nil
}

type memoryCartRepo struct {
	store *memoryStore
}

func (r *memoryCartRepo) GetByUserWithItems(ctx context.Context, userID int64) (domain.Cart, error) {
	cart, ok := r.store.carts[userID]
	if !ok {
		return domain.Cart{}, memNotFound("cart for user %d not found", userID)
	}
	cart.Items = append([]domain.CartItem(nil), cart.Items...)
	return cart, nil
}

func (r *memoryCartRepo) ClearItems(ctx context.Context, cartID int64) error {
	if err := r.store.checkFailure("cart.clear"); err != nil {
		return err
	}
	for userID, cart := range r.store.carts {
		if cart.ID == cartID {
			cart.Items = nil
			r.store.carts[userID] = cart
			return nil
		}
	}
	return nil
}

type memoryReviewRepo struct {
	store *memoryStore
}

func (r *memoryReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	if err := r.store.checkFailure("review.create"); err != nil {
		return err
	}
	for _, existing := range r.store.reviews {
		if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
			return memConflict("review for user %d product %d exists", review.UserID, review.ProductID)
		}
	}
	r.store.nextReviewID++
	review.ID = r.store.nextReviewID
	r.store.reviews[review.ID] = *review
	return nil
}

func (r *memoryReviewRepo) FindByID(ctx context.Context, reviewID int64) (domain.Review, error) {
	review, ok := r.store.reviews[reviewID]
	if !ok {
		return domain.Review{}, memNotFound("review %d not found", reviewID)
	}
	return review, nil
}

func (r *memoryReviewRepo) FindByUserAndProduct(ctx context.Context, userID, productID int64) (domain.Review, error) {
	for _, review := range r.store.reviews {
		if review.UserID == userID && review.ProductID == productID {
			return review, nil
		}
	}
	return domain.Review{}, memNotFound("review for user %d product %d not found", userID, productID)
}

func (r *memoryReviewRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Review, int64, error) {
	var reviews []domain.Review
	for _, review := range r.store.reviews {
		if review.UserID == userID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID > reviews[j].ID })
	total := int64(len(reviews))

	start := (page - 1) * pageSize
	if start > len(reviews) {
		start = len(reviews)
	}
	end := start + pageSize
	if end > len(reviews) {
		end = len(reviews)
	}
	return reviews[start:end], total, nil
}

func (r *memoryReviewRepo) Update(ctx context.Context, review *domain.Review) error {
	if _, ok := r.store.reviews[review.ID]; !ok {
		return memNotFound("review %d not found", review.ID)
	}
	r.store.reviews[review.ID] = *review
	return nil
}

func (r *memoryReviewRepo) Delete(ctx context.Context, reviewID int64) error {
	if _, ok := r.store.reviews[reviewID]; !ok {
		return memNotFound("review %d not found", reviewID)
	}
	delete(r.store.reviews, reviewID)
	return nil
}

// fixtures

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	amount, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return amount
}

func newTestOrderService(store *memoryStore, clock func() time.Time, numbers func(time.Time) string) (OrderService, error) {
	return NewOrderService(OrderServiceDeps{
		Orders:          &memoryOrderRepo{store: store},
		Trackings:       &memoryTrackingRepo{store: store},
		Products:        &memoryProductRepo{store: store},
		Carts:           &memoryCartRepo{store: store},
		UnitOfWork:      &memoryUnitOfWork{store: store},
		Clock:           clock,
		NumberGenerator: numbers,
	})
}

func newTestAdminOrderService(store *memoryStore, clock func() time.Time) (AdminOrderService, error) {
	return NewAdminOrderService(AdminOrderServiceDeps{
		Orders:     &memoryOrderRepo{store: store},
		Trackings:  &memoryTrackingRepo{store: store},
		UnitOfWork: &memoryUnitOfWork{store: store},
		Clock:      clock,
	})
}

func newTestReviewService(store *memoryStore, clock func() time.Time) (ReviewService, error) {
	return NewReviewService(ReviewServiceDeps{
		Reviews:    &memoryReviewRepo{store: store},
		OrderItems: &memoryOrderItemRepo{store: store},
		Products:   &memoryProductRepo{store: store},
		UnitOfWork: &memoryUnitOfWork{store: store},
		Clock:      clock,
	})
}
