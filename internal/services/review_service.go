package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

const (
	reviewEventCreated = "review.created"
	reviewEventUpdated = "review.updated"
	reviewEventDeleted = "review.deleted"
)

var (
	// ErrReviewInvalidInput signals the caller provided invalid data.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewNotFound indicates the review could not be located.
	ErrReviewNotFound = errors.New("review: not found")
	// ErrReviewForbidden indicates the caller may not touch the review.
	ErrReviewForbidden = errors.New("review: forbidden")
	// ErrReviewConflict indicates the user already reviewed the product.
	ErrReviewConflict = errors.New("review: conflict")
	// ErrReviewNotEligible indicates the purchase gate rejected the review.
	ErrReviewNotEligible = errors.New("review: not eligible")
)

// ReviewServiceDeps bundles collaborators required to construct the review service.
type ReviewServiceDeps struct {
	Reviews    repositories.ReviewRepository
	OrderItems repositories.OrderItemRepository
	Products   repositories.ProductRepository
	UnitOfWork repositories.UnitOfWork
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type reviewService struct {
	reviews    repositories.ReviewRepository
	orderItems repositories.OrderItemRepository
	products   repositories.ProductRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.OrderItems == nil {
		return nil, errors.New("review service: order item repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("review service: product repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("review service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reviewService{
		reviews:    deps.Reviews,
		orderItems: deps.OrderItems,
		products:   deps.Products,
		unitOfWork: deps.UnitOfWork,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	if cmd.UserID <= 0 {
		return Review{}, fmt.Errorf("%w: user id is required", ErrReviewInvalidInput)
	}
	if cmd.ProductID <= 0 {
		return Review{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}

	product, err := s.products.FindByID(ctx, cmd.ProductID)
	if err != nil {
		if isNotFound(err) {
			return Review{}, fmt.Errorf("%w: product %d not found", ErrReviewInvalidInput, cmd.ProductID)
		}
		return Review{}, s.mapRepositoryError(err)
	}
	if !product.IsActive {
		return Review{}, fmt.Errorf("%w: product %d is inactive", ErrReviewInvalidInput, product.ID)
	}

	if _, err := s.reviews.FindByUserAndProduct(ctx, cmd.UserID, cmd.ProductID); err == nil {
		return Review{}, fmt.Errorf("%w: product %d already reviewed", ErrReviewConflict, cmd.ProductID)
	} else if !isNotFound(err) {
		return Review{}, s.mapRepositoryError(err)
	}

	var boundItem *domain.OrderItem
	if cmd.OrderItemID != nil {
		item, err := s.orderItems.FindWithOrder(ctx, *cmd.OrderItemID)
		if err != nil {
			if isNotFound(err) {
				return Review{}, fmt.Errorf("%w: order item %d not found", ErrReviewInvalidInput, *cmd.OrderItemID)
			}
			return Review{}, s.mapRepositoryError(err)
		}
		if item.Order == nil || item.Order.UserID != cmd.UserID {
			return Review{}, fmt.Errorf("%w: order item %d", ErrReviewForbidden, item.ID)
		}
		if item.Order.Status != domain.OrderStatusDelivered {
			return Review{}, fmt.Errorf("%w: order %d is not delivered", ErrReviewNotEligible, item.OrderID)
		}
		if item.ProductID != cmd.ProductID {
			return Review{}, fmt.Errorf("%w: order item %d is for another product", ErrReviewInvalidInput, item.ID)
		}
		if item.IsReviewed {
			return Review{}, fmt.Errorf("%w: order item %d already reviewed", ErrReviewConflict, item.ID)
		}
		boundItem = &item
	} else {
		delivered, err := s.orderItems.HasDeliveredPurchase(ctx, cmd.UserID, cmd.ProductID)
		if err != nil {
			return Review{}, s.mapRepositoryError(err)
		}
		if !delivered {
			return Review{}, fmt.Errorf("%w: no delivered purchase of product %d", ErrReviewNotEligible, cmd.ProductID)
		}
	}

	now := s.clock()
	review := domain.Review{
		UserID:      cmd.UserID,
		ProductID:   cmd.ProductID,
		OrderItemID: cmd.OrderItemID,
		Rating:      cmd.Rating,
		Comment:     cmd.Comment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reviews.Create(txCtx, &review); err != nil {
			return s.mapRepositoryError(err)
		}
		if boundItem != nil {
			if err := s.orderItems.SetReviewed(txCtx, boundItem.ID, true); err != nil {
				return s.mapRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return Review{}, err
	}

	s.logger(ctx, reviewEventCreated, map[string]any{
		"reviewId":  review.ID,
		"userId":    review.UserID,
		"productId": review.ProductID,
	})

	return review, nil
}

func (s *reviewService) GetMyReviews(ctx context.Context, userID int64, page, pageSize int) (ReviewPage, error) {
	if userID <= 0 {
		return ReviewPage{}, fmt.Errorf("%w: user id is required", ErrReviewInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	reviews, total, err := s.reviews.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return ReviewPage{}, s.mapRepositoryError(err)
	}
	return ReviewPage{
		Reviews:  reviews,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *reviewService) Update(ctx context.Context, cmd UpdateReviewCommand) (Review, error) {
	if cmd.UserID <= 0 || cmd.ReviewID <= 0 {
		return Review{}, fmt.Errorf("%w: user id and review id are required", ErrReviewInvalidInput)
	}
	if cmd.Rating != nil && (*cmd.Rating < 1 || *cmd.Rating > 5) {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}

	review, err := s.reviews.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return Review{}, s.mapRepositoryError(err)
	}
	if review.UserID != cmd.UserID {
		return Review{}, fmt.Errorf("%w: review %d", ErrReviewForbidden, cmd.ReviewID)
	}

	if cmd.Rating != nil {
		review.Rating = *cmd.Rating
	}
	if cmd.Comment != nil {
		review.Comment = cmd.Comment
	}
	review.UpdatedAt = s.clock()

	if err := s.reviews.Update(ctx, &review); err != nil {
		return Review{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, reviewEventUpdated, map[string]any{
		"reviewId": review.ID,
		"userId":   review.UserID,
	})

	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, cmd DeleteReviewCommand) error {
	if cmd.ReviewID <= 0 {
		return fmt.Errorf("%w: review id is required", ErrReviewInvalidInput)
	}

	review, err := s.reviews.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if !cmd.IsAdmin && review.UserID != cmd.UserID {
		return fmt.Errorf("%w: review %d", ErrReviewForbidden, cmd.ReviewID)
	}

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reviews.Delete(txCtx, review.ID); err != nil {
			return s.mapRepositoryError(err)
		}
		if review.OrderItemID != nil {
			if err := s.orderItems.SetReviewed(txCtx, *review.OrderItemID, false); err != nil {
				// The bound item may be gone if the order was purged; the
				// review deletion itself still stands.
				if !isNotFound(err) {
					return s.mapRepositoryError(err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger(ctx, reviewEventDeleted, map[string]any{
		"reviewId": review.ID,
		"userId":   review.UserID,
		"byAdmin":  cmd.IsAdmin,
	})

	return nil
}

func (s *reviewService) mapRepositoryError(err error) error {
	return mapRepositoryError(err, ErrReviewNotFound, ErrReviewConflict)
}
