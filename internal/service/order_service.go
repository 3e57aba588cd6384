package service

import (
	"context"
	"errors"

	"shopdemo/order-service/internal/model"
)

//go:generate mockgen -destination=./mocks/mock_repository.go -package=mocks shopdemo/order-service/internal/service Repository

// Repository abstracts the data access the purchase workflow needs, so the
// workflow can be tested without a database.
type Repository interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserForUpdate(ctx context.Context, userID int) (model.User, error)
	GetProductForUpdate(ctx context.Context, productID int) (model.Product, error)
	UpdateUserBalance(ctx context.Context, userID int, balance float64) error
	UpdateProductQuantity(ctx context.Context, productID int, quantity int) error
	InsertOrder(ctx context.Context, order model.Order) error
	GetOrder(ctx context.Context, orderID int) (model.Order, error)
	MaxOrderID(ctx context.Context) (int, error)
}

// Precondition failures. The HTTP layer collapses all three into a single
// 412 response; they stay distinct here so other front-ends can tell them
// apart.
var (
	ErrInvalidQuantity     = errors.New("quantity must be greater than 0")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStock   = errors.New("insufficient stock")
)

// IsPrecondition reports whether err is a business-rule rejection rather
// than an infrastructure failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientStock)
}

type OrderService struct {
	repo    Repository
	seq     *OrderSequence
	metrics *purchaseMetrics
}

func NewOrderService(repo Repository, seq *OrderSequence) *OrderService {
	return &OrderService{
		repo:    repo,
		seq:     seq,
		metrics: newPurchaseMetrics(),
	}
}

// Purchase atomically debits the user's balance, decrements the product's
// inventory and inserts an order. On a precondition failure or any database
// error nothing is durably applied; RunAtomic rolls the transaction back on
// every non-commit exit.
func (s *OrderService) Purchase(ctx context.Context, userID, productID, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	var total float64
	err := s.repo.RunAtomic(ctx, func(ctx context.Context) error {
		// 1. Lock User Row and Get Balance
		user, err := s.repo.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		// 2. Lock Product Row and Get Price/Stock
		product, err := s.repo.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		// 3. Check Stock
		if product.Quantity < qty {
			return ErrInsufficientStock
		}

		// 4. Check Balance
		total = product.Price * float64(qty)
		if user.Balance < total {
			return ErrInsufficientBalance
		}

		// 5. Debit Balance
		if err := s.repo.UpdateUserBalance(ctx, userID, user.Balance-total); err != nil {
			return err
		}

		// 6. Decrement Stock
		if err := s.repo.UpdateProductQuantity(ctx, productID, product.Quantity-qty); err != nil {
			return err
		}

		// 7. Create Order
		order := model.Order{
			ID:         s.seq.Next(),
			UserID:     userID,
			ProductID:  productID,
			OrderTotal: total,
		}
		return s.repo.InsertOrder(ctx, order)
	})
	if err != nil {
		return err
	}

	s.metrics.recordPurchase(ctx, total)
	return nil
}

// GetOrder returns the order with the given id.
func (s *OrderService) GetOrder(ctx context.Context, orderID int) (model.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}
