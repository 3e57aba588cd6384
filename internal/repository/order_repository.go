package repository

import (
	"context"
	"errors"
	"fmt"

	"shopdemo/order-service/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

type txKey struct{}

// PgxExecutor is an interface that matches both *pgxpool.Pool and pgx.Tx
type PgxExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *OrderRepository) getExecutor(ctx context.Context) PgxExecutor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.db
}

// RunAtomic executes fn within a transaction. The transaction is carried in
// the context; every repository method picks it up through getExecutor.
// Rollback is deferred so that every exit path, including panics and
// cancelled contexts, releases the transaction. It is a no-op after commit.
func (r *OrderRepository) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetUserForUpdate locks the user row and returns it
func (r *OrderRepository) GetUserForUpdate(ctx context.Context, userID int) (model.User, error) {
	var u model.User
	err := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT id, name, balance FROM users WHERE id = $1 FOR UPDATE", userID,
	).Scan(&u.ID, &u.Name, &u.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetProductForUpdate locks the product row and returns it
func (r *OrderRepository) GetProductForUpdate(ctx context.Context, productID int) (model.Product, error) {
	var p model.Product
	err := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT id, name, price, quantity FROM products WHERE id = $1 FOR UPDATE", productID,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, ErrProductNotFound
		}
		return model.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// UpdateUserBalance sets the balance of a user to an absolute value
func (r *OrderRepository) UpdateUserBalance(ctx context.Context, userID int, balance float64) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		"UPDATE users SET balance = $1 WHERE id = $2", balance, userID)
	if err != nil {
		return fmt.Errorf("failed to update user balance: %w", err)
	}
	return nil
}

// UpdateProductQuantity sets the quantity of a product to an absolute value
func (r *OrderRepository) UpdateProductQuantity(ctx context.Context, productID int, quantity int) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		"UPDATE products SET quantity = $1 WHERE id = $2", quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to update product quantity: %w", err)
	}
	return nil
}

// InsertOrder inserts a new order with a caller-assigned id
func (r *OrderRepository) InsertOrder(ctx context.Context, order model.Order) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		"INSERT INTO orders (id, user_id, product_id, order_total) VALUES ($1, $2, $3, $4)",
		order.ID, order.UserID, order.ProductID, order.OrderTotal)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetOrder returns the order with the given id
func (r *OrderRepository) GetOrder(ctx context.Context, orderID int) (model.Order, error) {
	var o model.Order
	err := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT id, user_id, product_id, order_total, created_at FROM orders WHERE id = $1", orderID,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.OrderTotal, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// MaxOrderID returns the highest order id currently stored, 0 when the
// collection is empty. Used to seed the order id sequence at startup.
func (r *OrderRepository) MaxOrderID(ctx context.Context) (int, error) {
	var maxID int
	err := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT COALESCE(MAX(id), 0) FROM orders").Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max order id: %w", err)
	}
	return maxID, nil
}
