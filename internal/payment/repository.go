package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/infrastructure/postgres"
	"github.com/example/storefront/internal/inventory"
	"github.com/example/storefront/internal/model"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrAmountMismatch  = errors.New("paid amount does not match order total")
	ErrNotRefundable   = errors.New("payment is not refundable")
	ErrRefundTooLarge  = errors.New("refund exceeds captured amount")
	ErrForbidden       = errors.New("payment belongs to another user")
)

// Store is the slice of payment persistence usable inside a transaction.
type Store interface {
	OrderWithItems(ctx context.Context, orderID string) (*model.Order, error)
	PaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error)
	PaymentByID(ctx context.Context, paymentID string) (*model.Payment, error)
	SavePayment(ctx context.Context, p *model.Payment) error
	SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error
	DecrementStock(ctx context.Context, variantID string, qty int, refID string) error
	RestoreStock(ctx context.Context, variantID string, qty int, refID string) error
}

type Repository interface {
	Store
	Transact(ctx context.Context, fn func(Store) error) error

	PaymentsByOrder(ctx context.Context, orderID string) ([]model.Payment, error)
}

type PostgresRepository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

func (r *PostgresRepository) Transact(ctx context.Context, fn func(Store) error) error {
	return postgres.WithRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&PostgresRepository{db: r.db, q: tx})
	})
}

func (r *PostgresRepository) OrderWithItems(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := sqlx.GetContext(ctx, r.q, &o, `SELECT * FROM orders WHERE id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	err = sqlx.SelectContext(ctx, r.q, &o.Items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) PaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error) {
	var p model.Payment
	err := sqlx.GetContext(ctx, r.q, &p,
		`SELECT * FROM payments WHERE payment_intent_id = $1`, intentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by intent: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) PaymentByID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var p model.Payment
	err := sqlx.GetContext(ctx, r.q, &p, `SELECT * FROM payments WHERE id = $1`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// SavePayment upserts on the gateway intent id, so a confirm call and a
// webhook for the same payment land on one row.
func (r *PostgresRepository) SavePayment(ctx context.Context, p *model.Payment) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, payment_intent_id, amount, status, payment_method,
		                       failure_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (payment_intent_id)
		 DO UPDATE SET status = EXCLUDED.status,
		               payment_method = EXCLUDED.payment_method,
		               failure_reason = EXCLUDED.failure_reason,
		               updated_at = NOW()`,
		p.ID, p.OrderID, p.PaymentIntentID, p.Amount, p.Status, p.PaymentMethod, p.FailureReason)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2,
		     confirmed_at = CASE WHEN $2 = 'CONFIRMED' THEN NOW() ELSE confirmed_at END,
		     cancelled_at = CASE WHEN $2 = 'CANCELLED' THEN NOW() ELSE cancelled_at END,
		     updated_at = NOW()
		 WHERE id = $1`,
		orderID, status)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'REFUNDED', refund_amount = $2, refund_reason = $3,
		     refunded_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'SUCCEEDED'`,
		paymentID, amount, reason)
	if err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotRefundable
	}
	return nil
}

func (r *PostgresRepository) DecrementStock(ctx context.Context, variantID string, qty int, refID string) error {
	return inventory.Decrement(ctx, r.q, variantID, qty, inventory.RefPayment, refID)
}

func (r *PostgresRepository) RestoreStock(ctx context.Context, variantID string, qty int, refID string) error {
	return inventory.Restore(ctx, r.q, variantID, qty, inventory.RefRefund, refID)
}

func (r *PostgresRepository) PaymentsByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
