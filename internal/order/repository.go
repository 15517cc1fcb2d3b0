package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/storefront/internal/infrastructure/postgres"
	"github.com/example/storefront/internal/model"
)

// Store is the slice of order persistence usable inside a transaction.
type Store interface {
	ProductForSale(ctx context.Context, productID string) (*model.Product, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	OrderWithItems(ctx context.Context, orderID string) (*model.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	CancelPayments(ctx context.Context, orderID string) error
	ClearCart(ctx context.Context, userID string) error
}

type Repository interface {
	Store
	Transact(ctx context.Context, fn func(Store) error) error

	ListByUser(ctx context.Context, userID string, page, limit int) ([]model.Order, int, error)
	ListAll(ctx context.Context, page, limit int) ([]model.Order, int, error)
	StatsByUser(ctx context.Context, userID string) (*Stats, error)
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

// ProductForSale loads an active product with its variants. Checkout price
// stability comes from the serializable transaction the caller runs this in,
// not from row locks.
func (r *PostgresRepository) ProductForSale(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	err := sqlx.GetContext(ctx, r.q, &p,
		`SELECT * FROM products WHERE id = $1 AND status = 'ACTIVE'`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", productID, ErrProductUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	err = sqlx.SelectContext(ctx, r.q, &p.Variants,
		`SELECT * FROM product_variants WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("get variants: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, status, subtotal, tax_amount, shipping_amount,
		                     discount_amount, total_amount, shipping_address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.Subtotal, o.TaxAmount, o.ShippingAmount,
		o.DiscountAmount, o.TotalAmount, nullableJSON(o.ShippingAddress))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, unit_price,
			                          total_price, product_name, variant_name, sku, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
			item.ID, item.OrderID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice,
			item.TotalPrice, item.ProductName, item.VariantName, item.SKU)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) OrderWithItems(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := sqlx.GetContext(ctx, r.q, &o, `SELECT * FROM orders WHERE id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	err = sqlx.SelectContext(ctx, r.q, &o.Items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}

	var p model.Payment
	err = sqlx.GetContext(ctx, r.q, &p,
		`SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, orderID)
	if err == nil {
		o.Payment = &p
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order payment: %w", err)
	}

	return &o, nil
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
		return ErrNotFound
	}
	return nil
}

// CancelPayments cascades an order cancellation to its non-terminal payments.
func (r *PostgresRepository) CancelPayments(ctx context.Context, orderID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE payments SET status = 'CANCELLED', updated_at = NOW()
		 WHERE order_id = $1 AND status IN ('PENDING', 'SUCCEEDED')`,
		orderID)
	if err != nil {
		return fmt.Errorf("cancel payments: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearCart(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`,
		userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]model.Order, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT count(*) FROM orders WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []model.Order
	err := r.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context, page, limit int) ([]model.Order, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM orders`); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []model.Order
	err := r.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *PostgresRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In(`SELECT * FROM order_items WHERE order_id IN (?) ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	var items []model.OrderItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	for _, item := range items {
		o := index[item.OrderID]
		o.Items = append(o.Items, item)
	}

	query, args, err = sqlx.In(`SELECT DISTINCT ON (order_id) * FROM payments WHERE order_id IN (?) ORDER BY order_id, created_at DESC`, ids)
	if err != nil {
		return err
	}
	var payments []model.Payment
	if err := r.db.SelectContext(ctx, &payments, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	for _, p := range payments {
		pay := p
		index[p.OrderID].Payment = &pay
	}

	return nil
}

// StatsByUser aggregates a customer's purchase history. Cancelled orders
// count toward the order total but not toward the amount spent.
func (r *PostgresRepository) StatsByUser(ctx context.Context, userID string) (*Stats, error) {
	var s Stats
	err := r.db.QueryRowxContext(ctx,
		`SELECT count(*),
		        COALESCE(SUM(total_amount) FILTER (WHERE status <> 'CANCELLED'), 0)
		 FROM orders WHERE user_id = $1`, userID).Scan(&s.TotalOrders, &s.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	err = r.db.SelectContext(ctx, &s.RecentOrders,
		`SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 5`, userID)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return &s, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
