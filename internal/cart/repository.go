package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/storefront/internal/infrastructure/postgres"
	"github.com/example/storefront/internal/model"
)

// Store is the slice of cart persistence usable inside a transaction.
type Store interface {
	EnsureCart(ctx context.Context, userID string) (string, error)
	UpsertItem(ctx context.Context, cartID, productID string, quantity int, selected model.Attributes) error
}

type Repository interface {
	Store
	Transact(ctx context.Context, fn func(Store) error) error

	CartByUser(ctx context.Context, userID string) (*model.Cart, error)
	ItemForUser(ctx context.Context, itemID string) (*ownedItem, error)
	SetItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteItem(ctx context.Context, itemID string) error
	ProductExists(ctx context.Context, productID string) (bool, error)
}

// ownedItem pairs a cart item with the id of the user whose cart holds it.
type ownedItem struct {
	model.CartItem
	ownerID string
}

type PostgresRepository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

func (r *PostgresRepository) Transact(ctx context.Context, fn func(Store) error) error {
	return postgres.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&PostgresRepository{db: r.db, q: tx})
	})
}

// EnsureCart returns the user's cart id, creating the row if missing. The
// unique index on user_id makes concurrent creation collapse to one row.
func (r *PostgresRepository) EnsureCart(ctx context.Context, userID string) (string, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID)
	if err != nil {
		return "", fmt.Errorf("ensure cart: %w", err)
	}

	var cartID string
	err = r.q.QueryRowxContext(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		return "", fmt.Errorf("load cart id: %w", err)
	}
	return cartID, nil
}

func (r *PostgresRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int, selected model.Attributes) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO cart_items (id, cart_id, product_id, quantity, selected_variants, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (cart_id, product_id, selected_variants)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		uuid.New().String(), cartID, productID, quantity, selected)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CartByUser(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := sqlx.GetContext(ctx, r.q, &cart, `SELECT * FROM carts WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	err = sqlx.SelectContext(ctx, r.q, &cart.Items,
		`SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}

	for i := range cart.Items {
		var p model.Product
		err := sqlx.GetContext(ctx, r.q, &p, `SELECT * FROM products WHERE id = $1`, cart.Items[i].ProductID)
		if err == nil {
			prod := p
			cart.Items[i].Product = &prod
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get cart item product: %w", err)
		}
	}

	return &cart, nil
}

func (r *PostgresRepository) ItemForUser(ctx context.Context, itemID string) (*ownedItem, error) {
	row := r.q.QueryRowxContext(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.selected_variants, c.user_id
		 FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		 WHERE ci.id = $1`,
		itemID)

	var item ownedItem
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.SelectedVariants, &item.ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return requireRow(res, ErrItemNotFound)
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, itemID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return requireRow(res, ErrItemNotFound)
}

func (r *PostgresRepository) ProductExists(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.q, &exists,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND status <> 'ARCHIVED')`, productID)
	return exists, err
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
