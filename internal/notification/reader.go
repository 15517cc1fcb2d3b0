package notification

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/model"
)

// PostgresReader loads order summaries straight from the primary database.
type PostgresReader struct {
	db *sqlx.DB
}

func NewPostgresReader(db *sqlx.DB) *PostgresReader {
	return &PostgresReader{db: db}
}

func (r *PostgresReader) OrderSummary(ctx context.Context, orderID string) (*OrderSummary, error) {
	var order model.Order
	err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	var userEmail string
	err = r.db.GetContext(ctx, &userEmail, `SELECT email FROM users WHERE id = $1`, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", order.UserID, err)
	}

	var items []model.OrderItem
	err = r.db.SelectContext(ctx, &items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	summary := &OrderSummary{
		OrderNumber: order.OrderNumber,
		UserEmail:   userEmail,
		Total:       order.TotalAmount,
	}
	for _, item := range items {
		name := item.ProductName
		if item.VariantName != "" {
			name = name + " (" + item.VariantName + ")"
		}
		summary.Items = append(summary.Items, email.LineItem{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.TotalPrice,
		})
	}

	return summary, nil
}
