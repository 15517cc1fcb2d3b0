// Package inventory keeps per-variant stock counters with an append-only
// movement ledger. Counters are never written blind: every change is a
// conditional update plus one ledger row, executed on the caller's
// transaction so stock and order state commit together.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/storefront/internal/model"
)

var ErrInsufficientStock = errors.New("insufficient stock")

const (
	RefPayment = "payment"
	RefRefund  = "refund"
	RefManual  = "manual"
)

// Decrement reduces a variant's stock by qty. The update is conditional on
// quantity staying non-negative; a short row aborts with
// ErrInsufficientStock so the surrounding transaction rolls back.
func Decrement(ctx context.Context, ext sqlx.ExtContext, variantID string, qty int, refType, refID string) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}

	var after int
	err := ext.QueryRowxContext(ctx,
		`UPDATE inventory
		 SET quantity = quantity - $1, updated_at = NOW()
		 WHERE variant_id = $2 AND quantity >= $1
		 RETURNING quantity`,
		qty, variantID).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("variant %s: %w", variantID, ErrInsufficientStock)
	}
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}

	return recordMovement(ctx, ext, variantID, -qty, after+qty, after, refType, refID)
}

// Restore adds qty back to a variant's stock, creating the counter row if it
// was never initialized.
func Restore(ctx context.Context, ext sqlx.ExtContext, variantID string, qty int, refType, refID string) error {
	if qty <= 0 {
		return fmt.Errorf("restore quantity must be positive, got %d", qty)
	}

	var after int
	err := ext.QueryRowxContext(ctx,
		`INSERT INTO inventory (variant_id, quantity, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (variant_id)
		 DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity, updated_at = NOW()
		 RETURNING quantity`,
		variantID, qty).Scan(&after)
	if err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}

	return recordMovement(ctx, ext, variantID, qty, after-qty, after, refType, refID)
}

func recordMovement(ctx context.Context, ext sqlx.ExtContext, variantID string, change, before, after int, refType, refID string) error {
	_, err := ext.ExecContext(ctx,
		`INSERT INTO inventory_movements (id, variant_id, change, quantity_before, quantity_after, reference_type, reference_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		uuid.New().String(), variantID, change, before, after, refType, refID)
	if err != nil {
		return fmt.Errorf("record movement: %w", err)
	}
	return nil
}

// Movements returns the ledger for a variant, newest first.
func Movements(ctx context.Context, db *sqlx.DB, variantID string) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	err := db.SelectContext(ctx, &movements,
		`SELECT * FROM inventory_movements WHERE variant_id = $1 ORDER BY created_at DESC`,
		variantID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}
