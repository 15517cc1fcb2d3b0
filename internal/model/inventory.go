package model

import "time"

type Inventory struct {
	VariantID         string    `db:"variant_id" json:"variant_id"`
	Quantity          int       `db:"quantity" json:"quantity"`
	ReservedQuantity  int       `db:"reserved_quantity" json:"reserved_quantity"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// InventoryMovement is one entry in the append-only stock ledger. Every
// quantity change writes a movement carrying the before/after counters and
// the reference that caused it.
type InventoryMovement struct {
	ID             string    `db:"id" json:"id"`
	VariantID      string    `db:"variant_id" json:"variant_id"`
	Change         int       `db:"change" json:"change"`
	QuantityBefore int       `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int       `db:"quantity_after" json:"quantity_after"`
	ReferenceType  string    `db:"reference_type" json:"reference_type"`
	ReferenceID    string    `db:"reference_id" json:"reference_id"`
	Note           string    `db:"note" json:"note,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
