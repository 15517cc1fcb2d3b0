package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

type Order struct {
	ID              string          `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	UserID          string          `db:"user_id" json:"user_id"`
	Status          OrderStatus     `db:"status" json:"status"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount       decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	ShippingAmount  decimal.Decimal `db:"shipping_amount" json:"shipping_amount"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddress json.RawMessage `db:"shipping_address" json:"shipping_address,omitempty"`
	ConfirmedAt     *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	Items   []OrderItem `db:"-" json:"items,omitempty"`
	Payment *Payment    `db:"-" json:"payment,omitempty"`
}

// Cancellable reports whether the order may still be cancelled by the
// customer. Shipped, delivered and already terminated orders may not.
func (o *Order) Cancellable() bool {
	switch o.Status {
	case OrderPending, OrderConfirmed, OrderProcessing:
		return true
	default:
		return false
	}
}

type OrderItem struct {
	ID          string          `db:"id" json:"id"`
	OrderID     string          `db:"order_id" json:"order_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	VariantID   *string         `db:"variant_id" json:"variant_id,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"price"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
	ProductName string          `db:"product_name" json:"product_name"`
	VariantName string          `db:"variant_name" json:"variant_name,omitempty"`
	SKU         string          `db:"sku" json:"sku,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
