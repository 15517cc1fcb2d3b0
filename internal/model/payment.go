package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type Payment struct {
	ID              string           `db:"id" json:"id"`
	OrderID         string           `db:"order_id" json:"order_id"`
	PaymentIntentID string           `db:"payment_intent_id" json:"payment_intent_id"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	Status          PaymentStatus    `db:"status" json:"status"`
	PaymentMethod   string           `db:"payment_method" json:"payment_method,omitempty"`
	FailureReason   string           `db:"failure_reason" json:"failure_reason,omitempty"`
	RefundAmount    *decimal.Decimal `db:"refund_amount" json:"refund_amount,omitempty"`
	RefundReason    string           `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundedAt      *time.Time       `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}
