package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderPlaced     = "order.placed"
	TypeOrderConfirmed  = "order.confirmed"
	TypeOrderCancelled  = "order.cancelled"
	TypePaymentRefunded = "payment.refunded"
)

// Event is the envelope written to the event topic, keyed by aggregate id.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func New(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Publisher abstracts the event transport so services can be tested
// without a broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type OrderPlaced struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
}

type OrderConfirmed struct {
	OrderID         string `json:"order_id"`
	UserID          string `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type OrderCancelled struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason,omitempty"`
}

type PaymentRefunded struct {
	PaymentID  string          `json:"payment_id"`
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	FullRefund bool            `json:"full_refund"`
	Reason     string          `json:"reason,omitempty"`
}
