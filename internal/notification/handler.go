// Package notification turns domain events into customer emails.
package notification

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/events"
)

// OrderSummary is the slice of an order the emails need.
type OrderSummary struct {
	OrderNumber string
	UserEmail   string
	Total       decimal.Decimal
	Items       []email.LineItem
}

// Reader loads order summaries for the notifier.
type Reader interface {
	OrderSummary(ctx context.Context, orderID string) (*OrderSummary, error)
}

// Sender is the slice of the email service the handler uses.
type Sender interface {
	SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []email.LineItem) error
	SendRefundReceipt(to, orderNumber string, amount decimal.Decimal, full bool, reason string) error
}

type Handler struct {
	sender Sender
	reader Reader
	log    *zap.Logger
}

func NewHandler(sender Sender, reader Reader, log *zap.Logger) *Handler {
	return &Handler{sender: sender, reader: reader, log: log}
}

// HandleEvent processes one event from the topic. Lookup misses are logged
// and skipped rather than returned, so one bad event cannot wedge the
// consumer group.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event events.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.Error("unmarshal event", zap.Error(err))
		return err
	}

	switch event.Type {
	case events.TypeOrderConfirmed:
		return h.handleOrderConfirmed(ctx, event)
	case events.TypePaymentRefunded:
		return h.handlePaymentRefunded(ctx, event)
	default:
		return nil
	}
}

func (h *Handler) handleOrderConfirmed(ctx context.Context, event events.Event) error {
	var e events.OrderConfirmed
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.Error("unmarshal order.confirmed", zap.Error(err))
		return err
	}

	summary, err := h.reader.OrderSummary(ctx, e.OrderID)
	if err != nil {
		h.log.Warn("load order summary", zap.String("order_id", e.OrderID), zap.Error(err))
		return nil
	}

	if err := h.sender.SendOrderConfirmation(summary.UserEmail, summary.OrderNumber, summary.Total, summary.Items); err != nil {
		h.log.Error("send confirmation email",
			zap.String("order_id", e.OrderID),
			zap.String("to", summary.UserEmail),
			zap.Error(err))
		return err
	}

	h.log.Info("confirmation email sent",
		zap.String("order_id", e.OrderID),
		zap.String("to", summary.UserEmail))
	return nil
}

func (h *Handler) handlePaymentRefunded(ctx context.Context, event events.Event) error {
	var e events.PaymentRefunded
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.Error("unmarshal payment.refunded", zap.Error(err))
		return err
	}

	summary, err := h.reader.OrderSummary(ctx, e.OrderID)
	if err != nil {
		h.log.Warn("load order summary", zap.String("order_id", e.OrderID), zap.Error(err))
		return nil
	}

	if err := h.sender.SendRefundReceipt(summary.UserEmail, summary.OrderNumber, e.Amount, e.FullRefund, e.Reason); err != nil {
		h.log.Error("send refund email",
			zap.String("order_id", e.OrderID),
			zap.String("to", summary.UserEmail),
			zap.Error(err))
		return err
	}

	h.log.Info("refund email sent",
		zap.String("order_id", e.OrderID),
		zap.String("to", summary.UserEmail))
	return nil
}
