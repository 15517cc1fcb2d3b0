package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/model"
)

// Gateway status vocabulary, shared by the confirm endpoint and the webhook.
const (
	GatewayPaid      = "paid"
	GatewayFailed    = "failed"
	GatewayCancelled = "cancelled"
)

// Notice is one report about a payment attempt, regardless of whether it
// arrived via the client confirm call or the gateway webhook.
type Notice struct {
	IntentID      string
	OrderID       string
	Status        string
	Amount        decimal.Decimal
	PayMethod     string
	FailureReason string

	// UserID is the authenticated caller on the confirm path. Gateway
	// webhooks leave it empty; their signature is the authentication.
	UserID string
}

type Service struct {
	repo    Repository
	gateway Gateway
	events  events.Publisher
	log     *zap.Logger
}

func NewService(repo Repository, gateway Gateway, publisher events.Publisher, log *zap.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, events: publisher, log: log}
}

// Reconcile applies a gateway notice to the order it belongs to. The whole
// outcome commits in one transaction: payment row, order status and stock
// all move together or not at all. Replays of a notice whose payment already
// succeeded are no-ops, so the confirm endpoint and the webhook can both
// report the same payment safely.
func (s *Service) Reconcile(ctx context.Context, n Notice) (*model.Payment, error) {
	var (
		result    *model.Payment
		confirmed *model.Order
		mismatch  bool
		ignored   bool
	)

	err := s.repo.Transact(ctx, func(st Store) error {
		confirmed = nil
		mismatch = false
		ignored = false

		order, err := st.OrderWithItems(ctx, n.OrderID)
		if err != nil {
			return err
		}
		if n.UserID != "" && order.UserID != n.UserID {
			return ErrForbidden
		}

		existing, err := st.PaymentByIntent(ctx, n.IntentID)
		if err == nil && existing.Status == model.PaymentSucceeded {
			result = existing
			return nil
		}
		if err != nil && !errors.Is(err, ErrPaymentNotFound) {
			return err
		}

		p := &model.Payment{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			PaymentIntentID: n.IntentID,
			Amount:          n.Amount,
			PaymentMethod:   n.PayMethod,
			FailureReason:   n.FailureReason,
		}
		if existing != nil {
			p.ID = existing.ID
		}

		switch n.Status {
		case GatewayPaid:
			// The failed row must survive the rollback of the confirmation, so
			// the mismatch error is raised after commit.
			if !n.Amount.Equal(order.TotalAmount) {
				p.Status = model.PaymentFailed
				p.FailureReason = fmt.Sprintf("amount mismatch: paid %s, order total %s",
					n.Amount, order.TotalAmount)
				mismatch = true
				result = p
				return st.SavePayment(ctx, p)
			}

			p.Status = model.PaymentSucceeded
			if err := st.SavePayment(ctx, p); err != nil {
				return err
			}
			if err := st.SetOrderStatus(ctx, order.ID, model.OrderConfirmed); err != nil {
				return err
			}
			for _, item := range order.Items {
				if item.VariantID == nil {
					continue
				}
				if err := st.DecrementStock(ctx, *item.VariantID, item.Quantity, n.IntentID); err != nil {
					return err
				}
			}
			confirmed = order

		case GatewayCancelled:
			p.Status = model.PaymentCancelled
			if err := st.SavePayment(ctx, p); err != nil {
				return err
			}
			if err := st.SetOrderStatus(ctx, order.ID, model.OrderCancelled); err != nil {
				return err
			}

		case GatewayFailed:
			p.Status = model.PaymentFailed
			if err := st.SavePayment(ctx, p); err != nil {
				return err
			}
			if err := st.SetOrderStatus(ctx, order.ID, model.OrderCancelled); err != nil {
				return err
			}

		default:
			// Statuses like "ready" report a payment still in flight, for
			// example a virtual account waiting for a deposit. Nothing is
			// settled yet, so nothing is recorded.
			ignored = true
			result = existing
			return nil
		}

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mismatch {
		return nil, ErrAmountMismatch
	}
	if ignored {
		s.log.Warn("gateway status not actionable, ignoring",
			zap.String("order_id", n.OrderID),
			zap.String("intent_id", n.IntentID),
			zap.String("status", n.Status))
		return result, nil
	}

	if confirmed != nil {
		s.publish(ctx, confirmed.ID, events.TypeOrderConfirmed, events.OrderConfirmed{
			OrderID:         confirmed.ID,
			UserID:          confirmed.UserID,
			PaymentIntentID: n.IntentID,
		})
		s.log.Info("payment reconciled",
			zap.String("order_id", confirmed.ID),
			zap.String("intent_id", n.IntentID),
			zap.String("status", string(result.Status)))
	} else {
		s.log.Info("payment reconciled",
			zap.String("order_id", n.OrderID),
			zap.String("intent_id", n.IntentID),
			zap.String("status", string(result.Status)))
	}

	return result, nil
}

// Refund reverses a succeeded payment through the gateway, then records the
// refund, moves the order to REFUNDED and, for full refunds only, restocks
// the order's items. Partial refunds leave inventory untouched because the
// goods were not returned.
func (s *Service) Refund(ctx context.Context, userID string, isAdmin bool, paymentID string, amount *decimal.Decimal, reason string) (*model.Payment, error) {
	p, err := s.repo.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.OrderWithItems(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	if p.Status != model.PaymentSucceeded {
		return nil, ErrNotRefundable
	}

	refund := p.Amount
	if amount != nil {
		refund = *amount
	}
	if refund.LessThanOrEqual(decimal.Zero) || refund.GreaterThan(p.Amount) {
		return nil, ErrRefundTooLarge
	}
	full := refund.Equal(p.Amount)

	// The gateway call stays outside the transaction. If it succeeds but the
	// commit below fails, the refund can be replayed: RefundPayment guards on
	// status SUCCEEDED and the gateway rejects double cancels.
	if err := s.gateway.CancelPayment(ctx, p.PaymentIntentID, refund, reason); err != nil {
		return nil, fmt.Errorf("gateway refund: %w", err)
	}

	err = s.repo.Transact(ctx, func(st Store) error {
		current, err := st.PaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if current.Status != model.PaymentSucceeded {
			return ErrNotRefundable
		}

		if err := st.RefundPayment(ctx, paymentID, refund, reason); err != nil {
			return err
		}
		if err := st.SetOrderStatus(ctx, order.ID, model.OrderRefunded); err != nil {
			return err
		}

		if full {
			for _, item := range order.Items {
				if item.VariantID == nil {
					continue
				}
				if err := st.RestoreStock(ctx, *item.VariantID, item.Quantity, paymentID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID, events.TypePaymentRefunded, events.PaymentRefunded{
		PaymentID:  paymentID,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Amount:     refund,
		FullRefund: full,
		Reason:     reason,
	})

	s.log.Info("payment refunded",
		zap.String("payment_id", paymentID),
		zap.String("order_id", order.ID),
		zap.Bool("full", full))

	return s.repo.PaymentByID(ctx, paymentID)
}

// PaymentsForOrder lists an order's payment attempts, enforcing ownership.
func (s *Service) PaymentsForOrder(ctx context.Context, userID string, isAdmin bool, orderID string) ([]model.Payment, error) {
	order, err := s.repo.OrderWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return s.repo.PaymentsByOrder(ctx, orderID)
}

func (s *Service) publish(ctx context.Context, key, eventType string, data any) {
	evt, err := events.New(eventType, data)
	if err != nil {
		s.log.Error("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, key, evt); err != nil {
		s.log.Error("publish event", zap.String("type", eventType), zap.Error(err))
	}
}
