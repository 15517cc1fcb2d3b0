package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/model"
)

type stockChange struct {
	variantID string
	qty       int
	refID     string
}

type mockRepo struct {
	orders      map[string]*model.Order
	payments    map[string]*model.Payment // keyed by intent id
	orderStatus map[string]model.OrderStatus
	decrements  []stockChange
	restores    []stockChange

	decrementErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		orders:      make(map[string]*model.Order),
		payments:    make(map[string]*model.Payment),
		orderStatus: make(map[string]model.OrderStatus),
	}
}

func (m *mockRepo) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *mockRepo) OrderWithItems(ctx context.Context, orderID string) (*model.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (m *mockRepo) PaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error) {
	p, ok := m.payments[intentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (m *mockRepo) PaymentByID(ctx context.Context, paymentID string) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.ID == paymentID {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *mockRepo) SavePayment(ctx context.Context, p *model.Payment) error {
	saved := *p
	m.payments[p.PaymentIntentID] = &saved
	return nil
}

func (m *mockRepo) SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if _, ok := m.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	m.orderStatus[orderID] = status
	return nil
}

func (m *mockRepo) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error {
	for _, p := range m.payments {
		if p.ID == paymentID {
			if p.Status != model.PaymentSucceeded {
				return ErrNotRefundable
			}
			p.Status = model.PaymentRefunded
			p.RefundAmount = &amount
			p.RefundReason = reason
			return nil
		}
	}
	return ErrNotRefundable
}

func (m *mockRepo) DecrementStock(ctx context.Context, variantID string, qty int, refID string) error {
	if m.decrementErr != nil {
		return m.decrementErr
	}
	m.decrements = append(m.decrements, stockChange{variantID, qty, refID})
	return nil
}

func (m *mockRepo) RestoreStock(ctx context.Context, variantID string, qty int, refID string) error {
	m.restores = append(m.restores, stockChange{variantID, qty, refID})
	return nil
}

func (m *mockRepo) PaymentsByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockGateway struct {
	cancels []stockChange
	err     error
}

func (g *mockGateway) CancelPayment(ctx context.Context, intentID string, amount decimal.Decimal, reason string) error {
	if g.err != nil {
		return g.err
	}
	g.cancels = append(g.cancels, stockChange{variantID: intentID})
	return nil
}

type mockPublisher struct {
	published []events.Event
}

func (p *mockPublisher) Publish(ctx context.Context, key string, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

func strptr(s string) *string { return &s }

func pendingOrder(total int64) *model.Order {
	return &model.Order{
		ID:          "order-1",
		OrderNumber: "ORD-20260901-ABCD1234",
		UserID:      "user-1",
		Status:      model.OrderPending,
		TotalAmount: decimal.NewFromInt(total),
		Items: []model.OrderItem{
			{ID: "item-1", OrderID: "order-1", ProductID: "prod-1", VariantID: strptr("var-1"), Quantity: 2},
			{ID: "item-2", OrderID: "order-1", ProductID: "prod-2", Quantity: 1},
		},
	}
}

func newTestService(repo *mockRepo, gw *mockGateway, pub *mockPublisher) *Service {
	return NewService(repo, gw, pub, zap.NewNop())
}

func TestReconcile_Paid_ConfirmsOrderAndDecrementsStock(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	p, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(100),
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Equal(t, model.OrderConfirmed, repo.orderStatus["order-1"])

	// Only variant-backed items touch the stock counters.
	require.Len(t, repo.decrements, 1)
	assert.Equal(t, "var-1", repo.decrements[0].variantID)
	assert.Equal(t, 2, repo.decrements[0].qty)
	assert.Equal(t, "imp_1", repo.decrements[0].refID)

	require.Len(t, pub.published, 1)
	assert.Equal(t, events.TypeOrderConfirmed, pub.published[0].Type)
}

func TestReconcile_Replay_IsNoOp(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	notice := Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(100),
	}

	_, err := svc.Reconcile(context.Background(), notice)
	require.NoError(t, err)

	// Same webhook delivered again.
	p, err := svc.Reconcile(context.Background(), notice)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Len(t, repo.decrements, 1, "stock must not be decremented twice")
	assert.Len(t, pub.published, 1, "event must not be published twice")
}

func TestReconcile_AmountMismatch_RecordsFailure(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	_, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(42),
	})

	assert.ErrorIs(t, err, ErrAmountMismatch)

	saved := repo.payments["imp_1"]
	require.NotNil(t, saved, "mismatching payment attempt must be recorded")
	assert.Equal(t, model.PaymentFailed, saved.Status)
	assert.Contains(t, saved.FailureReason, "amount mismatch")

	assert.Empty(t, repo.decrements)
	assert.Empty(t, repo.orderStatus, "order must keep its status")
	assert.Empty(t, pub.published)
}

func TestReconcile_Failed_CancelsOrder(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	p, err := svc.Reconcile(context.Background(), Notice{
		IntentID:      "imp_1",
		OrderID:       "order-1",
		Status:        GatewayFailed,
		Amount:        decimal.NewFromInt(100),
		FailureReason: "card declined",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, p.Status)
	assert.Equal(t, model.OrderCancelled, repo.orderStatus["order-1"])
	assert.Empty(t, repo.decrements)
	assert.Empty(t, pub.published)
}

func TestReconcile_Cancelled_CancelsOrder(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	p, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayCancelled,
		Amount:   decimal.NewFromInt(100),
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentCancelled, p.Status)
	assert.Equal(t, model.OrderCancelled, repo.orderStatus["order-1"])
}

func TestReconcile_InFlightStatus_LeavesOrderUntouched(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	// Virtual-account issuance: the gateway says the payment is waiting for
	// a deposit. The order must keep waiting too.
	p, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   "ready",
		Amount:   decimal.NewFromInt(100),
	})

	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Empty(t, repo.payments, "no payment row for an unsettled notice")
	assert.Empty(t, repo.orderStatus, "order must keep its status")
	assert.Empty(t, repo.decrements)
	assert.Empty(t, pub.published)
}

func TestReconcile_Confirm_OtherUsersOrder(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	_, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(100),
		UserID:   "intruder",
	})

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, repo.payments)
	assert.Empty(t, repo.orderStatus)
	assert.Empty(t, repo.decrements)
	assert.Empty(t, pub.published)
}

func TestReconcile_Confirm_OwnerSucceeds(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	p, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(100),
		UserID:   "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Equal(t, model.OrderConfirmed, repo.orderStatus["order-1"])
}

func TestReconcile_UnknownOrder(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	_, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "missing",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(100),
	})

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReconcile_InsufficientStock_Fails(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.decrementErr = errors.New("insufficient stock")
	pub := &mockPublisher{}
	svc := newTestService(repo, &mockGateway{}, pub)

	_, err := svc.Reconcile(context.Background(), Notice{
		IntentID: "imp_1",
		OrderID:  "order-1",
		Status:   GatewayPaid,
		Amount:   decimal.NewFromInt(100),
	})

	assert.Error(t, err)
	assert.Empty(t, pub.published)
}

func succeededPayment(amount int64) *model.Payment {
	return &model.Payment{
		ID:              "pay-1",
		OrderID:         "order-1",
		PaymentIntentID: "imp_1",
		Amount:          decimal.NewFromInt(amount),
		Status:          model.PaymentSucceeded,
	}
}

func TestRefund_Full_RestoresStock(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.payments["imp_1"] = succeededPayment(100)
	gw := &mockGateway{}
	pub := &mockPublisher{}
	svc := newTestService(repo, gw, pub)

	p, err := svc.Refund(context.Background(), "user-1", false, "pay-1", nil, "changed my mind")

	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, p.Status)
	require.NotNil(t, p.RefundAmount)
	assert.True(t, p.RefundAmount.Equal(decimal.NewFromInt(100)))

	assert.Len(t, gw.cancels, 1)
	assert.Equal(t, model.OrderRefunded, repo.orderStatus["order-1"])

	require.Len(t, repo.restores, 1)
	assert.Equal(t, "var-1", repo.restores[0].variantID)
	assert.Equal(t, 2, repo.restores[0].qty)

	require.Len(t, pub.published, 1)
	assert.Equal(t, events.TypePaymentRefunded, pub.published[0].Type)
}

func TestRefund_Partial_LeavesStockAlone(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.payments["imp_1"] = succeededPayment(100)
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	amount := decimal.NewFromInt(40)
	p, err := svc.Refund(context.Background(), "user-1", false, "pay-1", &amount, "damaged item")

	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, p.Status)
	assert.Empty(t, repo.restores, "partial refunds must not restock")
}

func TestRefund_NotSucceeded(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	pending := succeededPayment(100)
	pending.Status = model.PaymentPending
	repo.payments["imp_1"] = pending
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	_, err := svc.Refund(context.Background(), "user-1", false, "pay-1", nil, "")

	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefund_TooLarge(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.payments["imp_1"] = succeededPayment(100)
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	amount := decimal.NewFromInt(150)
	_, err := svc.Refund(context.Background(), "user-1", false, "pay-1", &amount, "")

	assert.ErrorIs(t, err, ErrRefundTooLarge)
}

func TestRefund_OtherUsersPayment(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.payments["imp_1"] = succeededPayment(100)
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	_, err := svc.Refund(context.Background(), "intruder", false, "pay-1", nil, "")

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRefund_AdminMayRefundAnyPayment(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.payments["imp_1"] = succeededPayment(100)
	svc := newTestService(repo, &mockGateway{}, &mockPublisher{})

	_, err := svc.Refund(context.Background(), "admin-user", true, "pay-1", nil, "support request")

	require.NoError(t, err)
}

func TestRefund_GatewayFailure_NoStateChange(t *testing.T) {
	repo := newMockRepo()
	repo.orders["order-1"] = pendingOrder(100)
	repo.payments["imp_1"] = succeededPayment(100)
	gw := &mockGateway{err: errors.New("gateway unavailable")}
	svc := newTestService(repo, gw, &mockPublisher{})

	_, err := svc.Refund(context.Background(), "user-1", false, "pay-1", nil, "")

	assert.Error(t, err)
	assert.Equal(t, model.PaymentSucceeded, repo.payments["imp_1"].Status)
	assert.Empty(t, repo.orderStatus)
	assert.Empty(t, repo.restores)
}
