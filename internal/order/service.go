package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/model"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrForbidden          = errors.New("order belongs to another user")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrInvalidQuantity    = errors.New("item quantity must be positive")
	ErrProductUnavailable = errors.New("product is not available")
	ErrNotCancellable     = errors.New("order can no longer be cancelled")
)

type CreateRequest struct {
	Items           []ItemRequest
	ShippingAddress json.RawMessage
}

type ItemRequest struct {
	ProductID string
	VariantID string
	Quantity  int
}

// Stats summarizes a customer's purchase history.
type Stats struct {
	TotalOrders  int             `json:"total_orders"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	RecentOrders []model.Order   `json:"recent_orders"`
}

type Page struct {
	Page  int
	Limit int
}

func (p *Page) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

type Service struct {
	repo   Repository
	events events.Publisher
	log    *zap.Logger
}

func NewService(repo Repository, publisher events.Publisher, log *zap.Logger) *Service {
	return &Service{repo: repo, events: publisher, log: log}
}

// Create builds an order from the requested items. Unit prices are read from
// the live product (or variant) inside the transaction and snapshotted onto
// the order items together with name and sku, so later catalog edits never
// rewrite history. The user's cart is cleared in the same transaction.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	order := &model.Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(),
		UserID:          userID,
		Status:          model.OrderPending,
		ShippingAddress: req.ShippingAddress,
	}

	err := s.repo.Transact(ctx, func(st Store) error {
		subtotal := decimal.Zero

		for _, item := range req.Items {
			product, err := st.ProductForSale(ctx, item.ProductID)
			if err != nil {
				return err
			}

			unitPrice := product.Price
			variantName := ""
			sku := ""
			var variantID *string

			if item.VariantID != "" {
				variant := findVariant(product, item.VariantID)
				if variant == nil {
					return fmt.Errorf("variant %s: %w", item.VariantID, ErrProductUnavailable)
				}
				unitPrice = variant.Price
				variantName = describeVariant(variant)
				sku = variant.SKU
				id := variant.ID
				variantID = &id
			}

			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			subtotal = subtotal.Add(lineTotal)

			order.Items = append(order.Items, model.OrderItem{
				ID:          uuid.New().String(),
				OrderID:     order.ID,
				ProductID:   product.ID,
				VariantID:   variantID,
				Quantity:    item.Quantity,
				UnitPrice:   unitPrice,
				TotalPrice:  lineTotal,
				ProductName: product.Name,
				VariantName: variantName,
				SKU:         sku,
			})
		}

		order.Subtotal = subtotal
		order.TotalAmount = subtotal.
			Add(order.TaxAmount).
			Add(order.ShippingAmount).
			Sub(order.DiscountAmount)

		if err := st.InsertOrder(ctx, order); err != nil {
			return err
		}
		return st.ClearCart(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID, events.TypeOrderPlaced, events.OrderPlaced{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      userID,
		Total:       order.TotalAmount,
	})

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID))
	return order, nil
}

// Get fetches one order, enforcing ownership. Admins may read any order.
func (s *Service) Get(ctx context.Context, userID string, isAdmin bool, orderID string) (*model.Order, error) {
	order, err := s.repo.OrderWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, userID string, page Page) ([]model.Order, int, error) {
	page.normalize()
	return s.repo.ListByUser(ctx, userID, page.Page, page.Limit)
}

func (s *Service) ListAll(ctx context.Context, page Page) ([]model.Order, int, error) {
	page.normalize()
	return s.repo.ListAll(ctx, page.Page, page.Limit)
}

func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return s.repo.StatsByUser(ctx, userID)
}

// Cancel moves the order to CANCELLED and cascades to its payments in the
// same transaction. Orders past PROCESSING reject the transition.
func (s *Service) Cancel(ctx context.Context, userID string, isAdmin bool, orderID, reason string) (*model.Order, error) {
	var cancelled *model.Order

	err := s.repo.Transact(ctx, func(st Store) error {
		order, err := st.OrderWithItems(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID && !isAdmin {
			return ErrForbidden
		}
		if !order.Cancellable() {
			return ErrNotCancellable
		}

		if err := st.SetOrderStatus(ctx, order.ID, model.OrderCancelled); err != nil {
			return err
		}
		if err := st.CancelPayments(ctx, order.ID); err != nil {
			return err
		}

		now := time.Now()
		order.Status = model.OrderCancelled
		order.CancelledAt = &now
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, cancelled.ID, events.TypeOrderCancelled, events.OrderCancelled{
		OrderID: cancelled.ID,
		UserID:  cancelled.UserID,
		Reason:  reason,
	})

	s.log.Info("order cancelled", zap.String("order_id", cancelled.ID))
	return cancelled, nil
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

func newOrderNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}

func findVariant(p *model.Product, variantID string) *model.ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// describeVariant renders the attribute map as "red / M" style text for the
// order item snapshot.
func describeVariant(v *model.ProductVariant) string {
	if len(v.Attributes) == 0 {
		return v.SKU
	}
	values := make([]string, 0, len(v.Attributes))
	for _, key := range sortedKeys(v.Attributes) {
		values = append(values, v.Attributes[key])
	}
	return strings.Join(values, " / ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
