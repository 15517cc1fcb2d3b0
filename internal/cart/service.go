package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/model"
)

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrProductNotFound = errors.New("product not found")
	ErrForbidden       = errors.New("cart item belongs to another user")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Get returns the caller's cart. A user without a cart gets an empty one
// without a row being created; carts materialize on first add.
func (s *Service) Get(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.repo.CartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return cart, nil
}

// AddItem puts (product, quantity, selection) into the user's cart. An
// existing row with the same product and selection absorbs the quantity.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int, selected model.Attributes) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	exists, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProductNotFound
	}

	return s.repo.Transact(ctx, func(st Store) error {
		cartID, err := st.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		return st.UpsertItem(ctx, cartID, productID, quantity, selected)
	})
}

// UpdateItem sets an item's quantity. Zero or negative removes the row.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) error {
	item, err := s.repo.ItemForUser(ctx, itemID)
	if err != nil {
		return err
	}
	if item.ownerID != userID {
		return ErrForbidden
	}

	if quantity <= 0 {
		return s.repo.DeleteItem(ctx, itemID)
	}
	return s.repo.SetItemQuantity(ctx, itemID, quantity)
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	item, err := s.repo.ItemForUser(ctx, itemID)
	if err != nil {
		return err
	}
	if item.ownerID != userID {
		return ErrForbidden
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}
