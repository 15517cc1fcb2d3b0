package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/model"
)

type upsert struct {
	cartID    string
	productID string
	quantity  int
	selected  model.Attributes
}

type mockRepo struct {
	carts    map[string]*model.Cart // by user id
	items    map[string]*ownedItem  // by item id
	products map[string]bool

	upserts      []upsert
	quantitySets map[string]int
	deletedItems []string
	ensuredCarts []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		carts:        make(map[string]*model.Cart),
		items:        make(map[string]*ownedItem),
		products:     make(map[string]bool),
		quantitySets: make(map[string]int),
	}
}

func (m *mockRepo) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *mockRepo) EnsureCart(ctx context.Context, userID string) (string, error) {
	m.ensuredCarts = append(m.ensuredCarts, userID)
	return "cart-" + userID, nil
}

func (m *mockRepo) UpsertItem(ctx context.Context, cartID, productID string, quantity int, selected model.Attributes) error {
	m.upserts = append(m.upserts, upsert{cartID, productID, quantity, selected})
	return nil
}

func (m *mockRepo) CartByUser(ctx context.Context, userID string) (*model.Cart, error) {
	return m.carts[userID], nil
}

func (m *mockRepo) ItemForUser(ctx context.Context, itemID string) (*ownedItem, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (m *mockRepo) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	m.quantitySets[itemID] = quantity
	return nil
}

func (m *mockRepo) DeleteItem(ctx context.Context, itemID string) error {
	m.deletedItems = append(m.deletedItems, itemID)
	return nil
}

func (m *mockRepo) ProductExists(ctx context.Context, productID string) (bool, error) {
	return m.products[productID], nil
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, zap.NewNop())
}

func TestGet_NoCartYieldsEmptyCart(t *testing.T) {
	svc := newTestService(newMockRepo())

	cart, err := svc.Get(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Empty(t, cart.ID)
	assert.Equal(t, "user-1", cart.UserID)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func TestGet_ExistingCart(t *testing.T) {
	repo := newMockRepo()
	repo.carts["user-1"] = &model.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items:  []model.CartItem{{ID: "item-1", ProductID: "prod-1", Quantity: 2}},
	}
	svc := newTestService(repo)

	cart, err := svc.Get(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "cart-1", cart.ID)
	assert.Len(t, cart.Items, 1)
}

func TestAddItem_Success(t *testing.T) {
	repo := newMockRepo()
	repo.products["prod-1"] = true
	svc := newTestService(repo)

	selection := model.Attributes{"color": "red"}
	err := svc.AddItem(context.Background(), "user-1", "prod-1", 3, selection)

	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, repo.ensuredCarts)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "cart-user-1", repo.upserts[0].cartID)
	assert.Equal(t, "prod-1", repo.upserts[0].productID)
	assert.Equal(t, 3, repo.upserts[0].quantity)
	assert.Equal(t, selection, repo.upserts[0].selected)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	repo := newMockRepo()
	repo.products["prod-1"] = true
	svc := newTestService(repo)

	assert.ErrorIs(t, svc.AddItem(context.Background(), "user-1", "prod-1", 0, nil), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.AddItem(context.Background(), "user-1", "prod-1", -2, nil), ErrInvalidQuantity)
	assert.Empty(t, repo.upserts)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc := newTestService(newMockRepo())

	err := svc.AddItem(context.Background(), "user-1", "missing", 1, nil)

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateItem_SetsQuantity(t *testing.T) {
	repo := newMockRepo()
	repo.items["item-1"] = &ownedItem{CartItem: model.CartItem{ID: "item-1"}, ownerID: "user-1"}
	svc := newTestService(repo)

	err := svc.UpdateItem(context.Background(), "user-1", "item-1", 5)

	require.NoError(t, err)
	assert.Equal(t, 5, repo.quantitySets["item-1"])
	assert.Empty(t, repo.deletedItems)
}

func TestUpdateItem_ZeroQuantityDeletes(t *testing.T) {
	repo := newMockRepo()
	repo.items["item-1"] = &ownedItem{CartItem: model.CartItem{ID: "item-1"}, ownerID: "user-1"}
	svc := newTestService(repo)

	err := svc.UpdateItem(context.Background(), "user-1", "item-1", 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, repo.deletedItems)
}

func TestUpdateItem_OtherUsersItem(t *testing.T) {
	repo := newMockRepo()
	repo.items["item-1"] = &ownedItem{CartItem: model.CartItem{ID: "item-1"}, ownerID: "user-1"}
	svc := newTestService(repo)

	err := svc.UpdateItem(context.Background(), "intruder", "item-1", 5)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, repo.quantitySets)
}

func TestRemoveItem_Success(t *testing.T) {
	repo := newMockRepo()
	repo.items["item-1"] = &ownedItem{CartItem: model.CartItem{ID: "item-1"}, ownerID: "user-1"}
	svc := newTestService(repo)

	err := svc.RemoveItem(context.Background(), "user-1", "item-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, repo.deletedItems)
}

func TestRemoveItem_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo())

	err := svc.RemoveItem(context.Background(), "user-1", "missing")

	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_OtherUsersItem(t *testing.T) {
	repo := newMockRepo()
	repo.items["item-1"] = &ownedItem{CartItem: model.CartItem{ID: "item-1"}, ownerID: "user-1"}
	svc := newTestService(repo)

	err := svc.RemoveItem(context.Background(), "intruder", "item-1")

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, repo.deletedItems)
}
