package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/model"
)

type mockRepo struct {
	products      map[string]*model.Product
	productSlugs  map[string]bool
	categorySlugs map[string]bool

	insertedProducts   []*model.Product
	insertedCategories []*model.Category
	archived           []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products:      make(map[string]*model.Product),
		productSlugs:  make(map[string]bool),
		categorySlugs: make(map[string]bool),
	}
}

func (m *mockRepo) ListProducts(ctx context.Context, f ListFilter) ([]model.Product, int, error) {
	var out []model.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepo) ProductByID(ctx context.Context, id string) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (m *mockRepo) ProductSlugExists(ctx context.Context, slug string) (bool, error) {
	return m.productSlugs[slug], nil
}

func (m *mockRepo) InsertProduct(ctx context.Context, p *model.Product) error {
	m.insertedProducts = append(m.insertedProducts, p)
	m.products[p.ID] = p
	m.productSlugs[p.Slug] = true
	return nil
}

func (m *mockRepo) UpdateProduct(ctx context.Context, p *model.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockRepo) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return ErrProductNotFound
	}
	m.archived = append(m.archived, id)
	return nil
}

func (m *mockRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, nil
}

func (m *mockRepo) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return m.categorySlugs[slug], nil
}

func (m *mockRepo) InsertCategory(ctx context.Context, c *model.Category) error {
	m.insertedCategories = append(m.insertedCategories, c)
	m.categorySlugs[c.Slug] = true
	return nil
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, zap.NewNop())
}

func TestCreateProduct_Success(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:  "Canvas Tote",
		Price: decimal.NewFromInt(30),
		Images: []ImageRequest{
			{URL: "https://cdn.example.com/tote.jpg"},
		},
		Variants: []VariantRequest{
			{SKU: "TOTE-RED", Attributes: model.Attributes{"color": "red"}},
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "canvas-tote", product.Slug)
	assert.Equal(t, model.ProductActive, product.Status)

	require.Len(t, product.Images, 1)
	// Missing alt text falls back to the product name.
	assert.Equal(t, "Canvas Tote", product.Images[0].AltText)

	require.Len(t, product.Variants, 1)
	// Variant without its own price inherits the product price.
	assert.True(t, product.Variants[0].Price.Equal(decimal.NewFromInt(30)))
}

func TestCreateProduct_EmptyName(t *testing.T) {
	svc := newTestService(newMockRepo())

	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:  "   ",
		Price: decimal.NewFromInt(10),
	})

	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestCreateProduct_NegativePrice(t *testing.T) {
	svc := newTestService(newMockRepo())

	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:  "Bad Product",
		Price: decimal.NewFromInt(-1),
	})

	assert.Error(t, err)
}

func TestCreateProduct_SlugCollision(t *testing.T) {
	repo := newMockRepo()
	repo.productSlugs["canvas-tote"] = true
	repo.productSlugs["canvas-tote-1"] = true
	svc := newTestService(repo)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:  "Canvas Tote",
		Price: decimal.NewFromInt(30),
	})

	require.NoError(t, err)
	assert.Equal(t, "canvas-tote-2", product.Slug)
}

func TestCreateProduct_ExplicitSlug(t *testing.T) {
	svc := newTestService(newMockRepo())

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:  "Canvas Tote",
		Slug:  "tote-2026",
		Price: decimal.NewFromInt(30),
	})

	require.NoError(t, err)
	assert.Equal(t, "tote-2026", product.Slug)
}

func TestCreateCategory_Success(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	category, err := svc.CreateCategory(context.Background(), CreateCategoryRequest{
		Name:      "Bags & Accessories",
		SortOrder: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, "bags-accessories", category.Slug)
	assert.True(t, category.IsActive)
	assert.Equal(t, 3, category.SortOrder)
}

func TestDeleteProduct_Archives(t *testing.T) {
	repo := newMockRepo()
	repo.products["prod-1"] = &model.Product{ID: "prod-1"}
	svc := newTestService(repo)

	require.NoError(t, svc.DeleteProduct(context.Background(), "prod-1"))
	assert.Equal(t, []string{"prod-1"}, repo.archived)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Canvas Tote", "canvas-tote"},
		{"Bags & Accessories", "bags-accessories"},
		{"  Spaced  Out  ", "spaced-out"},
		{"UPPER case 123", "upper-case-123"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
