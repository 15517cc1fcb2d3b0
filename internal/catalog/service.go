package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/model"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNameRequired     = errors.New("name is required")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListFilter narrows the product listing.
type ListFilter struct {
	Page       int
	Limit      int
	CategoryID string
	Search     string
}

func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

type CreateProductRequest struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  string
	Slug        string
	Status      model.ProductStatus
	Images      []ImageRequest
	Variants    []VariantRequest
}

type ImageRequest struct {
	URL string
	Alt string
}

type VariantRequest struct {
	SKU        string
	Attributes model.Attributes
	Price      decimal.Decimal
}

type CreateCategoryRequest struct {
	Name        string
	Slug        string
	Description string
	SortOrder   int
}

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) ListProducts(ctx context.Context, f ListFilter) ([]model.Product, int, error) {
	f.normalize()
	return s.repo.ListProducts(ctx, f)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.repo.ProductByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*model.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}

	slug, err := s.uniqueSlug(ctx, req.Slug, req.Name, s.repo.ProductSlugExists)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.ProductActive
	}

	product := &model.Product{
		ID:          uuid.New().String(),
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Status:      status,
	}
	for i, img := range req.Images {
		alt := img.Alt
		if alt == "" {
			alt = req.Name
		}
		product.Images = append(product.Images, model.ProductImage{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			URL:       img.URL,
			AltText:   alt,
			SortOrder: i,
		})
	}
	for _, v := range req.Variants {
		price := v.Price
		if price.IsZero() {
			price = req.Price
		}
		product.Variants = append(product.Variants, model.ProductVariant{
			ID:         uuid.New().String(),
			ProductID:  product.ID,
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Price:      price,
		})
	}

	if err := s.repo.InsertProduct(ctx, product); err != nil {
		return nil, err
	}

	s.log.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("slug", product.Slug))
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	return s.repo.UpdateProduct(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*model.Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	slug, err := s.uniqueSlug(ctx, req.Slug, req.Name, s.repo.CategorySlugExists)
	if err != nil {
		return nil, err
	}

	category := &model.Category{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		IsActive:    true,
		SortOrder:   req.SortOrder,
	}
	if err := s.repo.InsertCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// uniqueSlug slugifies the name when no slug is given and appends a counter
// until the slug is free.
func (s *Service) uniqueSlug(ctx context.Context, slug, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := slug
	if base == "" {
		base = Slugify(name)
	}

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

// Slugify lowercases the name and collapses non-alphanumeric runs to single
// hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
