package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/storefront/internal/infrastructure/postgres"
	"github.com/example/storefront/internal/model"
)

type Repository interface {
	ListProducts(ctx context.Context, f ListFilter) ([]model.Product, int, error)
	ProductByID(ctx context.Context, id string) (*model.Product, error)
	ProductSlugExists(ctx context.Context, slug string) (bool, error)
	InsertProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	InsertCategory(ctx context.Context, c *model.Category) error
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListProducts(ctx context.Context, f ListFilter) ([]model.Product, int, error) {
	conditions := []string{"status <> 'ARCHIVED'"}
	args := []any{}

	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM products"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := "SELECT * FROM products" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", f.Limit, (f.Page-1)*f.Limit)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	if err := r.attachRelations(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *PostgresRepository) ProductByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := r.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	products := []model.Product{p}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *PostgresRepository) attachRelations(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]*model.Product, len(products))
	categoryIDs := map[string]bool{}
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
		if products[i].CategoryID != "" {
			categoryIDs[products[i].CategoryID] = true
		}
	}

	query, args, err := sqlx.In(`SELECT * FROM product_images WHERE product_id IN (?) ORDER BY sort_order`, ids)
	if err != nil {
		return err
	}
	var images []model.ProductImage
	if err := r.db.SelectContext(ctx, &images, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	for _, img := range images {
		p := index[img.ProductID]
		p.Images = append(p.Images, img)
	}

	query, args, err = sqlx.In(`SELECT * FROM product_variants WHERE product_id IN (?) ORDER BY sku`, ids)
	if err != nil {
		return err
	}
	var variants []model.ProductVariant
	if err := r.db.SelectContext(ctx, &variants, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load variants: %w", err)
	}
	for _, v := range variants {
		p := index[v.ProductID]
		p.Variants = append(p.Variants, v)
	}

	if len(categoryIDs) > 0 {
		catIDs := make([]string, 0, len(categoryIDs))
		for id := range categoryIDs {
			catIDs = append(catIDs, id)
		}
		query, args, err = sqlx.In(`SELECT * FROM categories WHERE id IN (?)`, catIDs)
		if err != nil {
			return err
		}
		var categories []model.Category
		if err := r.db.SelectContext(ctx, &categories, r.db.Rebind(query), args...); err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		byID := make(map[string]model.Category, len(categories))
		for _, c := range categories {
			byID[c.ID] = c
		}
		for i := range products {
			if c, ok := byID[products[i].CategoryID]; ok {
				cat := c
				products[i].Category = &cat
			}
		}
	}

	return nil
}

func (r *PostgresRepository) ProductSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)`, slug)
	return exists, err
}

func (r *PostgresRepository) InsertProduct(ctx context.Context, p *model.Product) error {
	return postgres.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, slug, name, description, price, category_id, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
			p.ID, p.Slug, p.Name, p.Description, p.Price, p.CategoryID, p.Status)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		for _, img := range p.Images {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO product_images (id, product_id, url, alt_text, sort_order, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				img.ID, img.ProductID, img.URL, img.AltText, img.SortOrder)
			if err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
		}

		for _, v := range p.Variants {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO product_variants (id, product_id, sku, attributes, price, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
				v.ID, v.ProductID, v.SKU, v.Attributes, v.Price)
			if err != nil {
				return fmt.Errorf("insert variant: %w", err)
			}
			// Seed the stock counter so the first adjustment has a row to lock.
			_, err = tx.ExecContext(ctx,
				`INSERT INTO inventory (variant_id, quantity, updated_at) VALUES ($1, 0, NOW())
				 ON CONFLICT (variant_id) DO NOTHING`,
				v.ID)
			if err != nil {
				return fmt.Errorf("seed inventory: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, category_id = $5, status = $6, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.CategoryID, p.Status)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(res, ErrProductNotFound)
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET status = 'ARCHIVED', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("archive product: %w", err)
	}
	return requireRow(res, ErrProductNotFound)
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.SelectContext(ctx, &categories,
		`SELECT * FROM categories WHERE is_active ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresRepository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)`, slug)
	return exists, err
}

func (r *PostgresRepository) InsertCategory(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, description, is_active, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		c.ID, c.Name, c.Slug, c.Description, c.IsActive, c.SortOrder)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
