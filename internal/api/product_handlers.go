package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/model"
)

type pagedResponse struct {
	Data  any `json:"data"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.ListFilter{
		Page:       queryInt(q.Get("page")),
		Limit:      queryInt(q.Get("limit")),
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
	}

	products, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = catalog.DefaultPageSize
	}
	respondJSON(w, http.StatusOK, pagedResponse{
		Data:  products,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	})
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

type createProductBody struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	CategoryID  string              `json:"category_id"`
	Slug        string              `json:"slug"`
	Status      model.ProductStatus `json:"status"`
	Images      []struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"images"`
	Variants []struct {
		SKU        string           `json:"sku"`
		Attributes model.Attributes `json:"attributes"`
		Price      decimal.Decimal  `json:"price"`
	} `json:"variants"`
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body createProductBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req := catalog.CreateProductRequest{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		CategoryID:  body.CategoryID,
		Slug:        body.Slug,
		Status:      body.Status,
	}
	for _, img := range body.Images {
		req.Images = append(req.Images, catalog.ImageRequest{URL: img.URL, Alt: img.Alt})
	}
	for _, v := range body.Variants {
		req.Variants = append(req.Variants, catalog.VariantRequest{
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Price:      v.Price,
		})
	}

	product, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

type updateProductBody struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Price       *decimal.Decimal     `json:"price"`
	CategoryID  *string              `json:"category_id"`
	Status      *model.ProductStatus `json:"status"`
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")

	var body updateProductBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if body.Name != nil {
		product.Name = *body.Name
	}
	if body.Description != nil {
		product.Description = *body.Description
	}
	if body.Price != nil {
		product.Price = *body.Price
	}
	if body.CategoryID != nil {
		product.CategoryID = *body.CategoryID
	}
	if body.Status != nil {
		product.Status = *body.Status
	}

	if err := h.catalog.UpdateProduct(r.Context(), product); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "product archived"})
}

func queryInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
