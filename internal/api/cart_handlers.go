package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/storefront/internal/model"
)

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.Get(r.Context(), getUserID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID        string           `json:"product_id"`
		Quantity         int              `json:"quantity"`
		SelectedVariants model.Attributes `json:"selected_variants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.cart.AddItem(r.Context(), getUserID(r), body.ProductID, body.Quantity, body.SelectedVariants)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	cart, err := h.cart.Get(r.Context(), getUserID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := extractPathParam(r.URL.Path, "/cart/items/")

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.cart.UpdateItem(r.Context(), getUserID(r), itemID, body.Quantity); err != nil {
		respondServiceError(w, err)
		return
	}

	cart, err := h.cart.Get(r.Context(), getUserID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := extractPathParam(r.URL.Path, "/cart/items/")
	if err := h.cart.RemoveItem(r.Context(), getUserID(r), itemID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
}
