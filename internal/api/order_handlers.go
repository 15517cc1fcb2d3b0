package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/inventory"
	"github.com/example/storefront/internal/order"
)

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []struct {
			ProductID string `json:"product_id"`
			VariantID string `json:"variant_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		ShippingAddress json.RawMessage `json:"shipping_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req := order.CreateRequest{ShippingAddress: body.ShippingAddress}
	for _, item := range body.Items {
		req.Items = append(req.Items, order.ItemRequest{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	placed, err := h.orders.Create(r.Context(), getUserID(r), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, placed)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := order.Page{Page: queryInt(q.Get("page")), Limit: queryInt(q.Get("limit"))}

	orders, total, err := h.orders.List(r.Context(), getUserID(r), page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pagedResponse{Data: orders, Page: max(page.Page, 1), Limit: defaultLimit(page.Limit), Total: total})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/cancel")
	o, err := h.orders.Get(r.Context(), getUserID(r), isAdmin(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/cancel")

	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	cancelled, err := h.orders.Cancel(r.Context(), getUserID(r), isAdmin(r), id, body.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cancelled)
}

// UserStats returns the caller's purchase history summary.
func (h *Handlers) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context(), getUserID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Admin handlers

func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := order.Page{Page: queryInt(q.Get("page")), Limit: queryInt(q.Get("limit"))}

	orders, total, err := h.orders.ListAll(r.Context(), page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pagedResponse{Data: orders, Page: max(page.Page, 1), Limit: defaultLimit(page.Limit), Total: total})
}

func (h *Handlers) ListInventoryMovements(w http.ResponseWriter, r *http.Request) {
	rest := extractPathParam(r.URL.Path, "/admin/inventory/")
	variantID := strings.TrimSuffix(rest, "/movements")

	movements, err := inventory.Movements(r.Context(), h.db, variantID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// AdjustInventory applies a manual stock correction, recorded in the ledger
// like any other movement.
func (h *Handlers) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	rest := extractPathParam(r.URL.Path, "/admin/inventory/")
	variantID := strings.TrimSuffix(rest, "/adjust")

	var body struct {
		Change    int    `json:"change"`
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Change == 0 {
		respondError(w, "change must be non-zero", http.StatusBadRequest)
		return
	}

	var err error
	if body.Change > 0 {
		err = inventory.Restore(r.Context(), h.db, variantID, body.Change, inventory.RefManual, body.Reference)
	} else {
		err = inventory.Decrement(r.Context(), h.db, variantID, -body.Change, inventory.RefManual, body.Reference)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "inventory adjusted"})
}

func defaultLimit(limit int) int {
	if limit < 1 {
		return 10
	}
	return limit
}
