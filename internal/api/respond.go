package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/inventory"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/user"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain sentinels onto HTTP statuses. Unknown
// errors become an opaque 500 so internals never leak to clients.
func respondServiceError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		respondError(w, "internal server error", status)
		return
	}
	respondError(w, err.Error(), status)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrOrderNotFound),
		errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, cart.ErrForbidden),
		errors.Is(err, order.ErrForbidden),
		errors.Is(err, payment.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, catalog.ErrNameRequired),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, payment.ErrAmountMismatch),
		errors.Is(err, payment.ErrNotRefundable),
		errors.Is(err, payment.ErrRefundTooLarge):
		return http.StatusBadRequest

	case errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrProductUnavailable),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
