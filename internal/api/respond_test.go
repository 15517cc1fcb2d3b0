package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/inventory"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/user"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"product not found", catalog.ErrProductNotFound, http.StatusNotFound},
		{"order not found", order.ErrNotFound, http.StatusNotFound},
		{"user not found", user.ErrNotFound, http.StatusNotFound},
		{"cart forbidden", cart.ErrForbidden, http.StatusForbidden},
		{"payment forbidden", payment.ErrForbidden, http.StatusForbidden},
		{"amount mismatch", payment.ErrAmountMismatch, http.StatusBadRequest},
		{"not refundable", payment.ErrNotRefundable, http.StatusBadRequest},
		{"refund too large", payment.ErrRefundTooLarge, http.StatusBadRequest},
		{"not cancellable", order.ErrNotCancellable, http.StatusConflict},
		{"insufficient stock", inventory.ErrInsufficientStock, http.StatusConflict},
		{"email taken", user.ErrEmailTaken, http.StatusConflict},
		{"wrapped sentinel", fmt.Errorf("refund: %w", payment.ErrNotRefundable), http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestRespondServiceError_HidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()

	respondServiceError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
