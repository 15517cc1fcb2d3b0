package api

import (
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/infrastructure/storage"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/payment"
)

type Handlers struct {
	catalog       *catalog.Service
	cart          *cart.Service
	orders        *order.Service
	payments      *payment.Service
	uploads       *storage.Client
	db            *sqlx.DB
	webhookSecret string
	log           *zap.Logger
}

func NewHandlers(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	paymentSvc *payment.Service,
	uploads *storage.Client,
	db *sqlx.DB,
	webhookSecret string,
	log *zap.Logger,
) *Handlers {
	return &Handlers{
		catalog:       catalogSvc,
		cart:          cartSvc,
		orders:        orderSvc,
		payments:      paymentSvc,
		uploads:       uploads,
		db:            db,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		respondError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func getUserID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

func isAdmin(r *http.Request) bool {
	return middleware.IsAdmin(r.Context())
}
