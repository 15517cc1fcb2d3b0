package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
)

func NewRouter(h *Handlers, authH *AuthHandlers, jwtService *auth.JWTService, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.Auth(jwtService)
	adminOnly := middleware.RequireRole("admin")

	authed := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(adminOnly(fn))
	}

	mux.HandleFunc("/healthz", h.Health)

	// Auth
	mux.HandleFunc("/auth/register", post(authH.Register))
	mux.HandleFunc("/auth/login", post(authH.Login))
	mux.HandleFunc("/auth/refresh", post(authH.Refresh))
	mux.Handle("/auth/logout", authed(authH.Logout))
	mux.Handle("/auth/me", authed(authH.Me))

	// Catalog
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListProducts(w, r)
		case http.MethodPost:
			admin(h.CreateProduct).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetProduct(w, r)
		case http.MethodPut, http.MethodPatch:
			admin(h.UpdateProduct).ServeHTTP(w, r)
		case http.MethodDelete:
			admin(h.DeleteProduct).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListCategories(w, r)
		case http.MethodPost:
			admin(h.CreateCategory).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Cart
	mux.Handle("/cart", authed(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetCart(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	mux.Handle("/cart/items", authed(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.AddToCart(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	mux.Handle("/cart/items/", authed(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch, http.MethodPut:
			h.UpdateCartItem(w, r)
		case http.MethodDelete:
			h.RemoveCartItem(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	// Orders
	mux.Handle("/orders", authed(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListOrders(w, r)
		case http.MethodPost:
			h.PlaceOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	mux.Handle("/orders/", authed(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPost:
			h.CancelOrder(w, r)
		case strings.HasSuffix(path, "/payments") && r.Method == http.MethodGet:
			h.ListOrderPayments(w, r)
		case r.Method == http.MethodGet:
			h.GetOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	mux.Handle("/users/stats", authed(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.UserStats(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	// Payments. The webhook stays public; its signature check is the auth.
	mux.HandleFunc("/payments/webhook", post(h.PaymentWebhook))
	mux.Handle("/payments/confirm", authed(post(h.ConfirmPayment)))
	mux.Handle("/payments/", authed(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/refund") && r.Method == http.MethodPost:
			h.RefundPayment(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	// Admin
	mux.Handle("/upload", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.UploadImage(w, r)
		case http.MethodGet:
			h.ListUploads(w, r)
		case http.MethodDelete:
			h.DeleteUpload(w, r)
		default:
			methodNotAllowed(w)
		}
	}))
	mux.Handle("/admin/orders", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListAllOrders(w, r)
		default:
			methodNotAllowed(w)
		}
	}))
	mux.Handle("/admin/inventory/", admin(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/movements") && r.Method == http.MethodGet:
			h.ListInventoryMovements(w, r)
		case strings.HasSuffix(r.URL.Path, "/adjust") && r.Method == http.MethodPost:
			h.AdjustInventory(w, r)
		default:
			methodNotAllowed(w)
		}
	}))

	return withLogging(mux, log)
}

func post(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		fn(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	respondError(w, "method not allowed", http.StatusMethodNotAllowed)
}

func withLogging(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
