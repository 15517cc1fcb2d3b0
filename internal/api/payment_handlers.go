package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/payment"
)

// ConfirmPayment is the client-side completion call: the browser reports the
// gateway result after checkout. The webhook reports the same payment out of
// band; both funnel into the same reconciliation.
func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentIntentID string          `json:"payment_intent_id"`
		OrderID         string          `json:"order_id"`
		Amount          decimal.Decimal `json:"amount"`
		PayMethod       string          `json:"pay_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.PaymentIntentID == "" || body.OrderID == "" {
		respondError(w, "payment_intent_id and order_id are required", http.StatusBadRequest)
		return
	}

	p, err := h.payments.Reconcile(r.Context(), payment.Notice{
		IntentID:  body.PaymentIntentID,
		OrderID:   body.OrderID,
		Status:    payment.GatewayPaid,
		Amount:    body.Amount,
		PayMethod: body.PayMethod,
		UserID:    getUserID(r),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// PaymentWebhook receives gateway notifications. The signature is checked
// over the raw body before anything is parsed.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !payment.VerifySignature(h.webhookSecret, raw, r.Header.Get("X-Portone-Signature")) {
		respondError(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var body struct {
		ImpUID        string          `json:"imp_uid"`
		MerchantUID   string          `json:"merchant_uid"`
		Status        string          `json:"status"`
		Amount        decimal.Decimal `json:"amount"`
		PayMethod     string          `json:"pay_method"`
		FailureReason string          `json:"fail_reason"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.ImpUID == "" || body.MerchantUID == "" {
		respondError(w, "imp_uid and merchant_uid are required", http.StatusBadRequest)
		return
	}

	_, err = h.payments.Reconcile(r.Context(), payment.Notice{
		IntentID:      body.ImpUID,
		OrderID:       body.MerchantUID,
		Status:        body.Status,
		Amount:        body.Amount,
		PayMethod:     body.PayMethod,
		FailureReason: body.FailureReason,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *Handlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/payments/"), "/refund")

	var body struct {
		Amount *decimal.Decimal `json:"amount"`
		Reason string           `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.payments.Refund(r.Context(), getUserID(r), isAdmin(r), id, body.Amount, body.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) ListOrderPayments(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/payments")
	payments, err := h.payments.PaymentsForOrder(r.Context(), getUserID(r), isAdmin(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}
