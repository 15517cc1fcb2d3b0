package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/config"
)

// Gateway is the slice of the payment provider's API the service needs.
type Gateway interface {
	CancelPayment(ctx context.Context, intentID string, amount decimal.Decimal, reason string) error
}

// PortOneGateway talks to the PortOne REST API. Every call first exchanges
// the API key pair for a short-lived access token.
type PortOneGateway struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

func NewPortOneGateway(cfg config.GatewayConfig) *PortOneGateway {
	return &PortOneGateway{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Response struct {
		AccessToken string `json:"access_token"`
	} `json:"response"`
}

func (g *PortOneGateway) token(ctx context.Context) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"imp_key":    g.apiKey,
		"imp_secret": g.apiSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/users/getToken", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway token request: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tr.Response.AccessToken == "" {
		return "", fmt.Errorf("gateway token request failed: %s", tr.Message)
	}
	return tr.Response.AccessToken, nil
}

func (g *PortOneGateway) CancelPayment(ctx context.Context, intentID string, amount decimal.Decimal, reason string) error {
	token, err := g.token(ctx)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]any{
		"imp_uid": intentID,
		"amount":  amount,
		"reason":  reason,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments/cancel", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway cancel request: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode cancel response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Code != 0 {
		return fmt.Errorf("gateway cancel failed: %s", body.Message)
	}
	return nil
}
