package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paymob-integration/internal/model"
)

// legacyHost is the Egypt-only host of the previous API generation.
// Legacy accounts always settle there, regardless of key prefix.
const legacyHost = "https://accept.paymobsolutions.com/api"

// LegacyClient drives the old three-step flow: auth token, order
// registration, payment key, then an optional wallet redirect or kiosk
// bill reference.
type LegacyClient interface {
	AuthToken(ctx context.Context) (string, error)
	RegisterOrder(ctx context.Context, amountCents int64, currency string, items []InvoiceItem) (int64, error)
	PaymentKey(ctx context.Context, req *PaymentKeyRequest) (*PaymentKeyResponse, error)
	WalletURL(ctx context.Context, payToken, phoneNumber string) (*WalletRedirect, error)
	KioskReference(ctx context.Context, payToken string) (*KioskBill, error)
}

type legacyClientImpl struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	authToken  string
}

func NewLegacyClient(apiKey string) LegacyClient {
	return &legacyClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: legacyHost,
		apiKey:  apiKey,
	}
}

func (c *legacyClientImpl) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *legacyClientImpl) AuthToken(ctx context.Context) (string, error) {
	if c.authToken != "" {
		return c.authToken, nil
	}

	status, body, err := c.post(ctx, "/auth/tokens", map[string]string{"api_key": c.apiKey})
	if err != nil {
		return "", fmt.Errorf("request auth token: %w", err)
	}

	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &res); err != nil || res.Token == "" {
		return "", &APIError{Status: status, Message: "auth token missing in response"}
	}

	c.authToken = res.Token
	return res.Token, nil
}

func (c *legacyClientImpl) RegisterOrder(ctx context.Context, amountCents int64, currency string, items []InvoiceItem) (int64, error) {
	token, err := c.AuthToken(ctx)
	if err != nil {
		return 0, err
	}

	payload := map[string]any{
		"auth_token":      token,
		"delivery_needed": "false",
		"amount_cents":    amountCents,
		"currency":        currency,
		"items":           items,
	}
	status, body, err := c.post(ctx, "/ecommerce/orders", payload)
	if err != nil {
		return 0, fmt.Errorf("register order: %w", err)
	}

	var res struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &res); err != nil || res.ID == 0 {
		return 0, &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return res.ID, nil
}

// PaymentKeyRequest asks for the token that unlocks the hosted payment
// form for one registered order.
type PaymentKeyRequest struct {
	AmountCents       int64
	Currency          string
	OrderID           int64
	IntegrationID     int64
	Billing           BillingData
	SavedCardToken    string
	LockOrderWhenPaid bool
}

type PaymentKeyResponse struct {
	OrderID  int64
	PayToken string
}

func (c *legacyClientImpl) PaymentKey(ctx context.Context, req *PaymentKeyRequest) (*PaymentKeyResponse, error) {
	token, err := c.AuthToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"auth_token":           token,
		"amount_cents":         req.AmountCents,
		"expiration":           36000,
		"order_id":             req.OrderID,
		"billing_data":         req.Billing,
		"currency":             req.Currency,
		"integration_id":       req.IntegrationID,
		"lock_order_when_paid": req.LockOrderWhenPaid,
	}
	if req.SavedCardToken != "" {
		payload["token"] = req.SavedCardToken
	}

	status, body, err := c.post(ctx, "/acceptance/payment_keys", payload)
	if err != nil {
		return nil, fmt.Errorf("request payment key: %w", err)
	}

	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &res); err != nil || res.Token == "" {
		return nil, &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return &PaymentKeyResponse{OrderID: req.OrderID, PayToken: res.Token}, nil
}

type WalletRedirect struct {
	RedirectURL string
	IframeURL   string
	OrderID     int64
	Method      string
}

func (c *legacyClientImpl) WalletURL(ctx context.Context, payToken, phoneNumber string) (*WalletRedirect, error) {
	payload := map[string]any{
		"source": map[string]string{
			"identifier": phoneNumber,
			"subtype":    "WALLET",
		},
		"payment_token": payToken,
	}
	status, body, err := c.post(ctx, "/acceptance/payments/pay", payload)
	if err != nil {
		return nil, fmt.Errorf("request wallet url: %w", err)
	}

	var res struct {
		RedirectURL          string                 `json:"redirect_url"`
		IframeRedirectionURL string                 `json:"iframe_redirection_url"`
		Order                model.TransactionOrder `json:"order"`
		SourceData           model.SourceData       `json:"source_data"`
	}
	if err := json.Unmarshal(body, &res); err != nil || res.RedirectURL == "" {
		return nil, &APIError{Status: status, Message: "no wallet redirect in response"}
	}
	return &WalletRedirect{
		RedirectURL: res.RedirectURL,
		IframeURL:   res.IframeRedirectionURL,
		OrderID:     res.Order.ID,
		Method:      res.SourceData.Type,
	}, nil
}

type KioskBill struct {
	OrderID   int64
	Method    string
	Reference string
}

func (c *legacyClientImpl) KioskReference(ctx context.Context, payToken string) (*KioskBill, error) {
	payload := map[string]any{
		"source": map[string]string{
			"identifier": "AGGREGATOR",
			"subtype":    "AGGREGATOR",
		},
		"payment_token": payToken,
	}
	status, body, err := c.post(ctx, "/acceptance/payments/pay", payload)
	if err != nil {
		return nil, fmt.Errorf("request kiosk reference: %w", err)
	}

	var res struct {
		Pending bool `json:"pending"`
		Data    struct {
			BillReference json.Number `json:"bill_reference"`
		} `json:"data"`
		Order      model.TransactionOrder `json:"order"`
		SourceData model.SourceData       `json:"source_data"`
	}
	if err := json.Unmarshal(body, &res); err != nil || !res.Pending || res.Data.BillReference == "" {
		return nil, &APIError{Status: status, Message: "no bill reference in response"}
	}
	return &KioskBill{
		OrderID:   res.Order.ID,
		Method:    res.SourceData.Type,
		Reference: res.Data.BillReference.String(),
	}, nil
}
