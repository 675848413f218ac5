package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paymob-integration/internal/model"
	"paymob-integration/internal/paymob"
)

// Paymob REST endpoints, relative to the regional base host.
const (
	endpointAuth            = "/api/auth/tokens"
	endpointIntention       = "/v1/intention/"
	endpointRefund          = "/api/acceptance/void_refund/refund"
	endpointVoid            = "/api/acceptance/void_refund/void"
	endpointInquiryTxn      = "/api/acceptance/transactions/%d"
	endpointInquiryOrder    = "/api/ecommerce/orders/transaction_inquiry"
	endpointIntegrations    = "/api/ecommerce/integrations"
	endpointUnifiedCheckout = "/unifiedcheckout/"
)

type PaymobClient interface {
	// AuthToken exchanges the api key for a short-lived bearer token.
	// Tokens live for one client instance only, never across requests.
	AuthToken(ctx context.Context) (string, error)
	CreateIntention(ctx context.Context, req *IntentionRequest) (*IntentionResponse, error)
	Refund(ctx context.Context, transactionID, amountCents int64) (*model.Transaction, error)
	Void(ctx context.Context, transactionID int64) (*model.Transaction, error)
	InquiryTransaction(ctx context.Context, transactionID int64) (*InquiryResult, error)
	InquiryOrder(ctx context.Context, pmOrderID string) (*InquiryResult, error)
	Integrations(ctx context.Context) ([]paymob.Integration, error)
	// CheckoutURL is the hosted unified-checkout page for a created
	// intention's client secret.
	CheckoutURL(clientSecret string) string
}

// APIError is a non-2xx or error-shaped processor response, surfaced as
// a value so callers decide whether it is user-visible.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paymob api error (status %d): %s", e.Status, e.Message)
}

type paymobClientImpl struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	publicKey  string
	privateKey string
	authToken  string
}

// NewPaymobClient builds a client for one merchant account. The key
// pair is checked for structural validity and country/mode agreement
// before any call can be issued; mismatches are configuration errors
// and refuse construction.
func NewPaymobClient(account *model.GatewayAccount) (PaymobClient, error) {
	if !paymob.VerifyKeyFormat(account.PublicKey, paymob.RolePublic) {
		return nil, fmt.Errorf("malformed public key for account %d", account.ID)
	}
	if !paymob.VerifyKeyFormat(account.PrivateKey, paymob.RoleSecret) {
		return nil, fmt.Errorf("malformed private key for account %d", account.ID)
	}
	if !paymob.MatchCountries(account.PrivateKey, account.PublicKey) {
		return nil, fmt.Errorf("public and private keys belong to different countries")
	}
	if !paymob.MatchMode(account.PrivateKey, account.PublicKey) {
		return nil, fmt.Errorf("public and private keys are not in the same mode")
	}

	baseURL, err := paymob.BaseURL(account.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &paymobClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    baseURL,
		apiKey:     account.APIKey,
		publicKey:  account.PublicKey,
		privateKey: account.PrivateKey,
	}, nil
}

// do issues one API call. POST requests authenticate with the secret
// key directly; GET requests need a bearer token unless the caller
// overrides the header.
func (c *paymobClientImpl) do(ctx context.Context, method, path string, payload any, query url.Values, authHeader string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch {
	case authHeader != "":
		req.Header.Set("Authorization", authHeader)
	case method == http.MethodPost:
		req.Header.Set("Authorization", "Token "+c.privateKey)
	default:
		token, err := c.AuthToken(ctx)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func ok(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

func (c *paymobClientImpl) AuthToken(ctx context.Context) (string, error) {
	if c.authToken != "" {
		return c.authToken, nil
	}

	payload := map[string]string{"api_key": c.apiKey}
	status, body, err := c.do(ctx, http.MethodPost, endpointAuth, payload, nil, "")
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

// IntentionRequest creates a payment intention on the modern API.
type IntentionRequest struct {
	Amount           int64                `json:"amount"`
	Currency         string               `json:"currency"`
	NotificationURL  string               `json:"notification_url"`
	RedirectionURL   string               `json:"redirection_url"`
	PaymentMethods   []int64              `json:"payment_methods"`
	BillingData      BillingData          `json:"billing_data"`
	Items            []InvoiceItem        `json:"items"`
	Extras           model.CreationExtras `json:"extras"`
	SpecialReference string               `json:"special_reference"`
}

type BillingData struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Street      string `json:"street"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
	Country     string `json:"country"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
}

type InvoiceItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Quantity int    `json:"quantity"`
}

type IntentionResponse struct {
	ID              string                `json:"id"`
	ClientSecret    string                `json:"client_secret"`
	IntentionDetail model.IntentionDetail `json:"intention_detail"`
}

// intentionError covers the four error-body shapes the intention
// endpoint is known to return.
type intentionError struct {
	Detail       string   `json:"detail"`
	Amount       []string `json:"amount"`
	BillingData  any      `json:"billing_data"`
	Integrations []string `json:"integrations"`
	Code         string   `json:"code"`
}

func (e *intentionError) message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Amount) > 0:
		return e.Amount[0]
	case e.BillingData != nil:
		return "missing billing information"
	case len(e.Integrations) > 0:
		return e.Integrations[0]
	case e.Code != "":
		return e.Code
	}
	return ""
}

func (c *paymobClientImpl) CreateIntention(ctx context.Context, req *IntentionRequest) (*IntentionResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, endpointIntention, req, nil, "")
	if err != nil {
		return nil, fmt.Errorf("create intention: %w", err)
	}

	var res IntentionResponse
	if err := json.Unmarshal(body, &res); err == nil && res.ClientSecret != "" {
		return &res, nil
	}

	var apiErr intentionError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.message()
	if msg == "" {
		msg = "unexpected intention response"
	}
	return nil, &APIError{Status: status, Message: msg}
}

func (c *paymobClientImpl) Refund(ctx context.Context, transactionID, amountCents int64) (*model.Transaction, error) {
	payload := map[string]int64{
		"transaction_id": transactionID,
		"amount_cents":   amountCents,
	}
	return c.voidRefund(ctx, endpointRefund, payload)
}

func (c *paymobClientImpl) Void(ctx context.Context, transactionID int64) (*model.Transaction, error) {
	payload := map[string]int64{
		"transaction_id": transactionID,
	}
	return c.voidRefund(ctx, endpointVoid, payload)
}

func (c *paymobClientImpl) voidRefund(ctx context.Context, path string, payload any) (*model.Transaction, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, payload, nil, "")
	if err != nil {
		return nil, err
	}

	var txn model.Transaction
	if err := json.Unmarshal(body, &txn); err != nil || txn.ID == 0 {
		return nil, &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return &txn, nil
}

// InquiryResult is a transaction inquiry response: the transaction
// report plus settlement detail not present on webhook payloads.
type InquiryResult struct {
	model.Transaction
	Order               InquiryOrderInfo `json:"order"`
	RefundedAmountCents int64            `json:"refunded_amount_cents"`
	UpdatedAt           string           `json:"updated_at"`
	Data                InquiryData      `json:"data"`
}

type InquiryOrderInfo struct {
	ID              int64  `json:"id"`
	AmountCents     int64  `json:"amount_cents"`
	PaidAmountCents int64  `json:"paid_amount_cents"`
	Currency        string `json:"currency"`
	CreatedAt       string `json:"created_at"`
}

type InquiryData struct {
	ReceiptNo string `json:"receipt_no"`
	Message   string `json:"message"`
	CardNum   string `json:"card_num"`
}

// decodeInquiry tolerates the processor answering with a bare JSON
// string (an error message) in place of a structured object.
func decodeInquiry(status int, body []byte) (*InquiryResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &APIError{Status: status, Message: strings.Trim(string(trimmed), `"`)}
	}

	var res InquiryResult
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, &APIError{Status: status, Message: "malformed inquiry response"}
	}
	if res.Order.ID == 0 {
		return nil, &APIError{Status: status, Message: "inquiry response carries no order"}
	}
	return &res, nil
}

func (c *paymobClientImpl) InquiryTransaction(ctx context.Context, transactionID int64) (*InquiryResult, error) {
	path := fmt.Sprintf(endpointInquiryTxn, transactionID)
	status, body, err := c.do(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("transaction inquiry: %w", err)
	}
	return decodeInquiry(status, body)
}

func (c *paymobClientImpl) InquiryOrder(ctx context.Context, pmOrderID string) (*InquiryResult, error) {
	token, err := c.AuthToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]string{"order_id": pmOrderID}
	status, body, err := c.do(ctx, http.MethodPost, endpointInquiryOrder, payload, nil, "Bearer "+token)
	if err != nil {
		return nil, fmt.Errorf("order inquiry: %w", err)
	}
	return decodeInquiry(status, body)
}

// integrationsResponse is the paginated integration listing.
type integrationsResponse struct {
	Results []struct {
		ID              int64  `json:"id"`
		GatewayType     string `json:"gateway_type"`
		IntegrationType string `json:"integration_type"`
		IntegrationName string `json:"integration_name"`
		Currency        string `json:"currency"`
		IsLive          bool   `json:"is_live"`
		IsStandalone    bool   `json:"is_standalone"`
	} `json:"results"`
}

func (c *paymobClientImpl) Integrations(ctx context.Context) ([]paymob.Integration, error) {
	liveness := paymob.IsLive(c.privateKey)

	query := url.Values{}
	query.Set("is_plugin", "true")
	query.Set("is_next", "true")
	query.Set("page_size", "500")
	query.Set("is_deprecated", "false")
	query.Set("is_standalone", "false")

	status, body, err := c.do(ctx, http.MethodGet, endpointIntegrations, nil, query, "")
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}

	var res integrationsResponse
	if err := json.Unmarshal(body, &res); err != nil || len(res.Results) == 0 {
		return nil, &APIError{Status: status, Message: "no integrations in response"}
	}

	var out []paymob.Integration
	for _, in := range res.Results {
		if in.ID == 0 || in.IsStandalone {
			continue
		}
		if in.IntegrationType != "online" && in.IntegrationType != "online_new" {
			continue
		}
		// With an undetermined key mode every integration is listed.
		if liveness == paymob.LivenessLive && !in.IsLive {
			continue
		}
		if liveness == paymob.LivenessTest && in.IsLive {
			continue
		}

		typ := in.GatewayType
		switch typ {
		case "VPC":
			typ = "Card"
		case "CAGG":
			typ = "Aman"
		case "UIG":
			typ = "Wallet"
		}

		out = append(out, paymob.Integration{
			ID:       in.ID,
			Name:     in.IntegrationName,
			Type:     strings.ToLower(typ),
			Currency: in.Currency,
		})
	}
	return out, nil
}

func (c *paymobClientImpl) CheckoutURL(clientSecret string) string {
	params := url.Values{}
	params.Set("publicKey", c.publicKey)
	params.Set("clientSecret", strings.TrimSpace(clientSecret))
	return c.baseURL + endpointUnifiedCheckout + "?" + params.Encode()
}
