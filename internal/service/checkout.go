package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paymob-integration/internal/client"
	"paymob-integration/internal/model"
	"paymob-integration/internal/paymob"
	"paymob-integration/internal/repository"
)

var (
	ErrBelowMinimum   = errors.New("amount below account minimum")
	ErrNoIntegration  = errors.New("no enabled integration matches the order currency")
	ErrWalletNumber   = errors.New("wallet payment needs a phone number")
	ErrUnknownPayable = errors.New("nothing payable for this reference")
)

// LegacyClientFactory builds a legacy API client for an account key.
type LegacyClientFactory func(apiKey string) client.LegacyClient

// CheckoutService starts a payment: resolve what is owed, create or
// reuse the local order, register it with the processor and hand back
// whatever the payer needs next (a redirect, a pay token or a kiosk
// bill reference).
type CheckoutService struct {
	accountRepo repository.AccountRepository
	payables    PayableResolver
	orders      *OrderService
	newClient   ClientFactory
	newLegacy   LegacyClientFactory
	baseURL     string
	logger      zerolog.Logger
}

func NewCheckoutService(
	accountRepo repository.AccountRepository,
	payables PayableResolver,
	orders *OrderService,
	newClient ClientFactory,
	newLegacy LegacyClientFactory,
	baseURL string,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		accountRepo: accountRepo,
		payables:    payables,
		orders:      orders,
		newClient:   newClient,
		newLegacy:   newLegacy,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// CheckoutRequest describes one payment attempt.
type CheckoutRequest struct {
	Component   string
	PaymentArea string
	ItemID      int64
	UserID      int64
	AccountID   uint

	// Method is card, wallet or kiosk. Only legacy accounts
	// distinguish; the modern hosted page offers every method itself.
	Method      string
	PhoneNumber string
	Billing     client.BillingData
}

// CheckoutResult is what the payer does next. Exactly one of
// RedirectURL, PayToken and KioskReference is set.
type CheckoutResult struct {
	OrderID     uint
	RedirectURL string
	// PayToken unlocks the legacy card iframe; the front end embeds it.
	PayToken       string
	KioskReference string
}

// Pay runs checkout end to end. Local rejections (minimum amount, no
// matching integration) happen before any API call.
func (s *CheckoutService) Pay(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	payable, err := s.payables.Resolve(ctx, req.Component, req.PaymentArea, req.ItemID)
	if err != nil || payable == nil {
		return nil, ErrUnknownPayable
	}

	accountID := req.AccountID
	if accountID == 0 {
		accountID = payable.AccountID
	}
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load gateway account: %w", err)
	}

	if account.MinimumAllowed.IsPositive() && payable.Amount.LessThan(account.MinimumAllowed) {
		return nil, ErrBelowMinimum
	}

	order, err := s.orders.CreateOrReuse(ctx, req.Component, req.PaymentArea, req.ItemID, req.UserID, account, payable)
	if err != nil {
		return nil, err
	}

	ids := selectIntegrations(account, order.Currency)
	if len(ids) == 0 {
		return nil, ErrNoIntegration
	}

	if account.Legacy {
		return s.payLegacy(ctx, account, order, payable, req, ids)
	}
	return s.payIntention(ctx, account, order, payable, req, ids)
}

// payIntention drives the modern single-call flow: one intention, one
// hosted checkout URL.
func (s *CheckoutService) payIntention(ctx context.Context, account *model.GatewayAccount, order *model.Order, payable *Payable, req *CheckoutRequest, ids []int64) (*CheckoutResult, error) {
	api, err := s.newClient(account)
	if err != nil {
		return nil, err
	}

	intention, err := api.CreateIntention(ctx, &client.IntentionRequest{
		Amount:          order.AmountCents,
		Currency:        order.Currency,
		NotificationURL: s.baseURL + "/api/paymob/callback",
		RedirectionURL:  s.baseURL + "/api/paymob/callback",
		PaymentMethods:  ids,
		BillingData:     req.Billing,
		Items: []client.InvoiceItem{
			{Name: payable.Name, Amount: order.AmountCents, Quantity: 1},
		},
		Extras: model.CreationExtras{
			LocalOrderID: int64(order.ID),
			Component:    order.Component,
			PaymentArea:  order.PaymentArea,
			ItemID:       order.ItemID,
			UserID:       order.UserID,
		},
		SpecialReference: fmt.Sprintf("%d_%d", order.ID, time.Now().Unix()),
	})
	if err != nil {
		return nil, err
	}

	if err := s.registerWithProcessor(ctx, order, intention.ID); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:     order.ID,
		RedirectURL: api.CheckoutURL(intention.ClientSecret),
	}, nil
}

// payLegacy drives the old three-step flow, then branches on method.
func (s *CheckoutService) payLegacy(ctx context.Context, account *model.GatewayAccount, order *model.Order, payable *Payable, req *CheckoutRequest, ids []int64) (*CheckoutResult, error) {
	api := s.newLegacy(account.APIKey)

	items := []client.InvoiceItem{
		{Name: payable.Name, Amount: order.AmountCents, Quantity: 1},
	}
	pmOrderID, err := api.RegisterOrder(ctx, order.AmountCents, order.Currency, items)
	if err != nil {
		return nil, err
	}

	if err := s.registerWithProcessor(ctx, order, strconv.FormatInt(pmOrderID, 10)); err != nil {
		return nil, err
	}

	key, err := api.PaymentKey(ctx, &client.PaymentKeyRequest{
		AmountCents:       order.AmountCents,
		Currency:          order.Currency,
		OrderID:           pmOrderID,
		IntegrationID:     ids[0],
		Billing:           req.Billing,
		LockOrderWhenPaid: true,
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{OrderID: order.ID}
	switch req.Method {
	case "wallet":
		if req.PhoneNumber == "" {
			return nil, ErrWalletNumber
		}
		redirect, err := api.WalletURL(ctx, key.PayToken, req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		result.RedirectURL = redirect.RedirectURL
	case "kiosk":
		bill, err := api.KioskReference(ctx, key.PayToken)
		if err != nil {
			return nil, err
		}
		result.KioskReference = bill.Reference
	default:
		result.PayToken = key.PayToken
	}
	return result, nil
}

// registerWithProcessor records the processor order id and moves the
// order to intended. A reused order already carrying a different id is
// left alone; the id column only ever goes from empty to set.
func (s *CheckoutService) registerWithProcessor(ctx context.Context, order *model.Order, pmOrderID string) error {
	if err := s.orders.orderRepo.SetPmOrderID(ctx, order.ID, pmOrderID); err != nil {
		return fmt.Errorf("record processor order id: %w", err)
	}
	order.PmOrderID = pmOrderID
	if order.Status == model.StatusNew {
		if err := s.orders.UpdateStatus(ctx, order, model.StatusIntended); err != nil {
			return err
		}
	}
	return nil
}

// selectIntegrations picks the integration ids usable for a currency:
// configured, currency matching (or currency-less), and enabled when an
// enabled subset is configured at all.
func selectIntegrations(account *model.GatewayAccount, currency string) []int64 {
	all := paymob.ParseIntegrations(account.IntegrationIDs)
	enabled := map[int64]bool{}
	for _, part := range strings.Split(account.EnabledIntegrationIDs, ",") {
		if v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil && v > 0 {
			enabled[v] = true
		}
	}
	restrict := len(enabled) > 0

	var ids []int64
	for _, in := range all {
		if in.Currency != "" && in.Currency != currency {
			continue
		}
		if restrict && !enabled[in.ID] {
			continue
		}
		ids = append(ids, in.ID)
	}
	return ids
}
