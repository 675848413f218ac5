package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"paymob-integration/internal/model"
	"paymob-integration/internal/paymob"
	"paymob-integration/internal/repository"
)

// ErrVerificationFailed is the only thing the outside world learns
// about a trust failure. The reason (bad signature, wrong key, payload
// mismatch) stays in the logs and never in a response.
var ErrVerificationFailed = errors.New("verification failed")

// CallbackService is the entry point for everything the processor
// sends back: server-to-server webhooks (POST) and the user's browser
// returning from the hosted page (GET). The webhook is authoritative
// for state; the redirect is advisory only.
type CallbackService struct {
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	orders      *OrderService
	notifier    Notifier
	successURL  SuccessURLResolver
	logger      zerolog.Logger
}

func NewCallbackService(
	orderRepo repository.OrderRepository,
	accountRepo repository.AccountRepository,
	orders *OrderService,
	notifier Notifier,
	successURL SuccessURLResolver,
	logger zerolog.Logger,
) *CallbackService {
	return &CallbackService{
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		orders:      orders,
		notifier:    notifier,
		successURL:  successURL,
		logger:      logger,
	}
}

// HandleWebhook processes one POST callback body and returns the
// plain-text acknowledgment. suppliedHMAC is the hmac request
// parameter; the modern protocol sends it outside the body.
func (s *CallbackService) HandleWebhook(ctx context.Context, body []byte, suppliedHMAC string) (string, error) {
	var env model.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("malformed webhook body: %w", err)
	}

	switch {
	case env.Type == "TRANSACTION" && suppliedHMAC != "" && env.Obj != nil:
		return s.acceptWebhook(ctx, env.Obj, suppliedHMAC)
	case env.Type == "TOKEN" || env.Type == "DELIVERY_STATUS":
		return s.auxiliaryWebhook(ctx, env.Type, body, suppliedHMAC)
	default:
		return s.flashWebhook(ctx, body)
	}
}

// locateOrder finds the order a transaction report belongs to, by the
// processor order id or by the special reference embedding the local id.
func (s *CallbackService) locateOrder(ctx context.Context, txn *model.Transaction) (*model.Order, error) {
	pmOrderID := txn.Order.ID
	if pmOrderID == 0 {
		pmOrderID = txn.OrderID
	}
	if pmOrderID != 0 {
		order, err := s.orderRepo.FindByPmOrderID(ctx, strconv.FormatInt(pmOrderID, 10))
		if err == nil {
			return order, nil
		}
	}

	localID, ok := model.ExtractLocalOrderID(txn.Order.MerchantOrderID)
	if !ok {
		return nil, fmt.Errorf("no order reference in transaction %d", txn.ID)
	}
	return s.orderRepo.FindByID(ctx, localID)
}

// acceptWebhook handles the modern transaction webhook. Server to
// server: no redirects, no HTML, only a terse acknowledgment.
func (s *CallbackService) acceptWebhook(ctx context.Context, txn *model.Transaction, suppliedHMAC string) (string, error) {
	order, err := s.locateOrder(ctx, txn)
	if err != nil {
		return "", fmt.Errorf("locate order: %w", err)
	}

	account, err := s.accountRepo.Get(ctx, order.AccountID)
	if err != nil {
		return "", fmt.Errorf("load gateway account: %w", err)
	}

	// The account's configuration decides the protocol; a transaction
	// webhook for a legacy account is not something to verify harder.
	if account.Legacy {
		s.logger.Warn().Uint("order_id", order.ID).Msg("transaction webhook for legacy account")
		return "", ErrVerificationFailed
	}

	if !paymob.VerifyTransactionHMAC(account.HMACSecret, txn.DigestFields(), suppliedHMAC) {
		s.logger.Warn().Uint("order_id", order.ID).Int64("transaction_id", txn.ID).Msg("webhook signature rejected")
		return "", ErrVerificationFailed
	}

	status := paymob.ResolveStatus(txn.Flags())
	return s.applyTransaction(ctx, order, txn, status)
}

// flashWebhook handles the legacy intention webhook: two structural
// checks and the coarse intention-level signature gate the embedded
// transaction, whose flags then drive the transition.
func (s *CallbackService) flashWebhook(ctx context.Context, body []byte) (string, error) {
	var payload model.IntentionWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed intention webhook: %w", err)
	}

	localID := payload.Intention.Extras.CreationExtras.LocalOrderID
	if localID <= 0 {
		return "", errors.New("intention webhook carries no local order id")
	}
	order, err := s.orderRepo.FindByID(ctx, uint(localID))
	if err != nil {
		return "", fmt.Errorf("locate order %d: %w", localID, err)
	}

	account, err := s.accountRepo.Get(ctx, order.AccountID)
	if err != nil {
		return "", fmt.Errorf("load gateway account: %w", err)
	}
	if !account.Legacy {
		s.logger.Warn().Uint("order_id", order.ID).Msg("intention webhook for modern account")
		return "", ErrVerificationFailed
	}

	// Payload/order mismatch and price tampering checks come before any
	// cryptographic work.
	if payload.Intention.ID != order.PmOrderID {
		s.logger.Warn().Uint("order_id", order.ID).Msg("intention id mismatch")
		return "", ErrVerificationFailed
	}
	if payload.Intention.IntentionDetail.Amount != order.AmountCents {
		s.logger.Warn().Uint("order_id", order.ID).Msg("intention amount mismatch")
		return "", ErrVerificationFailed
	}

	minor := paymob.MinorUnits(accountCountry(account))
	if !paymob.VerifyIntentionHMAC(account.HMACSecret, order.AmountCents, minor, payload.Intention.ID, payload.HMAC) {
		s.logger.Warn().Uint("order_id", order.ID).Msg("intention signature rejected")
		return "", ErrVerificationFailed
	}

	if payload.Transaction == nil {
		return "", errors.New("intention webhook carries no transaction")
	}

	status := paymob.ResolveStatus(payload.Transaction.Flags())
	return s.applyTransaction(ctx, order, payload.Transaction, status)
}

// applyTransaction runs the shared post-verification sequence: strict
// transition guard, audit note, transition, notification.
func (s *CallbackService) applyTransaction(ctx context.Context, order *model.Order, txn *model.Transaction, status string) (string, error) {
	if _, err := model.VerifyOrderChangeable(order.Status, status, true); err != nil {
		s.logger.Warn().Uint("order_id", order.ID).Str("from", order.Status).Str("to", status).Msg("transition refused, likely replay")
		return "", err
	}

	if err := s.orders.AddNoteFromTransaction(ctx, order, txn); err != nil {
		return "", fmt.Errorf("append order note: %w", err)
	}

	if status == paymob.TxnSuccess {
		if err := s.orders.PaymentComplete(ctx, order); err != nil {
			return "", err
		}
	} else {
		if err := s.orders.UpdateStatus(ctx, order, status); err != nil {
			return "", err
		}
		s.notifier.Notify(ctx, order, status, txn.NoteExtra())
	}

	s.logger.Info().Uint("order_id", order.ID).Str("status", status).Msg("order status applied")
	return fmt.Sprintf("Order updated: %d", order.ID), nil
}

// auxiliaryWebhook verifies legacy TOKEN and DELIVERY_STATUS webhooks.
// They carry no order state transition; the signature is still checked
// so a forged payload is reported, and the event acknowledged.
func (s *CallbackService) auxiliaryWebhook(ctx context.Context, kind string, body []byte, suppliedHMAC string) (string, error) {
	var payload struct {
		Obj struct {
			// TOKEN fields.
			CardSubtype string      `json:"card_subtype"`
			Email       string      `json:"email"`
			MaskedPan   string      `json:"masked_pan"`
			MerchantID  json.Number `json:"merchant_id"`
			OrderID     json.Number `json:"order_id"`
			Token       string      `json:"token"`
			// DELIVERY_STATUS fields.
			ExtraDescription string      `json:"extra_description"`
			GpsLat           string      `json:"gps_lat"`
			GpsLong          string      `json:"gps_long"`
			Merchant         json.Number `json:"merchant"`
			Status           string      `json:"status"`
			Order            struct {
				ID json.Number `json:"id"`
			} `json:"order"`
			// Shared.
			ID        json.Number `json:"id"`
			CreatedAt string      `json:"created_at"`
		} `json:"obj"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed %s webhook: %w", kind, err)
	}

	pmOrderID := payload.Obj.OrderID.String()
	if kind == "DELIVERY_STATUS" {
		pmOrderID = payload.Obj.Order.ID.String()
	}
	order, err := s.orderRepo.FindByPmOrderID(ctx, pmOrderID)
	if err != nil {
		return "", fmt.Errorf("locate order for %s webhook: %w", kind, err)
	}
	account, err := s.accountRepo.Get(ctx, order.AccountID)
	if err != nil {
		return "", fmt.Errorf("load gateway account: %w", err)
	}

	verified := false
	if kind == "TOKEN" {
		verified = paymob.VerifyTokenHMAC(account.HMACSecret, paymob.TokenDigestFields{
			CardSubtype: payload.Obj.CardSubtype,
			CreatedAt:   payload.Obj.CreatedAt,
			Email:       payload.Obj.Email,
			ID:          payload.Obj.ID.String(),
			MaskedPan:   payload.Obj.MaskedPan,
			MerchantID:  payload.Obj.MerchantID.String(),
			OrderID:     payload.Obj.OrderID.String(),
			Token:       payload.Obj.Token,
		}, suppliedHMAC)
	} else {
		verified = paymob.VerifyDeliveryHMAC(account.HMACSecret, paymob.DeliveryDigestFields{
			CreatedAt:        payload.Obj.CreatedAt,
			ExtraDescription: payload.Obj.ExtraDescription,
			GpsLat:           payload.Obj.GpsLat,
			GpsLong:          payload.Obj.GpsLong,
			ID:               payload.Obj.ID.String(),
			Merchant:         payload.Obj.Merchant.String(),
			Order:            payload.Obj.Order.ID.String(),
			Status:           payload.Obj.Status,
		}, suppliedHMAC)
	}
	if !verified {
		s.logger.Warn().Uint("order_id", order.ID).Str("kind", kind).Msg("webhook signature rejected")
		return "", ErrVerificationFailed
	}

	s.logger.Info().Uint("order_id", order.ID).Str("kind", kind).Msg("auxiliary webhook acknowledged")
	return fmt.Sprintf("Acknowledged: %d", order.ID), nil
}

// ReturnResult tells the handler where to send the user's browser and
// what to flash there.
type ReturnResult struct {
	RedirectURL string
	Message     string
	Level       string // success, info, error
}

// HandleReturn processes the GET redirect from the hosted page. It
// never owns the authoritative state change: the webhook does. A
// failure here only affects what the user sees.
func (s *CallbackService) HandleReturn(ctx context.Context, query url.Values) *ReturnResult {
	failed := &ReturnResult{RedirectURL: "/", Message: "payment verification failed", Level: "error"}

	var order *model.Order
	if localID, ok := model.ExtractLocalOrderID(query.Get("merchant_order_id")); ok {
		if o, err := s.orderRepo.FindByID(ctx, localID); err == nil {
			order = o
		}
	}
	if order == nil && query.Get("order") != "" {
		if o, err := s.orderRepo.FindByPmOrderID(ctx, query.Get("order")); err == nil {
			order = o
		}
	}
	if order == nil {
		return failed
	}

	account, err := s.accountRepo.Get(ctx, order.AccountID)
	if err != nil {
		return failed
	}

	fields := paymob.DigestFieldsFromQuery(query)
	if !paymob.VerifyTransactionHMAC(account.HMACSecret, fields, query.Get("hmac")) {
		s.logger.Warn().Uint("order_id", order.ID).Msg("redirect signature rejected")
		return failed
	}

	status := paymob.ResolveStatus(flagsFromQuery(query))
	changeable, _ := model.VerifyOrderChangeable(order.Status, status, false)

	gatewayMsg := query.Get("data_message")
	redirectURL := s.successURL.SuccessURL(order.Component, order.PaymentArea, order.ItemID)

	result := &ReturnResult{RedirectURL: redirectURL}
	switch {
	case status == paymob.TxnSuccess && !changeable:
		// The authoritative webhook already landed; do not re-assert.
		result.Message = "payment is still processing"
		result.Level = "success"
		return result
	case status == paymob.TxnSuccess:
		if err := s.orders.UpdateStatus(ctx, order, model.StatusProcessing); err != nil {
			s.logger.Warn().Err(err).Uint("order_id", order.ID).Msg("redirect lost the status race")
		}
		result.Message = "payment received, processing"
		result.Level = "success"
	case status != paymob.TxnFailed:
		if changeable {
			if err := s.orders.UpdateStatus(ctx, order, status); err != nil {
				s.logger.Warn().Err(err).Uint("order_id", order.ID).Msg("redirect lost the status race")
			}
		}
		result.Message = "payment " + status + ": " + gatewayMsg
		result.Level = "info"
	default:
		if changeable {
			if err := s.orders.UpdateStatus(ctx, order, model.StatusFailed); err != nil {
				s.logger.Warn().Err(err).Uint("order_id", order.ID).Msg("redirect lost the status race")
			}
		}
		result.Message = "payment failed: " + gatewayMsg
		result.Level = "error"
	}

	integrationID, _ := strconv.ParseInt(query.Get("integration_id"), 10, 64)
	transactionID, _ := strconv.ParseInt(query.Get("id"), 10, 64)
	if err := s.orders.AddNote(ctx, order, integrationID,
		fields.SourceDataType, fields.SourceDataSubType,
		transactionID, query.Get("order"), gatewayMsg); err != nil {
		s.logger.Error().Err(err).Uint("order_id", order.ID).Msg("append order note failed")
	}

	return result
}

func flagsFromQuery(query url.Values) paymob.TransactionFlags {
	b := func(name string) bool {
		v, err := strconv.ParseBool(query.Get(name))
		return err == nil && v
	}
	return paymob.TransactionFlags{
		Success:      b("success"),
		IsVoided:     b("is_voided"),
		IsRefunded:   b("is_refunded"),
		Pending:      b("pending"),
		IsVoid:       b("is_void"),
		IsRefund:     b("is_refund"),
		ErrorOccured: b("error_occured"),
	}
}
