package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"paymob-integration/internal/client"
	"paymob-integration/internal/model"
	"paymob-integration/internal/paymob"
	"paymob-integration/internal/repository"
)

// voidWindow is how long after creation a transaction may still be
// voided. The processor batches settlement daily; past the window the
// money has moved and only a refund can reverse it.
const voidWindow = 23 * time.Hour

var (
	ErrNoTransaction  = errors.New("order has no recorded transaction")
	ErrVoidWindow     = errors.New("void window has passed, refund instead")
	ErrRefundExceeded = errors.New("refund amount exceeds order amount")
)

// ClientFactory builds an API client for a gateway account. Injected
// so tests substitute a fake without touching the wire.
type ClientFactory func(account *model.GatewayAccount) (client.PaymobClient, error)

// ActionService carries the merchant-initiated operations: void,
// refund and transaction inquiry.
type ActionService struct {
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	orders      *OrderService
	newClient   ClientFactory
	logger      zerolog.Logger
}

func NewActionService(
	orderRepo repository.OrderRepository,
	accountRepo repository.AccountRepository,
	orders *OrderService,
	newClient ClientFactory,
	logger zerolog.Logger,
) *ActionService {
	return &ActionService{
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		orders:      orders,
		newClient:   newClient,
		logger:      logger,
	}
}

func (s *ActionService) load(ctx context.Context, orderID uint) (*model.Order, *model.GatewayAccount, client.PaymobClient, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	account, err := s.accountRepo.Get(ctx, order.AccountID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load gateway account: %w", err)
	}
	api, err := s.newClient(account)
	if err != nil {
		return nil, nil, nil, err
	}
	return order, account, api, nil
}

// Void cancels an unsettled transaction. Window and transaction checks
// run locally first so an impossible void never reaches the API.
func (s *ActionService) Void(ctx context.Context, orderID uint) error {
	order, _, api, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}

	if time.Since(order.CreatedAt) > voidWindow {
		return ErrVoidWindow
	}

	txnID, err := s.orders.ParentTransactionID(ctx, order.ID)
	if err != nil || txnID == 0 {
		return ErrNoTransaction
	}

	txn, err := api.Void(ctx, txnID)
	if err != nil {
		return fmt.Errorf("void transaction %d: %w", txnID, err)
	}

	status := paymob.ResolveStatus(txn.Flags())
	if status != paymob.TxnVoided && status != paymob.TxnVoid {
		return fmt.Errorf("void not confirmed, transaction reported %s", status)
	}
	return s.applyReport(ctx, order, txn, status)
}

// Refund returns amountCents to the payer; zero means the full order
// amount. The ceiling is enforced locally before any API call.
func (s *ActionService) Refund(ctx context.Context, orderID uint, amountCents int64) error {
	order, _, api, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}

	if amountCents == 0 {
		amountCents = order.AmountCents
	}
	if amountCents > order.AmountCents {
		return ErrRefundExceeded
	}

	txnID, err := s.orders.ParentTransactionID(ctx, order.ID)
	if err != nil || txnID == 0 {
		return ErrNoTransaction
	}

	txn, err := api.Refund(ctx, txnID, amountCents)
	if err != nil {
		return fmt.Errorf("refund transaction %d: %w", txnID, err)
	}

	status := paymob.ResolveStatus(txn.Flags())
	if status != paymob.TxnRefunded && status != paymob.TxnRefund {
		return fmt.Errorf("refund not confirmed, transaction reported %s", status)
	}
	return s.applyReport(ctx, order, txn, status)
}

func (s *ActionService) applyReport(ctx context.Context, order *model.Order, txn *model.Transaction, status string) error {
	if err := s.orders.AddNoteFromTransaction(ctx, order, txn); err != nil {
		return fmt.Errorf("append order note: %w", err)
	}
	if err := s.orders.UpdateStatus(ctx, order, status); err != nil {
		return err
	}
	s.logger.Info().Uint("order_id", order.ID).Str("status", status).Msg("merchant action applied")
	return nil
}

// ListIntegrations fetches the payment integrations configured on the
// processor side for one account, filtered to the usable ones, and
// refreshes the account's stored copy so checkout keeps working from
// current configuration.
func (s *ActionService) ListIntegrations(ctx context.Context, accountID uint) ([]paymob.Integration, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load gateway account: %w", err)
	}
	api, err := s.newClient(account)
	if err != nil {
		return nil, err
	}

	list, err := api.Integrations(ctx)
	if err != nil {
		return nil, err
	}

	account.IntegrationIDs = paymob.IntegrationsToString(list)
	if err := s.accountRepo.Upsert(ctx, account); err != nil {
		s.logger.Error().Err(err).Uint("account_id", accountID).Msg("persist refreshed integrations failed")
	}
	return list, nil
}

// InquirySummary is the flattened inquiry view shown to operators.
type InquirySummary struct {
	TransactionID       int64  `json:"transaction_id"`
	PmOrderID           int64  `json:"pm_order_id"`
	Status              string `json:"status"`
	AmountCents         int64  `json:"amount_cents"`
	PaidAmountCents     int64  `json:"paid_amount_cents"`
	RefundedAmountCents int64  `json:"refunded_amount_cents"`
	Currency            string `json:"currency"`
	ReceiptNo           string `json:"receipt_no"`
	CardNum             string `json:"card_num"`
	Message             string `json:"message"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
	// Timezone of the processor's regional deployment; timestamps
	// above are rendered in it.
	Timezone string `json:"timezone"`
}

// Inquiry fetches the processor-side view of an order. The recorded
// transaction id is preferred; the processor order id is the fallback
// for orders whose webhook never arrived.
func (s *ActionService) Inquiry(ctx context.Context, orderID uint) (*InquirySummary, error) {
	order, account, api, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var res *client.InquiryResult
	if txnID, err := s.orders.ParentTransactionID(ctx, order.ID); err == nil && txnID != 0 {
		res, err = api.InquiryTransaction(ctx, txnID)
		if err != nil {
			return nil, err
		}
	} else if order.PmOrderID != "" {
		res, err = api.InquiryOrder(ctx, order.PmOrderID)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, ErrNoTransaction
	}

	return &InquirySummary{
		TransactionID:       res.ID,
		PmOrderID:           res.Order.ID,
		Status:              paymob.ResolveStatus(res.Flags()),
		AmountCents:         res.AmountCents,
		PaidAmountCents:     res.Order.PaidAmountCents,
		RefundedAmountCents: res.RefundedAmountCents,
		Currency:            res.Order.Currency,
		ReceiptNo:           res.Data.ReceiptNo,
		CardNum:             res.Data.CardNum,
		Message:             res.Data.Message,
		CreatedAt:           res.CreatedAt,
		UpdatedAt:           res.UpdatedAt,
		Timezone:            paymob.Timezone(accountCountry(account)),
	}, nil
}
