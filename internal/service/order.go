package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"paymob-integration/internal/model"
	"paymob-integration/internal/paymob"
	"paymob-integration/internal/repository"
)

// orderReuseWindow is the soft idempotence window: an identical pending
// attempt by the same user for the same item is reused instead of
// creating a duplicate.
const orderReuseWindow = 15 * time.Minute

// OrderService owns order lifecycle operations shared by checkout,
// callbacks and admin actions.
type OrderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	deliverer   Deliverer
	notifier    Notifier
	logger      zerolog.Logger
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	deliverer Deliverer,
	notifier Notifier,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		deliverer:   deliverer,
		notifier:    notifier,
		logger:      logger,
	}
}

// accountCountry returns the country whose minor-unit rule applies to
// an account. Legacy accounts always settle in Egypt.
func accountCountry(account *model.GatewayAccount) string {
	if account.Legacy {
		return "egy"
	}
	return paymob.CountryCode(account.PublicKey)
}

// CreateOrReuse returns an order for the given purchasable, reusing the
// most recent one still in status new within the reuse window.
// Concurrent requests inside the window may still race to create
// duplicates; the window is a soft guard, not a uniqueness constraint.
func (s *OrderService) CreateOrReuse(ctx context.Context, component, paymentArea string, itemID, userID int64, account *model.GatewayAccount, payable *Payable) (*model.Order, error) {
	existing, err := s.orderRepo.FindReusable(ctx, component, paymentArea, itemID, userID, time.Now().Add(-orderReuseWindow))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find reusable order: %w", err)
	}

	rawCost := payable.Amount
	cost := rawCost
	if account.DiscountPercent.IsPositive() && rawCost.GreaterThanOrEqual(account.DiscountThreshold) {
		factor := decimal.NewFromInt(100).Sub(account.DiscountPercent).Div(decimal.NewFromInt(100))
		cost = rawCost.Mul(factor).Round(2)
	}

	minor := paymob.MinorUnits(accountCountry(account))
	amountCents := cost.Mul(decimal.NewFromInt(minor)).Round(0).IntPart()

	order := &model.Order{
		IdempotencyKey: uuid.NewString(),
		Component:      component,
		PaymentArea:    paymentArea,
		ItemID:         itemID,
		UserID:         userID,
		AccountID:      account.ID,
		RawCost:        rawCost,
		Cost:           cost,
		Currency:       payable.Currency,
		AmountCents:    amountCents,
		Status:         model.StatusNew,
	}
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// UpdateStatus transitions the order with a compare-and-swap against
// the status it was loaded with, and keeps the in-memory copy in sync.
func (s *OrderService) UpdateStatus(ctx context.Context, order *model.Order, status string) error {
	if err := s.orderRepo.UpdateStatusFrom(ctx, nil, order.ID, order.Status, status); err != nil {
		return err
	}
	order.Status = status
	return nil
}

// PaymentComplete settles a successful order exactly once: writes the
// payment ledger entry, flips the status and links the payment in one
// transaction, then delivers the item and notifies the user. The
// compare-and-swap inside the transaction makes a concurrent duplicate
// webhook lose cleanly.
func (s *OrderService) PaymentComplete(ctx context.Context, order *model.Order) error {
	payment := &model.Payment{
		AccountID:   order.AccountID,
		Component:   order.Component,
		PaymentArea: order.PaymentArea,
		ItemID:      order.ItemID,
		UserID:      order.UserID,
		Amount:      order.Cost,
		Currency:    order.Currency,
		Gateway:     "paymob",
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		if err := s.orderRepo.UpdateStatusFrom(ctx, tx, order.ID, order.Status, model.StatusSuccess); err != nil {
			return err
		}
		return s.orderRepo.SetPaymentID(ctx, tx, order.ID, payment.ID)
	})
	if err != nil {
		return err
	}

	order.Status = model.StatusSuccess
	order.PaymentID = &payment.ID

	if err := s.deliverer.Deliver(ctx, order.Component, order.PaymentArea, order.ItemID, payment.ID, order.UserID); err != nil {
		// The payment is recorded; delivery can be retried out of band.
		s.logger.Error().Err(err).Uint("order_id", order.ID).Msg("order delivery failed")
	}
	s.notifier.Notify(ctx, order, model.StatusSuccess, "")
	return nil
}

// AddNoteFromTransaction appends one immutable audit note built from a
// transaction report. Missing sub-fields become empty strings; a note
// is always recorded.
func (s *OrderService) AddNoteFromTransaction(ctx context.Context, order *model.Order, txn *model.Transaction) error {
	pmOrderID := txn.Order.ID
	if pmOrderID == 0 {
		pmOrderID = txn.OrderID
	}
	return s.AddNote(ctx, order, txn.IntegrationID, txn.SourceData.Type, txn.SourceData.SubType, txn.ID, fmt.Sprintf("%d", pmOrderID), txn.NoteExtra())
}

// AddNote appends one immutable audit note.
func (s *OrderService) AddNote(ctx context.Context, order *model.Order, integrationID int64, typ, subType string, transactionID int64, pmOrderID, extra string) error {
	note := &model.OrderNote{
		OrderID:       order.ID,
		IntegrationID: integrationID,
		Type:          typ,
		SubType:       subType,
		TransactionID: transactionID,
		PaymobOrderID: pmOrderID,
		Extra:         extra,
	}
	return s.orderRepo.AddNote(ctx, nil, note)
}

// ParentTransactionID returns the transaction id of the order's first
// recorded transaction, the one void and refund actions key on.
func (s *OrderService) ParentTransactionID(ctx context.Context, orderID uint) (int64, error) {
	notes, err := s.orderRepo.Notes(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if len(notes) == 0 {
		return 0, nil
	}
	// Notes are newest first; the oldest carries the parent transaction.
	return notes[len(notes)-1].TransactionID, nil
}
