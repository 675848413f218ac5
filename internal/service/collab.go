package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paymob-integration/internal/model"
	"paymob-integration/internal/repository"
)

// Collaborator seams for everything the host application owns. The
// reconciliation core never renders UI, sends mail or prices items
// itself; it calls through these interfaces.

// PayableResolver prices the thing being purchased. The resolved amount
// is captured onto the order once, at creation; later price changes
// never touch existing orders.
type PayableResolver interface {
	Resolve(ctx context.Context, component, paymentArea string, itemID int64) (*Payable, error)
}

type Payable struct {
	Amount    decimal.Decimal
	Currency  string
	AccountID uint
	Name      string
}

// Deliverer hands the purchased item to the user after a completed
// payment (course enrolment, wallet topup, whatever the component is).
type Deliverer interface {
	Deliver(ctx context.Context, component, paymentArea string, itemID int64, paymentID uint, userID int64) error
}

// Notifier informs the user about an order status change. Decline
// reasons from the processor pass through verbatim; verification
// failures never reach this interface.
type Notifier interface {
	Notify(ctx context.Context, order *model.Order, status, message string)
}

// SuccessURLResolver picks the page the user lands on after returning
// from the hosted checkout.
type SuccessURLResolver interface {
	SuccessURL(component, paymentArea string, itemID int64) string
}

// Logging fallbacks for collaborators the deployment does not wire.

type logDeliverer struct {
	logger zerolog.Logger
}

func NewLogDeliverer(logger zerolog.Logger) Deliverer {
	return &logDeliverer{logger: logger}
}

func (d *logDeliverer) Deliver(ctx context.Context, component, paymentArea string, itemID int64, paymentID uint, userID int64) error {
	d.logger.Info().
		Str("component", component).
		Str("paymentarea", paymentArea).
		Int64("item_id", itemID).
		Uint("payment_id", paymentID).
		Int64("user_id", userID).
		Msg("order delivered")
	return nil
}

type logNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(ctx context.Context, order *model.Order, status, message string) {
	n.logger.Info().
		Uint("order_id", order.ID).
		Str("status", status).
		Str("message", message).
		Msg("user notified")
}

type staticSuccessURL struct {
	url string
}

func NewStaticSuccessURL(url string) SuccessURLResolver {
	return &staticSuccessURL{url: url}
}

// dbPayableResolver prices orders from the payable_items table.
type dbPayableResolver struct {
	payables repository.PayableRepository
}

func NewDBPayableResolver(payables repository.PayableRepository) PayableResolver {
	return &dbPayableResolver{payables: payables}
}

func (r *dbPayableResolver) Resolve(ctx context.Context, component, paymentArea string, itemID int64) (*Payable, error) {
	item, err := r.payables.Find(ctx, component, paymentArea, itemID)
	if err != nil {
		return nil, err
	}
	return &Payable{
		Amount:    item.Cost,
		Currency:  item.Currency,
		AccountID: item.AccountID,
		Name:      item.Name,
	}, nil
}

func (s *staticSuccessURL) SuccessURL(component, paymentArea string, itemID int64) string {
	if s.url == "" {
		return "/"
	}
	return s.url
}
