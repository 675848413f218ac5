package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"paymob-integration/internal/client"
	"paymob-integration/internal/model"
	"paymob-integration/internal/paymob"
	"paymob-integration/internal/repository"
)

// Shared test fixtures: an in-memory database with the real
// repositories, recording collaborators and a programmable API client.

const testSecret = "0123456789abcdef"

type testEnv struct {
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	paymentRepo repository.PaymentRepository
	payableRepo repository.PayableRepository

	deliverer *recordingDeliverer
	notifier  *recordingNotifier

	orders   *OrderService
	callback *CallbackService
	actions  *ActionService
	checkout *CheckoutService

	api *fakeClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := client.InitDB("sqlite", dsn)
	require.NoError(t, err)

	env := &testEnv{
		orderRepo:   repository.NewOrderRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		payableRepo: repository.NewPayableRepository(db),
		deliverer:   &recordingDeliverer{},
		notifier:    &recordingNotifier{},
		api:         &fakeClient{},
	}

	logger := zerolog.Nop()
	factory := func(account *model.GatewayAccount) (client.PaymobClient, error) {
		return env.api, nil
	}

	env.orders = NewOrderService(db, env.orderRepo, env.paymentRepo, env.deliverer, env.notifier, logger)
	env.callback = NewCallbackService(env.orderRepo, env.accountRepo, env.orders, env.notifier, NewStaticSuccessURL("/receipt"), logger)
	env.actions = NewActionService(env.orderRepo, env.accountRepo, env.orders, factory, logger)
	env.checkout = NewCheckoutService(env.accountRepo, NewDBPayableResolver(env.payableRepo), env.orders, factory,
		func(apiKey string) client.LegacyClient { t.Fatal("legacy client not expected"); return nil },
		"https://merchant.example.com", logger)
	return env
}

func (e *testEnv) seedAccount(t *testing.T, legacy bool) *model.GatewayAccount {
	t.Helper()
	account := &model.GatewayAccount{
		Name:           "main",
		APIKey:         "legacy-api-key",
		PublicKey:      "egy_pk_test_abcdefghij",
		PrivateKey:     "egy_sk_test_abcdefghij",
		HMACSecret:     testSecret,
		Legacy:         legacy,
		IntegrationIDs: "4412381:Online Card(Card):(EGP)",
	}
	require.NoError(t, e.accountRepo.Upsert(context.Background(), account))
	return account
}

func (e *testEnv) seedOrder(t *testing.T, account *model.GatewayAccount, status, pmOrderID string) *model.Order {
	t.Helper()
	order := &model.Order{
		IdempotencyKey: "test-" + t.Name(),
		Component:      "enrol_fee",
		PaymentArea:    "fee",
		ItemID:         7,
		UserID:         1009,
		AccountID:      account.ID,
		RawCost:        decimal.NewFromFloat(20.50),
		Cost:           decimal.NewFromFloat(20.50),
		Currency:       "EGP",
		AmountCents:    2050,
		Status:         status,
		PmOrderID:      pmOrderID,
	}
	require.NoError(t, e.orderRepo.Create(context.Background(), nil, order))
	return order
}

type recordingDeliverer struct {
	mu    sync.Mutex
	calls int
}

func (d *recordingDeliverer) Deliver(ctx context.Context, component, paymentArea string, itemID int64, paymentID uint, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (n *recordingNotifier) Notify(ctx context.Context, order *model.Order, status, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

// fakeClient is a programmable PaymobClient. Unset hooks fail the call.
type fakeClient struct {
	voidCalls   int
	refundCalls int

	onVoid      func(transactionID int64) (*model.Transaction, error)
	onRefund    func(transactionID, amountCents int64) (*model.Transaction, error)
	onIntention func(req *client.IntentionRequest) (*client.IntentionResponse, error)
	onInquiry   func(transactionID int64) (*client.InquiryResult, error)
}

func (f *fakeClient) AuthToken(ctx context.Context) (string, error) { return "token", nil }

func (f *fakeClient) CreateIntention(ctx context.Context, req *client.IntentionRequest) (*client.IntentionResponse, error) {
	if f.onIntention == nil {
		return nil, fmt.Errorf("unexpected CreateIntention")
	}
	return f.onIntention(req)
}

func (f *fakeClient) Refund(ctx context.Context, transactionID, amountCents int64) (*model.Transaction, error) {
	f.refundCalls++
	if f.onRefund == nil {
		return nil, fmt.Errorf("unexpected Refund")
	}
	return f.onRefund(transactionID, amountCents)
}

func (f *fakeClient) Void(ctx context.Context, transactionID int64) (*model.Transaction, error) {
	f.voidCalls++
	if f.onVoid == nil {
		return nil, fmt.Errorf("unexpected Void")
	}
	return f.onVoid(transactionID)
}

func (f *fakeClient) InquiryTransaction(ctx context.Context, transactionID int64) (*client.InquiryResult, error) {
	if f.onInquiry == nil {
		return nil, fmt.Errorf("unexpected InquiryTransaction")
	}
	return f.onInquiry(transactionID)
}

func (f *fakeClient) InquiryOrder(ctx context.Context, pmOrderID string) (*client.InquiryResult, error) {
	return nil, fmt.Errorf("unexpected InquiryOrder")
}

func (f *fakeClient) Integrations(ctx context.Context) ([]paymob.Integration, error) {
	return []paymob.Integration{{ID: 4412381, Name: "Online Card", Type: "card", Currency: "EGP"}}, nil
}

func (f *fakeClient) CheckoutURL(clientSecret string) string {
	return "https://accept.paymob.com/unifiedcheckout/?clientSecret=" + clientSecret
}
