package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockedLegacyClient(t *testing.T) *legacyClientImpl {
	t.Helper()
	impl := NewLegacyClient("legacy-api-key").(*legacyClientImpl)
	httpmock.ActivateNonDefault(impl.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, "https://accept.paymobsolutions.com/api/auth/tokens",
		httpmock.NewStringResponder(201, `{"token": "legacy-tok"}`))
	return impl
}

func TestLegacyRegisterOrder(t *testing.T) {
	c := mockedLegacyClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://accept.paymobsolutions.com/api/ecommerce/orders",
		httpmock.NewStringResponder(201, `{"id": 219517631}`))

	id, err := c.RegisterOrder(context.Background(), 2050, "EGP", []InvoiceItem{{Name: "Course enrolment", Amount: 2050, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(219517631), id)
}

func TestLegacyPaymentKey(t *testing.T) {
	c := mockedLegacyClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://accept.paymobsolutions.com/api/acceptance/payment_keys",
		httpmock.NewStringResponder(201, `{"token": "pay-tok"}`))

	key, err := c.PaymentKey(context.Background(), &PaymentKeyRequest{
		AmountCents:       2050,
		Currency:          "EGP",
		OrderID:           219517631,
		IntegrationID:     4412381,
		LockOrderWhenPaid: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-tok", key.PayToken)
	assert.Equal(t, int64(219517631), key.OrderID)
}

func TestLegacyWalletURL(t *testing.T) {
	c := mockedLegacyClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://accept.paymobsolutions.com/api/acceptance/payments/pay",
		httpmock.NewStringResponder(201, `{
			"redirect_url": "https://wallet.example.com/pay",
			"iframe_redirection_url": "https://wallet.example.com/frame",
			"order": {"id": 219517631},
			"source_data": {"type": "wallet"}
		}`))

	redirect, err := c.WalletURL(context.Background(), "pay-tok", "01012345678")
	require.NoError(t, err)
	assert.Equal(t, "https://wallet.example.com/pay", redirect.RedirectURL)
	assert.Equal(t, "wallet", redirect.Method)
}

func TestLegacyKioskReference(t *testing.T) {
	c := mockedLegacyClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://accept.paymobsolutions.com/api/acceptance/payments/pay",
		httpmock.NewStringResponder(201, `{
			"pending": true,
			"data": {"bill_reference": 74912345},
			"order": {"id": 219517631},
			"source_data": {"type": "aggregator"}
		}`))

	bill, err := c.KioskReference(context.Background(), "pay-tok")
	require.NoError(t, err)
	assert.Equal(t, "74912345", bill.Reference)

	// A non-pending answer means no bill was issued.
	httpmock.RegisterResponder(http.MethodPost, "https://accept.paymobsolutions.com/api/acceptance/payments/pay",
		httpmock.NewStringResponder(201, `{"pending": false}`))
	_, err = c.KioskReference(context.Background(), "pay-tok")
	assert.Error(t, err)
}
