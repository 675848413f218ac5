package paymob

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "0123456789abcdef"

func sampleDigestFields() TransactionDigestFields {
	return TransactionDigestFields{
		AmountCents:          "2050",
		CreatedAt:            "2024-05-21T14:31:04.123456",
		Currency:             "EGP",
		ErrorOccured:         "false",
		HasParentTransaction: "false",
		ID:                   "188231472",
		IntegrationID:        "4412381",
		Is3DSecure:           "true",
		IsAuth:               "false",
		IsCapture:            "false",
		IsRefunded:           "false",
		IsStandalonePayment:  "true",
		IsVoided:             "false",
		Order:                "219517631",
		Owner:                "901277",
		Pending:              "false",
		SourceDataPan:        "2346xxxxxxxx0142",
		SourceDataSubType:    "MasterCard",
		SourceDataType:       "card",
		Success:              "true",
	}
}

// Digest computed independently with python's hmac over the documented
// field concatenation.
const sampleDigest = "8ffe43184e630fe8c4b8cc5efa5984b532bd3597421296470450eb38f2ffc499b3478a5665fc42be95840d13d13339d26c0d55b388b8d72eda7db7e4a817a33e"

func TestTransactionDigest(t *testing.T) {
	assert.Equal(t, sampleDigest, TransactionDigest(testSecret, sampleDigestFields()))
}

func TestVerifyTransactionHMAC(t *testing.T) {
	fields := sampleDigestFields()

	assert.True(t, VerifyTransactionHMAC(testSecret, fields, sampleDigest))

	// Case of the supplied digest must not matter.
	upper := "8FFE43184E630FE8C4B8CC5EFA5984B532BD3597421296470450EB38F2FFC499B3478A5665FC42BE95840D13D13339D26C0D55B388B8D72EDA7DB7E4A817A33E"
	assert.True(t, VerifyTransactionHMAC(testSecret, fields, upper))

	// Empty digest never verifies, even against an empty computation.
	assert.False(t, VerifyTransactionHMAC(testSecret, fields, ""))

	// Flipping one signed field invalidates the signature.
	tampered := fields
	tampered.Success = "false"
	assert.False(t, VerifyTransactionHMAC(testSecret, tampered, sampleDigest))
	assert.Equal(t,
		"27ea769de8af343b6b82a8740c07778ec4e27db0a7c53fab79d4d3166cc72fb5eea1aaf65d504f58ee28b7fc0c028ef76d01dc646891f0807084d9248941a735",
		TransactionDigest(testSecret, tampered))

	// Wrong secret.
	assert.False(t, VerifyTransactionHMAC("wrong-secret", fields, sampleDigest))
}

func TestTransactionDigestIsOrderSensitive(t *testing.T) {
	// Swapping the contents of two adjacent fields permutes the
	// concatenation order and must change the digest.
	swapped := sampleDigestFields()
	swapped.CreatedAt, swapped.Currency = swapped.Currency, swapped.CreatedAt
	assert.NotEqual(t, sampleDigest, TransactionDigest(testSecret, swapped))
}

func TestDigestFieldsFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("amount_cents", "2050")
	q.Set("created_at", "2024-05-21T14:31:04.123456")
	q.Set("currency", "EGP")
	q.Set("error_occured", "false")
	q.Set("has_parent_transaction", "false")
	q.Set("id", "188231472")
	q.Set("integration_id", "4412381")
	q.Set("is_3d_secure", "true")
	q.Set("is_auth", "false")
	q.Set("is_capture", "false")
	q.Set("is_refunded", "false")
	q.Set("is_standalone_payment", "true")
	q.Set("is_voided", "false")
	q.Set("order", "219517631")
	q.Set("owner", "901277")
	q.Set("pending", "false")
	q.Set("source_data_pan", "2346xxxxxxxx0142")
	q.Set("source_data_sub_type", "MasterCard")
	q.Set("source_data_type", "card")
	q.Set("success", "true")

	assert.Equal(t, sampleDigestFields(), DigestFieldsFromQuery(q))

	// The processor also sends the source_data fields dotted.
	q.Del("source_data_pan")
	q.Del("source_data_sub_type")
	q.Del("source_data_type")
	q.Set("source_data.pan", "2346xxxxxxxx0142")
	q.Set("source_data.sub_type", "MasterCard")
	q.Set("source_data.type", "card")

	assert.Equal(t, sampleDigestFields(), DigestFieldsFromQuery(q))
}

func TestIntentionDigestPayload(t *testing.T) {
	// Always exactly two decimal digits, whatever the amount.
	assert.Equal(t, "20.50pi_test_7f3b2a", IntentionDigestPayload(2050, 100, "pi_test_7f3b2a"))
	assert.Equal(t, "20.00pi_test_7f3b2a", IntentionDigestPayload(2000, 100, "pi_test_7f3b2a"))
	// Oman uses thousandths as the minor unit.
	assert.Equal(t, "20.50pi_test_7f3b2a", IntentionDigestPayload(20500, 1000, "pi_test_7f3b2a"))
}

func TestVerifyIntentionHMAC(t *testing.T) {
	digest := "8bae1196366f932d2d7a26758bf2333920bd6bdfd0e39f6898a1dbe623f55509d021c6c110e2e744a3e68bff866cbd7f7d97e5fe247baf0beab13e9c16f58453"

	assert.True(t, VerifyIntentionHMAC(testSecret, 2050, 100, "pi_test_7f3b2a", digest))
	assert.True(t, VerifyIntentionHMAC(testSecret, 20500, 1000, "pi_test_7f3b2a", digest))
	assert.False(t, VerifyIntentionHMAC(testSecret, 2000, 100, "pi_test_7f3b2a", digest))
	assert.False(t, VerifyIntentionHMAC(testSecret, 2050, 100, "pi_test_other", digest))
	assert.False(t, VerifyIntentionHMAC(testSecret, 2050, 100, "pi_test_7f3b2a", ""))
}

func TestVerifyTokenHMAC(t *testing.T) {
	fields := TokenDigestFields{
		CardSubtype: "MasterCard",
		CreatedAt:   "2024-05-21T14:31:04",
		Email:       "payer@example.com",
		ID:          "5517",
		MaskedPan:   "2346xxxxxxxx0142",
		MerchantID:  "81362",
		OrderID:     "219517631",
		Token:       "f4a62b081acf4e39a2d1e5a9f7b8c0d3",
	}
	digest := "3d5acfc6ed9d166c2159819b5aeb3b29b1af54ec5b870479c0d04bcd018a8fbd0d0ff7019f1558711f9ddb0d171e50826bbe8e456dd87ad07c3cf8b5692bf0c0"

	assert.True(t, VerifyTokenHMAC(testSecret, fields, digest))

	fields.Token = "other"
	assert.False(t, VerifyTokenHMAC(testSecret, fields, digest))
}

func TestVerifyDeliveryHMAC(t *testing.T) {
	fields := DeliveryDigestFields{
		CreatedAt:        "2024-05-21T14:31:04",
		ExtraDescription: "left at reception",
		GpsLat:           "30.0444",
		GpsLong:          "31.2357",
		ID:               "3321",
		Merchant:         "81362",
		Order:            "219517631",
		Status:           "Delivered",
	}
	digest := "9bbff048dc1e623e0c1043cb1b86bb26983700df061b36f76d6933d4224fc7b913a832f8aace4e74faccd85ff1ce68b08ca29fcfdc8b9770e66985fe10e70571"

	assert.True(t, VerifyDeliveryHMAC(testSecret, fields, digest))

	fields.Status = "Returned"
	assert.False(t, VerifyDeliveryHMAC(testSecret, fields, digest))
}

func TestBoolString(t *testing.T) {
	assert.Equal(t, "true", BoolString(true))
	assert.Equal(t, "false", BoolString(false))
}
