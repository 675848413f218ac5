package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paymob-integration/internal/paymob"
)

const sampleWebhookBody = `{
  "type": "TRANSACTION",
  "obj": {
    "id": 188231472,
    "amount_cents": 2050,
    "created_at": "2024-05-21T14:31:04.123456",
    "currency": "EGP",
    "error_occured": false,
    "has_parent_transaction": false,
    "integration_id": 4412381,
    "is_3d_secure": true,
    "is_auth": false,
    "is_capture": false,
    "is_refunded": false,
    "is_standalone_payment": true,
    "is_voided": false,
    "pending": false,
    "success": true,
    "owner": 901277,
    "order": {"id": 219517631, "merchant_order_id": "42_1716300664"},
    "source_data": {"pan": "2346xxxxxxxx0142", "type": "card", "sub_type": "MasterCard"},
    "data_message": "Approved"
  }
}`

func TestWebhookEnvelopeDecode(t *testing.T) {
	var env WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(sampleWebhookBody), &env))
	require.NotNil(t, env.Obj)

	assert.Equal(t, "TRANSACTION", env.Type)
	assert.Equal(t, int64(188231472), env.Obj.ID)
	assert.Equal(t, int64(219517631), env.Obj.Order.ID)
	assert.Equal(t, "42_1716300664", env.Obj.Order.MerchantOrderID)
	assert.Equal(t, "Approved", env.Obj.NoteExtra())
	assert.Equal(t, paymob.TxnSuccess, paymob.ResolveStatus(env.Obj.Flags()))
}

func TestTransactionDigestFields(t *testing.T) {
	var env WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(sampleWebhookBody), &env))

	fields := env.Obj.DigestFields()
	assert.Equal(t, "2050", fields.AmountCents)
	assert.Equal(t, "false", fields.ErrorOccured)
	assert.Equal(t, "true", fields.Is3DSecure)
	assert.Equal(t, "219517631", fields.Order)
	assert.Equal(t, "MasterCard", fields.SourceDataSubType)
	assert.Equal(t, "card", fields.SourceDataType)
	assert.Equal(t, "true", fields.Success)
}

func TestIntentionWebhookDecode(t *testing.T) {
	body := `{
      "intention": {
        "id": "pi_test_7f3b2a",
        "client_secret": "csk_test_55aa",
        "intention_detail": {"amount": 2050},
        "extras": {"creation_extras": {"local_order_id": 42, "component": "enrol_fee", "paymentarea": "fee", "itemid": 7, "userid": 1009}}
      },
      "transaction": {"id": 188231472, "success": true, "order": {"id": 219517631}},
      "hmac": "deadbeef"
    }`

	var payload IntentionWebhook
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.NotNil(t, payload.Transaction)

	assert.Equal(t, "pi_test_7f3b2a", payload.Intention.ID)
	assert.Equal(t, int64(2050), payload.Intention.IntentionDetail.Amount)
	assert.Equal(t, int64(42), payload.Intention.Extras.CreationExtras.LocalOrderID)
	assert.Equal(t, "deadbeef", payload.HMAC)
}

func TestNoteExtraFallsBackToMessage(t *testing.T) {
	txn := &Transaction{Message: "declined by issuer"}
	assert.Equal(t, "declined by issuer", txn.NoteExtra())

	txn.DataMessage = "Approved"
	assert.Equal(t, "Approved", txn.NoteExtra())
}
