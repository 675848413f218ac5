package model

import (
	"strconv"
	"strings"

	"paymob-integration/internal/paymob"
)

// Wire types for the processor's callback payloads.

type TransactionOrder struct {
	ID              int64  `json:"id"`
	MerchantOrderID string `json:"merchant_order_id"`
}

type SourceData struct {
	Pan     string `json:"pan"`
	Type    string `json:"type"`
	SubType string `json:"sub_type"`
}

// Transaction is the processor's transaction report object, shared by
// the modern webhook body and (flattened) the redirect query string.
type Transaction struct {
	ID                   int64            `json:"id"`
	AmountCents          int64            `json:"amount_cents"`
	CreatedAt            string           `json:"created_at"`
	Currency             string           `json:"currency"`
	ErrorOccured         bool             `json:"error_occured"`
	HasParentTransaction bool             `json:"has_parent_transaction"`
	IntegrationID        int64            `json:"integration_id"`
	Is3DSecure           bool             `json:"is_3d_secure"`
	IsAuth               bool             `json:"is_auth"`
	IsCapture            bool             `json:"is_capture"`
	IsRefunded           bool             `json:"is_refunded"`
	IsStandalonePayment  bool             `json:"is_standalone_payment"`
	IsVoided             bool             `json:"is_voided"`
	IsVoid               bool             `json:"is_void"`
	IsRefund             bool             `json:"is_refund"`
	Pending              bool             `json:"pending"`
	Success              bool             `json:"success"`
	Owner                int64            `json:"owner"`
	Order                TransactionOrder `json:"order"`
	// Some report shapes carry the order id flat instead of nested.
	OrderID     int64      `json:"order_id"`
	SourceData  SourceData `json:"source_data"`
	DataMessage string     `json:"data_message"`
	Message     string     `json:"message"`
}

// Flags extracts the status flag set.
func (t *Transaction) Flags() paymob.TransactionFlags {
	return paymob.TransactionFlags{
		Success:      t.Success,
		IsVoided:     t.IsVoided,
		IsRefunded:   t.IsRefunded,
		Pending:      t.Pending,
		IsVoid:       t.IsVoid,
		IsRefund:     t.IsRefund,
		ErrorOccured: t.ErrorOccured,
	}
}

// DigestFields renders the transaction into the canonical signed field
// set: booleans as "true"/"false", the order flattened to its id.
func (t *Transaction) DigestFields() paymob.TransactionDigestFields {
	return paymob.TransactionDigestFields{
		AmountCents:          strconv.FormatInt(t.AmountCents, 10),
		CreatedAt:            t.CreatedAt,
		Currency:             t.Currency,
		ErrorOccured:         paymob.BoolString(t.ErrorOccured),
		HasParentTransaction: paymob.BoolString(t.HasParentTransaction),
		ID:                   strconv.FormatInt(t.ID, 10),
		IntegrationID:        strconv.FormatInt(t.IntegrationID, 10),
		Is3DSecure:           paymob.BoolString(t.Is3DSecure),
		IsAuth:               paymob.BoolString(t.IsAuth),
		IsCapture:            paymob.BoolString(t.IsCapture),
		IsRefunded:           paymob.BoolString(t.IsRefunded),
		IsStandalonePayment:  paymob.BoolString(t.IsStandalonePayment),
		IsVoided:             paymob.BoolString(t.IsVoided),
		Order:                strconv.FormatInt(t.Order.ID, 10),
		Owner:                strconv.FormatInt(t.Owner, 10),
		Pending:              paymob.BoolString(t.Pending),
		SourceDataPan:        t.SourceData.Pan,
		SourceDataSubType:    t.SourceData.SubType,
		SourceDataType:       t.SourceData.Type,
		Success:              paymob.BoolString(t.Success),
	}
}

// NoteExtra returns the free-text message for the audit note.
func (t *Transaction) NoteExtra() string {
	if t.DataMessage != "" {
		return t.DataMessage
	}
	return t.Message
}

// WebhookEnvelope is the modern POST webhook body.
type WebhookEnvelope struct {
	Type string       `json:"type"` // TRANSACTION, TOKEN, DELIVERY_STATUS
	Obj  *Transaction `json:"obj"`
}

// IntentionWebhook is the legacy ("flash") POST webhook body.
type IntentionWebhook struct {
	Intention   Intention    `json:"intention"`
	Transaction *Transaction `json:"transaction"`
	HMAC        string       `json:"hmac"`
}

type Intention struct {
	ID              string          `json:"id"`
	ClientSecret    string          `json:"client_secret"`
	IntentionDetail IntentionDetail `json:"intention_detail"`
	Extras          IntentionExtras `json:"extras"`
}

type IntentionDetail struct {
	Amount int64 `json:"amount"`
}

type IntentionExtras struct {
	CreationExtras CreationExtras `json:"creation_extras"`
}

// CreationExtras echoes back the extras attached at intention creation.
type CreationExtras struct {
	LocalOrderID int64  `json:"local_order_id"`
	Component    string `json:"component"`
	PaymentArea  string `json:"paymentarea"`
	ItemID       int64  `json:"itemid"`
	UserID       int64  `json:"userid"`
}

// ExtractLocalOrderID recovers the local order id from a merchant order
// reference. A plain number is the id itself; the modern API echoes the
// special reference "{id}_{timestamp}", whose trailing 11 characters
// ("_" plus a unix timestamp) are stripped.
func ExtractLocalOrderID(ref string) (uint, bool) {
	if ref == "" {
		return 0, false
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return uint(id), true
	}
	if len(ref) <= 11 || !strings.Contains(ref, "_") {
		return 0, false
	}
	id, err := strconv.ParseUint(ref[:len(ref)-11], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
