package paymob

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// The processor signs callbacks with HMAC-SHA512 over a concatenation
// of transaction fields in a fixed (alphabetical) order. Booleans must
// be rendered as the literal strings "true"/"false" before hashing;
// numeric fields use their plain decimal form.

// BoolString renders a boolean the way the signature protocol expects.
func BoolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ComputeHMAC returns the lowercase hex HMAC-SHA512 of payload.
func ComputeHMAC(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// equalDigest compares digests in constant time.
func equalDigest(computed, supplied string) bool {
	return hmac.Equal([]byte(computed), []byte(strings.ToLower(supplied)))
}

// TransactionDigestFields carries the twenty signed fields of a
// transaction report in canonical textual form. The struct field order
// is the concatenation order; reordering it changes every digest.
type TransactionDigestFields struct {
	AmountCents          string
	CreatedAt            string
	Currency             string
	ErrorOccured         string
	HasParentTransaction string
	ID                   string
	IntegrationID        string
	Is3DSecure           string
	IsAuth               string
	IsCapture            string
	IsRefunded           string
	IsStandalonePayment  string
	IsVoided             string
	Order                string
	Owner                string
	Pending              string
	SourceDataPan        string
	SourceDataSubType    string
	SourceDataType       string
	Success              string
}

func (f TransactionDigestFields) concat() string {
	var b strings.Builder
	for _, s := range []string{
		f.AmountCents,
		f.CreatedAt,
		f.Currency,
		f.ErrorOccured,
		f.HasParentTransaction,
		f.ID,
		f.IntegrationID,
		f.Is3DSecure,
		f.IsAuth,
		f.IsCapture,
		f.IsRefunded,
		f.IsStandalonePayment,
		f.IsVoided,
		f.Order,
		f.Owner,
		f.Pending,
		f.SourceDataPan,
		f.SourceDataSubType,
		f.SourceDataType,
		f.Success,
	} {
		b.WriteString(s)
	}
	return b.String()
}

// TransactionDigest computes the signature payload digest for a
// transaction report.
func TransactionDigest(secret string, f TransactionDigestFields) string {
	return ComputeHMAC(secret, f.concat())
}

// VerifyTransactionHMAC checks a transaction report signature against
// the hmac supplied with the request.
func VerifyTransactionHMAC(secret string, f TransactionDigestFields, supplied string) bool {
	if supplied == "" {
		return false
	}
	return equalDigest(TransactionDigest(secret, f), supplied)
}

// DigestFieldsFromQuery builds the signed field set from redirect query
// parameters. Values are taken verbatim: on the redirect the processor
// already sends booleans as "true"/"false" strings.
func DigestFieldsFromQuery(q url.Values) TransactionDigestFields {
	get := func(names ...string) string {
		for _, n := range names {
			if v := q.Get(n); v != "" {
				return v
			}
		}
		return ""
	}
	return TransactionDigestFields{
		AmountCents:          get("amount_cents"),
		CreatedAt:            get("created_at"),
		Currency:             get("currency"),
		ErrorOccured:         get("error_occured"),
		HasParentTransaction: get("has_parent_transaction"),
		ID:                   get("id"),
		IntegrationID:        get("integration_id"),
		Is3DSecure:           get("is_3d_secure"),
		IsAuth:               get("is_auth"),
		IsCapture:            get("is_capture"),
		IsRefunded:           get("is_refunded"),
		IsStandalonePayment:  get("is_standalone_payment"),
		IsVoided:             get("is_voided"),
		Order:                get("order"),
		Owner:                get("owner"),
		Pending:              get("pending"),
		SourceDataPan:        get("source_data_pan", "source_data.pan"),
		SourceDataSubType:    get("source_data_sub_type", "source_data.sub_type"),
		SourceDataType:       get("source_data_type", "source_data.type"),
		Success:              get("success"),
	}
}

// IntentionDigestPayload renders the coarse intention-level signature
// payload: the amount in major units with exactly two decimal digits,
// followed by the intention id. 2050 cents -> "20.50", 2000 -> "20.00".
func IntentionDigestPayload(amountMinor, minorUnits int64, intentionID string) string {
	amount := decimal.NewFromInt(amountMinor).Div(decimal.NewFromInt(minorUnits))
	return amount.StringFixed(2) + intentionID
}

// VerifyIntentionHMAC checks the intention-level signature of the
// legacy webhook ("flash") protocol. Structural checks (intention id
// and amount against the stored order) are the caller's responsibility
// and must pass before this is consulted.
func VerifyIntentionHMAC(secret string, amountMinor, minorUnits int64, intentionID, supplied string) bool {
	if supplied == "" {
		return false
	}
	computed := ComputeHMAC(secret, IntentionDigestPayload(amountMinor, minorUnits, intentionID))
	return equalDigest(computed, supplied)
}

// TokenDigestFields carries the signed fields of a legacy TOKEN
// webhook, in concatenation order.
type TokenDigestFields struct {
	CardSubtype string
	CreatedAt   string
	Email       string
	ID          string
	MaskedPan   string
	MerchantID  string
	OrderID     string
	Token       string
}

// VerifyTokenHMAC checks a legacy card-token webhook signature.
func VerifyTokenHMAC(secret string, f TokenDigestFields, supplied string) bool {
	if supplied == "" {
		return false
	}
	payload := f.CardSubtype + f.CreatedAt + f.Email + f.ID + f.MaskedPan +
		f.MerchantID + f.OrderID + f.Token
	return equalDigest(ComputeHMAC(secret, payload), supplied)
}

// DeliveryDigestFields carries the signed fields of a legacy
// DELIVERY_STATUS webhook, in concatenation order.
type DeliveryDigestFields struct {
	CreatedAt        string
	ExtraDescription string
	GpsLat           string
	GpsLong          string
	ID               string
	Merchant         string
	Order            string
	Status           string
}

// VerifyDeliveryHMAC checks a legacy delivery-status webhook signature.
func VerifyDeliveryHMAC(secret string, f DeliveryDigestFields, supplied string) bool {
	if supplied == "" {
		return false
	}
	payload := f.CreatedAt + f.ExtraDescription + f.GpsLat + f.GpsLong +
		f.ID + f.Merchant + f.Order + f.Status
	return equalDigest(ComputeHMAC(secret, payload), supplied)
}
