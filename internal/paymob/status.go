package paymob

// TransactionFlags is the boolean flag set the processor attaches to
// every transaction report. Field names mirror the wire format,
// including the processor's spelling of "error_occured".
type TransactionFlags struct {
	Success      bool `json:"success"`
	IsVoided     bool `json:"is_voided"`
	IsRefunded   bool `json:"is_refunded"`
	Pending      bool `json:"pending"`
	IsVoid       bool `json:"is_void"`
	IsRefund     bool `json:"is_refund"`
	ErrorOccured bool `json:"error_occured"`
}

// Canonical statuses resolved from a transaction's flag set.
const (
	TxnSuccess  = "success"
	TxnVoided   = "voided"
	TxnRefunded = "refunded"
	TxnPending  = "pending"
	TxnVoid     = "void"
	TxnRefund   = "refund"
	TxnFailed   = "failed"
)

// ResolveStatus maps a flag set to exactly one canonical status.
// A defined outcome requires success without error and at most one of
// the five secondary flags; anything else resolves to failed. Two
// secondary flags at once is deliberately fail-closed, not an error.
func ResolveStatus(f TransactionFlags) string {
	if !f.Success || f.ErrorOccured {
		return TxnFailed
	}

	set := 0
	for _, b := range []bool{f.IsVoided, f.IsRefunded, f.Pending, f.IsVoid, f.IsRefund} {
		if b {
			set++
		}
	}
	if set > 1 {
		return TxnFailed
	}

	switch {
	case f.IsVoided:
		return TxnVoided
	case f.IsRefunded:
		return TxnRefunded
	case f.Pending:
		return TxnPending
	case f.IsVoid:
		return TxnVoid
	case f.IsRefund:
		return TxnRefund
	}
	return TxnSuccess
}
