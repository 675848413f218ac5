package model

import "fmt"

// Order lifecycle statuses. new -> intended -> pending/processing/requested
// -> success/voided/refunded/declined/failed. success is not strictly
// terminal: a later void or refund webhook may still move it.
const (
	StatusNew        = "new"
	StatusIntended   = "intended"
	StatusRequested  = "requested"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusOnHold     = "on-hold"
	StatusSuccess    = "success"
	StatusVoided     = "voided"
	StatusRefunded   = "refunded"
	StatusDeclined   = "declined"
	StatusFailed     = "failed"
)

// StateConflictError reports a refused status transition. Under the
// strict guard this signals a replayed webhook or log tampering and the
// whole request must be aborted without mutating the order.
type StateConflictError struct {
	From string
	To   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order status not changeable from %s to %s", e.From, e.To)
}

// changeable statuses may be overwritten by any differing report.
var changeable = map[string]bool{
	StatusPending:    true,
	StatusFailed:     true,
	StatusOnHold:     true,
	StatusIntended:   true,
	StatusProcessing: true,
}

func isVoidOrRefund(status string) bool {
	switch status {
	case "void", StatusVoided, "refund", StatusRefunded:
		return true
	}
	return false
}

// VerifyOrderChangeable decides whether an order in status current may
// accept a report of status incoming.
//
// A void/refund report is allowed unconditionally when it differs from
// the current status: the processor delivers void and refund webhooks
// after the order has already settled as success. Everything else is
// allowed only while the current status is still overwritable and
// actually differs from the incoming one.
//
// With strict=true a refusal returns a StateConflictError and the
// caller must abort; with strict=false the boolean alone is returned so
// advisory paths (the browser redirect) can degrade gracefully.
func VerifyOrderChangeable(current, incoming string, strict bool) (bool, error) {
	if incoming != "" && incoming != current && isVoidOrRefund(incoming) {
		return true, nil
	}

	if !changeable[current] || current == incoming {
		if strict {
			return false, &StateConflictError{From: current, To: incoming}
		}
		return false, nil
	}
	return true, nil
}
