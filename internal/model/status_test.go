package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyOrderChangeable(t *testing.T) {
	cases := []struct {
		name     string
		current  string
		incoming string
		want     bool
	}{
		{"pending to success", StatusPending, StatusSuccess, true},
		{"intended to failed", StatusIntended, StatusFailed, true},
		{"processing to success", StatusProcessing, StatusSuccess, true},
		{"on-hold to success", StatusOnHold, StatusSuccess, true},
		{"failed to success", StatusFailed, StatusSuccess, true},

		// Same-status reports are replays, never transitions.
		{"pending to pending", StatusPending, StatusPending, false},
		{"success to success", StatusSuccess, StatusSuccess, false},

		// Settled orders only move for void/refund.
		{"success to failed", StatusSuccess, StatusFailed, false},
		{"success to voided", StatusSuccess, StatusVoided, true},
		{"success to refunded", StatusSuccess, StatusRefunded, true},
		{"success to void", StatusSuccess, "void", true},
		{"success to refund", StatusSuccess, "refund", true},
		{"voided to refunded", StatusVoided, StatusRefunded, true},
		{"voided to voided", StatusVoided, StatusVoided, false},

		{"new to success", StatusNew, StatusSuccess, false},
		{"declined to success", StatusDeclined, StatusSuccess, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VerifyOrderChangeable(tc.current, tc.incoming, false)
			assert.NoError(t, err, "non-strict mode never errors")
			assert.Equal(t, tc.want, got)

			got, err = VerifyOrderChangeable(tc.current, tc.incoming, true)
			assert.Equal(t, tc.want, got)
			if tc.want {
				assert.NoError(t, err)
			} else {
				var conflict *StateConflictError
				assert.ErrorAs(t, err, &conflict)
				assert.Equal(t, tc.current, conflict.From)
				assert.Equal(t, tc.incoming, conflict.To)
			}
		})
	}
}

func TestExtractLocalOrderID(t *testing.T) {
	id, ok := ExtractLocalOrderID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	// Special reference form "{id}_{unix timestamp}".
	id, ok = ExtractLocalOrderID("42_1716300664")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ExtractLocalOrderID("")
	assert.False(t, ok)

	_, ok = ExtractLocalOrderID("not-an-order")
	assert.False(t, ok)

	_, ok = ExtractLocalOrderID("x_1716300664")
	assert.False(t, ok)
}
