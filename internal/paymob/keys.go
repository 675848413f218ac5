package paymob

import (
	"fmt"
	"strings"
)

// Paymob dashboard keys encode routing information:
// {country}_{pk|sk}_{live|test}_{random}, e.g. "egy_sk_test_abc123...".

type KeyRole string

const (
	RolePublic KeyRole = "public"
	RoleSecret KeyRole = "secret"
)

// Liveness is a tri-state: a malformed key yields LivenessUnknown,
// which callers must not collapse to "test".
type Liveness int

const (
	LivenessUnknown Liveness = iota
	LivenessLive
	LivenessTest
)

const minKeyLength = 20

// CountryCode returns the 3-letter country prefix of a key.
func CountryCode(key string) string {
	if len(key) < 3 {
		return key
	}
	return key[:3]
}

// Mode returns "live", "test" or "" when the key is too short
// to carry a mode segment.
func Mode(key string) string {
	if len(key) < 11 {
		return ""
	}
	mode := key[7:11]
	if mode != "live" && mode != "test" {
		return ""
	}
	return mode
}

// IsLive reports the liveness of the account a key belongs to.
func IsLive(key string) Liveness {
	switch Mode(key) {
	case "live":
		return LivenessLive
	case "test":
		return LivenessTest
	default:
		return LivenessUnknown
	}
}

// VerifyKeyFormat checks the structural format of a key against the
// role it is configured as. A secret key pasted into the public key
// field (or vice versa) fails here before any API call is made.
func VerifyKeyFormat(key string, role KeyRole) bool {
	if len(key) < minKeyLength {
		return false
	}

	parts := strings.Split(key, "_")
	if len(parts) != 4 || len(parts[0]) != 3 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return false
	}

	if parts[2] != "live" && parts[2] != "test" {
		return false
	}

	switch role {
	case RolePublic:
		return parts[1] == "pk"
	case RoleSecret:
		return parts[1] == "sk"
	}
	return false
}

// MatchCountries reports whether two keys belong to the same country.
func MatchCountries(a, b string) bool {
	return CountryCode(a) == CountryCode(b)
}

// MatchMode reports whether two keys are both live or both test.
func MatchMode(a, b string) bool {
	return Mode(a) == Mode(b)
}

// BaseURL returns the regional API host for a key. The processor runs
// one deployment per country and keys are only valid against their own.
func BaseURL(key string) (string, error) {
	switch CountryCode(key) {
	case "are", "uae":
		return "https://uae.paymob.com", nil
	case "eg", "egy":
		return "https://accept.paymob.com", nil
	case "pak":
		return "https://paymob.com.pk", nil
	case "ksa", "sau":
		return "https://ksa.paymob.com", nil
	case "omn":
		return "https://oman.paymob.com", nil
	}
	return "", fmt.Errorf("unsupported paymob country %q", CountryCode(key))
}

// MinorUnits returns the amount multiplier for a country.
// Omani Rial is subdivided into 1000 baisa, everything else uses cents.
func MinorUnits(country string) int64 {
	if country == "omn" {
		return 1000
	}
	return 100
}

// Timezone returns the IANA timezone of the processor's regional
// deployment, used to render transaction timestamps for operators.
func Timezone(country string) string {
	switch country {
	case "omn":
		return "Asia/Muscat"
	case "pak":
		return "Asia/Karachi"
	case "ksa", "sau":
		return "Asia/Riyadh"
	case "are", "uae":
		return "Asia/Dubai"
	default:
		return "Africa/Cairo"
	}
}
