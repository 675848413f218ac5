package paymob

import (
	"fmt"
	"strconv"
	"strings"
)

// Integration is one enabled payment method + currency combination on a
// merchant account, identified by a processor-assigned id.
type Integration struct {
	ID       int64
	Name     string
	Type     string // card, wallet, aman, ...
	Currency string
}

// ParseIntegrations parses the stored configuration string of
// "id:name(type):(CUR)" entries joined by commas. Malformed entries are
// skipped, not errors: the string is operator-edited configuration.
func ParseIntegrations(s string) []Integration {
	var out []Integration
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) < 3 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil || id <= 0 {
			continue
		}

		name, typ := splitNameType(parts[1])
		out = append(out, Integration{
			ID:       id,
			Name:     name,
			Type:     strings.ToLower(typ),
			Currency: parenthesized(parts[2]),
		})
	}
	return out
}

// IntegrationsToString is the inverse of ParseIntegrations.
func IntegrationsToString(integrations []Integration) string {
	entries := make([]string, 0, len(integrations))
	for _, in := range integrations {
		entries = append(entries, fmt.Sprintf("%d:%s(%s):(%s)", in.ID, in.Name, in.Type, in.Currency))
	}
	return strings.Join(entries, ",")
}

func splitNameType(s string) (name, typ string) {
	open := strings.LastIndex(s, "(")
	if open < 0 {
		return strings.TrimSpace(s), ""
	}
	name = strings.TrimSpace(s[:open])
	typ = strings.TrimSpace(strings.TrimSuffix(s[open+1:], ")"))
	if strings.EqualFold(name, "null") {
		name = ""
	}
	return name, typ
}

func parenthesized(s string) string {
	open := strings.Index(s, "(")
	if open < 0 {
		return strings.TrimSpace(s)
	}
	inner := s[open+1:]
	if close := strings.Index(inner, ")"); close >= 0 {
		inner = inner[:close]
	}
	return strings.TrimSpace(inner)
}
