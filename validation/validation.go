// Package validation collects field violations for request payloads.
package validation

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to an error code. The first violation of a
// field wins.
type Violations map[string]string

func New() Violations { return Violations{} }

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Add(field, code string) {
	if _, exists := v[field]; !exists {
		v[field] = code
	}
}

// Error lets Violations travel as an error through service layers.
func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for f, c := range v {
		parts = append(parts, f+": "+c)
	}
	return "validation_failed: " + strings.Join(parts, ", ")
}

// Err returns nil when there is nothing to report.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func MaxLength(field, value string, maxLen int, v Violations) {
	if len([]rune(value)) > maxLen {
		v.Add(field, "too_long")
	}
}

func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "invalid_email")
	}
}

func PositiveDecimal(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

// MaxDecimals flags values with digits past places.
func MaxDecimals(field string, val decimal.Decimal, places int32, v Violations) {
	if !val.Equal(val.Round(places)) {
		v.Add(field, "too_precise")
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, "invalid_value")
}

// Digits checks an optional numeric identifier of fixed length (SIRET = 14).
func Digits(field, value string, length int, v Violations) {
	if value == "" {
		return
	}
	if len(value) != length {
		v.Add(field, "invalid_format")
		return
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			v.Add(field, "invalid_format")
			return
		}
	}
}
