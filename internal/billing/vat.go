package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// VATRate is the closed set of VAT rates a line item can carry.
type VATRate string

const (
	VATZero         VATRate = "ZERO"
	VATSuperReduced VATRate = "SUPER_REDUCED"
	VATReduced      VATRate = "REDUCED"
	VATIntermediate VATRate = "INTERMEDIATE"
	VATStandard     VATRate = "STANDARD"
)

var vatPercents = map[VATRate]decimal.Decimal{
	VATZero:         decimal.Zero,
	VATSuperReduced: decimal.RequireFromString("2.1"),
	VATReduced:      decimal.RequireFromString("5.5"),
	VATIntermediate: decimal.NewFromInt(10),
	VATStandard:     decimal.NewFromInt(20),
}

// VATRates lists every known rate, lowest first.
func VATRates() []VATRate {
	return []VATRate{VATZero, VATSuperReduced, VATReduced, VATIntermediate, VATStandard}
}

// Percent returns the numeric percentage of the rate (20 for STANDARD).
func (r VATRate) Percent() (decimal.Decimal, error) {
	p, ok := vatPercents[r]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownVATRate, string(r))
	}
	return p, nil
}

// Valid reports whether r belongs to the closed set.
func (r VATRate) Valid() bool {
	_, ok := vatPercents[r]
	return ok
}

// ParseVATRate accepts the enum name in any case.
func ParseVATRate(s string) (VATRate, error) {
	r := VATRate(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVATRate, s)
	}
	return r, nil
}

func (r *VATRate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownVATRate, string(data))
	}
	parsed, err := ParseVATRate(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Unit is the billing unit of a line item. The set is open; the constants
// are the units offered by the product forms.
type Unit string

const (
	UnitUnit    Unit = "unit"
	UnitHour    Unit = "hour"
	UnitDay     Unit = "day"
	UnitMonth   Unit = "month"
	UnitYear    Unit = "year"
	UnitKg      Unit = "kg"
	UnitGram    Unit = "g"
	UnitLitre   Unit = "l"
	UnitMetre   Unit = "m"
	UnitM2      Unit = "m2"
	UnitM3      Unit = "m3"
	UnitPackage Unit = "package"
)

// Known reports whether u is one of the predefined units.
func (u Unit) Known() bool {
	switch u {
	case UnitUnit, UnitHour, UnitDay, UnitMonth, UnitYear, UnitKg, UnitGram,
		UnitLitre, UnitMetre, UnitM2, UnitM3, UnitPackage:
		return true
	}
	return false
}

func normalizeUnit(u Unit) Unit {
	u = Unit(strings.ToLower(strings.TrimSpace(string(u))))
	if u == "" {
		return UnitUnit
	}
	return u
}
