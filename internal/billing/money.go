package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the rounding point applied to aggregated amounts and the
// precision of recorded payments.
const MoneyPlaces = 2

// LinePlaces is the precision of line quantities and unit prices.
const LinePlaces = 4

// HasScale reports whether d carries no digits past places.
func HasScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

var hundred = decimal.NewFromInt(100)

// Round rounds an amount to MoneyPlaces, half away from zero. Only final
// aggregates go through it; intermediate line values stay exact.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF",
}

// FormatCurrency renders an amount the way invoices print it (fr-FR):
// space-grouped thousands, comma decimals, symbol last. "1 234,56 €".
func FormatCurrency(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "EUR"
	}
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency
	}

	fixed := Round(amount).StringFixed(MoneyPlaces)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(intPart) + "," + frac + " " + symbol
}

// FormatPercent renders a VAT rate as "20 %" or "5,5 %". Unknown rates
// render as their raw name.
func FormatPercent(rate VATRate) string {
	p, err := rate.Percent()
	if err != nil {
		return string(rate)
	}
	return strings.Replace(p.String(), ".", ",", 1) + " %"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
