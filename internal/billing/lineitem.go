package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is a single priced entry on an invoice or a quote.
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price_excluding_tax"`
	VATRate     VATRate         `json:"vat_rate"`
	Unit        Unit            `json:"unit"`
}

// LineTotals are the exact (unrounded) amounts of one line.
type LineTotals struct {
	ExcludingTax decimal.Decimal `json:"excluding_tax"`
	Tax          decimal.Decimal `json:"tax"`
	IncludingTax decimal.Decimal `json:"including_tax"`
}

// NewLineItem validates its input and returns a ready-to-attach item.
// It is the only place where user input becomes a LineItem.
func NewLineItem(name, description string, quantity, unitPrice decimal.Decimal, rate VATRate, unit Unit) (LineItem, error) {
	item := LineItem{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     rate,
		Unit:        normalizeUnit(unit),
	}
	if item.Name == "" {
		return LineItem{}, itemError(-1, "name", "is required", ErrInvalidLineItem)
	}
	if err := item.validate(-1); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

func (it LineItem) validate(index int) error {
	if !it.Quantity.IsPositive() {
		return itemError(index, "quantity", "must be greater than zero", ErrInvalidLineItem)
	}
	if !HasScale(it.Quantity, LinePlaces) {
		return itemError(index, "quantity", "has more than 4 decimals", ErrInvalidLineItem)
	}
	if it.UnitPrice.IsNegative() {
		return itemError(index, "unit_price_excluding_tax", "must not be negative", ErrInvalidLineItem)
	}
	if !HasScale(it.UnitPrice, LinePlaces) {
		return itemError(index, "unit_price_excluding_tax", "has more than 4 decimals", ErrInvalidLineItem)
	}
	if !it.VATRate.Valid() {
		return itemError(index, "vat_rate", "is not a known rate", ErrUnknownVATRate)
	}
	return nil
}

// Totals computes the line amounts. It fails instead of coercing invalid
// quantities, prices or rates.
func (it LineItem) Totals() (LineTotals, error) {
	return it.totals(-1)
}

func (it LineItem) totals(index int) (LineTotals, error) {
	if err := it.validate(index); err != nil {
		return LineTotals{}, err
	}
	percent, _ := it.VATRate.Percent()
	excl := it.Quantity.Mul(it.UnitPrice)
	tax := excl.Mul(percent).Div(hundred)
	return LineTotals{
		ExcludingTax: excl,
		Tax:          tax,
		IncludingTax: excl.Add(tax),
	}, nil
}

// WithQuantity returns a copy of the item with a new quantity.
func (it LineItem) WithQuantity(q decimal.Decimal) (LineItem, error) {
	it.Quantity = q
	if err := it.validate(-1); err != nil {
		return LineItem{}, err
	}
	return it, nil
}
