package models

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
)

// LineFields are the columns shared by invoice and quote items. ProductID
// only records where the values were copied from.
type LineFields struct {
	ProductID   *uint           `gorm:"index" json:"product_id,omitempty"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"unit_price_excluding_tax"`
	VATRate     billing.VATRate `gorm:"size:20;not null" json:"vat_rate"`
	Unit        billing.Unit    `gorm:"size:20;not null;default:'unit'" json:"unit"`
}

func (l LineFields) ToBilling() billing.LineItem {
	return billing.LineItem{
		Name:        l.Name,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		VATRate:     l.VATRate,
		Unit:        l.Unit,
	}
}

func LineFieldsFromBilling(li billing.LineItem, position int, productID *uint) LineFields {
	return LineFields{
		ProductID:   productID,
		Position:    position,
		Name:        li.Name,
		Description: li.Description,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		VATRate:     li.VATRate,
		Unit:        li.Unit,
	}
}

// Line pairs a core line item with the product it came from, if any.
type Line struct {
	Item      billing.LineItem
	ProductID *uint
}

func sortByPosition[T any](items []T, pos func(T) int) {
	sort.SliceStable(items, func(i, j int) bool { return pos(items[i]) < pos(items[j]) })
}
