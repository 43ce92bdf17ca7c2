package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
)

// Product is a catalog entry. Line items copy its values when added to a
// document, so later catalog edits never change issued documents.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"price_excluding_tax"`
	VATRate     billing.VATRate `gorm:"size:20;not null" json:"vat_rate"`
	Unit        billing.Unit    `gorm:"size:20;not null;default:'unit'" json:"unit"`
}

// LineItem builds a line item from the product at the given quantity.
func (p *Product) LineItem(qty decimal.Decimal) (billing.LineItem, error) {
	return billing.NewLineItem(p.Name, p.Description, qty, p.Price, p.VATRate, p.Unit)
}
