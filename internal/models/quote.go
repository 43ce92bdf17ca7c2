package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
)

// Quote is the stored quote. "expired" is derived when reading.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID  uint      `gorm:"index;not null;uniqueIndex:idx_quote_company_number,priority:1" json:"company_id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	Number *string `gorm:"size:50;uniqueIndex:idx_quote_company_number,priority:2" json:"number"`

	Status       billing.QuoteStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	IssueDate    time.Time           `gorm:"not null" json:"issue_date"`
	ValidityDate time.Time           `gorm:"not null" json:"validity_date"`
	Conditions   string              `gorm:"type:text" json:"conditions,omitempty"`
	Currency     string              `gorm:"size:3;not null;default:'EUR'" json:"currency"`

	AmountExcludingTax decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_excluding_tax"`
	Tax                decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax"`
	AmountIncludingTax decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_including_tax"`

	// InvoiceID is set once the accepted quote has been converted.
	InvoiceID *uint `gorm:"index" json:"invoice_id,omitempty"`

	Items []QuoteItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
}

type QuoteItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	QuoteID uint `gorm:"index;not null" json:"quote_id"`
	LineFields
}

func (q *Quote) ToBilling() (billing.Quote, error) {
	status, err := billing.ParseQuoteStatus(string(q.Status))
	if err != nil {
		return billing.Quote{}, fmt.Errorf("quote %d: %w", q.ID, err)
	}
	sortByPosition(q.Items, func(it QuoteItem) int { return it.Position })

	items := make([]billing.LineItem, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, it.ToBilling())
	}
	return billing.Quote{
		Status:       status,
		IssueDate:    q.IssueDate,
		ValidityDate: q.ValidityDate,
		Items:        items,
		Conditions:   q.Conditions,
	}, nil
}

func (q *Quote) ApplyBilling(b billing.Quote) error {
	totals, err := b.Totals()
	if err != nil {
		return err
	}
	q.Status = b.Status
	q.IssueDate = b.IssueDate
	q.ValidityDate = b.ValidityDate
	q.Conditions = b.Conditions
	q.AmountExcludingTax = totals.ExcludingTax
	q.Tax = totals.Tax
	q.AmountIncludingTax = totals.IncludingTax
	return nil
}

// Lines returns the items with their product references, in order.
func (q *Quote) Lines() []Line {
	sortByPosition(q.Items, func(it QuoteItem) int { return it.Position })
	out := make([]Line, 0, len(q.Items))
	for _, it := range q.Items {
		out = append(out, Line{Item: it.ToBilling(), ProductID: it.ProductID})
	}
	return out
}

func QuoteItemsFromLines(quoteID uint, lines []Line) []QuoteItem {
	out := make([]QuoteItem, 0, len(lines))
	for i, l := range lines {
		out = append(out, QuoteItem{QuoteID: quoteID, LineFields: LineFieldsFromBilling(l.Item, i, l.ProductID)})
	}
	return out
}
