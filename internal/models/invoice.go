package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
)

// Invoice is the stored invoice. Status holds only stored states; "late" is
// derived when reading. Amount columns mirror the items and are rewritten
// on every item change.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID  uint      `gorm:"index;not null;uniqueIndex:idx_invoice_company_number,priority:1" json:"company_id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	// Number is assigned when the invoice is sent.
	Number *string `gorm:"size:50;uniqueIndex:idx_invoice_company_number,priority:2" json:"number"`

	Status    billing.InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	IssueDate time.Time             `gorm:"not null" json:"issue_date"`
	DueDate   time.Time             `gorm:"not null" json:"due_date"`

	Conditions       string `gorm:"type:text" json:"conditions,omitempty"`
	LatePaymentTerms string `gorm:"type:text" json:"late_payment_terms,omitempty"`
	Currency         string `gorm:"size:3;not null;default:'EUR'" json:"currency"`

	AmountExcludingTax decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_excluding_tax"`
	Tax                decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax"`
	AmountIncludingTax decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_including_tax"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID" json:"payments"`
}

type InvoiceItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
	LineFields
}

// ToBilling converts the row and its preloaded items and payments into the
// core value.
func (inv *Invoice) ToBilling() (billing.Invoice, error) {
	status, err := billing.ParseInvoiceStatus(string(inv.Status))
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("invoice %d: %w", inv.ID, err)
	}
	sortByPosition(inv.Items, func(it InvoiceItem) int { return it.Position })

	items := make([]billing.LineItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, it.ToBilling())
	}
	payments := make([]billing.Payment, 0, len(inv.Payments))
	for _, p := range inv.Payments {
		payments = append(payments, p.ToBilling())
	}
	return billing.Invoice{
		Status:           status,
		IssueDate:        inv.IssueDate,
		DueDate:          inv.DueDate,
		Items:            items,
		Payments:         payments,
		Conditions:       inv.Conditions,
		LatePaymentTerms: inv.LatePaymentTerms,
	}, nil
}

// ApplyBilling copies the header fields and totals of a core invoice back
// onto the row. Items and payments are persisted separately.
func (inv *Invoice) ApplyBilling(b billing.Invoice) error {
	totals, err := b.Totals()
	if err != nil {
		return err
	}
	inv.Status = b.Status
	inv.IssueDate = b.IssueDate
	inv.DueDate = b.DueDate
	inv.Conditions = b.Conditions
	inv.LatePaymentTerms = b.LatePaymentTerms
	inv.AmountExcludingTax = totals.ExcludingTax
	inv.Tax = totals.Tax
	inv.AmountIncludingTax = totals.IncludingTax
	return nil
}

// InvoiceItemsFromLines builds item rows in list order.
func InvoiceItemsFromLines(invoiceID uint, lines []Line) []InvoiceItem {
	out := make([]InvoiceItem, 0, len(lines))
	for i, l := range lines {
		out = append(out, InvoiceItem{InvoiceID: invoiceID, LineFields: LineFieldsFromBilling(l.Item, i, l.ProductID)})
	}
	return out
}

// Lines returns the items with their product references, in order.
func (inv *Invoice) Lines() []Line {
	sortByPosition(inv.Items, func(it InvoiceItem) int { return it.Position })
	out := make([]Line, 0, len(inv.Items))
	for _, it := range inv.Items {
		out = append(out, Line{Item: it.ToBilling(), ProductID: it.ProductID})
	}
	return out
}
