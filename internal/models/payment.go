package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
)

// Payment tied to invoices. Rows are never updated or deleted.
type Payment struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time             `json:"created_at"`
	InvoiceID   uint                  `gorm:"index;not null" json:"invoice_id"`
	UserID      uint                  `gorm:"not null" json:"user_id"`
	Amount      decimal.Decimal       `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaymentDate time.Time             `gorm:"not null" json:"payment_date"`
	Method      billing.PaymentMethod `gorm:"size:20;not null" json:"payment_method"`
	Description string                `gorm:"size:500" json:"description,omitempty"`
	Reference   string                `gorm:"size:100" json:"reference,omitempty"`
}

func (p *Payment) ToBilling() billing.Payment {
	return billing.Payment{
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Method:      p.Method,
		Description: p.Description,
		Reference:   p.Reference,
	}
}

func PaymentFromBilling(invoiceID, userID uint, p billing.Payment) Payment {
	return Payment{
		InvoiceID:   invoiceID,
		UserID:      userID,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Method:      p.Method,
		Description: p.Description,
		Reference:   p.Reference,
	}
}
