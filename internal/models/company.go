package models

import (
	"time"

	"gorm.io/gorm"
)

// Company is the issuing organization printed on invoices and quotes.
// Each user owns at most one.
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name      string `gorm:"size:255;not null" json:"name"`
	LegalForm string `gorm:"size:50" json:"legal_form,omitempty"` // SAS, SARL, EI...
	Email     string `gorm:"size:255" json:"email,omitempty"`
	Phone     string `gorm:"size:50" json:"phone,omitempty"`
	Website   string `gorm:"size:255" json:"website,omitempty"`

	// Address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	// Tax & Legal information
	SIRET     string `gorm:"size:14" json:"siret,omitempty"`
	VATNumber string `gorm:"size:20" json:"vat_number,omitempty"`
	RCS       string `gorm:"size:100" json:"rcs,omitempty"`
	Capital   string `gorm:"size:100" json:"capital,omitempty"`

	// Bank details
	IBAN string `gorm:"size:34" json:"iban,omitempty"`
	BIC  string `gorm:"size:11" json:"bic,omitempty"`

	Currency string `gorm:"size:3;not null;default:'EUR'" json:"currency"`
}

func (c *Company) FullAddress() string {
	return formatAddress(c.Address, c.PostalCode, c.City, c.Country)
}
