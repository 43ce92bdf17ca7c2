package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type CustomerType string

const (
	CustomerIndividual CustomerType = "individual"
	CustomerCompany    CustomerType = "company"
)

func (t CustomerType) Valid() bool {
	return t == CustomerIndividual || t == CustomerCompany
}

// Customer is a billed party, scoped to the issuing company.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Type CustomerType `gorm:"size:20;not null;default:'company'" json:"type"`

	// Name is the legal name for company customers.
	Name      string `gorm:"size:255" json:"name,omitempty"`
	FirstName string `gorm:"size:100" json:"first_name,omitempty"`
	LastName  string `gorm:"size:100" json:"last_name,omitempty"`
	Email     string `gorm:"size:255" json:"email,omitempty"`
	Phone     string `gorm:"size:50" json:"phone,omitempty"`

	// Address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	// Tax information
	SIRET     string `gorm:"size:14" json:"siret,omitempty"`
	VATNumber string `gorm:"size:20" json:"vat_number,omitempty"`
}

// DisplayName is the name printed on documents.
func (c *Customer) DisplayName() string {
	if c.Type == CustomerIndividual {
		if n := strings.TrimSpace(c.FirstName + " " + c.LastName); n != "" {
			return n
		}
	}
	return c.Name
}

// FullAddress returns the formatted full address.
func (c *Customer) FullAddress() string {
	return formatAddress(c.Address, c.PostalCode, c.City, c.Country)
}

func formatAddress(street, postalCode, city, country string) string {
	addr := street
	if postalCode != "" || city != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += strings.TrimSpace(postalCode + " " + city)
	}
	if country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += country
	}
	return addr
}
