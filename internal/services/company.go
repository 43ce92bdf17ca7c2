package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/models"
	"github.com/ZenBillingApp/zenbilling/internal/tracing"
	"github.com/ZenBillingApp/zenbilling/validation"
)

type CompanyService struct {
	db *gorm.DB
}

func NewCompanyService(db *gorm.DB) *CompanyService { return &CompanyService{db: db} }

type CompanyInput struct {
	Name       string `json:"name"`
	LegalForm  string `json:"legal_form"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	SIRET      string `json:"siret"`
	VATNumber  string `json:"vat_number"`
	RCS        string `json:"rcs"`
	Capital    string `json:"capital"`
	IBAN       string `json:"iban"`
	BIC        string `json:"bic"`
	Currency   string `json:"currency"`
}

func (in *CompanyInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.SIRET = strings.ReplaceAll(in.SIRET, " ", "")
	in.IBAN = strings.ToUpper(strings.ReplaceAll(in.IBAN, " ", ""))
	in.BIC = strings.ToUpper(strings.TrimSpace(in.BIC))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "EUR"
	}
}

func (in CompanyInput) validate() error {
	v := validation.New()
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.Email("email", in.Email, v)
	validation.Digits("siret", in.SIRET, 14, v)
	validation.MaxLength("iban", in.IBAN, 34, v)
	validation.MaxLength("bic", in.BIC, 11, v)
	if len(in.Currency) != 3 {
		v.Add("currency", "invalid_format")
	}
	return v.Err()
}

// Get returns the company of a user or ErrCompanyRequired.
func (s *CompanyService) Get(ctx context.Context, userID uint) (*models.Company, error) {
	var c models.Company
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyRequired
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ScopeFor resolves the company scope of a user.
func (s *CompanyService) ScopeFor(ctx context.Context, userID uint) (Scope, error) {
	var c models.Company
	err := s.db.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Scope{}, ErrCompanyRequired
	}
	if err != nil {
		return Scope{}, err
	}
	return Scope{UserID: userID, CompanyID: c.ID}, nil
}

// Upsert creates or replaces the company profile of a user.
func (s *CompanyService) Upsert(ctx context.Context, userID uint, in CompanyInput) (_ *models.Company, err error) {
	ctx, span := tracing.Start(ctx, "CompanyService.Upsert")
	defer func() { tracing.End(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	var c models.Company
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&c).Error
		created := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !created {
			return err
		}
		c.UserID = userID
		c.Name, c.LegalForm, c.Email, c.Phone, c.Website = in.Name, in.LegalForm, in.Email, in.Phone, in.Website
		c.Address, c.City, c.PostalCode, c.Country = in.Address, in.City, in.PostalCode, in.Country
		c.SIRET, c.VATNumber, c.RCS, c.Capital = in.SIRET, in.VATNumber, in.RCS, in.Capital
		c.IBAN, c.BIC, c.Currency = in.IBAN, in.BIC, in.Currency
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		action := "update"
		if created {
			action = "create"
		}
		return writeAudit(ctx, tx, Scope{UserID: userID, CompanyID: c.ID}, "company", c.ID, action, nil, c.Name)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}
