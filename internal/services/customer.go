package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/models"
	"github.com/ZenBillingApp/zenbilling/internal/tracing"
	"github.com/ZenBillingApp/zenbilling/validation"
)

type CustomerService struct {
	db *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService { return &CustomerService{db: db} }

type CustomerInput struct {
	Type       models.CustomerType `json:"type"`
	Name       string              `json:"name"`
	FirstName  string              `json:"first_name"`
	LastName   string              `json:"last_name"`
	Email      string              `json:"email"`
	Phone      string              `json:"phone"`
	Address    string              `json:"address"`
	City       string              `json:"city"`
	PostalCode string              `json:"postal_code"`
	Country    string              `json:"country"`
	SIRET      string              `json:"siret"`
	VATNumber  string              `json:"vat_number"`
}

func (in *CustomerInput) normalize() {
	if in.Type == "" {
		in.Type = models.CustomerCompany
	}
	in.Name = strings.TrimSpace(in.Name)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.SIRET = strings.ReplaceAll(in.SIRET, " ", "")
	in.VATNumber = strings.ToUpper(strings.ReplaceAll(in.VATNumber, " ", ""))
}

func (in CustomerInput) validate() error {
	v := validation.New()
	if !in.Type.Valid() {
		v.Add("type", "invalid_value")
	}
	if in.Type == models.CustomerIndividual {
		validation.Required("first_name", in.FirstName, v)
		validation.Required("last_name", in.LastName, v)
	} else {
		validation.Required("name", in.Name, v)
	}
	validation.MaxLength("name", in.Name, 255, v)
	validation.Email("email", in.Email, v)
	validation.Digits("siret", in.SIRET, 14, v)
	validation.MaxLength("vat_number", in.VATNumber, 20, v)
	return v.Err()
}

func (in CustomerInput) apply(c *models.Customer) {
	c.Type = in.Type
	c.Name, c.FirstName, c.LastName = in.Name, in.FirstName, in.LastName
	c.Email, c.Phone = in.Email, in.Phone
	c.Address, c.City, c.PostalCode, c.Country = in.Address, in.City, in.PostalCode, in.Country
	c.SIRET, c.VATNumber = in.SIRET, in.VATNumber
}

// List searches on names and email.
func (s *CustomerService) List(ctx context.Context, sc Scope, p ListParams) (Page[models.Customer], error) {
	limit, offset, like := p.normalize()
	q := s.db.WithContext(ctx).Model(&models.Customer{}).Where("company_id = ?", sc.CompanyID)
	if like != "" {
		q = q.Where("LOWER(name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like, like)
	}
	page := Page[models.Customer]{Items: []models.Customer{}, Limit: limit, Offset: offset}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return page, err
	}
	err := q.Order("name ASC, last_name ASC, id ASC").Limit(limit).Offset(offset).Find(&page.Items).Error
	return page, err
}

func (s *CustomerService) Get(ctx context.Context, sc Scope, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).Where("company_id = ?", sc.CompanyID).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *CustomerService) Create(ctx context.Context, sc Scope, in CustomerInput) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, "CustomerService.Create")
	defer func() { tracing.End(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := models.Customer{CompanyID: sc.CompanyID}
	in.apply(&c)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "customer", c.ID, "create", nil, c.DisplayName())
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CustomerService) Update(ctx context.Context, sc Scope, id uint, in CustomerInput) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, "CustomerService.Update")
	defer func() { tracing.End(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	var c models.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", sc.CompanyID).First(&c, id).Error; err != nil {
			return notFound(err)
		}
		old := c.DisplayName()
		in.apply(&c)
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "customer", c.ID, "update", old, c.DisplayName())
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete refuses customers that still appear on invoices or quotes.
func (s *CustomerService) Delete(ctx context.Context, sc Scope, id uint) (err error) {
	ctx, span := tracing.Start(ctx, "CustomerService.Delete")
	defer func() { tracing.End(span, err) }()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Customer
		if err := tx.Where("company_id = ?", sc.CompanyID).First(&c, id).Error; err != nil {
			return notFound(err)
		}
		var invoices, quotes int64
		if err := tx.Model(&models.Invoice{}).Where("customer_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Quote{}).Where("customer_id = ?", id).Count(&quotes).Error; err != nil {
			return err
		}
		if invoices+quotes > 0 {
			return ErrInUse
		}
		if err := tx.Delete(&c).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "customer", id, "delete", c.DisplayName(), nil)
	})
}
