package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/models"
	"github.com/ZenBillingApp/zenbilling/internal/tracing"
	"github.com/ZenBillingApp/zenbilling/validation"
)

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService { return &ProductService{db: db} }

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price_excluding_tax"`
	VATRate     billing.VATRate `json:"vat_rate"`
	Unit        billing.Unit    `json:"unit"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Unit == "" {
		in.Unit = billing.UnitUnit
	}
}

func (in ProductInput) validate() error {
	v := validation.New()
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.NonNegativeDecimal("price_excluding_tax", in.Price, v)
	validation.MaxDecimals("price_excluding_tax", in.Price, billing.LinePlaces, v)
	if !in.VATRate.Valid() {
		v.Add("vat_rate", "invalid_value")
	}
	return v.Err()
}

func (s *ProductService) List(ctx context.Context, sc Scope, p ListParams) (Page[models.Product], error) {
	limit, offset, like := p.normalize()
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("company_id = ?", sc.CompanyID)
	if like != "" {
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	page := Page[models.Product]{Items: []models.Product{}, Limit: limit, Offset: offset}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return page, err
	}
	err := q.Order("name ASC, id ASC").Limit(limit).Offset(offset).Find(&page.Items).Error
	return page, err
}

func (s *ProductService) Get(ctx context.Context, sc Scope, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Where("company_id = ?", sc.CompanyID).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *ProductService) Create(ctx context.Context, sc Scope, in ProductInput) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, "ProductService.Create")
	defer func() { tracing.End(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := models.Product{CompanyID: sc.CompanyID, Name: in.Name, Description: in.Description, Price: in.Price, VATRate: in.VATRate, Unit: in.Unit}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "product", p.ID, "create", nil, p.Name)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update changes the catalog entry only. Items already copied onto
// documents keep their values.
func (s *ProductService) Update(ctx context.Context, sc Scope, id uint, in ProductInput) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, "ProductService.Update")
	defer func() { tracing.End(span, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p models.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", sc.CompanyID).First(&p, id).Error; err != nil {
			return notFound(err)
		}
		old := p.Price.String()
		p.Name, p.Description, p.Price, p.VATRate, p.Unit = in.Name, in.Description, in.Price, in.VATRate, in.Unit
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "product", p.ID, "update", old, p.Price.String())
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductService) Delete(ctx context.Context, sc Scope, id uint) (err error) {
	ctx, span := tracing.Start(ctx, "ProductService.Delete")
	defer func() { tracing.End(span, err) }()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Where("company_id = ?", sc.CompanyID).First(&p, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "product", id, "delete", p.Name, nil)
	})
}
