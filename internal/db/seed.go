package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/auth"
	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/models"
)

const (
	DemoEmail    = "demo@zenbilling.local"
	DemoPassword = "demo-password"
)

// Seed creates a demo user with a company, a customer and a small catalog.
// Running it again leaves existing rows untouched.
func Seed(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", DemoEmail).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, herr := auth.HashPassword(DemoPassword)
			if herr != nil {
				return herr
			}
			user = models.User{Email: DemoEmail, PasswordHash: hash, FirstName: "Demo", LastName: "User"}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user: %w", err)
			}
		case err != nil:
			return err
		}

		company := models.Company{
			UserID: user.ID, Name: "Zen Studio", LegalForm: "SAS", SIRET: "12345678900011",
			VATNumber: "FR12123456789", Address: "10 rue de Rivoli", PostalCode: "75001",
			City: "Paris", Country: "France", Currency: "EUR",
		}
		if err := tx.Where(models.Company{UserID: user.ID}).FirstOrCreate(&company).Error; err != nil {
			return fmt.Errorf("seed company: %w", err)
		}

		customer := models.Customer{
			CompanyID: company.ID, Type: models.CustomerCompany, Name: "Acme SARL",
			Email: "billing@acme.test", City: "Lyon", PostalCode: "69002", Country: "France",
		}
		if err := tx.Where(models.Customer{CompanyID: company.ID, Name: customer.Name}).FirstOrCreate(&customer).Error; err != nil {
			return fmt.Errorf("seed customer: %w", err)
		}

		catalog := []models.Product{
			{Name: "Développement", Price: decimal.NewFromInt(80), VATRate: billing.VATStandard, Unit: billing.UnitHour},
			{Name: "Audit technique", Price: decimal.NewFromInt(650), VATRate: billing.VATStandard, Unit: billing.UnitDay},
			{Name: "Livre technique", Price: decimal.RequireFromString("39.90"), VATRate: billing.VATReduced, Unit: billing.UnitUnit},
		}
		for _, p := range catalog {
			p.CompanyID = company.ID
			if err := tx.Where(models.Product{CompanyID: company.ID, Name: p.Name}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("seed product %q: %w", p.Name, err)
			}
		}
		return nil
	})
}
