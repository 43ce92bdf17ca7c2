package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/clock"
	"github.com/ZenBillingApp/zenbilling/internal/metrics"
	"github.com/ZenBillingApp/zenbilling/internal/models"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	scope     Scope
	customer  models.Customer
	product   models.Product
	metrics   *metrics.Metrics
	users     *UserService
	companies *CompanyService
	customers *CustomerService
	products  *ProductService
	invoices  *InvoiceService
	quotes    *QuoteService
}

// setup opens a fresh database holding one user, its company, a customer
// and a product. Tests must not use subtests: the DSN is the test name.
func setup(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	user := models.User{Email: "owner@example.com", PasswordHash: "x", FirstName: "Ada", LastName: "Owner"}
	require.NoError(t, db.Create(&user).Error)
	company := models.Company{UserID: user.ID, Name: "Acme SARL", Currency: "EUR"}
	require.NoError(t, db.Create(&company).Error)
	customer := models.Customer{CompanyID: company.ID, Type: models.CustomerCompany, Name: "Globex"}
	require.NoError(t, db.Create(&customer).Error)
	product := models.Product{CompanyID: company.ID, Name: "Hosting", Price: dec("15"), VATRate: billing.VATReduced, Unit: billing.UnitMonth}
	require.NoError(t, db.Create(&product).Error)

	m := metrics.New("zenbilling", "test")
	deps := Deps{DB: db, Clock: clock.Fixed(testNow), Metrics: m}
	invoices := NewInvoiceService(deps)
	return &fixture{
		db:        db,
		scope:     Scope{UserID: user.ID, CompanyID: company.ID},
		customer:  customer,
		product:   product,
		metrics:   m,
		users:     NewUserService(db),
		companies: NewCompanyService(db),
		customers: NewCustomerService(db),
		products:  NewProductService(db),
		invoices:  invoices,
		quotes:    NewQuoteService(deps, invoices),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// consulting is 2 days at 100 (standard rate) plus 3 months of the
// fixture's hosting product at 15 (reduced rate): 245.00 + 42.48 = 287.48.
func (f *fixture) consulting() []ItemInput {
	return []ItemInput{
		{Name: "Consulting", Quantity: dec("2"), UnitPrice: decPtr("100"), VATRate: billing.VATStandard, Unit: billing.UnitDay},
		{ProductID: &f.product.ID, Quantity: dec("3")},
	}
}

func (f *fixture) countAudit(t *testing.T, entity string, id uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.AuditLog{}).Where("entity_type = ? AND entity_id = ?", entity, id).Count(&n).Error)
	return n
}
