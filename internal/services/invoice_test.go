package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/models"
	"github.com/ZenBillingApp/zenbilling/validation"
)

func (f *fixture) draft(t *testing.T) *InvoiceView {
	t.Helper()
	v, err := f.invoices.Create(context.Background(), f.scope, CreateInvoiceInput{
		CustomerID: f.customer.ID,
		IssueDate:  day(2026, 3, 1),
		DueDate:    day(2026, 3, 31),
		Items:      f.consulting(),
	})
	require.NoError(t, err)
	return v
}

func TestInvoiceCreate(t *testing.T) {
	f := setup(t)
	v := f.draft(t)

	assert.Equal(t, billing.InvoiceDraft, v.Status)
	assert.Equal(t, billing.InvoiceDraft, v.EffectiveStatus)
	assert.Nil(t, v.Number)
	assert.Equal(t, "EUR", v.Currency)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Hosting", v.Items[1].Name)
	assert.Equal(t, 1, v.Items[1].Position)
	require.NotNil(t, v.Items[1].ProductID)
	assert.Equal(t, f.product.ID, *v.Items[1].ProductID)
	assertDec(t, "245", v.AmountExcludingTax)
	assertDec(t, "42.48", v.Tax)
	assertDec(t, "287.48", v.AmountIncludingTax)
	assertDec(t, "287.48", v.Outstanding)
	assert.Len(t, v.VATBreakdown, 2)
	assert.Equal(t, []billing.Action{billing.ActionEdit, billing.ActionAddPayment, billing.ActionSend, billing.ActionCancel}, v.AllowedActions)
	assert.Equal(t, int64(1), f.countAudit(t, "invoice", v.ID))

	var stored models.Invoice
	require.NoError(t, f.db.First(&stored, v.ID).Error)
	assertDec(t, "287.48", stored.AmountIncludingTax)
}

func TestInvoiceCreateDefaultsDates(t *testing.T) {
	f := setup(t)
	v, err := f.invoices.Create(context.Background(), f.scope, CreateInvoiceInput{CustomerID: f.customer.ID})
	require.NoError(t, err)
	assert.True(t, v.IssueDate.Equal(day(2026, 3, 10)))
	assert.True(t, v.DueDate.Equal(day(2026, 4, 9)))
	assert.Empty(t, v.Items)
}

func TestInvoiceCreateRejectsBadInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.invoices.Create(ctx, f.scope, CreateInvoiceInput{CustomerID: 999})
	var violations validation.Violations
	require.ErrorAs(t, err, &violations)
	assert.Equal(t, "not_found", violations["customer_id"])

	_, err = f.invoices.Create(ctx, f.scope, CreateInvoiceInput{
		CustomerID: f.customer.ID,
		Items: []ItemInput{
			{Name: "ok", Quantity: dec("1"), UnitPrice: decPtr("10"), VATRate: billing.VATStandard},
			{Name: "bad", Quantity: dec("0"), UnitPrice: decPtr("10"), VATRate: billing.VATStandard},
		},
	})
	require.ErrorIs(t, err, billing.ErrInvalidLineItem)
	var lie *billing.LineItemError
	require.ErrorAs(t, err, &lie)
	assert.Equal(t, 1, lie.Index)
	assert.Equal(t, "quantity", lie.Field)

	_, err = f.invoices.Create(ctx, f.scope, CreateInvoiceInput{
		CustomerID: f.customer.ID,
		Items:      []ItemInput{{Name: "x", Quantity: dec("1"), UnitPrice: decPtr("1"), VATRate: "HALF"}},
	})
	assert.ErrorIs(t, err, billing.ErrUnknownVATRate)

	_, err = f.invoices.Create(ctx, f.scope, CreateInvoiceInput{
		CustomerID: f.customer.ID,
		IssueDate:  day(2026, 3, 10),
		DueDate:    day(2026, 3, 1),
	})
	assert.ErrorIs(t, err, billing.ErrInvalidDates)

	var count int64
	require.NoError(t, f.db.Model(&models.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInvoiceLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)

	sent, err := f.invoices.Send(ctx, f.scope, v.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceSent, sent.Status)
	require.NotNil(t, sent.Number)
	assert.Equal(t, "INV-2026-0001", *sent.Number)
	assert.Equal(t, []billing.Action{billing.ActionAddPayment, billing.ActionCancel}, sent.AllowedActions)

	partial, p, err := f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("100"), PaymentDate: testNow, Method: billing.MethodBankTransfer, Reference: "VIR-1",
	})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, f.scope.UserID, p.UserID)
	assert.Equal(t, billing.InvoiceSent, partial.Status)
	assertDec(t, "100", partial.TotalPaid)
	assertDec(t, "187.48", partial.Outstanding)
	assertDec(t, "287.48", partial.AmountIncludingTax)

	paid, _, err := f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("187.48"), PaymentDate: testNow, Method: billing.MethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoicePaid, paid.Status)
	assert.Empty(t, paid.AllowedActions)
	assertDec(t, "0", paid.Outstanding)
	assertDec(t, "287.48", paid.AmountIncludingTax)

	_, _, err = f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("1"), PaymentDate: testNow, Method: billing.MethodCash,
	})
	assert.ErrorIs(t, err, billing.ErrIllegalTransition)

	payments, err := f.invoices.ListPayments(ctx, f.scope, v.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	// create, send, two payments
	assert.Equal(t, int64(4), f.countAudit(t, "invoice", v.ID))
	n, err := testutil.GatherAndCount(f.metrics.Registry(), "zenbilling_document_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = testutil.GatherAndCount(f.metrics.Registry(), "zenbilling_payments_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var numbers []string
	for i := 0; i < 3; i++ {
		v, err := f.invoices.Send(ctx, f.scope, f.draft(t).ID)
		require.NoError(t, err)
		numbers = append(numbers, *v.Number)
	}
	assert.Equal(t, []string{"INV-2026-0001", "INV-2026-0002", "INV-2026-0003"}, numbers)
}

func TestInvoiceSendRequiresItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.invoices.Create(ctx, f.scope, CreateInvoiceInput{CustomerID: f.customer.ID})
	require.NoError(t, err)

	_, err = f.invoices.Send(ctx, f.scope, v.ID)
	require.ErrorIs(t, err, billing.ErrEmptyDocument)

	got, err := f.invoices.Get(ctx, f.scope, v.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceDraft, got.Status)
	assert.Nil(t, got.Number)
}

func TestInvoiceItemEdits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)

	v, err := f.invoices.AddItem(ctx, f.scope, v.ID, ItemInput{
		Name: "Training", Quantity: dec("1"), UnitPrice: decPtr("50"), VATRate: billing.VATZero,
	})
	require.NoError(t, err)
	require.Len(t, v.Items, 3)
	assert.Equal(t, 2, v.Items[2].Position)
	assertDec(t, "337.48", v.AmountIncludingTax)

	v, err = f.invoices.UpdateItemQuantity(ctx, f.scope, v.ID, v.Items[0].ID, dec("1"))
	require.NoError(t, err)
	assertDec(t, "217.48", v.AmountIncludingTax)

	_, err = f.invoices.UpdateItemQuantity(ctx, f.scope, v.ID, v.Items[0].ID, dec("-1"))
	assert.ErrorIs(t, err, billing.ErrInvalidLineItem)

	v, err = f.invoices.RemoveItem(ctx, f.scope, v.ID, v.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Hosting", v.Items[0].Name)
	assert.Equal(t, 0, v.Items[0].Position)
	assert.Equal(t, 1, v.Items[1].Position)
	assertDec(t, "97.48", v.AmountIncludingTax)

	_, err = f.invoices.RemoveItem(ctx, f.scope, v.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err = f.invoices.ReplaceItems(ctx, f.scope, v.ID, []ItemInput{
		{Name: "Flat fee", Quantity: dec("1"), UnitPrice: decPtr("1000"), VATRate: billing.VATStandard},
	})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assertDec(t, "1200", v.AmountIncludingTax)

	var rows int64
	require.NoError(t, f.db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", v.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestInvoiceEditsRequireDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)
	_, err := f.invoices.Send(ctx, f.scope, v.ID)
	require.NoError(t, err)

	_, err = f.invoices.AddItem(ctx, f.scope, v.ID, ItemInput{Name: "x", Quantity: dec("1"), UnitPrice: decPtr("1"), VATRate: billing.VATZero})
	var te *billing.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, billing.ActionEdit, te.Action)
	assert.Equal(t, "sent", te.From)

	_, err = f.invoices.UpdateDetails(ctx, f.scope, v.ID, InvoiceDetailsInput{Conditions: "new"})
	assert.ErrorIs(t, err, billing.ErrIllegalTransition)

	got, err := f.invoices.Get(ctx, f.scope, v.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestInvoiceUpdateDetails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)
	other := models.Customer{CompanyID: f.scope.CompanyID, Type: models.CustomerIndividual, FirstName: "Jane", LastName: "Doe"}
	require.NoError(t, f.db.Create(&other).Error)

	got, err := f.invoices.UpdateDetails(ctx, f.scope, v.ID, InvoiceDetailsInput{
		CustomerID:       &other.ID,
		DueDate:          day(2026, 4, 15),
		Conditions:       " 30 days ",
		LatePaymentTerms: "3x legal rate",
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.CustomerID)
	assert.True(t, got.DueDate.Equal(day(2026, 4, 15)))
	assert.True(t, got.IssueDate.Equal(day(2026, 3, 1)))
	assert.Equal(t, "30 days", got.Conditions)
	assert.Equal(t, "3x legal rate", got.LatePaymentTerms)

	_, err = f.invoices.UpdateDetails(ctx, f.scope, v.ID, InvoiceDetailsInput{DueDate: day(2026, 2, 1)})
	assert.ErrorIs(t, err, billing.ErrInvalidDates)
}

func TestInvoiceLateIsDerived(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	overdue, err := f.invoices.Create(ctx, f.scope, CreateInvoiceInput{
		CustomerID: f.customer.ID, IssueDate: day(2026, 2, 1), DueDate: day(2026, 2, 28), Items: f.consulting(),
	})
	require.NoError(t, err)
	current := f.draft(t)
	for _, id := range []uint{overdue.ID, current.ID} {
		_, err := f.invoices.Send(ctx, f.scope, id)
		require.NoError(t, err)
	}

	got, err := f.invoices.Get(ctx, f.scope, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceSent, got.Status)
	assert.Equal(t, billing.InvoiceLate, got.EffectiveStatus)

	late, err := f.invoices.List(ctx, f.scope, InvoiceFilter{Status: billing.InvoiceLate})
	require.NoError(t, err)
	require.Len(t, late.Items, 1)
	assert.Equal(t, overdue.ID, late.Items[0].ID)

	sent, err := f.invoices.List(ctx, f.scope, InvoiceFilter{Status: billing.InvoiceSent})
	require.NoError(t, err)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, current.ID, sent.Items[0].ID)

	// a late invoice still accepts payments and becomes paid
	paid, _, err := f.invoices.AddPayment(ctx, f.scope, overdue.ID, PaymentInput{
		Amount: dec("287.48"), PaymentDate: testNow, Method: billing.MethodCreditCard,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoicePaid, paid.EffectiveStatus)
}

func TestInvoiceList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := models.Customer{CompanyID: f.scope.CompanyID, Type: models.CustomerCompany, Name: "Initech"}
	require.NoError(t, f.db.Create(&other).Error)

	first := f.draft(t)
	_, err := f.invoices.Send(ctx, f.scope, first.ID)
	require.NoError(t, err)
	_, err = f.invoices.Create(ctx, f.scope, CreateInvoiceInput{CustomerID: other.ID})
	require.NoError(t, err)

	all, err := f.invoices.List(ctx, f.scope, InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Len(t, all.Items, 2)

	byCustomer, err := f.invoices.List(ctx, f.scope, InvoiceFilter{CustomerID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byCustomer.Total)

	byName, err := f.invoices.List(ctx, f.scope, InvoiceFilter{ListParams: ListParams{Query: "initech"}})
	require.NoError(t, err)
	require.Len(t, byName.Items, 1)
	assert.Equal(t, other.ID, byName.Items[0].CustomerID)

	byNumber, err := f.invoices.List(ctx, f.scope, InvoiceFilter{ListParams: ListParams{Query: "inv-2026"}})
	require.NoError(t, err)
	require.Len(t, byNumber.Items, 1)
	assert.Equal(t, first.ID, byNumber.Items[0].ID)

	paged, err := f.invoices.List(ctx, f.scope, InvoiceFilter{ListParams: ListParams{Page: 2, Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), paged.Total)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, 1, paged.Offset)

	_, err = f.invoices.List(ctx, f.scope, InvoiceFilter{Status: "archived"})
	var violations validation.Violations
	assert.ErrorAs(t, err, &violations)
}

func TestInvoiceScopedToCompany(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)
	stranger := Scope{UserID: 42, CompanyID: f.scope.CompanyID + 1}

	_, err := f.invoices.Get(ctx, stranger, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.invoices.Send(ctx, stranger, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.invoices.ListPayments(ctx, stranger, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.invoices.Delete(ctx, stranger, v.ID), ErrNotFound)

	page, err := f.invoices.List(ctx, stranger, InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestInvoiceCancelKeepsPayments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)
	_, err := f.invoices.Send(ctx, f.scope, v.ID)
	require.NoError(t, err)
	_, _, err = f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{Amount: dec("50"), PaymentDate: testNow, Method: billing.MethodCash})
	require.NoError(t, err)

	cancelled, err := f.invoices.Cancel(ctx, f.scope, v.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceCancelled, cancelled.Status)
	assert.Len(t, cancelled.Payments, 1)
	assertDec(t, "50", cancelled.TotalPaid)

	_, err = f.invoices.Cancel(ctx, f.scope, v.ID)
	assert.ErrorIs(t, err, billing.ErrIllegalTransition)
}

func TestInvoiceOverpayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)

	paid, _, err := f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("300"), PaymentDate: testNow, Method: billing.MethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoicePaid, paid.Status)
	assertDec(t, "0", paid.Outstanding)
	assertDec(t, "12.52", paid.Overpaid)

	_, _, err = f.invoices.AddPayment(ctx, f.scope, f.draft(t).ID, PaymentInput{
		Amount: dec("10"), PaymentDate: testNow, Method: "cheque",
	})
	assert.ErrorIs(t, err, billing.ErrInvalidPayment)
}

func TestInvoiceDraftPaidInFullIsNumbered(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.draft(t)

	partial, _, err := f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("100"), PaymentDate: testNow, Method: billing.MethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceDraft, partial.Status)
	assert.Nil(t, partial.Number)

	paid, _, err := f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("187.48"), PaymentDate: testNow, Method: billing.MethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoicePaid, paid.Status)
	require.NotNil(t, paid.Number)
	assert.Equal(t, "INV-2026-0001", *paid.Number)

	sent, err := f.invoices.Send(ctx, f.scope, f.draft(t).ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0002", *sent.Number)
}

func TestInvoicePaymentBelowACentRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.invoices.Send(ctx, f.scope, f.draft(t).ID)
	require.NoError(t, err)

	_, _, err = f.invoices.AddPayment(ctx, f.scope, v.ID, PaymentInput{
		Amount: dec("287.475"), PaymentDate: testNow, Method: billing.MethodBankTransfer,
	})
	assert.ErrorIs(t, err, billing.ErrInvalidPayment)

	got, err := f.invoices.Get(ctx, f.scope, v.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceSent, got.Status)
	assert.Empty(t, got.Payments)
	assertDec(t, "287.48", got.Outstanding)
}

func TestInvoiceDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v := f.draft(t)
	require.NoError(t, f.invoices.Delete(ctx, f.scope, v.ID))
	_, err := f.invoices.Get(ctx, f.scope, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var items int64
	require.NoError(t, f.db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", v.ID).Count(&items).Error)
	assert.Zero(t, items)

	withPayment := f.draft(t)
	_, _, err = f.invoices.AddPayment(ctx, f.scope, withPayment.ID, PaymentInput{Amount: dec("1"), PaymentDate: testNow, Method: billing.MethodCash})
	require.NoError(t, err)
	assert.ErrorIs(t, f.invoices.Delete(ctx, f.scope, withPayment.ID), billing.ErrHasPayments)

	sent := f.draft(t)
	_, err = f.invoices.Send(ctx, f.scope, sent.ID)
	require.NoError(t, err)
	err = f.invoices.Delete(ctx, f.scope, sent.ID)
	assert.True(t, errors.Is(err, billing.ErrIllegalTransition))
}

func TestInvoiceStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.draft(t)
	sent := f.draft(t)
	_, err := f.invoices.Send(ctx, f.scope, sent.ID)
	require.NoError(t, err)
	_, _, err = f.invoices.AddPayment(ctx, f.scope, sent.ID, PaymentInput{Amount: dec("87.48"), PaymentDate: testNow, Method: billing.MethodCash})
	require.NoError(t, err)

	overdue, err := f.invoices.Create(ctx, f.scope, CreateInvoiceInput{
		CustomerID: f.customer.ID, IssueDate: day(2026, 1, 1), DueDate: day(2026, 1, 31), Items: f.consulting(),
	})
	require.NoError(t, err)
	_, err = f.invoices.Send(ctx, f.scope, overdue.ID)
	require.NoError(t, err)

	stats, err := f.invoices.Stats(ctx, f.scope)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ByStatus[billing.InvoiceDraft].Count)
	assert.Equal(t, 1, stats.ByStatus[billing.InvoiceSent].Count)
	assert.Equal(t, 1, stats.ByStatus[billing.InvoiceLate].Count)
	assert.Equal(t, 0, stats.ByStatus[billing.InvoicePaid].Count)
	assertDec(t, "287.48", stats.ByStatus[billing.InvoiceLate].Amount)
	assertDec(t, "574.96", stats.Invoiced)
	assertDec(t, "87.48", stats.Paid)
	assertDec(t, "487.48", stats.Outstanding)
	assertDec(t, "287.48", stats.Overdue)
}
