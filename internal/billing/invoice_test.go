package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func draftInvoice(t *testing.T, items ...LineItem) Invoice {
	t.Helper()
	inv, err := NewInvoice(day(2026, 3, 1), day(2026, 3, 31), items, " 30 days ")
	require.NoError(t, err)
	return inv
}

func sentInvoice(t *testing.T) Invoice {
	t.Helper()
	inv, err := draftInvoice(t, item(t, "2", "100", VATStandard)).Apply(ActionSend, now)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := draftInvoice(t)
	assert.Equal(t, InvoiceDraft, inv.Status)
	assert.Equal(t, "30 days", inv.Conditions)
	assert.NotNil(t, inv.Items)

	_, err := NewInvoice(day(2026, 3, 10), day(2026, 3, 9), nil, "")
	assert.ErrorIs(t, err, ErrInvalidDates)

	_, err = NewInvoice(time.Time{}, day(2026, 3, 9), nil, "")
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestInvoice_SendThenEditFails(t *testing.T) {
	inv := sentInvoice(t)
	assert.Equal(t, InvoiceSent, inv.Status)

	_, err := inv.Apply(ActionEdit, now)
	require.ErrorIs(t, err, ErrIllegalTransition)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindInvoice, te.Kind)
	assert.Equal(t, "sent", te.From)
	assert.Equal(t, ActionEdit, te.Action)

	_, err = inv.AddItem(item(t, "1", "1", VATZero), now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = inv.RemoveItem(0, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = inv.UpdateItemQuantity(0, dec("3"), now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = inv.SetItems(nil, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = inv.UpdateDetails(InvoiceDetails{Conditions: "x"}, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestInvoice_SendRequiresItems(t *testing.T) {
	_, err := draftInvoice(t).Apply(ActionSend, now)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestInvoice_PaymentCoversTotal(t *testing.T) {
	inv, err := sentInvoice(t).AddPayment(payment(t, "240"), now)
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, inv.Status)

	b, err := inv.Balance()
	require.NoError(t, err)
	assertDec(t, "0", b.Outstanding)
	assertDec(t, "240", b.Total)
}

func TestInvoice_Overpayment(t *testing.T) {
	inv, err := sentInvoice(t).AddPayment(payment(t, "300"), now)
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, inv.Status)

	b, err := inv.Balance()
	require.NoError(t, err)
	assertDec(t, "0", b.Outstanding)
	assertDec(t, "60", b.Overpaid)
	assertDec(t, "300", b.Paid)

	totals, err := inv.Totals()
	require.NoError(t, err)
	assertDec(t, "240", totals.IncludingTax)
}

func TestInvoice_PartialPaymentsKeepStatus(t *testing.T) {
	inv := sentInvoice(t)
	inv, err := inv.AddPayment(payment(t, "100"), now)
	require.NoError(t, err)
	assert.Equal(t, InvoiceSent, inv.Status)

	inv, err = inv.AddPayment(payment(t, "140"), now)
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, inv.Status)
	assert.Len(t, inv.Payments, 2)

	_, err = inv.AddPayment(payment(t, "1"), now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestInvoice_PaymentOnDraft(t *testing.T) {
	inv := draftInvoice(t, item(t, "1", "50", VATZero))

	partial, err := inv.AddPayment(payment(t, "20"), now)
	require.NoError(t, err)
	assert.Equal(t, InvoiceDraft, partial.Status)

	full, err := partial.AddPayment(payment(t, "30"), now)
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, full.Status)
}

func TestInvoice_RejectsInvalidPayment(t *testing.T) {
	_, err := sentInvoice(t).AddPayment(Payment{Amount: dec("0"), PaymentDate: now, Method: MethodCash}, now)
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

func TestInvoice_LateIsDerived(t *testing.T) {
	inv := sentInvoice(t)

	assert.Equal(t, InvoiceSent, inv.StatusAt(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)))
	after := day(2026, 4, 1)
	assert.Equal(t, InvoiceLate, inv.StatusAt(after))
	assert.Equal(t, InvoiceSent, inv.Status)
	assert.ElementsMatch(t, []Action{ActionAddPayment, ActionCancel}, inv.AllowedActions(after))

	paid, err := inv.AddPayment(payment(t, "240"), after)
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, paid.StatusAt(after))

	cancelled, err := inv.Apply(ActionCancel, after)
	require.NoError(t, err)
	assert.Equal(t, InvoiceCancelled, cancelled.StatusAt(after))
}

func TestInvoice_DraftNeverLate(t *testing.T) {
	inv := draftInvoice(t)
	assert.Equal(t, InvoiceDraft, inv.StatusAt(day(2027, 1, 1)))
}

func TestInvoice_TerminalStates(t *testing.T) {
	paid, err := sentInvoice(t).AddPayment(payment(t, "240"), now)
	require.NoError(t, err)
	cancelled, err := sentInvoice(t).Apply(ActionCancel, now)
	require.NoError(t, err)

	for _, inv := range []Invoice{paid, cancelled} {
		assert.Empty(t, inv.AllowedActions(now))
		for _, a := range []Action{ActionEdit, ActionSend, ActionCancel} {
			_, err := inv.Apply(a, now)
			assert.ErrorIs(t, err, ErrIllegalTransition, "%s from %s", a, inv.Status)
		}
		_, err := inv.AddPayment(payment(t, "1"), now)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	}
}

func TestInvoice_ApplyRejectsQuoteActions(t *testing.T) {
	_, err := draftInvoice(t).Apply(ActionMarkAccepted, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = draftInvoice(t).Apply(ActionAddPayment, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestInvoice_ItemEditsDoNotMutateReceiver(t *testing.T) {
	inv := draftInvoice(t, item(t, "1", "10", VATStandard))

	added, err := inv.AddItem(item(t, "2", "5", VATReduced), now)
	require.NoError(t, err)
	assert.Len(t, inv.Items, 1)
	assert.Len(t, added.Items, 2)

	updated, err := added.UpdateItemQuantity(0, dec("4"), now)
	require.NoError(t, err)
	assertDec(t, "1", added.Items[0].Quantity)
	assertDec(t, "4", updated.Items[0].Quantity)

	totals, err := updated.Totals()
	require.NoError(t, err)
	assertDec(t, "50", totals.ExcludingTax)
	assertDec(t, "8.55", totals.Tax)

	removed, err := updated.RemoveItem(0, now)
	require.NoError(t, err)
	require.Len(t, removed.Items, 1)
	assert.Equal(t, VATReduced, removed.Items[0].VATRate)
	assert.Len(t, updated.Items, 2)

	_, err = removed.RemoveItem(5, now)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
	_, err = removed.UpdateItemQuantity(0, dec("0"), now)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestInvoice_UpdateDetails(t *testing.T) {
	inv := draftInvoice(t)
	got, err := inv.UpdateDetails(InvoiceDetails{DueDate: day(2026, 4, 15), Conditions: "cash"}, now)
	require.NoError(t, err)
	assert.Equal(t, day(2026, 4, 15), got.DueDate)
	assert.Equal(t, day(2026, 3, 1), got.IssueDate)
	assert.Equal(t, "cash", got.Conditions)

	_, err = inv.UpdateDetails(InvoiceDetails{DueDate: day(2026, 2, 1)}, now)
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestInvoice_CanDelete(t *testing.T) {
	draft := draftInvoice(t, item(t, "1", "50", VATZero))
	assert.NoError(t, draft.CanDelete())

	withPayment, err := draft.AddPayment(payment(t, "10"), now)
	require.NoError(t, err)
	assert.ErrorIs(t, withPayment.CanDelete(), ErrHasPayments)

	sent := sentInvoice(t)
	assert.ErrorIs(t, sent.CanDelete(), ErrIllegalTransition)
}

func TestInvoiceStatus_Parse(t *testing.T) {
	st, err := ParseInvoiceStatus("late")
	require.NoError(t, err)
	assert.Equal(t, InvoiceSent, st)

	st, err = ParseInvoiceStatus("PAID")
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, st)

	_, err = ParseInvoiceStatus("archived")
	assert.Error(t, err)

	assert.True(t, InvoicePaid.Terminal())
	assert.True(t, InvoiceCancelled.Terminal())
	assert.False(t, InvoiceLate.Terminal())
}
