package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentQuote(t *testing.T) Quote {
	t.Helper()
	q, err := NewQuote(day(2026, 3, 1), day(2026, 3, 31), []LineItem{item(t, "2", "100", VATStandard)}, "")
	require.NoError(t, err)
	q, err = q.Apply(ActionSend, now)
	require.NoError(t, err)
	return q
}

func TestQuote_Lifecycle(t *testing.T) {
	q, err := NewQuote(day(2026, 3, 1), day(2026, 3, 31), nil, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Action{ActionEdit, ActionSend}, q.AllowedActions(now))

	_, err = q.Apply(ActionSend, now)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = q.Apply(ActionMarkAccepted, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	q, err = q.SetItems([]LineItem{item(t, "1", "10", VATStandard)}, now)
	require.NoError(t, err)
	q, err = q.Apply(ActionSend, now)
	require.NoError(t, err)
	assert.Equal(t, QuoteSent, q.Status)

	_, err = q.SetItems(nil, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	accepted, err := q.Apply(ActionMarkAccepted, now)
	require.NoError(t, err)
	assert.Equal(t, QuoteAccepted, accepted.Status)
	assert.Empty(t, accepted.AllowedActions(now))

	rejected, err := q.Apply(ActionMarkRejected, now)
	require.NoError(t, err)
	assert.Equal(t, QuoteRejected, rejected.Status)

	_, err = rejected.Apply(ActionMarkAccepted, now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestQuote_ApplyRejectsInvoiceActions(t *testing.T) {
	for _, a := range []Action{ActionCancel, ActionAddPayment, Action("archive")} {
		_, err := sentQuote(t).Apply(a, now)
		var te *TransitionError
		require.ErrorAs(t, err, &te, string(a))
		assert.Equal(t, KindQuote, te.Kind)
		assert.Equal(t, a, te.Action)
	}
}

func TestQuote_ExpiredIsDerived(t *testing.T) {
	q := sentQuote(t)
	later := day(2026, 4, 2)

	assert.Equal(t, QuoteExpired, q.StatusAt(later))
	assert.Equal(t, QuoteSent, q.Status)
	assert.Equal(t, QuoteSent, q.StatusAt(day(2026, 3, 31)))

	_, err := q.Apply(ActionMarkAccepted, later)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, QuoteSent, q.Status)
}

func TestQuote_ConvertToInvoice(t *testing.T) {
	q := sentQuote(t)
	_, err := q.ConvertToInvoice(day(2026, 3, 15), day(2026, 4, 15))
	assert.ErrorIs(t, err, ErrIllegalTransition)

	q, err = q.Apply(ActionMarkAccepted, now)
	require.NoError(t, err)
	q.Conditions = "50% upfront"

	inv, err := q.ConvertToInvoice(day(2026, 3, 15), day(2026, 4, 15))
	require.NoError(t, err)
	assert.Equal(t, InvoiceDraft, inv.Status)
	assert.Equal(t, "50% upfront", inv.Conditions)
	require.Len(t, inv.Items, 1)

	totals, err := inv.Totals()
	require.NoError(t, err)
	assertDec(t, "240", totals.IncludingTax)
}

func TestQuote_UpdateDetailsAndDelete(t *testing.T) {
	q, err := NewQuote(day(2026, 3, 1), day(2026, 3, 31), nil, "")
	require.NoError(t, err)
	assert.NoError(t, q.CanDelete())

	q2, err := q.UpdateDetails(QuoteDetails{ValidityDate: day(2026, 5, 1), Conditions: " net "}, now)
	require.NoError(t, err)
	assert.Equal(t, day(2026, 5, 1), q2.ValidityDate)
	assert.Equal(t, "net", q2.Conditions)

	_, err = q.UpdateDetails(QuoteDetails{ValidityDate: day(2026, 1, 1)}, now)
	assert.ErrorIs(t, err, ErrInvalidDates)

	assert.ErrorIs(t, sentQuote(t).CanDelete(), ErrIllegalTransition)
}

func TestQuoteStatus_Parse(t *testing.T) {
	st, err := ParseQuoteStatus("expired")
	require.NoError(t, err)
	assert.Equal(t, QuoteSent, st)

	_, err = ParseQuoteStatus("won")
	assert.Error(t, err)
	assert.True(t, QuoteExpired.Terminal())
}
