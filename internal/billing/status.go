package billing

import (
	"fmt"
	"strings"
	"time"
)

// Action is a user-triggered operation on a document.
type Action string

const (
	ActionEdit         Action = "edit"
	ActionSend         Action = "send"
	ActionCancel       Action = "cancel"
	ActionAddPayment   Action = "add_payment"
	ActionMarkAccepted Action = "mark_accepted"
	ActionMarkRejected Action = "mark_rejected"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceLate      InvoiceStatus = "late"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var invoiceActions = map[InvoiceStatus][]Action{
	InvoiceDraft:     {ActionEdit, ActionAddPayment, ActionSend, ActionCancel},
	InvoiceSent:      {ActionAddPayment, ActionCancel},
	InvoiceLate:      {ActionAddPayment, ActionCancel},
	InvoicePaid:      nil,
	InvoiceCancelled: nil,
}

// InvoiceStatuses lists every status including the derived one.
func InvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceLate, InvoiceCancelled}
}

// ParseInvoiceStatus reads a stored status. A persisted "late" from older
// rows is read back as sent, lateness being recomputed from the due date.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == InvoiceLate {
		return InvoiceSent, nil
	}
	if _, ok := invoiceActions[st]; !ok {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return st, nil
}

// Valid accepts every status, derived ones included. Used for filters.
func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceActions[s]
	return ok
}

func (s InvoiceStatus) AllowedActions() []Action {
	return append([]Action(nil), invoiceActions[s]...)
}

func (s InvoiceStatus) Can(a Action) bool {
	for _, allowed := range invoiceActions[s] {
		if allowed == a {
			return true
		}
	}
	return false
}

func (s InvoiceStatus) Terminal() bool {
	return s.Valid() && len(invoiceActions[s]) == 0
}

type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

var quoteActions = map[QuoteStatus][]Action{
	QuoteDraft:    {ActionEdit, ActionSend},
	QuoteSent:     {ActionMarkAccepted, ActionMarkRejected},
	QuoteAccepted: nil,
	QuoteRejected: nil,
	QuoteExpired:  nil,
}

func QuoteStatuses() []QuoteStatus {
	return []QuoteStatus{QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteExpired}
}

func ParseQuoteStatus(s string) (QuoteStatus, error) {
	st := QuoteStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == QuoteExpired {
		return QuoteSent, nil
	}
	if _, ok := quoteActions[st]; !ok {
		return "", fmt.Errorf("unknown quote status %q", s)
	}
	return st, nil
}

func (s QuoteStatus) Valid() bool {
	_, ok := quoteActions[s]
	return ok
}

func (s QuoteStatus) AllowedActions() []Action {
	return append([]Action(nil), quoteActions[s]...)
}

func (s QuoteStatus) Can(a Action) bool {
	for _, allowed := range quoteActions[s] {
		if allowed == a {
			return true
		}
	}
	return false
}

func (s QuoteStatus) Terminal() bool {
	return s.Valid() && len(quoteActions[s]) == 0
}

// pastDate reports whether the calendar day of now (UTC) is after the
// calendar day of limit. A zero limit never passes.
func pastDate(now, limit time.Time) bool {
	if limit.IsZero() {
		return false
	}
	n := dateOf(now)
	l := dateOf(limit)
	return n.After(l)
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
