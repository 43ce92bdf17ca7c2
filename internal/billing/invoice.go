package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the financial view of an invoice. Methods never mutate the
// receiver; they return an updated copy.
type Invoice struct {
	Status           InvoiceStatus
	IssueDate        time.Time
	DueDate          time.Time
	Items            []LineItem
	Payments         []Payment
	Conditions       string
	LatePaymentTerms string
}

// NewInvoice creates a draft. The due date may not precede the issue date.
func NewInvoice(issue, due time.Time, items []LineItem, conditions string) (Invoice, error) {
	if issue.IsZero() || due.IsZero() {
		return Invoice{}, fmt.Errorf("%w: issue and due dates are required", ErrInvalidDates)
	}
	if dateOf(due).Before(dateOf(issue)) {
		return Invoice{}, fmt.Errorf("%w: due date is before issue date", ErrInvalidDates)
	}
	if _, err := ComputeTotals(items); err != nil {
		return Invoice{}, err
	}
	return Invoice{
		Status:     InvoiceDraft,
		IssueDate:  issue,
		DueDate:    due,
		Items:      cloneItems(items),
		Conditions: strings.TrimSpace(conditions),
	}, nil
}

func (inv Invoice) Totals() (Totals, error) {
	return ComputeTotals(inv.Items)
}

// Balance relates the invoice total to its payments.
func (inv Invoice) Balance() (Balance, error) {
	t, err := inv.Totals()
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(t.IncludingTax, inv.Payments), nil
}

// StatusAt returns the effective status at now: a sent invoice whose due
// date has passed reads as late. The stored Status is left untouched.
func (inv Invoice) StatusAt(now time.Time) InvoiceStatus {
	if inv.Status == InvoiceSent && pastDate(now, inv.DueDate) {
		return InvoiceLate
	}
	return inv.Status
}

func (inv Invoice) AllowedActions(now time.Time) []Action {
	return inv.StatusAt(now).AllowedActions()
}

func (inv Invoice) Can(a Action, now time.Time) bool {
	return inv.StatusAt(now).Can(a)
}

func (inv Invoice) check(a Action, now time.Time) error {
	st := inv.StatusAt(now)
	if !st.Can(a) {
		return &TransitionError{Kind: KindInvoice, From: string(st), Action: a}
	}
	return nil
}

// Apply runs a status-changing action. Payments go through AddPayment.
func (inv Invoice) Apply(a Action, now time.Time) (Invoice, error) {
	if err := inv.check(a, now); err != nil {
		return Invoice{}, err
	}
	next := inv.clone()
	switch a {
	case ActionEdit:
	case ActionSend:
		if len(inv.Items) == 0 {
			return Invoice{}, ErrEmptyDocument
		}
		if _, err := inv.Totals(); err != nil {
			return Invoice{}, err
		}
		next.Status = InvoiceSent
	case ActionCancel:
		next.Status = InvoiceCancelled
	default:
		return Invoice{}, &TransitionError{Kind: KindInvoice, From: string(inv.StatusAt(now)), Action: a}
	}
	return next, nil
}

// AddPayment appends a payment and recomputes the status. A payment that
// brings the total paid to at least the invoice total marks it paid. The
// invoice total itself is never changed.
func (inv Invoice) AddPayment(p Payment, now time.Time) (Invoice, error) {
	if err := inv.check(ActionAddPayment, now); err != nil {
		return Invoice{}, err
	}
	if _, err := NewPayment(p.Amount, p.PaymentDate, p.Method, p.Description, p.Reference); err != nil {
		return Invoice{}, err
	}
	before, err := inv.Balance()
	if err != nil {
		return Invoice{}, err
	}
	if before.Total.IsPositive() && !before.Outstanding.IsPositive() {
		return Invoice{}, fmt.Errorf("%w: invoice is already fully paid", ErrInvalidPayment)
	}

	next := inv.clone()
	next.Payments = append(next.Payments, p)
	after, err := next.Balance()
	if err != nil {
		return Invoice{}, err
	}
	if after.Settled() {
		next.Status = InvoicePaid
	}
	return next, nil
}

func (inv Invoice) AddItem(item LineItem, now time.Time) (Invoice, error) {
	if err := inv.check(ActionEdit, now); err != nil {
		return Invoice{}, err
	}
	if err := item.validate(len(inv.Items)); err != nil {
		return Invoice{}, err
	}
	next := inv.clone()
	next.Items = append(next.Items, item)
	return next, nil
}

func (inv Invoice) RemoveItem(index int, now time.Time) (Invoice, error) {
	if err := inv.check(ActionEdit, now); err != nil {
		return Invoice{}, err
	}
	if index < 0 || index >= len(inv.Items) {
		return Invoice{}, itemError(index, "index", "is out of range", ErrInvalidLineItem)
	}
	next := inv.clone()
	next.Items = append(next.Items[:index], next.Items[index+1:]...)
	return next, nil
}

func (inv Invoice) UpdateItemQuantity(index int, qty decimal.Decimal, now time.Time) (Invoice, error) {
	if err := inv.check(ActionEdit, now); err != nil {
		return Invoice{}, err
	}
	if index < 0 || index >= len(inv.Items) {
		return Invoice{}, itemError(index, "index", "is out of range", ErrInvalidLineItem)
	}
	next := inv.clone()
	next.Items[index].Quantity = qty
	if err := next.Items[index].validate(index); err != nil {
		return Invoice{}, err
	}
	return next, nil
}

// SetItems replaces the whole item list.
func (inv Invoice) SetItems(items []LineItem, now time.Time) (Invoice, error) {
	if err := inv.check(ActionEdit, now); err != nil {
		return Invoice{}, err
	}
	if _, err := ComputeTotals(items); err != nil {
		return Invoice{}, err
	}
	next := inv.clone()
	next.Items = cloneItems(items)
	return next, nil
}

// InvoiceDetails holds the editable header fields of an invoice.
type InvoiceDetails struct {
	IssueDate        time.Time
	DueDate          time.Time
	Conditions       string
	LatePaymentTerms string
}

func (inv Invoice) UpdateDetails(d InvoiceDetails, now time.Time) (Invoice, error) {
	if err := inv.check(ActionEdit, now); err != nil {
		return Invoice{}, err
	}
	next := inv.clone()
	if !d.IssueDate.IsZero() {
		next.IssueDate = d.IssueDate
	}
	if !d.DueDate.IsZero() {
		next.DueDate = d.DueDate
	}
	if dateOf(next.DueDate).Before(dateOf(next.IssueDate)) {
		return Invoice{}, fmt.Errorf("%w: due date is before issue date", ErrInvalidDates)
	}
	next.Conditions = strings.TrimSpace(d.Conditions)
	next.LatePaymentTerms = strings.TrimSpace(d.LatePaymentTerms)
	return next, nil
}

// CanDelete allows physical deletion of drafts without payments only.
func (inv Invoice) CanDelete() error {
	if len(inv.Payments) > 0 {
		return ErrHasPayments
	}
	if inv.Status != InvoiceDraft {
		return &TransitionError{Kind: KindInvoice, From: string(inv.Status), Action: "delete"}
	}
	return nil
}

func (inv Invoice) clone() Invoice {
	out := inv
	out.Items = cloneItems(inv.Items)
	out.Payments = append([]Payment(nil), inv.Payments...)
	return out
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	return append(make([]LineItem, 0, len(items)), items...)
}
