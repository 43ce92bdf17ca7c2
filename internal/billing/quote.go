package billing

import (
	"fmt"
	"strings"
	"time"
)

type Quote struct {
	Status       QuoteStatus
	IssueDate    time.Time
	ValidityDate time.Time
	Items        []LineItem
	Conditions   string
}

func NewQuote(issue, validity time.Time, items []LineItem, conditions string) (Quote, error) {
	if issue.IsZero() || validity.IsZero() {
		return Quote{}, fmt.Errorf("%w: issue and validity dates are required", ErrInvalidDates)
	}
	if dateOf(validity).Before(dateOf(issue)) {
		return Quote{}, fmt.Errorf("%w: validity date is before issue date", ErrInvalidDates)
	}
	if _, err := ComputeTotals(items); err != nil {
		return Quote{}, err
	}
	return Quote{
		Status:       QuoteDraft,
		IssueDate:    issue,
		ValidityDate: validity,
		Items:        cloneItems(items),
		Conditions:   strings.TrimSpace(conditions),
	}, nil
}

func (q Quote) Totals() (Totals, error) {
	return ComputeTotals(q.Items)
}

// StatusAt derives expired for a sent quote past its validity date.
func (q Quote) StatusAt(now time.Time) QuoteStatus {
	if q.Status == QuoteSent && pastDate(now, q.ValidityDate) {
		return QuoteExpired
	}
	return q.Status
}

func (q Quote) AllowedActions(now time.Time) []Action {
	return q.StatusAt(now).AllowedActions()
}

func (q Quote) check(a Action, now time.Time) error {
	st := q.StatusAt(now)
	if !st.Can(a) {
		return &TransitionError{Kind: KindQuote, From: string(st), Action: a}
	}
	return nil
}

func (q Quote) Apply(a Action, now time.Time) (Quote, error) {
	if err := q.check(a, now); err != nil {
		return Quote{}, err
	}
	next := q.clone()
	switch a {
	case ActionEdit:
	case ActionSend:
		if len(q.Items) == 0 {
			return Quote{}, ErrEmptyDocument
		}
		if _, err := q.Totals(); err != nil {
			return Quote{}, err
		}
		next.Status = QuoteSent
	case ActionMarkAccepted:
		next.Status = QuoteAccepted
	case ActionMarkRejected:
		next.Status = QuoteRejected
	default:
		return Quote{}, &TransitionError{Kind: KindQuote, From: string(q.StatusAt(now)), Action: a}
	}
	return next, nil
}

func (q Quote) SetItems(items []LineItem, now time.Time) (Quote, error) {
	if err := q.check(ActionEdit, now); err != nil {
		return Quote{}, err
	}
	if _, err := ComputeTotals(items); err != nil {
		return Quote{}, err
	}
	next := q.clone()
	next.Items = cloneItems(items)
	return next, nil
}

type QuoteDetails struct {
	IssueDate    time.Time
	ValidityDate time.Time
	Conditions   string
}

func (q Quote) UpdateDetails(d QuoteDetails, now time.Time) (Quote, error) {
	if err := q.check(ActionEdit, now); err != nil {
		return Quote{}, err
	}
	next := q.clone()
	if !d.IssueDate.IsZero() {
		next.IssueDate = d.IssueDate
	}
	if !d.ValidityDate.IsZero() {
		next.ValidityDate = d.ValidityDate
	}
	if dateOf(next.ValidityDate).Before(dateOf(next.IssueDate)) {
		return Quote{}, fmt.Errorf("%w: validity date is before issue date", ErrInvalidDates)
	}
	next.Conditions = strings.TrimSpace(d.Conditions)
	return next, nil
}

// ConvertToInvoice builds a draft invoice from an accepted quote.
func (q Quote) ConvertToInvoice(issue, due time.Time) (Invoice, error) {
	if q.Status != QuoteAccepted {
		return Invoice{}, &TransitionError{Kind: KindQuote, From: string(q.Status), Action: "convert"}
	}
	return NewInvoice(issue, due, q.Items, q.Conditions)
}

// CanDelete allows deletion of drafts only.
func (q Quote) CanDelete() error {
	if q.Status != QuoteDraft {
		return &TransitionError{Kind: KindQuote, From: string(q.Status), Action: "delete"}
	}
	return nil
}

func (q Quote) clone() Quote {
	out := q
	out.Items = cloneItems(q.Items)
	return out
}
