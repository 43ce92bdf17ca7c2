package billing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLineItem   = errors.New("invalid_line_item")
	ErrIllegalTransition = errors.New("illegal_transition")
	ErrUnknownVATRate    = errors.New("unknown_vat_rate")
	ErrInvalidPayment    = errors.New("invalid_payment")
	ErrEmptyDocument     = errors.New("empty_document")
	ErrHasPayments       = errors.New("document_has_payments")
	ErrInvalidDates      = errors.New("invalid_dates")
)

// LineItemError reports which item (and which field) failed validation.
// Index is -1 when the item is not part of a list yet.
type LineItemError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *LineItemError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("line item %d: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("line item: %s %s", e.Field, e.Reason)
}

func (e *LineItemError) Unwrap() error { return e.Err }

// DocumentKind distinguishes the two state machines.
type DocumentKind string

const (
	KindInvoice DocumentKind = "invoice"
	KindQuote   DocumentKind = "quote"
)

// TransitionError is returned when an action is not permitted from the
// document's current (effective) status.
type TransitionError struct {
	Kind   DocumentKind
	From   string
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: action %q not allowed from status %q", e.Kind, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

func itemError(index int, field, reason string, err error) *LineItemError {
	return &LineItemError{Index: index, Field: field, Reason: reason, Err: err}
}
