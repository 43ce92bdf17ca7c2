// Package billing holds the financial core of invoices and quotes: VAT
// arithmetic, line-item and payment aggregation, and the document status
// state machines.
//
// Everything in this package is pure and synchronous. Functions that depend on
// the current time take it as a parameter; nothing here reads a clock.
package billing
