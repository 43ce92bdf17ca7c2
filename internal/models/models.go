// Package models defines the GORM persistence models and their conversion
// to and from the billing core.
package models

// All lists every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Company{}, &Customer{}, &Product{},
		&Invoice{}, &InvoiceItem{}, &Payment{},
		&Quote{}, &QuoteItem{}, &AuditLog{},
	}
}
