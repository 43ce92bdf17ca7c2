package models

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	InvoicePrefix = "INV"
	QuotePrefix   = "QUO"
)

// GenerateNumber returns the next document number for a company and year.
// Format: PREFIX-YYYY-NNNN (e.g., INV-2026-0001). Sent documents are never
// deleted, so counting issued numbers yields the next sequence value; the
// unique index catches concurrent senders.
func GenerateNumber(tx *gorm.DB, model any, companyID uint, prefix string, year int) (string, error) {
	var count int64
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	err := tx.Model(model).
		Where("company_id = ? AND number LIKE ?", companyID, pattern).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, count+1), nil
}
