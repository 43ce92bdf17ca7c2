package models

import "time"

// AuditLog records who changed what on a document.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	CompanyID  uint      `gorm:"index" json:"company_id"`
	UserID     uint      `json:"user_id"`
	EntityType string    `gorm:"size:50;index:idx_audit_entity" json:"entity_type"` // invoice, quote, customer...
	EntityID   uint      `gorm:"index:idx_audit_entity" json:"entity_id"`
	Action     string    `gorm:"size:50" json:"action"` // create, send, add_payment...
	OldValue   string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue   string    `gorm:"type:text" json:"new_value,omitempty"`
}
