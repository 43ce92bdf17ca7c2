// Package services implements the use cases behind the HTTP API. Every
// write runs in a transaction scoped to the caller's company.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/clock"
	"github.com/ZenBillingApp/zenbilling/internal/metrics"
	"github.com/ZenBillingApp/zenbilling/internal/models"
)

var (
	ErrNotFound         = errors.New("not_found")
	ErrCompanyRequired  = errors.New("company_required")
	ErrInUse            = errors.New("in_use")
	ErrEmailTaken       = errors.New("email_taken")
	ErrAlreadyConverted = errors.New("already_converted")
)

// Scope identifies the acting user and the company whose data they see.
type Scope struct {
	UserID    uint
	CompanyID uint
}

// Deps are the collaborators every service needs.
type Deps struct {
	DB      *gorm.DB
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	return d
}

// ListParams are the paging and search options of list endpoints.
type ListParams struct {
	Query string
	Page  int
	Limit int
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func (p ListParams) normalize() (limit, offset int, like string) {
	limit = p.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if p.Page > 1 {
		offset = (p.Page - 1) * limit
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		like = "%" + strings.ToLower(escapeLike(q)) + "%"
	}
	return limit, offset, like
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Page is one page of a listing.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// writeAudit appends an audit row inside the caller's transaction.
func writeAudit(ctx context.Context, tx *gorm.DB, s Scope, entity string, id uint, action string, oldValue, newValue any) error {
	row := models.AuditLog{
		CompanyID:  s.CompanyID,
		UserID:     s.UserID,
		EntityType: entity,
		EntityID:   id,
		Action:     action,
		OldValue:   auditValue(oldValue),
		NewValue:   auditValue(newValue),
	}
	return tx.WithContext(ctx).Create(&row).Error
}

func auditValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case interface{ String() string }:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
