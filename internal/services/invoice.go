package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/clock"
	"github.com/ZenBillingApp/zenbilling/internal/logger"
	"github.com/ZenBillingApp/zenbilling/internal/metrics"
	"github.com/ZenBillingApp/zenbilling/internal/models"
	"github.com/ZenBillingApp/zenbilling/internal/tracing"
	"github.com/ZenBillingApp/zenbilling/validation"
)

// DefaultPaymentTerm is the due date offset used when none is given.
const DefaultPaymentTerm = 30 * 24 * time.Hour

type InvoiceService struct {
	db      *gorm.DB
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewInvoiceService(d Deps) *InvoiceService {
	d = d.withDefaults()
	return &InvoiceService{db: d.DB, clock: d.Clock, metrics: d.Metrics}
}

// InvoiceView is an invoice with the values derived at read time.
type InvoiceView struct {
	models.Invoice
	EffectiveStatus billing.InvoiceStatus  `json:"effective_status"`
	AllowedActions  []billing.Action       `json:"allowed_actions"`
	TotalPaid       decimal.Decimal        `json:"total_paid"`
	Outstanding     decimal.Decimal        `json:"outstanding"`
	Overpaid        decimal.Decimal        `json:"overpaid"`
	VATBreakdown    []billing.VATBreakdown `json:"vat_breakdown"`
}

func newInvoiceView(row *models.Invoice, now time.Time) (*InvoiceView, error) {
	b, err := row.ToBilling()
	if err != nil {
		return nil, err
	}
	totals, err := b.Totals()
	if err != nil {
		return nil, err
	}
	bal := billing.ComputeBalance(totals.IncludingTax, b.Payments)
	v := &InvoiceView{
		Invoice:         *row,
		EffectiveStatus: b.StatusAt(now),
		AllowedActions:  b.AllowedActions(now),
		TotalPaid:       bal.Paid,
		Outstanding:     bal.Outstanding,
		Overpaid:        bal.Overpaid,
		VATBreakdown:    totals.ByRate(),
	}
	if v.AllowedActions == nil {
		v.AllowedActions = []billing.Action{}
	}
	v.AmountExcludingTax, v.Tax, v.AmountIncludingTax = totals.ExcludingTax, totals.Tax, totals.IncludingTax
	return v, nil
}

func loadInvoice(tx *gorm.DB, sc Scope, id uint) (*models.Invoice, error) {
	var row models.Invoice
	err := tx.Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Preload("Customer").
		Where("company_id = ?", sc.CompanyID).
		First(&row, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type InvoiceFilter struct {
	ListParams
	// Status accepts the derived "late" status.
	Status     billing.InvoiceStatus
	CustomerID uint
}

func (s *InvoiceService) List(ctx context.Context, sc Scope, f InvoiceFilter) (Page[InvoiceView], error) {
	limit, offset, like := f.normalize()
	page := Page[InvoiceView]{Items: []InvoiceView{}, Limit: limit, Offset: offset}
	now := s.clock.Now()
	today := startOfDay(now)

	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("company_id = ?", sc.CompanyID)
	switch f.Status {
	case "":
	case billing.InvoiceLate:
		q = q.Where("status = ? AND due_date < ?", billing.InvoiceSent, today)
	case billing.InvoiceSent:
		q = q.Where("status = ? AND due_date >= ?", billing.InvoiceSent, today)
	default:
		if !f.Status.Valid() {
			v := validation.New()
			v.Add("status", "invalid_value")
			return page, v
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if like != "" {
		q = q.Where("(LOWER(number) LIKE ? OR customer_id IN (?))", like,
			s.db.Model(&models.Customer{}).Select("id").
				Where("company_id = ? AND (LOWER(name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)",
					sc.CompanyID, like, like, like))
	}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return page, err
	}
	var rows []models.Invoice
	err := q.Preload("Items").Preload("Payments").Preload("Customer").
		Order("issue_date DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return page, err
	}
	for i := range rows {
		v, err := newInvoiceView(&rows[i], now)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, *v)
	}
	return page, nil
}

func (s *InvoiceService) Get(ctx context.Context, sc Scope, id uint) (*InvoiceView, error) {
	row, err := loadInvoice(s.db.WithContext(ctx), sc, id)
	if err != nil {
		return nil, err
	}
	return newInvoiceView(row, s.clock.Now())
}

type CreateInvoiceInput struct {
	CustomerID       uint        `json:"customer_id"`
	IssueDate        time.Time   `json:"issue_date"`
	DueDate          time.Time   `json:"due_date"`
	Conditions       string      `json:"conditions"`
	LatePaymentTerms string      `json:"late_payment_terms"`
	Items            []ItemInput `json:"items"`
}

// Create stores a new draft. Missing dates default to today and the
// standard payment term.
func (s *InvoiceService) Create(ctx context.Context, sc Scope, in CreateInvoiceInput) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.Create")
	defer func() { tracing.End(span, err) }()

	now := s.clock.Now()
	if in.IssueDate.IsZero() {
		in.IssueDate = startOfDay(now)
	}
	if in.DueDate.IsZero() {
		in.DueDate = in.IssueDate.Add(DefaultPaymentTerm)
	}

	var row models.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCustomer(tx, sc, in.CustomerID); err != nil {
			return err
		}
		lines, err := resolveLines(ctx, tx, sc, in.Items)
		if err != nil {
			return err
		}
		b, err := billing.NewInvoice(in.IssueDate, in.DueDate, billingItems(lines), in.Conditions)
		if err != nil {
			return err
		}
		b.LatePaymentTerms = strings.TrimSpace(in.LatePaymentTerms)

		row = models.Invoice{
			CompanyID:  sc.CompanyID,
			UserID:     sc.UserID,
			CustomerID: in.CustomerID,
			Currency:   companyCurrency(tx, sc),
		}
		if err := row.ApplyBilling(b); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		if err := createInvoiceItems(tx, row.ID, lines); err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "invoice", row.ID, "create", nil, string(row.Status))
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("invoice created", zap.Uint("invoice_id", row.ID), zap.Int("items", len(in.Items)))
	return s.Get(ctx, sc, row.ID)
}

func checkCustomer(tx *gorm.DB, sc Scope, customerID uint) error {
	var count int64
	err := tx.Model(&models.Customer{}).Where("id = ? AND company_id = ?", customerID, sc.CompanyID).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		v := validation.New()
		v.Add("customer_id", "not_found")
		return v
	}
	return nil
}

func companyCurrency(tx *gorm.DB, sc Scope) string {
	var c models.Company
	if err := tx.Select("currency").First(&c, sc.CompanyID).Error; err != nil || c.Currency == "" {
		return "EUR"
	}
	return c.Currency
}

func createInvoiceItems(tx *gorm.DB, invoiceID uint, lines []models.Line) error {
	if len(lines) == 0 {
		return nil
	}
	items := models.InvoiceItemsFromLines(invoiceID, lines)
	return tx.Create(&items).Error
}

type invoiceChange func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error)

// mutate loads the invoice, applies change to its core value and writes the
// result back with an audit row, all in one transaction.
func (s *InvoiceService) mutate(ctx context.Context, sc Scope, id uint, action string, change invoiceChange) (*InvoiceView, error) {
	now := s.clock.Now()
	var from, to billing.InvoiceStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadInvoice(tx, sc, id)
		if err != nil {
			return err
		}
		cur, err := row.ToBilling()
		if err != nil {
			return err
		}
		next, err := change(tx, row, cur, now)
		if err != nil {
			return err
		}
		if err := row.ApplyBilling(next); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(row).Error; err != nil {
			return err
		}
		from, to = cur.StatusAt(now), next.StatusAt(now)
		return writeAudit(ctx, tx, sc, "invoice", id, action, string(from), string(to))
	})
	if err != nil {
		return nil, err
	}
	if from != to {
		s.metrics.Transition(string(billing.KindInvoice), string(from), string(to))
		logger.FromContext(ctx).Info("invoice status changed",
			zap.Uint("invoice_id", id),
			zap.String("action", action),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
	return s.Get(ctx, sc, id)
}

type InvoiceDetailsInput struct {
	CustomerID       *uint     `json:"customer_id,omitempty"`
	IssueDate        time.Time `json:"issue_date"`
	DueDate          time.Time `json:"due_date"`
	Conditions       string    `json:"conditions"`
	LatePaymentTerms string    `json:"late_payment_terms"`
}

func (s *InvoiceService) UpdateDetails(ctx context.Context, sc Scope, id uint, in InvoiceDetailsInput) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.UpdateDetails", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "update", func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		next, err := cur.UpdateDetails(billing.InvoiceDetails{
			IssueDate:        in.IssueDate,
			DueDate:          in.DueDate,
			Conditions:       in.Conditions,
			LatePaymentTerms: in.LatePaymentTerms,
		}, now)
		if err != nil {
			return billing.Invoice{}, err
		}
		if in.CustomerID != nil {
			if err := checkCustomer(tx, sc, *in.CustomerID); err != nil {
				return billing.Invoice{}, err
			}
			row.CustomerID = *in.CustomerID
		}
		return next, nil
	})
}

// ReplaceItems swaps the whole item list of a draft.
func (s *InvoiceService) ReplaceItems(ctx context.Context, sc Scope, id uint, inputs []ItemInput) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.ReplaceItems", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "replace_items", func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		lines, err := resolveLines(ctx, tx, sc, inputs)
		if err != nil {
			return billing.Invoice{}, err
		}
		next, err := cur.SetItems(billingItems(lines), now)
		if err != nil {
			return billing.Invoice{}, err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return billing.Invoice{}, err
		}
		return next, createInvoiceItems(tx, id, lines)
	})
}

func (s *InvoiceService) AddItem(ctx context.Context, sc Scope, id uint, in ItemInput) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.AddItem", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "add_item", func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		line, err := resolveLine(ctx, tx, sc, in)
		if err != nil {
			return billing.Invoice{}, err
		}
		next, err := cur.AddItem(line.Item, now)
		if err != nil {
			return billing.Invoice{}, err
		}
		position := 0
		if n := len(row.Items); n > 0 {
			position = row.Items[n-1].Position + 1
		}
		item := models.InvoiceItem{InvoiceID: id, LineFields: models.LineFieldsFromBilling(line.Item, position, line.ProductID)}
		return next, tx.Create(&item).Error
	})
}

func invoiceItemIndex(items []models.InvoiceItem, itemID uint) int {
	for i, it := range items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (s *InvoiceService) UpdateItemQuantity(ctx context.Context, sc Scope, id, itemID uint, qty decimal.Decimal) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.UpdateItemQuantity", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "update_item", func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		idx := invoiceItemIndex(row.Items, itemID)
		if idx < 0 {
			return billing.Invoice{}, ErrNotFound
		}
		next, err := cur.UpdateItemQuantity(idx, qty, now)
		if err != nil {
			return billing.Invoice{}, err
		}
		return next, tx.Model(&models.InvoiceItem{}).Where("id = ?", itemID).Update("quantity", qty).Error
	})
}

// RemoveItem deletes one item and closes the gap in positions.
func (s *InvoiceService) RemoveItem(ctx context.Context, sc Scope, id, itemID uint) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.RemoveItem", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "remove_item", func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		idx := invoiceItemIndex(row.Items, itemID)
		if idx < 0 {
			return billing.Invoice{}, ErrNotFound
		}
		next, err := cur.RemoveItem(idx, now)
		if err != nil {
			return billing.Invoice{}, err
		}
		if err := tx.Delete(&models.InvoiceItem{}, itemID).Error; err != nil {
			return billing.Invoice{}, err
		}
		for pos, it := range append(row.Items[:idx:idx], row.Items[idx+1:]...) {
			if it.Position == pos {
				continue
			}
			if err := tx.Model(&models.InvoiceItem{}).Where("id = ?", it.ID).Update("position", pos).Error; err != nil {
				return billing.Invoice{}, err
			}
		}
		return next, nil
	})
}

// Send assigns the next invoice number. A concurrent sender taking the
// same number makes the unique index fail; the send is then retried once.
func (s *InvoiceService) Send(ctx context.Context, sc Scope, id uint) (view *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.Send", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	send := func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		next, err := cur.Apply(billing.ActionSend, now)
		if err != nil {
			return billing.Invoice{}, err
		}
		return next, assignNumber(tx, row, sc.CompanyID, now)
	}
	return s.mutateNumbered(ctx, sc, id, string(billing.ActionSend), send)
}

// assignNumber gives the invoice its definitive number the first time it
// leaves draft.
func assignNumber(tx *gorm.DB, row *models.Invoice, companyID uint, now time.Time) error {
	if row.Number != nil {
		return nil
	}
	n, err := models.GenerateNumber(tx, &models.Invoice{}, companyID, models.InvoicePrefix, now.Year())
	if err != nil {
		return err
	}
	row.Number = &n
	return nil
}

// mutateNumbered runs mutate and retries once when a concurrent
// transaction took the same number.
func (s *InvoiceService) mutateNumbered(ctx context.Context, sc Scope, id uint, action string, change invoiceChange) (*InvoiceView, error) {
	view, err := s.mutate(ctx, sc, id, action, change)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.FromContext(ctx).Warn("invoice number taken, retrying", zap.Uint("invoice_id", id))
		view, err = s.mutate(ctx, sc, id, action, change)
	}
	return view, err
}

func (s *InvoiceService) Cancel(ctx context.Context, sc Scope, id uint) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.Cancel", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, string(billing.ActionCancel), func(_ *gorm.DB, _ *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		return cur.Apply(billing.ActionCancel, now)
	})
}

type PaymentInput struct {
	Amount      decimal.Decimal       `json:"amount"`
	PaymentDate time.Time             `json:"payment_date"`
	Method      billing.PaymentMethod `json:"payment_method"`
	Description string                `json:"description"`
	Reference   string                `json:"reference"`
}

// AddPayment records a payment and recomputes the invoice status.
func (s *InvoiceService) AddPayment(ctx context.Context, sc Scope, id uint, in PaymentInput) (_ *InvoiceView, _ *models.Payment, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.AddPayment", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	var payment models.Payment
	view, err := s.mutateNumbered(ctx, sc, id, string(billing.ActionAddPayment), func(tx *gorm.DB, row *models.Invoice, cur billing.Invoice, now time.Time) (billing.Invoice, error) {
		p, err := billing.NewPayment(in.Amount, in.PaymentDate, in.Method, in.Description, in.Reference)
		if err != nil {
			return billing.Invoice{}, err
		}
		next, err := cur.AddPayment(p, now)
		if err != nil {
			return billing.Invoice{}, err
		}
		// A draft settled in full is final and needs its number.
		if next.Status == billing.InvoicePaid {
			if err := assignNumber(tx, row, sc.CompanyID, now); err != nil {
				return billing.Invoice{}, err
			}
		}
		payment = models.PaymentFromBilling(id, sc.UserID, p)
		return next, tx.Create(&payment).Error
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.Payment(string(payment.Method), payment.Amount.InexactFloat64())
	return view, &payment, nil
}

func (s *InvoiceService) ListPayments(ctx context.Context, sc Scope, id uint) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Invoice{}).Where("id = ? AND company_id = ?", id, sc.CompanyID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	payments := []models.Payment{}
	err := db.Where("invoice_id = ?", id).Order("payment_date ASC, id ASC").Find(&payments).Error
	return payments, err
}

// Delete removes a draft without payments. A quote converted into it
// becomes convertible again.
func (s *InvoiceService) Delete(ctx context.Context, sc Scope, id uint) (err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.Delete", attribute.Int64("invoice.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadInvoice(tx, sc, id)
		if err != nil {
			return err
		}
		cur, err := row.ToBilling()
		if err != nil {
			return err
		}
		if err := cur.CanDelete(); err != nil {
			return err
		}
		if err := tx.Model(&models.Quote{}).Where("invoice_id = ?", id).Update("invoice_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Invoice{}, id).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "invoice", id, "delete", string(row.Status), nil)
	})
}

type StatusSummary struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount_including_tax"`
}

type InvoiceStats struct {
	ByStatus map[billing.InvoiceStatus]StatusSummary `json:"by_status"`
	// Invoiced sums sent, late and paid invoices.
	Invoiced    decimal.Decimal `json:"invoiced"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Overdue     decimal.Decimal `json:"overdue"`
}

// Stats groups the company's invoices by effective status.
func (s *InvoiceService) Stats(ctx context.Context, sc Scope) (_ *InvoiceStats, err error) {
	ctx, span := tracing.Start(ctx, "InvoiceService.Stats")
	defer func() { tracing.End(span, err) }()

	var rows []models.Invoice
	err = s.db.WithContext(ctx).Preload("Payments").Where("company_id = ?", sc.CompanyID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	stats := &InvoiceStats{ByStatus: make(map[billing.InvoiceStatus]StatusSummary)}
	for _, st := range billing.InvoiceStatuses() {
		stats.ByStatus[st] = StatusSummary{Amount: decimal.Zero}
	}
	for i := range rows {
		b, err := rows[i].ToBilling()
		if err != nil {
			return nil, err
		}
		st := b.StatusAt(now)
		total := rows[i].AmountIncludingTax
		sum := stats.ByStatus[st]
		sum.Count++
		sum.Amount = sum.Amount.Add(total)
		stats.ByStatus[st] = sum

		if st == billing.InvoiceDraft || st == billing.InvoiceCancelled {
			continue
		}
		bal := billing.ComputeBalance(total, b.Payments)
		stats.Invoiced = stats.Invoiced.Add(total)
		stats.Paid = stats.Paid.Add(bal.Paid)
		stats.Outstanding = stats.Outstanding.Add(bal.Outstanding)
		if st == billing.InvoiceLate {
			stats.Overdue = stats.Overdue.Add(bal.Outstanding)
		}
	}
	return stats, nil
}
