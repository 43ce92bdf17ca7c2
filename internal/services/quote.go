package services

import (
	"context"
	"errors"
	"time"

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

// DefaultValidity is the validity period used when a quote has none.
const DefaultValidity = 30 * 24 * time.Hour

type QuoteService struct {
	db       *gorm.DB
	clock    clock.Clock
	metrics  *metrics.Metrics
	invoices *InvoiceService
}

func NewQuoteService(d Deps, invoices *InvoiceService) *QuoteService {
	d = d.withDefaults()
	return &QuoteService{db: d.DB, clock: d.Clock, metrics: d.Metrics, invoices: invoices}
}

type QuoteView struct {
	models.Quote
	EffectiveStatus billing.QuoteStatus    `json:"effective_status"`
	AllowedActions  []billing.Action       `json:"allowed_actions"`
	VATBreakdown    []billing.VATBreakdown `json:"vat_breakdown"`
}

func newQuoteView(row *models.Quote, now time.Time) (*QuoteView, error) {
	b, err := row.ToBilling()
	if err != nil {
		return nil, err
	}
	totals, err := b.Totals()
	if err != nil {
		return nil, err
	}
	v := &QuoteView{
		Quote:           *row,
		EffectiveStatus: b.StatusAt(now),
		AllowedActions:  b.AllowedActions(now),
		VATBreakdown:    totals.ByRate(),
	}
	if v.AllowedActions == nil {
		v.AllowedActions = []billing.Action{}
	}
	v.AmountExcludingTax, v.Tax, v.AmountIncludingTax = totals.ExcludingTax, totals.Tax, totals.IncludingTax
	return v, nil
}

func loadQuote(tx *gorm.DB, sc Scope, id uint) (*models.Quote, error) {
	var row models.Quote
	err := tx.Preload("Items").Preload("Customer").Where("company_id = ?", sc.CompanyID).First(&row, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

type QuoteFilter struct {
	ListParams
	// Status accepts the derived "expired" status.
	Status     billing.QuoteStatus
	CustomerID uint
}

func (s *QuoteService) List(ctx context.Context, sc Scope, f QuoteFilter) (Page[QuoteView], error) {
	limit, offset, like := f.normalize()
	page := Page[QuoteView]{Items: []QuoteView{}, Limit: limit, Offset: offset}
	now := s.clock.Now()
	today := startOfDay(now)

	q := s.db.WithContext(ctx).Model(&models.Quote{}).Where("company_id = ?", sc.CompanyID)
	switch f.Status {
	case "":
	case billing.QuoteExpired:
		q = q.Where("status = ? AND validity_date < ?", billing.QuoteSent, today)
	case billing.QuoteSent:
		q = q.Where("status = ? AND validity_date >= ?", billing.QuoteSent, today)
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
	var rows []models.Quote
	err := q.Preload("Items").Preload("Customer").
		Order("issue_date DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return page, err
	}
	for i := range rows {
		v, err := newQuoteView(&rows[i], now)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, *v)
	}
	return page, nil
}

func (s *QuoteService) Get(ctx context.Context, sc Scope, id uint) (*QuoteView, error) {
	row, err := loadQuote(s.db.WithContext(ctx), sc, id)
	if err != nil {
		return nil, err
	}
	return newQuoteView(row, s.clock.Now())
}

type CreateQuoteInput struct {
	CustomerID   uint        `json:"customer_id"`
	IssueDate    time.Time   `json:"issue_date"`
	ValidityDate time.Time   `json:"validity_date"`
	Conditions   string      `json:"conditions"`
	Items        []ItemInput `json:"items"`
}

func (s *QuoteService) Create(ctx context.Context, sc Scope, in CreateQuoteInput) (_ *QuoteView, err error) {
	ctx, span := tracing.Start(ctx, "QuoteService.Create")
	defer func() { tracing.End(span, err) }()

	now := s.clock.Now()
	if in.IssueDate.IsZero() {
		in.IssueDate = startOfDay(now)
	}
	if in.ValidityDate.IsZero() {
		in.ValidityDate = in.IssueDate.Add(DefaultValidity)
	}

	var row models.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCustomer(tx, sc, in.CustomerID); err != nil {
			return err
		}
		lines, err := resolveLines(ctx, tx, sc, in.Items)
		if err != nil {
			return err
		}
		b, err := billing.NewQuote(in.IssueDate, in.ValidityDate, billingItems(lines), in.Conditions)
		if err != nil {
			return err
		}
		row = models.Quote{
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
		if err := createQuoteItems(tx, row.ID, lines); err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "quote", row.ID, "create", nil, string(row.Status))
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("quote created", zap.Uint("quote_id", row.ID), zap.Int("items", len(in.Items)))
	return s.Get(ctx, sc, row.ID)
}

func createQuoteItems(tx *gorm.DB, quoteID uint, lines []models.Line) error {
	if len(lines) == 0 {
		return nil
	}
	items := models.QuoteItemsFromLines(quoteID, lines)
	return tx.Create(&items).Error
}

type quoteChange func(tx *gorm.DB, row *models.Quote, cur billing.Quote, now time.Time) (billing.Quote, error)

func (s *QuoteService) mutate(ctx context.Context, sc Scope, id uint, action string, change quoteChange) (*QuoteView, error) {
	now := s.clock.Now()
	var from, to billing.QuoteStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadQuote(tx, sc, id)
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
		return writeAudit(ctx, tx, sc, "quote", id, action, string(from), string(to))
	})
	if err != nil {
		return nil, err
	}
	if from != to {
		s.metrics.Transition(string(billing.KindQuote), string(from), string(to))
		logger.FromContext(ctx).Info("quote status changed",
			zap.Uint("quote_id", id),
			zap.String("action", action),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
	return s.Get(ctx, sc, id)
}

type QuoteDetailsInput struct {
	CustomerID   *uint     `json:"customer_id,omitempty"`
	IssueDate    time.Time `json:"issue_date"`
	ValidityDate time.Time `json:"validity_date"`
	Conditions   string    `json:"conditions"`
}

func (s *QuoteService) UpdateDetails(ctx context.Context, sc Scope, id uint, in QuoteDetailsInput) (_ *QuoteView, err error) {
	ctx, span := tracing.Start(ctx, "QuoteService.UpdateDetails", attribute.Int64("quote.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "update", func(tx *gorm.DB, row *models.Quote, cur billing.Quote, now time.Time) (billing.Quote, error) {
		next, err := cur.UpdateDetails(billing.QuoteDetails{
			IssueDate:    in.IssueDate,
			ValidityDate: in.ValidityDate,
			Conditions:   in.Conditions,
		}, now)
		if err != nil {
			return billing.Quote{}, err
		}
		if in.CustomerID != nil {
			if err := checkCustomer(tx, sc, *in.CustomerID); err != nil {
				return billing.Quote{}, err
			}
			row.CustomerID = *in.CustomerID
		}
		return next, nil
	})
}

func (s *QuoteService) ReplaceItems(ctx context.Context, sc Scope, id uint, inputs []ItemInput) (_ *QuoteView, err error) {
	ctx, span := tracing.Start(ctx, "QuoteService.ReplaceItems", attribute.Int64("quote.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, "replace_items", func(tx *gorm.DB, _ *models.Quote, cur billing.Quote, now time.Time) (billing.Quote, error) {
		lines, err := resolveLines(ctx, tx, sc, inputs)
		if err != nil {
			return billing.Quote{}, err
		}
		next, err := cur.SetItems(billingItems(lines), now)
		if err != nil {
			return billing.Quote{}, err
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return billing.Quote{}, err
		}
		return next, createQuoteItems(tx, id, lines)
	})
}

// Send assigns the next quote number, retrying once on a number conflict.
func (s *QuoteService) Send(ctx context.Context, sc Scope, id uint) (view *QuoteView, err error) {
	ctx, span := tracing.Start(ctx, "QuoteService.Send", attribute.Int64("quote.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	send := func(tx *gorm.DB, row *models.Quote, cur billing.Quote, now time.Time) (billing.Quote, error) {
		next, err := cur.Apply(billing.ActionSend, now)
		if err != nil {
			return billing.Quote{}, err
		}
		if row.Number == nil {
			n, err := models.GenerateNumber(tx, &models.Quote{}, sc.CompanyID, models.QuotePrefix, now.Year())
			if err != nil {
				return billing.Quote{}, err
			}
			row.Number = &n
		}
		return next, nil
	}
	view, err = s.mutate(ctx, sc, id, string(billing.ActionSend), send)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.FromContext(ctx).Warn("quote number taken, retrying", zap.Uint("quote_id", id))
		view, err = s.mutate(ctx, sc, id, string(billing.ActionSend), send)
	}
	return view, err
}

func (s *QuoteService) apply(ctx context.Context, sc Scope, id uint, a billing.Action) (_ *QuoteView, err error) {
	ctx, span := tracing.Start(ctx, "QuoteService."+string(a), attribute.Int64("quote.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.mutate(ctx, sc, id, string(a), func(_ *gorm.DB, _ *models.Quote, cur billing.Quote, now time.Time) (billing.Quote, error) {
		return cur.Apply(a, now)
	})
}

// Accept is refused once the validity date has passed.
func (s *QuoteService) Accept(ctx context.Context, sc Scope, id uint) (*QuoteView, error) {
	return s.apply(ctx, sc, id, billing.ActionMarkAccepted)
}

func (s *QuoteService) Reject(ctx context.Context, sc Scope, id uint) (*QuoteView, error) {
	return s.apply(ctx, sc, id, billing.ActionMarkRejected)
}

type ConvertQuoteInput struct {
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
}

// ConvertToInvoice creates a draft invoice from an accepted quote and links
// the two. A quote converts at most once.
func (s *QuoteService) ConvertToInvoice(ctx context.Context, sc Scope, id uint, in ConvertQuoteInput) (_ *InvoiceView, err error) {
	ctx, span := tracing.Start(ctx, "QuoteService.ConvertToInvoice", attribute.Int64("quote.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	now := s.clock.Now()
	if in.IssueDate.IsZero() {
		in.IssueDate = startOfDay(now)
	}
	if in.DueDate.IsZero() {
		in.DueDate = in.IssueDate.Add(DefaultPaymentTerm)
	}

	var invoice models.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := loadQuote(tx, sc, id)
		if err != nil {
			return err
		}
		if q.InvoiceID != nil {
			return ErrAlreadyConverted
		}
		cur, err := q.ToBilling()
		if err != nil {
			return err
		}
		b, err := cur.ConvertToInvoice(in.IssueDate, in.DueDate)
		if err != nil {
			return err
		}
		invoice = models.Invoice{
			CompanyID:  sc.CompanyID,
			UserID:     sc.UserID,
			CustomerID: q.CustomerID,
			Currency:   q.Currency,
		}
		if err := invoice.ApplyBilling(b); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&invoice).Error; err != nil {
			return err
		}
		if err := createInvoiceItems(tx, invoice.ID, q.Lines()); err != nil {
			return err
		}
		if err := tx.Model(&models.Quote{}).Where("id = ?", id).Update("invoice_id", invoice.ID).Error; err != nil {
			return err
		}
		if err := writeAudit(ctx, tx, sc, "quote", id, "convert", nil, invoice.ID); err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "invoice", invoice.ID, "create", nil, string(invoice.Status))
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("quote converted", zap.Uint("quote_id", id), zap.Uint("invoice_id", invoice.ID))
	return s.invoices.Get(ctx, sc, invoice.ID)
}

func (s *QuoteService) Delete(ctx context.Context, sc Scope, id uint) (err error) {
	ctx, span := tracing.Start(ctx, "QuoteService.Delete", attribute.Int64("quote.id", int64(id)))
	defer func() { tracing.End(span, err) }()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadQuote(tx, sc, id)
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
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Quote{}, id).Error; err != nil {
			return err
		}
		return writeAudit(ctx, tx, sc, "quote", id, "delete", string(row.Status), nil)
	})
}
