package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/services"
	"github.com/ZenBillingApp/zenbilling/validation"
)

type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

type createInvoiceRequest struct {
	CustomerID       uint                 `json:"customer_id"`
	IssueDate        httpx.Date           `json:"issue_date"`
	DueDate          httpx.Date           `json:"due_date"`
	Conditions       string               `json:"conditions"`
	LatePaymentTerms string               `json:"late_payment_terms"`
	Items            []services.ItemInput `json:"items"`
}

type invoiceDetailsRequest struct {
	CustomerID       *uint      `json:"customer_id"`
	IssueDate        httpx.Date `json:"issue_date"`
	DueDate          httpx.Date `json:"due_date"`
	Conditions       string     `json:"conditions"`
	LatePaymentTerms string     `json:"late_payment_terms"`
}

type itemsRequest struct {
	Items []services.ItemInput `json:"items"`
}

type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type paymentRequest struct {
	Amount      decimal.Decimal       `json:"amount"`
	PaymentDate httpx.Date            `json:"payment_date"`
	Method      billing.PaymentMethod `json:"payment_method"`
	Description string                `json:"description"`
	Reference   string                `json:"reference"`
}

// List: GET /invoices?status=&customer_id=&q=&page=&limit=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	f := services.InvoiceFilter{
		ListParams: listParams(r),
		Status:     billing.InvoiceStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, ok := queryID(w, r, "customer_id", v)
		if !ok {
			return
		}
		f.CustomerID = id
	}
	page, err := h.Svc.List(r.Context(), sc, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.Svc.Get(r.Context(), sc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

// Create: POST /invoices stores a draft.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CustomerID == 0 {
		writeError(w, r, validation.Violations{"customer_id": "required"})
		return
	}
	v, err := h.Svc.Create(r.Context(), sc, services.CreateInvoiceInput{
		CustomerID:       req.CustomerID,
		IssueDate:        req.IssueDate.Time,
		DueDate:          req.DueDate.Time,
		Conditions:       req.Conditions,
		LatePaymentTerms: req.LatePaymentTerms,
		Items:            req.Items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

// Update: PUT /invoices/{id} edits the header of a draft.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req invoiceDetailsRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Svc.UpdateDetails(r.Context(), sc, id, services.InvoiceDetailsInput{
		CustomerID:       req.CustomerID,
		IssueDate:        req.IssueDate.Time,
		DueDate:          req.DueDate.Time,
		Conditions:       req.Conditions,
		LatePaymentTerms: req.LatePaymentTerms,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), sc, id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// ReplaceItems: PUT /invoices/{id}/items
func (h *InvoiceHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req itemsRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Svc.ReplaceItems(r.Context(), sc, id, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

// AddItem: POST /invoices/{id}/items
func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.ItemInput
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Svc.AddItem(r.Context(), sc, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

// UpdateItem: PATCH /invoices/{id}/items/{itemID} changes the quantity.
func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Svc.UpdateItemQuantity(r.Context(), sc, id, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

// RemoveItem: DELETE /invoices/{id}/items/{itemID}
func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	v, err := h.Svc.RemoveItem(r.Context(), sc, id, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

// Send: POST /invoices/{id}/send
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Send)
}

// Cancel: POST /invoices/{id}/cancel
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Cancel)
}

func (h *InvoiceHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, sc services.Scope, id uint) (*services.InvoiceView, error)) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := apply(r.Context(), sc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

// ListPayments: GET /invoices/{id}/payments
func (h *InvoiceHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.Svc.ListPayments(r.Context(), sc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments})
}

// AddPayment: POST /invoices/{id}/payments returns the payment and the
// updated invoice.
func (h *InvoiceHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PaymentDate.IsZero() {
		writeError(w, r, validation.Violations{"payment_date": "required"})
		return
	}
	inv, p, err := h.Svc.AddPayment(r.Context(), sc, id, services.PaymentInput{
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate.Time,
		Method:      req.Method,
		Description: req.Description,
		Reference:   req.Reference,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"payment": p, "invoice": inv})
}

// Stats: GET /invoices/stats
func (h *InvoiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	stats, err := h.Svc.Stats(r.Context(), sc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
