package handlers

import (
	"context"
	"net/http"

	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/services"
	"github.com/ZenBillingApp/zenbilling/validation"
)

type QuoteHandler struct {
	Svc *services.QuoteService
}

func NewQuoteHandler(svc *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{Svc: svc}
}

type createQuoteRequest struct {
	CustomerID   uint                 `json:"customer_id"`
	IssueDate    httpx.Date           `json:"issue_date"`
	ValidityDate httpx.Date           `json:"validity_date"`
	Conditions   string               `json:"conditions"`
	Items        []services.ItemInput `json:"items"`
}

type quoteDetailsRequest struct {
	CustomerID   *uint      `json:"customer_id"`
	IssueDate    httpx.Date `json:"issue_date"`
	ValidityDate httpx.Date `json:"validity_date"`
	Conditions   string     `json:"conditions"`
}

type convertRequest struct {
	IssueDate httpx.Date `json:"issue_date"`
	DueDate   httpx.Date `json:"due_date"`
}

// List: GET /quotes?status=&customer_id=&q=&page=&limit=
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	f := services.QuoteFilter{
		ListParams: listParams(r),
		Status:     billing.QuoteStatus(r.URL.Query().Get("status")),
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

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Get)
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	var req createQuoteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CustomerID == 0 {
		writeError(w, r, validation.Violations{"customer_id": "required"})
		return
	}
	v, err := h.Svc.Create(r.Context(), sc, services.CreateQuoteInput{
		CustomerID:   req.CustomerID,
		IssueDate:    req.IssueDate.Time,
		ValidityDate: req.ValidityDate.Time,
		Conditions:   req.Conditions,
		Items:        req.Items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req quoteDetailsRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.Svc.UpdateDetails(r.Context(), sc, id, services.QuoteDetailsInput{
		CustomerID:   req.CustomerID,
		IssueDate:    req.IssueDate.Time,
		ValidityDate: req.ValidityDate.Time,
		Conditions:   req.Conditions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *QuoteHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
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

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request)   { h.transition(w, r, h.Svc.Send) }
func (h *QuoteHandler) Accept(w http.ResponseWriter, r *http.Request) { h.transition(w, r, h.Svc.Accept) }
func (h *QuoteHandler) Reject(w http.ResponseWriter, r *http.Request) { h.transition(w, r, h.Svc.Reject) }

func (h *QuoteHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, sc services.Scope, id uint) (*services.QuoteView, error)) {
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

// Convert: POST /quotes/{id}/convert. The body is optional; dates default
// to today and the standard payment term.
func (h *QuoteHandler) Convert(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req convertRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	inv, err := h.Svc.ConvertToInvoice(r.Context(), sc, id, services.ConvertQuoteInput{
		IssueDate: req.IssueDate.Time,
		DueDate:   req.DueDate.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
