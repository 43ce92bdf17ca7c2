package handlers

import (
	"net/http"

	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/services"
)

type CustomerHandler struct {
	customers *services.CustomerService
}

func NewCustomerHandler(customers *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// List: GET /customers?q=&page=&limit=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	page, err := h.customers.List(r.Context(), sc, listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.customers.Get(r.Context(), sc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	var req services.CustomerInput
	if !decode(w, r, &req) {
		return
	}
	c, err := h.customers.Create(r.Context(), sc, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.CustomerInput
	if !decode(w, r, &req) {
		return
	}
	c, err := h.customers.Update(r.Context(), sc, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(r.Context(), sc, id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
