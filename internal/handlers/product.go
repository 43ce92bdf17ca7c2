package handlers

import (
	"net/http"

	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/services"
)

type ProductHandler struct {
	products *services.ProductService
}

func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List: GET /products?q=&page=&limit=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	page, err := h.products.List(r.Context(), sc, listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), sc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	var req services.ProductInput
	if !decode(w, r, &req) {
		return
	}
	p, err := h.products.Create(r.Context(), sc, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Update: PUT /products/{id}. Items already on documents keep their values.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.ProductInput
	if !decode(w, r, &req) {
		return
	}
	p, err := h.products.Update(r.Context(), sc, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), sc, id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
