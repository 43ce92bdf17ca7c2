package handlers

import (
	"net/http"

	"github.com/ZenBillingApp/zenbilling/auth"
	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/services"
)

type CompanyHandler struct {
	companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// Get: GET /company
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	c, err := h.companies.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update: PUT /company creates the profile on first use.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req services.CompanyInput
	if !decode(w, r, &req) {
		return
	}
	c, err := h.companies.Upsert(r.Context(), uid, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
