package handlers

import (
	"errors"
	"net/http"

	"github.com/ZenBillingApp/zenbilling/auth"
	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/models"
	"github.com/ZenBillingApp/zenbilling/internal/services"
)

type AuthHandler struct {
	users     *services.UserService
	companies *services.CompanyService
	sessions  *auth.Manager
}

func NewAuthHandler(users *services.UserService, companies *services.CompanyService, sessions *auth.Manager) *AuthHandler {
	return &AuthHandler{users: users, companies: companies, sessions: sessions}
}

// Register: POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.sessions.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login: POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.sessions.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

// Logout: POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSession(w)
	httpx.NoContent(w)
}

type meResponse struct {
	User    *models.User    `json:"user"`
	Company *models.Company `json:"company"`
}

// Me: GET /auth/me. Company is null until the profile is filled in.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	company, err := h.companies.Get(r.Context(), uid)
	if err != nil && !errors.Is(err, services.ErrCompanyRequired) {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: user, Company: company})
}
