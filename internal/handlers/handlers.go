// Package handlers exposes the services as a JSON API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ZenBillingApp/zenbilling/auth"
	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/i18n"
	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/logger"
	"github.com/ZenBillingApp/zenbilling/internal/middleware"
	"github.com/ZenBillingApp/zenbilling/internal/services"
	"github.com/ZenBillingApp/zenbilling/validation"
)

type ctxKey string

const scopeCtxKey = ctxKey("scope")

// ScopeResolver finds the company a user works for.
type ScopeResolver interface {
	ScopeFor(ctx context.Context, userID uint) (services.Scope, error)
}

// RequireCompany resolves the caller's company scope. It must run after
// auth.RequireAuth.
func RequireCompany(res ScopeResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			sc, err := res.ScopeFor(r.Context(), uid)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), scopeCtxKey, sc)))
		})
	}
}

func ScopeFromContext(ctx context.Context) (services.Scope, bool) {
	sc, ok := ctx.Value(scopeCtxKey).(services.Scope)
	return sc, ok && sc.CompanyID != 0
}

func scope(w http.ResponseWriter, r *http.Request) (services.Scope, bool) {
	sc, ok := ScopeFromContext(r.Context())
	if !ok {
		writeError(w, r, services.ErrCompanyRequired)
	}
	return sc, ok
}

// pathID reads a numeric path value. Malformed ids read as missing records.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || n == 0 {
		writeError(w, r, services.ErrNotFound)
		return 0, false
	}
	return uint(n), true
}

func listParams(r *http.Request) services.ListParams {
	q := r.URL.Query()
	p := services.ListParams{Query: q.Get("q")}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	p.Limit, _ = strconv.Atoi(q.Get("limit"))
	return p
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.Decode(r, dst); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

var unprocessable = []error{
	billing.ErrInvalidLineItem,
	billing.ErrUnknownVATRate,
	billing.ErrInvalidPayment,
	billing.ErrEmptyDocument,
	billing.ErrInvalidDates,
}

var conflicts = []error{
	billing.ErrHasPayments,
	services.ErrInUse,
	services.ErrEmailTaken,
	services.ErrAlreadyConverted,
	services.ErrCompanyRequired,
}

// writeError maps domain errors onto status codes and the JSON error
// envelope, with a message in the caller's language.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	lang := middleware.LangFrom(r)
	reply := func(status int, code string, details any) {
		httpx.JSONErrorMessage(w, status, code, i18n.T(lang, code), details)
	}

	var violations validation.Violations
	if errors.As(err, &violations) {
		reply(http.StatusBadRequest, "validation_failed", map[string]any{
			"fields":   map[string]string(violations),
			"messages": i18n.TranslateAll(lang, violations),
		})
		return
	}
	var lie *billing.LineItemError
	if errors.As(err, &lie) {
		reply(http.StatusUnprocessableEntity, lie.Err.Error(), map[string]any{
			"index": lie.Index, "field": lie.Field, "reason": lie.Reason,
		})
		return
	}
	var te *billing.TransitionError
	if errors.As(err, &te) {
		reply(http.StatusConflict, billing.ErrIllegalTransition.Error(), map[string]any{
			"kind": te.Kind, "from": te.From, "action": te.Action,
		})
		return
	}
	for _, target := range unprocessable {
		if errors.Is(err, target) {
			reply(http.StatusUnprocessableEntity, target.Error(), nil)
			return
		}
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			reply(http.StatusConflict, target.Error(), nil)
			return
		}
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		reply(http.StatusNotFound, "not_found", nil)
	case errors.Is(err, httpx.ErrInvalidJSON):
		reply(http.StatusBadRequest, "invalid_json", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		reply(http.StatusUnauthorized, "invalid_credentials", nil)
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		reply(http.StatusInternalServerError, "internal_error", nil)
	}
}

func queryID(w http.ResponseWriter, r *http.Request, name, value string) (uint, bool) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		writeError(w, r, validation.Violations{name: "invalid_value"})
		return 0, false
	}
	return uint(n), true
}
