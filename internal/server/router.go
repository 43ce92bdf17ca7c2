// Package server assembles the routes and middlewares of the API.
package server

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/auth"
	"github.com/ZenBillingApp/zenbilling/httpx"
	"github.com/ZenBillingApp/zenbilling/internal/clock"
	"github.com/ZenBillingApp/zenbilling/internal/config"
	"github.com/ZenBillingApp/zenbilling/internal/handlers"
	"github.com/ZenBillingApp/zenbilling/internal/logger"
	"github.com/ZenBillingApp/zenbilling/internal/metrics"
	"github.com/ZenBillingApp/zenbilling/internal/middleware"
	"github.com/ZenBillingApp/zenbilling/internal/services"
	"github.com/ZenBillingApp/zenbilling/internal/tracing"
)

type Deps struct {
	DB      *gorm.DB
	Auth    config.AuthConfig
	Metrics *metrics.Metrics
	Clock   clock.Clock
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	mux := http.NewServeMux()

	svcDeps := services.Deps{DB: d.DB, Clock: d.Clock, Metrics: d.Metrics}
	users := services.NewUserService(d.DB)
	companies := services.NewCompanyService(d.DB)
	invoices := services.NewInvoiceService(svcDeps)
	quotes := services.NewQuoteService(svcDeps, invoices)

	sessions := auth.NewManager(d.Auth.SessionSecret, d.Auth.SessionTTL,
		auth.WithSecureCookie(d.Auth.SecureCookie),
		auth.WithVerifier(users.Exists),
		auth.WithClock(d.Clock.Now),
	)
	authed := func(h http.HandlerFunc) http.Handler {
		return sessions.Middleware(sessions.RequireAuth(h))
	}
	requireCompany := handlers.RequireCompany(companies)
	scoped := func(h http.HandlerFunc) http.Handler {
		return authed(requireCompany(h).ServeHTTP)
	}

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		// lightweight DB check
		if err := d.DB.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Auth
	ah := handlers.NewAuthHandler(users, companies, sessions)
	mux.HandleFunc("POST /auth/register", ah.Register)
	mux.HandleFunc("POST /auth/login", ah.Login)
	mux.HandleFunc("POST /auth/logout", ah.Logout)
	mux.Handle("GET /auth/me", authed(ah.Me))

	// Company profile, needed before any document can be created
	ch := handlers.NewCompanyHandler(companies)
	mux.Handle("GET /company", authed(ch.Get))
	mux.Handle("PUT /company", authed(ch.Update))

	cu := handlers.NewCustomerHandler(services.NewCustomerService(d.DB))
	mux.Handle("GET /customers", scoped(cu.List))
	mux.Handle("POST /customers", scoped(cu.Create))
	mux.Handle("GET /customers/{id}", scoped(cu.Get))
	mux.Handle("PUT /customers/{id}", scoped(cu.Update))
	mux.Handle("DELETE /customers/{id}", scoped(cu.Delete))

	ph := handlers.NewProductHandler(services.NewProductService(d.DB))
	mux.Handle("GET /products", scoped(ph.List))
	mux.Handle("POST /products", scoped(ph.Create))
	mux.Handle("GET /products/{id}", scoped(ph.Get))
	mux.Handle("PUT /products/{id}", scoped(ph.Update))
	mux.Handle("DELETE /products/{id}", scoped(ph.Delete))

	ih := handlers.NewInvoiceHandler(invoices)
	mux.Handle("GET /invoices", scoped(ih.List))
	mux.Handle("POST /invoices", scoped(ih.Create))
	mux.Handle("GET /invoices/stats", scoped(ih.Stats))
	mux.Handle("GET /invoices/{id}", scoped(ih.Get))
	mux.Handle("PUT /invoices/{id}", scoped(ih.Update))
	mux.Handle("DELETE /invoices/{id}", scoped(ih.Delete))
	mux.Handle("PUT /invoices/{id}/items", scoped(ih.ReplaceItems))
	mux.Handle("POST /invoices/{id}/items", scoped(ih.AddItem))
	mux.Handle("PATCH /invoices/{id}/items/{itemID}", scoped(ih.UpdateItem))
	mux.Handle("DELETE /invoices/{id}/items/{itemID}", scoped(ih.RemoveItem))
	mux.Handle("POST /invoices/{id}/send", scoped(ih.Send))
	mux.Handle("POST /invoices/{id}/cancel", scoped(ih.Cancel))
	mux.Handle("GET /invoices/{id}/payments", scoped(ih.ListPayments))
	mux.Handle("POST /invoices/{id}/payments", scoped(ih.AddPayment))

	qh := handlers.NewQuoteHandler(quotes)
	mux.Handle("GET /quotes", scoped(qh.List))
	mux.Handle("POST /quotes", scoped(qh.Create))
	mux.Handle("GET /quotes/{id}", scoped(qh.Get))
	mux.Handle("PUT /quotes/{id}", scoped(qh.Update))
	mux.Handle("DELETE /quotes/{id}", scoped(qh.Delete))
	mux.Handle("PUT /quotes/{id}/items", scoped(qh.ReplaceItems))
	mux.Handle("POST /quotes/{id}/send", scoped(qh.Send))
	mux.Handle("POST /quotes/{id}/accept", scoped(qh.Accept))
	mux.Handle("POST /quotes/{id}/reject", scoped(qh.Reject))
	mux.Handle("POST /quotes/{id}/convert", scoped(qh.Convert))

	// Order matters: everything between the tracing middleware and the mux
	// must pass the request through unchanged so r.Pattern stays visible.
	var h http.Handler = logger.Middleware(mux)
	h = middleware.Metrics(d.Metrics)(h)
	h = tracing.Middleware(h)
	h = middleware.Lang(h)
	h = logger.Recover(h)
	return logger.RequestID(h)
}
