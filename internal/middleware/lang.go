// Package middleware holds the HTTP middlewares that are not tied to a
// single concern package.
package middleware

import (
	"context"
	"net/http"

	"github.com/ZenBillingApp/zenbilling/i18n"
)

type ctxKey string

const ctxLang ctxKey = "pref_lang"

const langCookie = "lang"

// Lang picks the response language (cookie > query > Accept-Language) and
// stores it in the context. A language given in the query is remembered in
// a cookie for 30 days.
func Lang(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := ""
		if c, err := r.Cookie(langCookie); err == nil {
			lang = c.Value
		}
		if ql := r.URL.Query().Get("lang"); ql != "" && supported(ql) {
			lang = ql
			http.SetCookie(w, &http.Cookie{Name: langCookie, Value: lang, Path: "/", MaxAge: 86400 * 30, SameSite: http.SameSiteLaxMode})
		}
		if !supported(lang) {
			lang = i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxLang, lang)))
	})
}

func supported(lang string) bool { return lang == "fr" || lang == "en" }

// LangFrom returns the language chosen by Lang, or detects it from the
// request headers when the middleware did not run.
func LangFrom(r *http.Request) string {
	if v, ok := r.Context().Value(ctxLang).(string); ok && v != "" {
		return v
	}
	return i18n.DetectLanguage(r.Header.Get("Accept-Language"))
}
