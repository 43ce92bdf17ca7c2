// Package i18n translates API error codes for the languages the product ships.
package i18n

import (
	"golang.org/x/text/language"
)

const DefaultLanguage = "fr"

var (
	supported = []language.Tag{language.French, language.English}
	matcher   = language.NewMatcher(supported)
)

var messages = map[string]map[string]string{
	"fr": {
		"required":              "Requis",
		"invalid_email":         "Adresse e-mail invalide",
		"must_be_positive":      "Doit être strictement positif",
		"must_not_be_negative":  "Ne doit pas être négatif",
		"invalid_value":         "Valeur invalide",
		"invalid_format":        "Format invalide",
		"too_long":              "Trop long",
		"too_precise":           "Trop de décimales",
		"validation_failed":     "Certains champs sont invalides",
		"invalid_json":          "Corps de requête JSON invalide",
		"unauthorized":          "Authentification requise",
		"invalid_credentials":   "Identifiants invalides",
		"email_taken":           "Cette adresse e-mail est déjà utilisée",
		"not_found":             "Ressource introuvable",
		"company_required":      "Renseignez d'abord votre entreprise",
		"illegal_transition":    "Action impossible dans l'état actuel du document",
		"invalid_line_item":     "Ligne de document invalide",
		"unknown_vat_rate":      "Taux de TVA inconnu",
		"invalid_payment":       "Paiement invalide",
		"empty_document":        "Le document ne contient aucune ligne",
		"document_has_payments": "Le document a des paiements enregistrés",
		"invalid_dates":         "Dates incohérentes",
		"in_use":                "Élément utilisé par des documents",
		"already_converted":     "Ce devis a déjà été converti en facture",
		"too_short":             "Trop court",
		"internal_error":        "Erreur interne",
	},
	"en": {
		"required":              "Required",
		"invalid_email":         "Invalid email address",
		"must_be_positive":      "Must be greater than zero",
		"must_not_be_negative":  "Must not be negative",
		"invalid_value":         "Invalid value",
		"invalid_format":        "Invalid format",
		"too_long":              "Too long",
		"too_precise":           "Too many decimals",
		"validation_failed":     "Some fields are invalid",
		"invalid_json":          "Invalid JSON request body",
		"unauthorized":          "Authentication required",
		"invalid_credentials":   "Invalid credentials",
		"email_taken":           "This email address is already in use",
		"not_found":             "Resource not found",
		"company_required":      "Set up your company first",
		"illegal_transition":    "Action not allowed in the document's current state",
		"invalid_line_item":     "Invalid line item",
		"unknown_vat_rate":      "Unknown VAT rate",
		"invalid_payment":       "Invalid payment",
		"empty_document":        "The document has no line items",
		"document_has_payments": "The document has recorded payments",
		"invalid_dates":         "Inconsistent dates",
		"in_use":                "Item is referenced by documents",
		"already_converted":     "This quote has already been converted",
		"too_short":             "Too short",
		"internal_error":        "Internal error",
	},
}

// DetectLanguage picks the best supported language from an Accept-Language
// header, defaulting to French.
func DetectLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLanguage
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLanguage
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// T translates code, falling back to French and then to the code itself.
func T(lang, code string) string {
	if msg, ok := messages[lang][code]; ok {
		return msg
	}
	if msg, ok := messages[DefaultLanguage][code]; ok {
		return msg
	}
	return code
}

// TranslateAll maps every value of a field->code map.
func TranslateAll(lang string, codes map[string]string) map[string]string {
	out := make(map[string]string, len(codes))
	for field, code := range codes {
		out[field] = T(lang, code)
	}
	return out
}
