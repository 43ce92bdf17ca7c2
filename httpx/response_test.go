package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
)

func TestJSONWritesDecimalsAsNumbers(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]any{"total": decimal.RequireFromString("240.50")})
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"total":240.5}`, w.Body.String())
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"validation_failed","details":{"name":"required"}}`, w.Body.String())
}

func TestDecode(t *testing.T) {
	type payload struct {
		Rate billing.VATRate `json:"vat_rate"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vat_rate":"reduced"}`))
	req.Header.Set("Content-Type", "application/json")
	var p payload
	require.NoError(t, Decode(req, &p))
	assert.Equal(t, billing.VATReduced, p.Rate)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
	assert.ErrorIs(t, Decode(req, &p), ErrInvalidJSON)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vat_rate":"HALF"}`))
	err := Decode(req, &p)
	assert.True(t, errors.Is(err, billing.ErrUnknownVATRate))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	assert.ErrorIs(t, Decode(req, &p), ErrInvalidJSON)
}

func TestDate(t *testing.T) {
	var body struct {
		Issue Date `json:"issue"`
		Due   Date `json:"due"`
		None  Date `json:"none"`
	}
	err := json.Unmarshal([]byte(`{"issue":"2026-03-01","due":"2026-03-31T23:30:00-02:00","none":null}`), &body)
	require.NoError(t, err)
	assert.True(t, body.Issue.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, body.Due.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, body.None.IsZero())

	out, err := json.Marshal(body.Issue)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-01"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"issue":"01/03/2026"}`), &body))
}
