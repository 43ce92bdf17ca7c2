package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func item(t *testing.T, qty, price string, rate VATRate) LineItem {
	t.Helper()
	it, err := NewLineItem("Service", "", dec(qty), dec(price), rate, UnitUnit)
	require.NoError(t, err)
	return it
}
