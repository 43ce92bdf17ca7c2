package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVATRate_Percent(t *testing.T) {
	tests := []struct {
		rate VATRate
		want string
	}{
		{VATZero, "0"},
		{VATSuperReduced, "2.1"},
		{VATReduced, "5.5"},
		{VATIntermediate, "10"},
		{VATStandard, "20"},
	}
	for _, tt := range tests {
		t.Run(string(tt.rate), func(t *testing.T) {
			got, err := tt.rate.Percent()
			require.NoError(t, err)
			assertDec(t, tt.want, got)
		})
	}
}

func TestVATRate_Unknown(t *testing.T) {
	_, err := VATRate("LUXURY").Percent()
	assert.ErrorIs(t, err, ErrUnknownVATRate)

	_, err = ParseVATRate("luxury")
	assert.ErrorIs(t, err, ErrUnknownVATRate)

	r, err := ParseVATRate(" standard ")
	require.NoError(t, err)
	assert.Equal(t, VATStandard, r)
}

func TestVATRate_UnmarshalJSON(t *testing.T) {
	var r VATRate
	require.NoError(t, r.UnmarshalJSON([]byte(`"REDUCED"`)))
	assert.Equal(t, VATReduced, r)

	assert.ErrorIs(t, r.UnmarshalJSON([]byte(`"TWENTY"`)), ErrUnknownVATRate)
	assert.ErrorIs(t, r.UnmarshalJSON([]byte(`20`)), ErrUnknownVATRate)
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "EUR", "0,00 €"},
		{"240", "EUR", "240,00 €"},
		{"1234.56", "EUR", "1 234,56 €"},
		{"123456", "", "123 456,00 €"},
		{"1234567.891", "usd", "1 234 567,89 $"},
		{"-5.005", "GBP", "-5,01 £"},
		{"12.5", "JPY", "12,50 JPY"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(dec(tt.amount), tt.currency))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "20 %", FormatPercent(VATStandard))
	assert.Equal(t, "5,5 %", FormatPercent(VATReduced))
	assert.Equal(t, "2,1 %", FormatPercent(VATSuperReduced))
	assert.Equal(t, "0 %", FormatPercent(VATZero))
	assert.Equal(t, "BOGUS", FormatPercent("BOGUS"))
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assertDec(t, "0.13", Round(dec("0.125")))
	assertDec(t, "-0.13", Round(dec("-0.125")))
	assertDec(t, "0.12", Round(dec("0.1249")))
}
