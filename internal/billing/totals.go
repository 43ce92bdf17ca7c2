package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Totals are the document-level amounts, rounded to MoneyPlaces.
// IncludingTax always equals ExcludingTax + Tax exactly.
type Totals struct {
	ExcludingTax decimal.Decimal `json:"amount_excluding_tax"`
	Tax          decimal.Decimal `json:"tax"`
	IncludingTax decimal.Decimal `json:"amount_including_tax"`

	breakdown map[VATRate]*VATBreakdown
}

// VATBreakdown is the taxable base and tax for one rate.
type VATBreakdown struct {
	Rate    VATRate         `json:"vat_rate"`
	Percent decimal.Decimal `json:"percent"`
	Base    decimal.Decimal `json:"base"`
	Tax     decimal.Decimal `json:"tax"`
}

// ComputeTotals sums the items in order and rounds once at the end.
// An empty list yields zero totals.
func ComputeTotals(items []LineItem) (Totals, error) {
	excl := decimal.Zero
	tax := decimal.Zero
	breakdown := make(map[VATRate]*VATBreakdown)

	for i, it := range items {
		lt, err := it.totals(i)
		if err != nil {
			return Totals{}, err
		}
		excl = excl.Add(lt.ExcludingTax)
		tax = tax.Add(lt.Tax)

		b, ok := breakdown[it.VATRate]
		if !ok {
			percent, _ := it.VATRate.Percent()
			b = &VATBreakdown{Rate: it.VATRate, Percent: percent, Base: decimal.Zero, Tax: decimal.Zero}
			breakdown[it.VATRate] = b
		}
		b.Base = b.Base.Add(lt.ExcludingTax)
		b.Tax = b.Tax.Add(lt.Tax)
	}

	exclRounded := Round(excl)
	taxRounded := Round(tax)
	return Totals{
		ExcludingTax: exclRounded,
		Tax:          taxRounded,
		IncludingTax: exclRounded.Add(taxRounded),
		breakdown:    breakdown,
	}, nil
}

// ByRate returns the per-rate breakdown, lowest rate first, rounded.
func (t Totals) ByRate() []VATBreakdown {
	out := make([]VATBreakdown, 0, len(t.breakdown))
	for _, b := range t.breakdown {
		out = append(out, VATBreakdown{
			Rate:    b.Rate,
			Percent: b.Percent,
			Base:    Round(b.Base),
			Tax:     Round(b.Tax),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Percent.LessThan(out[j].Percent) })
	return out
}
