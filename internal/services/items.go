package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/billing"
	"github.com/ZenBillingApp/zenbilling/internal/models"
)

// ItemInput describes a line item either by value or by catalog product.
// With a product, explicitly given fields override the catalog values.
type ItemInput struct {
	ProductID   *uint            `json:"product_id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price_excluding_tax,omitempty"`
	VATRate     billing.VATRate  `json:"vat_rate"`
	Unit        billing.Unit     `json:"unit"`
}

// resolveLines turns inputs into validated lines, reporting the failing
// index the way the core aggregator does.
func resolveLines(ctx context.Context, tx *gorm.DB, sc Scope, inputs []ItemInput) ([]models.Line, error) {
	lines := make([]models.Line, 0, len(inputs))
	for i, in := range inputs {
		line, err := resolveLine(ctx, tx, sc, in)
		if err != nil {
			var lie *billing.LineItemError
			if errors.As(err, &lie) {
				lie.Index = i
			}
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func resolveLine(ctx context.Context, tx *gorm.DB, sc Scope, in ItemInput) (models.Line, error) {
	name, desc, rate, unit := in.Name, in.Description, in.VATRate, in.Unit
	var price decimal.Decimal
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	if in.ProductID != nil {
		var p models.Product
		err := tx.WithContext(ctx).Where("company_id = ?", sc.CompanyID).First(&p, *in.ProductID).Error
		if err != nil {
			return models.Line{}, notFound(err)
		}
		if name == "" {
			name = p.Name
		}
		if desc == "" {
			desc = p.Description
		}
		if in.UnitPrice == nil {
			price = p.Price
		}
		if rate == "" {
			rate = p.VATRate
		}
		if unit == "" {
			unit = p.Unit
		}
	}
	item, err := billing.NewLineItem(name, desc, in.Quantity, price, rate, unit)
	if err != nil {
		return models.Line{}, err
	}
	return models.Line{Item: item, ProductID: in.ProductID}, nil
}

func billingItems(lines []models.Line) []billing.LineItem {
	out := make([]billing.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Item)
	}
	return out
}
