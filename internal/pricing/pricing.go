// Package pricing computes the order summary shown for a cart: subtotal,
// threshold shipping, flat tax and total.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/models"
)

var (
	// Orders strictly above this subtotal ship free.
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShipping          = decimal.RequireFromString("5.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

type Summary struct {
	Subtotal              decimal.Decimal
	Shipping              decimal.Decimal
	Tax                   decimal.Decimal
	Total                 decimal.Decimal
	FreeShippingRemaining decimal.Decimal
}

// Summarize prices lines exactly. Nothing is rounded here; callers round
// for display or persistence.
func Summarize(lines []models.CartLine) Summary {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	return FromSubtotal(subtotal)
}

func FromSubtotal(subtotal decimal.Decimal) Summary {
	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	remaining := decimal.Zero
	if shipping.IsPositive() && subtotal.LessThan(FreeShippingThreshold) {
		remaining = FreeShippingThreshold.Sub(subtotal)
	}

	tax := subtotal.Mul(TaxRate)

	return Summary{
		Subtotal:              subtotal,
		Shipping:              shipping,
		Tax:                   tax,
		Total:                 subtotal.Add(shipping).Add(tax),
		FreeShippingRemaining: remaining,
	}
}

// View is Summary rendered to two decimals for JSON responses.
type View struct {
	Subtotal              string `json:"subtotal"`
	Shipping              string `json:"shipping"`
	Tax                   string `json:"tax"`
	Total                 string `json:"total"`
	FreeShippingRemaining string `json:"free_shipping_remaining"`
}

func (s Summary) View() View {
	return View{
		Subtotal:              s.Subtotal.StringFixed(2),
		Shipping:              s.Shipping.StringFixed(2),
		Tax:                   s.Tax.StringFixed(2),
		Total:                 s.Total.StringFixed(2),
		FreeShippingRemaining: s.FreeShippingRemaining.StringFixed(2),
	}
}
