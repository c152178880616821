package cart

import (
	"github.com/angelmondragon/bakery-cart/pkg/config"
	"github.com/shopspring/decimal"
)

const (
	DefaultTaxRate               = 0.15
	DefaultFreeShippingThreshold = 10000.0
	DefaultStandardShipping      = 500.0
)

// Pricing holds the rates aggregates and shipping are computed with.
type Pricing struct {
	TaxRate               float64
	FreeShippingThreshold float64
	StandardShipping      float64
}

func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               DefaultTaxRate,
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		StandardShipping:      DefaultStandardShipping,
	}
}

// PricingFromConfig maps the BAKERY_CART_* settings onto Pricing.
func PricingFromConfig(cfg config.CartConfig) Pricing {
	return Pricing{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		StandardShipping:      cfg.StandardShipping,
	}
}

// apply recomputes Subtotal, Tax and Total from the items, rounding each to
// two decimal places half away from zero.
func (p Pricing) apply(c *Cart) {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		line := decimal.NewFromFloat(item.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)

	c.Subtotal = subtotal.InexactFloat64()
	c.Tax = tax.InexactFloat64()
	c.Total = subtotal.Add(tax).InexactFloat64()
}

// ShippingCost is 0 at or above the free shipping threshold, the standard
// rate otherwise.
func (p Pricing) ShippingCost(subtotal float64) float64 {
	if subtotal >= p.FreeShippingThreshold {
		return 0
	}
	return p.StandardShipping
}

// AmountForFreeShipping is how much more subtotal unlocks free shipping.
func (p Pricing) AmountForFreeShipping(subtotal float64) float64 {
	remaining := decimal.NewFromFloat(p.FreeShippingThreshold).Sub(decimal.NewFromFloat(subtotal)).Round(2)
	if remaining.IsNegative() {
		return 0
	}
	return remaining.InexactFloat64()
}
