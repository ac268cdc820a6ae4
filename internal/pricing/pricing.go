package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_storefront/internal/domain"
)

// ErrUnknownShippingMethod is returned for a method code missing from the
// calculator's table.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

// Line is one priced row of a validated cart snapshot. UnitPrice must come
// from the catalog at validation time, never from the cart's display
// snapshot.
type Line struct {
	ProductID int64
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Calculator derives checkout quotes from a fixed shipping table and a flat
// tax rate. It is a pure function of its inputs: no side effects, no
// persistence, no caching.
type Calculator struct {
	methods map[string]domain.ShippingMethod
	taxRate decimal.Decimal // fraction, e.g. 0.0825 for 8.25%
}

// NewCalculator builds a calculator. taxRate is a fraction of the subtotal;
// jurisdiction-aware tax rules are a deliberate non-goal.
func NewCalculator(methods []domain.ShippingMethod, taxRate decimal.Decimal) *Calculator {
	table := make(map[string]domain.ShippingMethod, len(methods))
	for _, m := range methods {
		table[m.Code] = m
	}
	return &Calculator{methods: table, taxRate: taxRate}
}

// Quote computes the cost breakdown for a validated snapshot and a chosen
// shipping method. Arithmetic runs at full precision; each output field is
// rounded to two decimals (half-up) only at the end so rounding error never
// compounds across components.
//
// The free-shipping threshold is evaluated against the subtotal only, with a
// strict >= comparison. An empty snapshot still pays the method's base cost
// unless the zero subtotal happens to meet the threshold.
func (c *Calculator) Quote(lines []Line, methodCode string) (domain.CheckoutQuote, error) {
	method, ok := c.methods[methodCode]
	if !ok {
		return domain.CheckoutQuote{}, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, methodCode)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := method.Cost
	if method.FreeThreshold != nil && subtotal.GreaterThanOrEqual(*method.FreeThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(c.taxRate)
	total := subtotal.Add(shipping).Add(tax)

	return domain.CheckoutQuote{
		Method:   method.Code,
		Subtotal: subtotal.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
	}, nil
}

// Methods returns the shipping table for display.
func (c *Calculator) Methods() []domain.ShippingMethod {
	out := make([]domain.ShippingMethod, 0, len(c.methods))
	for _, m := range c.methods {
		out = append(out, m)
	}
	return out
}
