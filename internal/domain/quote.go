package domain

import "github.com/shopspring/decimal"

// ShippingMethod is one row of the fixed shipping table. A nil FreeThreshold
// means the method is never free.
type ShippingMethod struct {
	Code          string           `json:"code"`
	Label         string           `json:"label"`
	Cost          decimal.Decimal  `json:"cost"`
	FreeThreshold *decimal.Decimal `json:"free_threshold,omitempty"`
}

// CheckoutQuote is a derived cost breakdown. It is computed fresh on every
// pricing request and never persisted; any cart mutation invalidates it.
type CheckoutQuote struct {
	Method   string          `json:"method"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}
