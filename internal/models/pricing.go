package models

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the sales tax applied to every order
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Totals holds the derived money amounts of an order
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// PricingCalculator derives order totals from ledger lines
type PricingCalculator struct {
	TaxRate decimal.Decimal
}

// NewPricingCalculator creates a calculator for the given tax rate.
// A negative rate falls back to DefaultTaxRate.
func NewPricingCalculator(taxRate decimal.Decimal) *PricingCalculator {
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &PricingCalculator{TaxRate: taxRate}
}

// Calculate computes subtotal, tax and total for the given lines
func (p *PricingCalculator) Calculate(lines []OrderLine) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}

	tax := subtotal.Mul(p.TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// FormatMoney renders an amount with two decimals and a dollar sign
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
