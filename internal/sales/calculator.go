package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is the VAT rate applied to the discounted subtotal.
var TaxRate = decimal.RequireFromString("0.16")

// LineAmount is one priced sale line fed into the totals computation.
type LineAmount struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals is the monetary breakdown of a sale.
type Totals struct {
	Subtotal    decimal.Decimal
	TaxableBase decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals derives subtotal, tax, and total from the priced lines and
// discount. Pure; no I/O, no mutation of inputs.
//
// The taxable base is subtotal minus discount and is NOT clamped at zero: a
// discount larger than the subtotal yields a negative base and negative tax.
func ComputeTotals(lines []LineAmount, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	base := subtotal.Sub(discount)
	tax := base.Mul(TaxRate).Round(2)
	total := base.Add(tax)

	return Totals{
		Subtotal:    subtotal,
		TaxableBase: base,
		Tax:         tax,
		Total:       total,
	}
}
