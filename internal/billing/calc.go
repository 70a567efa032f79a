// Package billing provides the shared money arithmetic for quotes and
// invoices. Both engines derive their stored totals from the same fixed
// calculation order so the two documents can never drift apart.
package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary amount to two decimal places (half away from zero).
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// LineTotal computes quantity x rate rounded to cents.
func LineTotal(quantity, rate decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(rate))
}

// Totals holds the derived money fields of a quote or invoice.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Calculate derives totals from line totals and percentage rates in [0,100].
// The order is fixed and every stage is rounded to cents before the next
// uses it: discount off the subtotal first, then tax on the discounted
// subtotal. Rates outside [0,100] are a caller bug, not validated here.
func Calculate(lineTotals []decimal.Decimal, taxRate, discountRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(Round2(lt))
	}
	subtotal = Round2(subtotal)

	discountAmount := Round2(subtotal.Mul(discountRate).Div(hundred))
	afterDiscount := subtotal.Sub(discountAmount)
	taxAmount := Round2(afterDiscount.Mul(taxRate).Div(hundred))
	total := Round2(afterDiscount.Add(taxAmount))

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		Total:          total,
	}
}
