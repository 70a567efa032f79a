package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculate_ReferenceScenario(t *testing.T) {
	// subtotal=1000, taxRate=15, discountRate=10
	totals := Calculate([]decimal.Decimal{dec("1000")}, dec("15"), dec("10"))

	if !totals.Subtotal.Equal(dec("1000")) {
		t.Fatalf("subtotal = %s, want 1000", totals.Subtotal)
	}
	if !totals.DiscountAmount.Equal(dec("100.00")) {
		t.Fatalf("discountAmount = %s, want 100.00", totals.DiscountAmount)
	}
	if !totals.TaxAmount.Equal(dec("135.00")) {
		t.Fatalf("taxAmount = %s, want 135.00", totals.TaxAmount)
	}
	if !totals.Total.Equal(dec("1035.00")) {
		t.Fatalf("total = %s, want 1035.00", totals.Total)
	}
}

func TestCalculate_ZeroRates(t *testing.T) {
	totals := Calculate([]decimal.Decimal{dec("200"), dec("49.99")}, decimal.Zero, decimal.Zero)

	if !totals.Subtotal.Equal(dec("249.99")) {
		t.Fatalf("subtotal = %s, want 249.99", totals.Subtotal)
	}
	if !totals.DiscountAmount.IsZero() || !totals.TaxAmount.IsZero() {
		t.Fatalf("expected zero discount and tax, got %s / %s", totals.DiscountAmount, totals.TaxAmount)
	}
	if !totals.Total.Equal(dec("249.99")) {
		t.Fatalf("total = %s, want 249.99", totals.Total)
	}
}

func TestCalculate_RoundsEveryStage(t *testing.T) {
	// 33.33 * 3.333% discount = 1.1109 -> 1.11; tax applies to 32.22.
	totals := Calculate([]decimal.Decimal{dec("33.33")}, dec("21"), dec("3.333"))

	if !totals.DiscountAmount.Equal(dec("1.11")) {
		t.Fatalf("discountAmount = %s, want 1.11", totals.DiscountAmount)
	}
	if !totals.TaxAmount.Equal(dec("6.77")) {
		// 32.22 * 0.21 = 6.7662 -> 6.77
		t.Fatalf("taxAmount = %s, want 6.77", totals.TaxAmount)
	}
	if !totals.Total.Equal(dec("38.99")) {
		t.Fatalf("total = %s, want 38.99", totals.Total)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	lines := []decimal.Decimal{dec("120.50"), dec("79.49"), dec("0.01")}
	first := Calculate(lines, dec("15"), dec("10"))
	second := Calculate(lines, dec("15"), dec("10"))

	if !first.Total.Equal(second.Total) || !first.Subtotal.Equal(second.Subtotal) ||
		!first.DiscountAmount.Equal(second.DiscountAmount) || !first.TaxAmount.Equal(second.TaxAmount) {
		t.Fatalf("recomputation changed totals: %+v vs %+v", first, second)
	}
}

func TestCalculate_MonotonicInTaxRate(t *testing.T) {
	lines := []decimal.Decimal{dec("500")}
	prev := decimal.NewFromInt(-1)
	for rate := 0; rate <= 100; rate += 5 {
		totals := Calculate(lines, decimal.NewFromInt(int64(rate)), dec("10"))
		if totals.Total.LessThan(prev) {
			t.Fatalf("total decreased at taxRate=%d: %s < %s", rate, totals.Total, prev)
		}
		prev = totals.Total
	}
}

func TestCalculate_NonIncreasingInDiscountRate(t *testing.T) {
	lines := []decimal.Decimal{dec("500")}
	prev := dec("1000000")
	for rate := 0; rate <= 100; rate += 5 {
		totals := Calculate(lines, dec("21"), decimal.NewFromInt(int64(rate)))
		if totals.Total.GreaterThan(prev) {
			t.Fatalf("total increased at discountRate=%d: %s > %s", rate, totals.Total, prev)
		}
		prev = totals.Total
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(dec("3"), dec("19.99")); !got.Equal(dec("59.97")) {
		t.Fatalf("LineTotal(3, 19.99) = %s, want 59.97", got)
	}
	if got := LineTotal(dec("2.5"), dec("0.333")); !got.Equal(dec("0.83")) {
		// 0.8325 rounds half away from zero to 0.83
		t.Fatalf("LineTotal(2.5, 0.333) = %s, want 0.83", got)
	}
}
