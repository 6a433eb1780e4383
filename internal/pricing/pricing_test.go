package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// twoTierConfig is the reference campaign used throughout: opens at
// 20000/10a, executes at 18000 once 30 10a are committed, floors at
// 15000 when 50 10a are committed.
func twoTierConfig() Config {
	return Config{
		BasePrice:      N(d(20000)),
		MinPrice:       N(d(15000)),
		TargetArea:     N(d(50)),
		MinTargetArea:  N(d(30)),
		MaxTargetArea:  N(d(50)),
		ExecutionPrice: N(d(18000)),
	}
}

// --- State classification ---

func TestClassify(t *testing.T) {
	cfg := twoTierConfig()

	tests := []struct {
		committed float64
		want      State
	}{
		{0, StateBelowMinimum},
		{29.999, StateBelowMinimum},
		{30, StateBetweenMinAndMax},
		{40, StateBetweenMinAndMax},
		{49.999, StateBetweenMinAndMax},
		{50, StateAtOrAboveMaximum},
		{1000, StateAtOrAboveMaximum},
		{-5, StateBelowMinimum}, // negative clamps to 0
	}
	for _, tt := range tests {
		if got := Classify(cfg, d(tt.committed)); got != tt.want {
			t.Errorf("Classify(committed=%v) = %v, want %v", tt.committed, got, tt.want)
		}
	}
}

func TestClassify_NoMinimum(t *testing.T) {
	cfg := Config{
		BasePrice:  N(d(20000)),
		MinPrice:   N(d(15000)),
		TargetArea: N(d(50)),
	}
	for _, committed := range []float64{0, 10, 50, 100} {
		if got := Classify(cfg, d(committed)); got != StateNoMinimum {
			t.Errorf("Classify(committed=%v) = %v, want StateNoMinimum", committed, got)
		}
	}
}

// --- Reference scenario ---

func TestCurrentQuote_Unformed(t *testing.T) {
	q := CurrentQuote(twoTierConfig(), d(20))

	if !q.Unformed {
		t.Error("campaign at 20/30 should be unformed")
	}
	if q.CurrentPrice != nil {
		t.Errorf("unformed campaign must quote no price, got %s", q.CurrentPrice)
	}
	// progress = 20/30
	want := d(20).Div(d(30))
	if !q.Progress.Equal(want) {
		t.Errorf("progress = %s, want %s", q.Progress, want)
	}
	if !q.RemainingArea.Equal(d(30)) {
		t.Errorf("remaining area = %s, want 30", q.RemainingArea)
	}
	if q.PriceReduction != nil {
		t.Errorf("unformed campaign has no price reduction, got %s", q.PriceReduction)
	}
}

func TestCurrentQuote_AtViabilityThreshold(t *testing.T) {
	q := CurrentQuote(twoTierConfig(), d(30))

	if q.Unformed {
		t.Error("campaign at exactly the threshold must be formed")
	}
	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(18000)) {
		t.Errorf("price at threshold = %s, want execution price 18000", q.CurrentPrice)
	}
	if !q.Progress.IsZero() {
		t.Errorf("progress at threshold = %s, want 0", q.Progress)
	}
}

func TestCurrentQuote_Midway(t *testing.T) {
	q := CurrentQuote(twoTierConfig(), d(40))

	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(16500)) {
		t.Errorf("price at 40/50 = %s, want 16500", q.CurrentPrice)
	}
	if !q.Progress.Equal(d(0.5)) {
		t.Errorf("progress = %s, want 0.5", q.Progress)
	}
	if !q.RemainingArea.Equal(d(10)) {
		t.Errorf("remaining area = %s, want 10", q.RemainingArea)
	}
	if q.PriceReduction == nil || !q.PriceReduction.Equal(d(1500)) {
		t.Errorf("price reduction = %s, want 1500", q.PriceReduction)
	}
}

func TestCurrentQuote_CeilingSaturation(t *testing.T) {
	for _, committed := range []float64{50, 51, 500} {
		q := CurrentQuote(twoTierConfig(), d(committed))

		if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(15000)) {
			t.Errorf("price at committed=%v = %s, want floor 15000", committed, q.CurrentPrice)
		}
		if !q.Progress.Equal(d(1)) {
			t.Errorf("progress at committed=%v = %s, want 1", committed, q.Progress)
		}
		if !q.RemainingArea.IsZero() {
			t.Errorf("remaining area at committed=%v = %s, want 0", committed, q.RemainingArea)
		}
		if q.PriceReduction == nil || !q.PriceReduction.IsZero() {
			t.Errorf("price reduction at ceiling = %s, want 0", q.PriceReduction)
		}
	}
}

// --- Monotonicity ---

func TestCurrentQuote_PriceNonIncreasing(t *testing.T) {
	cfg := twoTierConfig()

	// Null for every committed area below the threshold.
	for _, committed := range []float64{0, 1, 15, 29.9} {
		if q := CurrentQuote(cfg, d(committed)); q.CurrentPrice != nil {
			t.Errorf("committed=%v: expected no price, got %s", committed, q.CurrentPrice)
		}
	}

	// Non-increasing from threshold to ceiling.
	prev := d(18001)
	for committed := 30.0; committed <= 55.0; committed += 0.5 {
		q := CurrentQuote(cfg, d(committed))
		if q.CurrentPrice == nil {
			t.Fatalf("committed=%v: expected a price", committed)
		}
		if q.CurrentPrice.GreaterThan(prev) {
			t.Errorf("price increased at committed=%v: %s > %s", committed, q.CurrentPrice, prev)
		}
		prev = *q.CurrentPrice
	}
}

// --- Single-tier model ---

func TestCurrentQuote_NoMinimum(t *testing.T) {
	cfg := Config{
		BasePrice:  N(d(20000)),
		MinPrice:   N(d(15000)),
		TargetArea: N(d(50)),
	}

	tests := []struct {
		committed float64
		price     float64
		progress  float64
	}{
		{0, 20000, 0},
		{25, 17500, 0.5},
		{50, 15000, 1},
		{100, 15000, 1}, // progress capped at 1
	}
	for _, tt := range tests {
		q := CurrentQuote(cfg, d(tt.committed))
		if q.Unformed {
			t.Errorf("committed=%v: single-tier campaigns are never unformed", tt.committed)
		}
		if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(tt.price)) {
			t.Errorf("committed=%v: price = %s, want %v", tt.committed, q.CurrentPrice, tt.price)
		}
		if !q.Progress.Equal(d(tt.progress)) {
			t.Errorf("committed=%v: progress = %s, want %v", tt.committed, q.Progress, tt.progress)
		}
	}
}

// The single-tier formula is not clamped when BasePrice < MinPrice: the
// price then rises above the base as the campaign fills. That is the
// deployed behavior and is preserved as-is.
func TestCurrentQuote_NoMinimum_InvertedPricesPreserved(t *testing.T) {
	cfg := Config{
		BasePrice:  N(d(10000)),
		MinPrice:   N(d(15000)),
		TargetArea: N(d(50)),
	}

	q := CurrentQuote(cfg, d(25))
	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(12500)) {
		t.Errorf("price = %s, want 12500 (unclamped interpolation toward higher floor)", q.CurrentPrice)
	}
}

func TestCurrentQuote_ZeroTargetAreaTreatedAsOne(t *testing.T) {
	cfg := Config{
		BasePrice: N(d(20000)),
		MinPrice:  N(d(15000)),
		// TargetArea absent: effective target 1, no division by zero.
	}

	q := CurrentQuote(cfg, d(0))
	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(20000)) {
		t.Errorf("price = %s, want 20000", q.CurrentPrice)
	}

	q = CurrentQuote(cfg, d(1))
	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(15000)) {
		t.Errorf("price at effective target = %s, want 15000", q.CurrentPrice)
	}
}

// --- Degenerate configs ---

func TestCurrentQuote_EmptyConfig(t *testing.T) {
	q := CurrentQuote(Config{}, d(0))

	if q.Unformed {
		t.Error("empty config has no minimum, must not be unformed")
	}
	if q.CurrentPrice == nil || !q.CurrentPrice.IsZero() {
		t.Errorf("price = %s, want 0", q.CurrentPrice)
	}
	if !q.RemainingArea.Equal(d(1)) {
		t.Errorf("remaining area = %s, want 1 (effective target)", q.RemainingArea)
	}
}

func TestCurrentQuote_DegenerateRange(t *testing.T) {
	// Threshold at or above the ceiling: progress saturates instead of
	// dividing by a non-positive span.
	cfg := Config{
		BasePrice:     N(d(20000)),
		MinPrice:      N(d(15000)),
		TargetArea:    N(d(50)),
		MinTargetArea: N(d(50)),
		MaxTargetArea: N(d(30)),
	}

	q := CurrentQuote(cfg, d(40))
	if q.State != StateBetweenMinAndMax {
		t.Fatalf("state = %v, want StateBetweenMinAndMax", q.State)
	}
	if !q.Progress.Equal(d(1)) {
		t.Errorf("progress = %s, want 1 (degenerate range)", q.Progress)
	}
	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(15000)) {
		t.Errorf("price = %s, want 15000", q.CurrentPrice)
	}
}

func TestCurrentQuote_ExecutionPriceFallsBackToBase(t *testing.T) {
	cfg := twoTierConfig()
	cfg.ExecutionPrice = N(decimal.Zero)

	q := CurrentQuote(cfg, d(30))
	if q.CurrentPrice == nil || !q.CurrentPrice.Equal(d(20000)) {
		t.Errorf("price at threshold = %s, want base price 20000", q.CurrentPrice)
	}
}

func TestCurrentQuote_NegativeCommittedClamped(t *testing.T) {
	cfg := Config{
		BasePrice:  N(d(20000)),
		MinPrice:   N(d(15000)),
		TargetArea: N(d(50)),
	}

	got := CurrentQuote(cfg, d(-10))
	want := CurrentQuote(cfg, d(0))

	if !got.CurrentPrice.Equal(*want.CurrentPrice) || !got.Progress.Equal(want.Progress) {
		t.Errorf("negative committed area must price like zero: got %s/%s, want %s/%s",
			got.CurrentPrice, got.Progress, want.CurrentPrice, want.Progress)
	}
}

// --- Amounts and tax ---

func TestFinalAmount(t *testing.T) {
	tests := []struct {
		price, area, want float64
	}{
		{15000, 10, 150000},
		{16500, 3.3, 54450},
		{15000, 0, 0},
		{15000, -5, 0},   // negative area clamps to 0
		{333, 0.5, 166},  // floor of 166.5
	}
	for _, tt := range tests {
		got := FinalAmount(d(tt.price), d(tt.area))
		if !got.Equal(d(tt.want)) {
			t.Errorf("FinalAmount(%v, %v) = %s, want %v", tt.price, tt.area, got, tt.want)
		}
	}
}

func TestTax(t *testing.T) {
	tests := []struct {
		exTax, tax, inclusive float64
	}{
		{150000, 15000, 165000},
		{101, 10, 111}, // floor of 10.1
		{9, 0, 9},      // floor of 0.9
		{0, 0, 0},
	}
	for _, tt := range tests {
		tb := Tax(d(tt.exTax))
		if !tb.TaxAmount.Equal(d(tt.tax)) {
			t.Errorf("Tax(%v).TaxAmount = %s, want %v", tt.exTax, tb.TaxAmount, tt.tax)
		}
		if !tb.AmountInclusive.Equal(d(tt.inclusive)) {
			t.Errorf("Tax(%v).AmountInclusive = %s, want %v", tt.exTax, tb.AmountInclusive, tt.inclusive)
		}
		if !tb.TaxRate.Equal(d(0.10)) {
			t.Errorf("Tax(%v).TaxRate = %s, want 0.1", tt.exTax, tb.TaxRate)
		}
	}
}

func TestTax_RoundTrip(t *testing.T) {
	for _, exTax := range []float64{0, 1, 9, 10, 99, 100, 12345, 150000} {
		tb := Tax(d(exTax))
		want := d(exTax).Add(d(exTax).Mul(d(0.10)).Floor())
		if !tb.AmountInclusive.Equal(want) {
			t.Errorf("inclusive(%v) = %s, want %s", exTax, tb.AmountInclusive, want)
		}
	}
}

// --- Composition ---

func TestCampaignPrice_FullBilling(t *testing.T) {
	res := CampaignPrice(twoTierConfig(), d(50), d(10))

	if res.Billing == nil {
		t.Fatal("expected billing for positive applied area")
	}
	if !res.Billing.UnitPrice.Equal(d(15000)) {
		t.Errorf("unit price = %s, want 15000", res.Billing.UnitPrice)
	}
	if !res.Billing.AmountExTax.Equal(d(150000)) {
		t.Errorf("amount ex tax = %s, want 150000", res.Billing.AmountExTax)
	}
	if !res.Billing.TaxAmount.Equal(d(15000)) {
		t.Errorf("tax = %s, want 15000", res.Billing.TaxAmount)
	}
	if !res.Billing.AmountInclusive.Equal(d(165000)) {
		t.Errorf("inclusive = %s, want 165000", res.Billing.AmountInclusive)
	}
}

func TestCampaignPrice_UnformedBillsAtBasePrice(t *testing.T) {
	res := CampaignPrice(twoTierConfig(), d(20), d(5))

	if !res.Unformed {
		t.Fatal("campaign at 20/30 should be unformed")
	}
	if res.Billing == nil {
		t.Fatal("unformed campaigns still produce billing at the base price")
	}
	if !res.Billing.UnitPrice.Equal(d(20000)) {
		t.Errorf("unit price = %s, want base price 20000", res.Billing.UnitPrice)
	}
	if !res.Billing.AmountExTax.Equal(d(100000)) {
		t.Errorf("amount ex tax = %s, want 100000", res.Billing.AmountExTax)
	}
}

func TestCampaignPrice_NoBillingWithoutArea(t *testing.T) {
	for _, area := range []float64{0, -3} {
		res := CampaignPrice(twoTierConfig(), d(40), d(area))
		if res.Billing != nil {
			t.Errorf("applied area %v must not produce billing", area)
		}
	}
}

func TestCampaignPrice_EmptyConfigZeroArea(t *testing.T) {
	// Nothing here may panic; the all-zero config prices at 0.
	res := CampaignPrice(Config{}, decimal.Zero, decimal.Zero)
	if res.CurrentPrice == nil || !res.CurrentPrice.IsZero() {
		t.Errorf("price = %s, want 0", res.CurrentPrice)
	}
	if res.Billing != nil {
		t.Error("zero applied area must not produce billing")
	}
}
