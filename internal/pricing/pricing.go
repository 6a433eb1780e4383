// Package pricing implements the reverse-auction pricing curve for
// drone-work campaigns: as more field area is committed to a campaign,
// the per-unit price every participant pays drops from the opening price
// toward a floor price.
//
// A campaign with a minimum viable area quotes no price at all until the
// committed total clears that threshold ("unformed"). From the threshold
// the price interpolates linearly from the execution price down to the
// floor price at the ceiling area. Legacy campaigns without a minimum
// interpolate directly from the base price over the target area.
//
// All monetary and area values use shopspring/decimal — never float64
// for money. Every function here is pure and safe for concurrent use;
// the same inputs produce the same quote on every caller (live previews
// and server-side price locks must agree exactly).
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is the consumption tax rate applied to all billed amounts.
var TaxRate = decimal.NewFromFloat(0.10)

var one = decimal.NewFromInt(1)

// State identifies which segment of the pricing curve a campaign is on,
// as a function of its committed area.
type State int

const (
	// StateNoMinimum is the legacy single-tier model: no viability
	// threshold, price interpolates over the target area from the start.
	StateNoMinimum State = iota

	// StateBelowMinimum means the campaign has a viability threshold and
	// has not reached it. No price is quoted.
	StateBelowMinimum

	// StateBetweenMinAndMax means the threshold is cleared and the price
	// is interpolating from the execution price toward the floor.
	StateBetweenMinAndMax

	// StateAtOrAboveMaximum means the ceiling area is reached and the
	// floor price applies.
	StateAtOrAboveMaximum
)

func (s State) String() string {
	switch s {
	case StateNoMinimum:
		return "no_minimum"
	case StateBelowMinimum:
		return "below_minimum"
	case StateBetweenMinAndMax:
		return "between_min_and_max"
	case StateAtOrAboveMaximum:
		return "at_or_above_maximum"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *State) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"no_minimum"`:
		*s = StateNoMinimum
	case `"below_minimum"`:
		*s = StateBelowMinimum
	case `"between_min_and_max"`:
		*s = StateBetweenMinAndMax
	case `"at_or_above_maximum"`:
		*s = StateAtOrAboveMaximum
	default:
		return fmt.Errorf("unknown pricing state %s", data)
	}
	return nil
}

// Config is a campaign's immutable pricing configuration. Fields use
// Numeric so blank or malformed values decode to zero rather than
// failing (see ParseNumericOrZero).
type Config struct {
	// BasePrice is the opening per-unit price while committed area is low.
	BasePrice Numeric `json:"base_price"`

	// MinPrice is the floor price, fully reached at the ceiling area.
	MinPrice Numeric `json:"min_price"`

	// TargetArea is the reference area for the single-tier model.
	// Treated as 1 when zero or negative to keep the curve defined.
	TargetArea Numeric `json:"target_area"`

	// MinTargetArea is the minimum viable committed area. When positive
	// the two-tier model applies; otherwise the single-tier model.
	MinTargetArea Numeric `json:"min_target_area"`

	// MaxTargetArea is the ceiling area at which MinPrice is fully
	// reached. Falls back to TargetArea when zero or negative.
	MaxTargetArea Numeric `json:"max_target_area"`

	// ExecutionPrice is the unit price in effect the moment the campaign
	// becomes viable. Falls back to BasePrice when zero or negative.
	ExecutionPrice Numeric `json:"execution_price"`
}

func (c Config) effectiveTargetArea() decimal.Decimal {
	if c.TargetArea.IsPositive() {
		return c.TargetArea.Decimal
	}
	return one
}

func (c Config) effectiveMaxTargetArea() decimal.Decimal {
	if c.MaxTargetArea.IsPositive() {
		return c.MaxTargetArea.Decimal
	}
	return c.TargetArea.Decimal
}

func (c Config) effectiveExecutionPrice() decimal.Decimal {
	if c.ExecutionPrice.IsPositive() {
		return c.ExecutionPrice.Decimal
	}
	return c.BasePrice.Decimal
}

// Quote is the result of pricing a campaign at a committed-area total.
type Quote struct {
	State State `json:"state"`

	// CurrentPrice is the per-unit price, nil exactly while the campaign
	// is unformed.
	CurrentPrice *decimal.Decimal `json:"current_price"`

	// Progress is the fraction in [0,1] toward the relevant threshold:
	// the viability threshold while unformed, the ceiling afterwards.
	Progress decimal.Decimal `json:"progress"`

	// Unformed reports whether the campaign has not reached its minimum
	// viable committed area.
	Unformed bool `json:"unformed"`

	// RemainingArea is the area still needed to reach the ceiling,
	// never negative.
	RemainingArea decimal.Decimal `json:"remaining_area"`

	// PriceReduction is how far the unit price would still drop if the
	// ceiling were reached from the current price. Nil while unformed.
	PriceReduction *decimal.Decimal `json:"price_reduction,omitempty"`
}

// clampArea treats negative areas as zero. Upstream validation rejects
// negative submissions; the engine itself stays total on all inputs.
func clampArea(a decimal.Decimal) decimal.Decimal {
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Classify returns the pricing state for a committed-area total. The
// four states are mutually exclusive and exhaustive; each quote function
// below handles exactly one of them.
func Classify(cfg Config, committedArea decimal.Decimal) State {
	committed := clampArea(committedArea)

	if !cfg.MinTargetArea.IsPositive() {
		return StateNoMinimum
	}
	if committed.LessThan(cfg.MinTargetArea.Decimal) {
		return StateBelowMinimum
	}
	if committed.GreaterThanOrEqual(cfg.effectiveMaxTargetArea()) {
		return StateAtOrAboveMaximum
	}
	return StateBetweenMinAndMax
}

// CurrentQuote prices a campaign at the given committed-area total.
// Negative committed area is clamped to zero.
func CurrentQuote(cfg Config, committedArea decimal.Decimal) Quote {
	committed := clampArea(committedArea)

	switch Classify(cfg, committed) {
	case StateBelowMinimum:
		return quoteBelowMinimum(cfg, committed)
	case StateAtOrAboveMaximum:
		return quoteAtOrAboveMaximum(cfg, committed)
	case StateBetweenMinAndMax:
		return quoteBetweenMinAndMax(cfg, committed)
	default:
		return quoteNoMinimum(cfg, committed)
	}
}

// quoteNoMinimum: straight interpolation from BasePrice at progress 0 to
// MinPrice at progress 1 over the target area. Deliberately not clamped
// when BasePrice < MinPrice: the price then rises as the campaign fills.
// That matches the deployed curve and changing it would re-price live
// campaigns.
func quoteNoMinimum(cfg Config, committed decimal.Decimal) Quote {
	target := cfg.effectiveTargetArea()

	progress := committed.Div(target)
	if progress.GreaterThan(one) {
		progress = one
	}

	price := cfg.BasePrice.Sub(cfg.BasePrice.Sub(cfg.MinPrice.Decimal).Mul(progress)).Floor()
	reduction := maxZero(price.Sub(cfg.MinPrice.Floor()))

	return Quote{
		State:          StateNoMinimum,
		CurrentPrice:   &price,
		Progress:       progress,
		Unformed:       false,
		RemainingArea:  maxZero(target.Sub(committed)),
		PriceReduction: &reduction,
	}
}

// quoteBelowMinimum: the campaign is unformed. Progress counts toward
// the viability threshold, not the ceiling, and no price is quoted.
func quoteBelowMinimum(cfg Config, committed decimal.Decimal) Quote {
	return Quote{
		State:         StateBelowMinimum,
		CurrentPrice:  nil,
		Progress:      committed.Div(cfg.MinTargetArea.Decimal),
		Unformed:      true,
		RemainingArea: maxZero(cfg.effectiveMaxTargetArea().Sub(committed)),
	}
}

// quoteBetweenMinAndMax: interpolation from the execution price at the
// viability threshold to MinPrice at the ceiling. A degenerate range
// (threshold >= ceiling) saturates progress at 1 instead of dividing by
// a non-positive span.
func quoteBetweenMinAndMax(cfg Config, committed decimal.Decimal) Quote {
	minTarget := cfg.MinTargetArea.Decimal
	maxTarget := cfg.effectiveMaxTargetArea()

	progress := one
	if span := maxTarget.Sub(minTarget); span.IsPositive() {
		progress = committed.Sub(minTarget).Div(span)
	}

	exec := cfg.effectiveExecutionPrice()
	price := exec.Add(cfg.MinPrice.Sub(exec).Mul(progress)).Floor()
	reduction := maxZero(price.Sub(cfg.MinPrice.Floor()))

	return Quote{
		State:          StateBetweenMinAndMax,
		CurrentPrice:   &price,
		Progress:       progress,
		Unformed:       false,
		RemainingArea:  maxZero(maxTarget.Sub(committed)),
		PriceReduction: &reduction,
	}
}

// quoteAtOrAboveMaximum: the ceiling is met, the floor price applies.
func quoteAtOrAboveMaximum(cfg Config, committed decimal.Decimal) Quote {
	price := cfg.MinPrice.Floor()
	reduction := decimal.Zero

	return Quote{
		State:          StateAtOrAboveMaximum,
		CurrentPrice:   &price,
		Progress:       one,
		Unformed:       false,
		RemainingArea:  maxZero(cfg.effectiveMaxTargetArea().Sub(committed)),
		PriceReduction: &reduction,
	}
}

// FinalAmount computes the tax-exclusive charge for an applied area at a
// unit price: floor(price × area). Negative areas are clamped to zero.
func FinalAmount(unitPrice, appliedArea decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(clampArea(appliedArea)).Floor()
}

// TaxBreakdown carries the tax portion derived from a tax-exclusive amount.
type TaxBreakdown struct {
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	AmountInclusive decimal.Decimal `json:"amount_inclusive"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

// Tax derives the tax amount and tax-inclusive total from a
// tax-exclusive amount: taxAmount = floor(amount × TaxRate).
func Tax(amountExTax decimal.Decimal) TaxBreakdown {
	tax := amountExTax.Mul(TaxRate).Floor()
	return TaxBreakdown{
		TaxAmount:       tax,
		AmountInclusive: amountExTax.Add(tax),
		TaxRate:         TaxRate,
	}
}

// Billing is the charge for a specific applied area at the quoted price.
type Billing struct {
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AmountExTax     decimal.Decimal `json:"amount_ex_tax"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	AmountInclusive decimal.Decimal `json:"amount_inclusive"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

// Result is a quote plus, when an applied area was supplied, the derived
// billing amounts.
type Result struct {
	Quote
	Billing *Billing `json:"billing,omitempty"`
}

// CampaignPrice composes CurrentQuote, FinalAmount, and Tax. Billing is
// included only when appliedArea is positive. While the campaign is
// unformed the applied area is billed at the base price — applications
// to a not-yet-viable campaign commit at the opening price rather than
// being rejected.
func CampaignPrice(cfg Config, committedArea, appliedArea decimal.Decimal) Result {
	quote := CurrentQuote(cfg, committedArea)
	res := Result{Quote: quote}

	applied := clampArea(appliedArea)
	if !applied.IsPositive() {
		return res
	}

	unit := cfg.BasePrice.Decimal
	if quote.CurrentPrice != nil {
		unit = *quote.CurrentPrice
	}

	exTax := FinalAmount(unit, applied)
	tb := Tax(exTax)

	res.Billing = &Billing{
		UnitPrice:       unit,
		AmountExTax:     exTax,
		TaxAmount:       tb.TaxAmount,
		AmountInclusive: tb.AmountInclusive,
		TaxRate:         tb.TaxRate,
	}
	return res
}
