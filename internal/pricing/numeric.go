package pricing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumericOrZero coerces an arbitrary value to a decimal, treating
// nil, empty strings, and non-numeric input as zero. Campaign pricing
// rows historically came from spreadsheet imports where blank cells mean
// "not set", so the pricing boundary tolerates them instead of failing.
func ParseNumericOrZero(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		return ParseNumericOrZero(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return ParseNumericOrZero(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	default:
		return decimal.Zero
	}
}

// Numeric is a decimal whose JSON decoding never fails: null, "", and
// malformed values all decode to zero via ParseNumericOrZero. Campaign
// configuration fields use this type so a half-filled campaign row still
// produces a well-defined (degenerate) quote.
type Numeric struct {
	decimal.Decimal
}

// N wraps a decimal as a Numeric.
func N(d decimal.Decimal) Numeric {
	return Numeric{Decimal: d}
}

func (n *Numeric) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		n.Decimal = decimal.Zero
		return nil
	}
	n.Decimal = ParseNumericOrZero(v)
	return nil
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	return n.Decimal.MarshalJSON()
}
