// Package numparse normalizes loosely-typed money values from the
// backend into plain numbers. Downstream arithmetic assumes its output
// is always finite; anything unparsable becomes 0.
package numparse

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountString parses a currency-ish string ("$1,234.50", " 500 ",
// "-20") into a number. Every rune that is not a digit, sign, or
// decimal point is stripped before parsing. Returns 0 when nothing
// parsable remains.
func AmountString(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '+':
			return r
		default:
			return -1
		}
	}, s)

	if cleaned == "" {
		return 0
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return sanitize(d.InexactFloat64())
}

// Amount normalizes any value intended to represent money or a count.
func Amount(v interface{}) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return sanitize(val)
	case float32:
		return sanitize(float64(val))
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		return AmountString(val.String())
	case string:
		return AmountString(val)
	case json.RawMessage:
		return AmountJSON(val)
	default:
		return 0
	}
}

// AmountJSON normalizes a raw JSON value: null, a number, or a string
// holding a number with optional currency decoration.
func AmountJSON(raw json.RawMessage) float64 {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return sanitize(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return AmountString(s)
	}

	return 0
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
