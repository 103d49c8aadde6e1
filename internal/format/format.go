// Package format provides the numeric coercion and US-locale display
// formatting shared by the calculators and the email templates. Every
// function is total: bad input produces a zero-valued result, never an error.
package format

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer is locale-fixed: the product formats US currency only.
var printer = message.NewPrinter(language.AmericanEnglish)

// Clamp constrains n to [min, max]. Non-finite input (NaN, ±Inf) collapses to
// min. This is the sole sanitization step for every calculator input — raw
// request values are never used directly.
func Clamp(n, min, max float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return min
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// ToNumber coerces a number or numeral-bearing string to a float64.
// Strings are stripped of everything except digits, '.', '+', and '-' before
// parsing, so "$1,234.56" and "18%" both coerce cleanly. Returns NaN when no
// number can be extracted.
func ToNumber(x any) float64 {
	switch v := x.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		return ToNumber(v.String())
	case string:
		var b strings.Builder
		for _, r := range v {
			if (r >= '0' && r <= '9') || r == '.' || r == '+' || r == '-' {
				b.WriteRune(r)
			}
		}
		f, err := strconv.ParseFloat(b.String(), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Money renders n as US currency: "$1,234.56". Negative amounts render with
// a leading sign ("-$300.00"), non-finite input renders as "$0.00".
func Money(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "$0.00"
	}
	if n < 0 {
		return "-$" + Number(-n, 2)
	}
	return "$" + Number(n, 2)
}

// Number renders n with US grouping and exactly digits fraction digits.
// Non-finite input renders as "0".
func Number(n float64, digits int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "0"
	}
	return printer.Sprintf("%v", number.Decimal(n,
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))
}

// Percent renders n as a percentage string, e.g. Percent(19.99, 2) == "19.99%".
// The value is taken as already scaled — no division by 100.
func Percent(n float64, digits int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "0%"
	}
	return Number(n, digits) + "%"
}
