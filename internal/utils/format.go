package utils

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	crore = 10_000_000
	lakh  = 100_000
)

// FormatIndianNumber groups digits the Indian way: the last three digits,
// then pairs (12,34,567).
func FormatIndianNumber(n int64) string {
	if n < 0 {
		// -n overflows for MinInt64, so group the decimal string directly
		return "-" + groupIndian(decimal.NewFromInt(n).Abs().String())
	}
	return groupIndian(decimal.NewFromInt(n).String())
}

// FormatIndianDecimal rounds v to places decimals and groups the integer part
// the Indian way. Trailing fraction digits are always padded to places.
func FormatIndianDecimal(v float64, places int32) string {
	d := decimal.NewFromFloat(v).Round(places)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	s := d.StringFixed(places)
	intPart, frac, hasFrac := strings.Cut(s, ".")

	out := sign + groupIndian(intPart)
	if hasFrac {
		out += "." + frac
	}
	return out
}

// FormatINR renders v as rupees with two decimals, e.g. ₹12,34,567.50.
func FormatINR(v float64) string {
	cur := money.GetCurrency(money.INR)
	places := int32(2)
	if cur != nil {
		places = int32(cur.Fraction)
	}

	s := FormatIndianDecimal(v, places)
	if strings.HasPrefix(s, "-") {
		return "-" + rupeeSymbol() + s[1:]
	}
	return rupeeSymbol() + s
}

// FormatCompactINR abbreviates large amounts to crore (Cr) and lakh (L).
func FormatCompactINR(v float64) string {
	abs := v
	sign := ""
	if v < 0 {
		abs = -v
		sign = "-"
	}

	switch {
	case abs >= crore:
		return sign + rupeeSymbol() + FormatIndianDecimal(abs/crore, 2) + " Cr"
	case abs >= lakh:
		return sign + rupeeSymbol() + FormatIndianDecimal(abs/lakh, 2) + " L"
	default:
		return FormatINR(v)
	}
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func rupeeSymbol() string {
	if cur := money.GetCurrency(money.INR); cur != nil && cur.Grapheme != "" {
		return cur.Grapheme
	}
	return "₹"
}

// groupIndian inserts separators into an unsigned digit string.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(groups, ",") + "," + tail
}
