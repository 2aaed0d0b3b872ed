package amount

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyTokens are stripped from textual amounts before parsing.
var DefaultCurrencyTokens = []string{"Rp", "rp", "IDR", "idr"}

// ParseError reports text that could not be read as an amount.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable amount %q", e.Input)
}

// Normalizer converts heterogeneous monetary cells into decimals rounded to
// a fixed number of decimal places.
type Normalizer struct {
	// Precision is the number of decimal places kept (0 for IDR).
	Precision int32

	// CurrencyTokens are removed from textual input. Nil means DefaultCurrencyTokens.
	CurrencyTokens []string
}

// New returns a Normalizer with the default currency tokens.
func New(precision int32) Normalizer {
	return Normalizer{Precision: precision, CurrencyTokens: DefaultCurrencyTokens}
}

// SmallestUnit is the smallest representable step at the configured precision.
func (n Normalizer) SmallestUnit() decimal.Decimal {
	return decimal.New(1, -n.Precision)
}

// Round rounds d to the configured precision, half away from zero.
func (n Normalizer) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(n.Precision)
}

// Normalize never fails: anything it cannot read becomes zero.
func (n Normalizer) Normalize(raw any) decimal.Decimal {
	d, _ := n.NormalizeStrict(raw)
	return d
}

// NormalizeStrict runs the same rules as Normalize but reports text that
// could not be parsed. The returned value is zero in that case.
func (n Normalizer) NormalizeStrict(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return n.Round(v), nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, nil
		}
		return n.Round(*v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, &ParseError{Input: fmt.Sprint(v)}
		}
		return n.Round(decimal.NewFromFloat(v)), nil
	case float32:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, &ParseError{Input: fmt.Sprint(v)}
		}
		return n.Round(decimal.NewFromFloat32(v)), nil
	case int:
		return n.Round(decimal.NewFromInt(int64(v))), nil
	case int32:
		return n.Round(decimal.NewFromInt32(v)), nil
	case int64:
		return n.Round(decimal.NewFromInt(v)), nil
	case uint:
		return n.Round(decimal.NewFromUint64(uint64(v))), nil
	case uint64:
		return n.Round(decimal.NewFromUint64(v)), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, &ParseError{Input: v.String()}
		}
		return n.Round(d), nil
	case string:
		return n.parseText(v)
	case fmt.Stringer:
		return n.parseText(v.String())
	default:
		return decimal.Zero, &ParseError{Input: fmt.Sprint(raw)}
	}
}

func (n Normalizer) parseText(s string) (decimal.Decimal, error) {
	original := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	tokens := n.CurrencyTokens
	if tokens == nil {
		tokens = DefaultCurrencyTokens
	}
	for _, token := range tokens {
		s = strings.ReplaceAll(s, token, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)

	s = canonicalSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ParseError{Input: original}
	}
	if negative {
		d = d.Neg()
	}
	return n.Round(d), nil
}

// canonicalSeparators rewrites s so that '.' is the only (decimal) separator.
func canonicalSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) == 2 && allDigits(parts[1]) {
			return parts[0] + "." + parts[1]
		}
		return strings.ReplaceAll(s, ",", "")

	case hasDot:
		parts := strings.Split(s, ".")
		for _, p := range parts[1:] {
			if len(p) != 3 || !allDigits(p) {
				return s
			}
		}
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
