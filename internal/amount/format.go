package amount

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Formatter renders amounts with the grapheme and separators of a currency,
// keeping only as many fraction digits as the ledger precision.
type Formatter struct {
	code      string
	formatter *money.Formatter
	precision int32
}

// NewFormatter builds a Formatter for an ISO currency code.
func NewFormatter(code string, precision int32) Formatter {
	// money.New never returns a nil currency, unknown codes get defaults.
	cur := money.New(0, code).Currency()
	return Formatter{
		code:      cur.Code,
		formatter: money.NewFormatter(int(precision), cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template),
		precision: precision,
	}
}

// Format returns e.g. "Rp1.234.567 IDR".
func (f Formatter) Format(d decimal.Decimal) string {
	minor := d.Round(f.precision).Shift(f.precision).IntPart()
	return f.formatter.Format(minor) + " " + f.code
}

// Currency returns the ISO code the formatter was built for.
func (f Formatter) Currency() string {
	return f.code
}
