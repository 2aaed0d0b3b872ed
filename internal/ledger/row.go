package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Header maps column names to their position in a fetched grid.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader indexes a header row. When a name repeats, the first column wins.
func NewHeader(names []string) *Header {
	h := &Header{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}
	return h
}

// Names returns the header row as fetched.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// RawRow is one data row as fetched from the store. Cells are untyped
// (string, float64, int, decimal.Decimal, nil) and stay in store order.
type RawRow struct {
	header *Header
	cells  []any
}

// NewRawRow binds cells to a header.
func NewRawRow(header *Header, cells []any) RawRow {
	return RawRow{header: header, cells: cells}
}

// RowsFromGrid splits a grid whose first row is the header into RawRows.
func RowsFromGrid(grid [][]any) []RawRow {
	if len(grid) == 0 {
		return nil
	}
	names := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		names[i] = CellText(c)
	}
	header := NewHeader(names)

	rows := make([]RawRow, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		rows = append(rows, NewRawRow(header, cells))
	}
	return rows
}

// Cells returns the row's cells in store order.
func (r RawRow) Cells() []any {
	return r.cells
}

// Get returns the cell under column name, or nil when the column is absent
// or the row is shorter than the header.
func (r RawRow) Get(name string) any {
	if r.header == nil {
		return nil
	}
	i, ok := r.header.index[name]
	if !ok || i >= len(r.cells) {
		return nil
	}
	return r.cells[i]
}

// Text returns the cell under column name as trimmed text.
func (r RawRow) Text(name string) string {
	return strings.TrimSpace(CellText(r.Get(name)))
}

// Balance returns the per-account balance cell for account, accepting the
// legacy "Saldo Akhir <account>" column name.
func (r RawRow) Balance(account string) any {
	if r.header == nil {
		return nil
	}
	if _, ok := r.header.index[account]; ok {
		return r.Get(account)
	}
	return r.Get(legacyBalancePrefix + account)
}

// CellText renders an untyped cell the way a spreadsheet would show it
// without number formatting.
func CellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case decimal.Decimal:
		return c.String()
	case bool:
		if c {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(c)
	}
}
