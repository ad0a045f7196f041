// Package cart holds the shopping cart as an immutable state value and the reducer
// that derives a new state from each user action.
package cart

import (
	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
)

// Line pairs a product snapshot with the requested quantity.
type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is a cart snapshot. Lines keep insertion order; Total is always the sum of
// line subtotals and is recomputed by every action.
type State struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func Empty() State {
	return State{Total: decimal.Zero}
}

// ItemCount is the number of units in the cart, not the number of lines.
func (s State) ItemCount() int {
	count := 0
	for _, line := range s.Lines {
		count += line.Quantity
	}
	return count
}

func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Line returns the line for productID, if any.
func (s State) Line(productID string) (Line, bool) {
	if i := s.index(productID); i >= 0 {
		return s.Lines[i], true
	}
	return Line{}, false
}

func (s State) index(productID string) int {
	for i, line := range s.Lines {
		if line.Product.ID == productID {
			return i
		}
	}
	return -1
}

func sum(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func withLines(lines []Line) State {
	if len(lines) == 0 {
		return Empty()
	}
	return State{Lines: lines, Total: sum(lines)}
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
