package cart

import (
	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/models"
)

const ErrMsgQuantityPositive = "Quantity must be at least 1"

// Action is a single cart mutation.
type Action interface {
	apply(State) (State, error)
}

// Reduce applies action to s and returns the resulting state. On error the returned
// state is s itself; s is never modified in place.
func Reduce(s State, action Action) (State, error) {
	next, err := action.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// AddLine adds quantity units of product, merging into an existing line.
type AddLine struct {
	Product  models.Product
	Quantity int
}

func (a AddLine) apply(s State) (State, error) {
	if a.Quantity < 1 {
		return s, apperr.InvalidArgument(ErrMsgQuantityPositive)
	}
	if a.Quantity > a.Product.Stock {
		return s, apperr.InsufficientStock(a.Product.ID, a.Product.Name, a.Product.Stock, a.Product.Unit)
	}

	lines := copyLines(s.Lines)
	if i := s.index(a.Product.ID); i >= 0 {
		lines[i].Quantity += a.Quantity
	} else {
		lines = append(lines, Line{Product: a.Product, Quantity: a.Quantity})
	}
	return withLines(lines), nil
}

// RemoveLine drops the line for ProductID. Removing an absent product is a no-op.
type RemoveLine struct {
	ProductID string
}

func (a RemoveLine) apply(s State) (State, error) {
	i := s.index(a.ProductID)
	if i < 0 {
		return s, nil
	}
	lines := make([]Line, 0, len(s.Lines)-1)
	lines = append(lines, s.Lines[:i]...)
	lines = append(lines, s.Lines[i+1:]...)
	return withLines(lines), nil
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
type SetQuantity struct {
	ProductID string
	Quantity  int
}

func (a SetQuantity) apply(s State) (State, error) {
	if a.Quantity <= 0 {
		return RemoveLine{ProductID: a.ProductID}.apply(s)
	}

	i := s.index(a.ProductID)
	if i < 0 {
		return s, nil
	}
	product := s.Lines[i].Product
	if a.Quantity > product.Stock {
		return s, apperr.InsufficientStock(product.ID, product.Name, product.Stock, product.Unit)
	}

	lines := copyLines(s.Lines)
	lines[i].Quantity = a.Quantity
	return withLines(lines), nil
}

type Clear struct{}

func (Clear) apply(State) (State, error) {
	return Empty(), nil
}

// Load replaces the cart wholesale with already resolved lines.
type Load struct {
	Lines []Line
}

func (a Load) apply(State) (State, error) {
	lines := make([]Line, 0, len(a.Lines))
	for _, line := range a.Lines {
		if line.Quantity < 1 {
			continue
		}
		lines = append(lines, line)
	}
	return withLines(lines), nil
}
