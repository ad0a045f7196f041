package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/farmmarket/pkg/models"
)

// ErrMalformedPersistedState marks persisted cart data that cannot be restored.
var ErrMalformedPersistedState = errors.New("malformed persisted cart")

// StoredLine is the persisted form of a line: the product reference only, so that a
// restored cart always sees current catalog data.
type StoredLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Lookup resolves a product id against the catalog.
type Lookup func(productID string) (models.Product, bool)

// Encode serializes the cart lines in order.
func Encode(s State) ([]byte, error) {
	stored := make([]StoredLine, 0, len(s.Lines))
	for _, line := range s.Lines {
		stored = append(stored, StoredLine{ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	return json.Marshal(stored)
}

// Decode parses persisted lines. Anything other than a JSON array of lines with a
// product id and a positive quantity is ErrMalformedPersistedState.
func Decode(raw []byte) ([]StoredLine, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var stored []StoredLine
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPersistedState, err)
	}
	for i, line := range stored {
		if line.ProductID == "" {
			return nil, fmt.Errorf("%w: line %d has no product id", ErrMalformedPersistedState, i)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d has quantity %d", ErrMalformedPersistedState, i, line.Quantity)
		}
	}
	return stored, nil
}

// Restore rebuilds a cart from persisted bytes. Malformed input yields an empty cart;
// lines whose product is no longer in the catalog are dropped. Restore never fails.
func Restore(raw []byte, lookup Lookup) State {
	stored, err := Decode(raw)
	if err != nil {
		return Empty()
	}
	return Resolve(stored, lookup)
}

// Resolve turns stored lines into a cart, merging repeated product ids.
func Resolve(stored []StoredLine, lookup Lookup) State {
	lines := make([]Line, 0, len(stored))
	index := make(map[string]int, len(stored))
	for _, sl := range stored {
		if i, ok := index[sl.ProductID]; ok {
			lines[i].Quantity += sl.Quantity
			continue
		}
		product, ok := lookup(sl.ProductID)
		if !ok {
			continue
		}
		index[sl.ProductID] = len(lines)
		lines = append(lines, Line{Product: product, Quantity: sl.Quantity})
	}

	s, _ := Reduce(Empty(), Load{Lines: lines})
	return s
}

// ProductIDs lists the distinct product ids referenced by stored lines, in order.
func ProductIDs(stored []StoredLine) []string {
	seen := make(map[string]bool, len(stored))
	ids := make([]string, 0, len(stored))
	for _, sl := range stored {
		if seen[sl.ProductID] {
			continue
		}
		seen[sl.ProductID] = true
		ids = append(ids, sl.ProductID)
	}
	return ids
}
