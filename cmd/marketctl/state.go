package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/client"
	"github.com/example/farmmarket/pkg/models"
)

// stateDir keeps the login session and the local cart between invocations.
type stateDir string

func (d stateDir) sessionPath() string { return filepath.Join(string(d), "session.json") }
func (d stateDir) cartPath() string    { return filepath.Join(string(d), "cart.json") }

func (d stateDir) session() (*client.Session, error) {
	return client.LoadSession(d.sessionPath())
}

func (d stateDir) clearSession() error {
	if err := os.Remove(d.sessionPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// loadCart restores the local cart against current catalog data. Products that no
// longer exist are dropped; a corrupt cart file restores as empty.
func (d stateDir) loadCart(ctx context.Context, api *client.Client) (cart.State, error) {
	raw, err := os.ReadFile(d.cartPath())
	if os.IsNotExist(err) {
		return cart.Empty(), nil
	}
	if err != nil {
		return cart.State{}, err
	}

	stored, err := cart.Decode(raw)
	if err != nil {
		return cart.Empty(), nil
	}

	products := make(map[string]models.Product, len(stored))
	for _, id := range cart.ProductIDs(stored) {
		p, err := api.Product(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return cart.State{}, fmt.Errorf("failed to load product %s: %w", id, err)
		}
		products[id] = p
	}

	return cart.Resolve(stored, func(id string) (models.Product, bool) {
		p, ok := products[id]
		return p, ok
	}), nil
}

func (d stateDir) saveCart(s cart.State) error {
	data, err := cart.Encode(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(string(d), 0o700); err != nil {
		return err
	}
	return os.WriteFile(d.cartPath(), data, 0o600)
}

func storedLines(s cart.State) []cart.StoredLine {
	lines := make([]cart.StoredLine, 0, len(s.Lines))
	for _, line := range s.Lines {
		lines = append(lines, cart.StoredLine{ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	return lines
}
