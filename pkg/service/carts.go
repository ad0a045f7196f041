package service

import (
	"context"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/models"
	"github.com/example/farmmarket/pkg/order"
	"go.uber.org/zap"
)

// CartService keeps one cart per user in a CartStore. Every call restores the cart
// against the current catalog, applies at most one action and saves the result.
type CartService struct {
	carts    CartStore
	products ProductRepository
	orders   *OrderService
	logger   *zap.Logger
}

func NewCartService(carts CartStore, products ProductRepository, orders *OrderService, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		orders:   orders,
		logger:   logger.Named("cart"),
	}
}

func (s *CartService) Get(ctx context.Context, sess auth.Session) (cart.State, error) {
	if !sess.Authenticated() {
		return cart.State{}, apperr.Unauthorized("Not authorized")
	}
	return s.load(ctx, sess.UserID)
}

func (s *CartService) Add(ctx context.Context, sess auth.Session, productID string, quantity int) (cart.State, error) {
	if !sess.Authenticated() {
		return cart.State{}, apperr.Unauthorized("Not authorized")
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return cart.State{}, err
	}
	return s.apply(ctx, sess.UserID, cart.AddLine{Product: p, Quantity: quantity})
}

func (s *CartService) SetQuantity(ctx context.Context, sess auth.Session, productID string, quantity int) (cart.State, error) {
	if !sess.Authenticated() {
		return cart.State{}, apperr.Unauthorized("Not authorized")
	}
	return s.apply(ctx, sess.UserID, cart.SetQuantity{ProductID: productID, Quantity: quantity})
}

func (s *CartService) Remove(ctx context.Context, sess auth.Session, productID string) (cart.State, error) {
	if !sess.Authenticated() {
		return cart.State{}, apperr.Unauthorized("Not authorized")
	}
	return s.apply(ctx, sess.UserID, cart.RemoveLine{ProductID: productID})
}

func (s *CartService) Clear(ctx context.Context, sess auth.Session) error {
	if !sess.Authenticated() {
		return apperr.Unauthorized("Not authorized")
	}
	return s.carts.DeleteCart(ctx, sess.UserID)
}

// Checkout places an order for the session cart and empties the cart once the order
// is stored. A failed checkout leaves the cart as it was.
func (s *CartService) Checkout(ctx context.Context, sess auth.Session, req order.CheckoutRequest) (models.Order, error) {
	if !sess.Authenticated() {
		return models.Order{}, apperr.Unauthorized("Not authorized")
	}

	c, err := s.load(ctx, sess.UserID)
	if err != nil {
		return models.Order{}, err
	}
	if c.IsEmpty() {
		return models.Order{}, apperr.New(apperr.KindEmptyCart, order.ErrMsgCartEmpty)
	}

	lines := make([]cart.StoredLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, cart.StoredLine{ProductID: line.Product.ID, Quantity: line.Quantity})
	}

	o, err := s.orders.Place(ctx, sess, lines, req)
	if err != nil {
		return models.Order{}, err
	}

	if err := s.carts.DeleteCart(ctx, sess.UserID); err != nil {
		s.logger.Warn("Failed to clear cart after checkout", zap.String("user_id", sess.UserID), zap.Error(err))
	}
	return o, nil
}

func (s *CartService) apply(ctx context.Context, userID string, action cart.Action) (cart.State, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return cart.State{}, err
	}

	next, err := cart.Reduce(c, action)
	if err != nil {
		return c, err
	}

	data, err := cart.Encode(next)
	if err != nil {
		return c, err
	}
	if err := s.carts.SaveCart(ctx, userID, data); err != nil {
		return c, err
	}
	return next, nil
}

// load restores the stored cart. Unreadable data is discarded and yields an empty cart.
func (s *CartService) load(ctx context.Context, userID string) (cart.State, error) {
	raw, err := s.carts.LoadCart(ctx, userID)
	if err != nil {
		return cart.State{}, err
	}

	stored, err := cart.Decode(raw)
	if err != nil {
		s.logger.Warn("Discarding unreadable cart", zap.String("user_id", userID), zap.Error(err))
		return cart.Empty(), nil
	}
	if len(stored) == 0 {
		return cart.Empty(), nil
	}

	products, err := s.products.GetMany(ctx, cart.ProductIDs(stored))
	if err != nil {
		return cart.State{}, err
	}
	return cart.Resolve(stored, func(id string) (models.Product, bool) {
		p, ok := products[id]
		return p, ok
	}), nil
}
