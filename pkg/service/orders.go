package service

import (
	"context"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/models"
	"github.com/example/farmmarket/pkg/order"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService struct {
	orders   OrderRepository
	products ProductRepository
	notifier Notifier
	audit    AuditLogger
	policy   order.Policy
	logger   *zap.Logger
	now      Clock
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(models.Order)                       {}
func (nopNotifier) StatusChanged(models.Order, models.OrderStatus) {}

func NewOrderService(orders OrderRepository, products ProductRepository, notifier Notifier, audit AuditLogger, policy order.Policy, logger *zap.Logger, now Clock) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderService{
		orders:   orders,
		products: products,
		notifier: notifier,
		audit:    audit,
		policy:   policy,
		logger:   logger.Named("orders"),
		now:      now,
	}
}

func (s *OrderService) Policy() order.Policy {
	return s.policy
}

// Place submits an order for the requested lines. Products are read from the catalog at
// submission time, so prices and stock checks reflect the current catalog rather than
// whatever the caller last saw.
func (s *OrderService) Place(ctx context.Context, sess auth.Session, lines []cart.StoredLine, req order.CheckoutRequest) (models.Order, error) {
	if !sess.Authenticated() {
		return models.Order{}, apperr.Unauthorized("Not authorized")
	}

	c, err := s.buildCart(ctx, lines)
	if err != nil {
		return models.Order{}, err
	}

	o, err := order.Checkout(c, sess.UserID, req, s.now())
	if err != nil {
		return models.Order{}, err
	}
	o.ID = uuid.NewString()

	if err := s.orders.Create(ctx, &o); err != nil {
		return models.Order{}, err
	}

	for _, item := range o.Items {
		if err := s.products.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.logger.Error("Failed to decrement stock",
				zap.String("order_id", o.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	s.logger.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("item_count", len(o.Items)),
		zap.String("total_amount", o.TotalAmount.String()))

	s.notifier.OrderPlaced(o)
	s.record(ctx, "create_order", o.ID, map[string]interface{}{
		"user_id":      o.UserID,
		"total_amount": o.TotalAmount.String(),
	})
	return o, nil
}

// buildCart resolves stored lines against the catalog and runs them through the cart
// reducer. Repeated product ids are merged first so the stock check sees the full amount.
func (s *OrderService) buildCart(ctx context.Context, lines []cart.StoredLine) (cart.State, error) {
	merged := make([]cart.StoredLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			return cart.State{}, apperr.InvalidArgument("Product ID is required")
		}
		if line.Quantity < 1 {
			return cart.State{}, apperr.InvalidArgument(cart.ErrMsgQuantityPositive)
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	products, err := s.products.GetMany(ctx, cart.ProductIDs(merged))
	if err != nil {
		return cart.State{}, err
	}

	c := cart.Empty()
	for _, line := range merged {
		p, ok := products[line.ProductID]
		if !ok {
			return cart.State{}, apperr.Newf(apperr.KindNotFound, "Product %s not found", line.ProductID)
		}
		c, err = cart.Reduce(c, cart.AddLine{Product: p, Quantity: line.Quantity})
		if err != nil {
			return cart.State{}, err
		}
	}
	return c, nil
}

// Get returns the order if the session owns it or is an administrator.
func (s *OrderService) Get(ctx context.Context, sess auth.Session, id string) (models.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if !sess.Owns(o.UserID) {
		return models.Order{}, apperr.Forbidden("Not authorized to view this order")
	}
	return o, nil
}

func (s *OrderService) ListMine(ctx context.Context, sess auth.Session) ([]models.Order, error) {
	if !sess.Authenticated() {
		return nil, apperr.Unauthorized("Not authorized")
	}
	return s.orders.List(ctx, models.OrderFilter{UserID: sess.UserID})
}

func (s *OrderService) List(ctx context.Context, sess auth.Session, filter models.OrderFilter) ([]models.Order, error) {
	if !sess.IsAdmin() {
		return nil, apperr.Forbidden(errMsgAdminRequired)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "Unknown order status %q", filter.Status)
	}
	return s.orders.List(ctx, filter)
}

// UpdateStatus moves an order to status under the configured policy.
func (s *OrderService) UpdateStatus(ctx context.Context, sess auth.Session, id string, status models.OrderStatus) (models.Order, error) {
	if !sess.IsAdmin() {
		return models.Order{}, apperr.Forbidden(errMsgAdminRequired)
	}

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	from := o.Status
	if err := order.Transition(sess, &o, status, s.policy, s.now()); err != nil {
		return models.Order{}, err
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, o.UpdatedAt); err != nil {
		return models.Order{}, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)))

	s.notifier.StatusChanged(o, from)
	s.record(ctx, "update_order_status", o.ID, map[string]interface{}{
		"from":  string(from),
		"to":    string(o.Status),
		"actor": sess.UserID,
	})
	return o, nil
}

func (s *OrderService) record(ctx context.Context, action, entityID string, data map[string]interface{}) {
	if s.audit == nil {
		return
	}
	err := s.audit.CreateAuditLog(ctx, &models.AuditEntry{
		Service:   "orders",
		Action:    action,
		EntityID:  entityID,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
