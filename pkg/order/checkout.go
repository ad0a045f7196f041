// Package order turns carts into orders and governs how an order's status may change.
package order

import (
	"strings"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	ErrMsgCartEmpty      = "Cart is empty"
	ErrMsgPaymentMethod  = "Payment method must be one of cash_on_delivery, card, upi"
	ErrMsgUserIDRequired = "User ID is required"
)

// CheckoutRequest carries the shipping and payment details entered at checkout.
type CheckoutRequest struct {
	ShippingAddress models.Address       `json:"shippingAddress"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes,omitempty"`
}

func (r CheckoutRequest) Validate() error {
	if missing := r.ShippingAddress.Missing(); len(missing) > 0 {
		return apperr.InvalidArgument("Shipping address is missing " + strings.Join(missing, ", "))
	}
	if !r.PaymentMethod.Valid() {
		return apperr.InvalidArgument(ErrMsgPaymentMethod)
	}
	return nil
}

// Checkout builds a pending order from the cart. Each item records the price held by
// its cart line, so later catalog changes never alter the order. The order id is left
// for the caller to assign.
func Checkout(c cart.State, userID string, req CheckoutRequest, now time.Time) (models.Order, error) {
	if c.IsEmpty() {
		return models.Order{}, apperr.New(apperr.KindEmptyCart, ErrMsgCartEmpty)
	}
	if userID == "" {
		return models.Order{}, apperr.InvalidArgument(ErrMsgUserIDRequired)
	}
	if err := req.Validate(); err != nil {
		return models.Order{}, err
	}

	items := make([]models.OrderItem, 0, len(c.Lines))
	total := decimal.Zero
	for _, line := range c.Lines {
		item := models.OrderItem{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			Unit:        line.Product.Unit,
			Image:       line.Product.Image,
			Quantity:    line.Quantity,
			Price:       line.Product.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}

	return models.Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
