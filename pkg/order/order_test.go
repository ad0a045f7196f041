package order

import (
	"errors"
	"testing"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now     = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	admin   = auth.Session{UserID: "admin-1", Role: models.RoleAdmin}
	shopper = auth.Session{UserID: "user-1", Role: models.RoleUser}
)

func validRequest() CheckoutRequest {
	return CheckoutRequest{
		ShippingAddress: models.Address{Street: "12 Mill Lane", City: "Pune", State: "MH", ZipCode: "411001"},
		PaymentMethod:   models.PaymentCashOnDelivery,
		Notes:           "  leave at the gate ",
	}
}

func cartWith(t *testing.T, lines ...cart.AddLine) cart.State {
	t.Helper()
	s := cart.Empty()
	for _, line := range lines {
		var err error
		s, err = cart.Reduce(s, line)
		require.NoError(t, err)
	}
	return s
}

func tomatoes(price int64) models.Product {
	return models.Product{ID: "tomato", Name: "Tomatoes", Unit: "kg", Price: decimal.NewFromInt(price), Stock: 20}
}

func TestCheckout_EmptyCart(t *testing.T) {
	o, err := Checkout(cart.Empty(), "user-1", validRequest(), now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEmptyCart))
	assert.Empty(t, o.Items)
	assert.Empty(t, o.Status)
}

func TestCheckout_BuildsPendingOrder(t *testing.T) {
	c := cartWith(t,
		cart.AddLine{Product: tomatoes(20), Quantity: 2},
		cart.AddLine{Product: models.Product{ID: "basil", Name: "Basil", Unit: "bunch", Price: decimal.NewFromInt(5), Stock: 10}, Quantity: 3},
	)

	o, err := Checkout(c, "user-1", validRequest(), now)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, "55", o.TotalAmount.String())
	assert.Equal(t, models.PaymentCashOnDelivery, o.PaymentMethod)
	assert.Equal(t, "leave at the gate", o.Notes)
	assert.Equal(t, "Pune", o.ShippingAddress.City)
	assert.Equal(t, now, o.CreatedAt)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "tomato", o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "kg", o.Items[0].Unit)
}

func TestCheckout_SnapshotsLinePrice(t *testing.T) {
	p := tomatoes(10)
	c := cartWith(t, cart.AddLine{Product: p, Quantity: 1})

	// catalog price changes after the line was added
	p.Price = decimal.NewFromInt(15)

	o, err := Checkout(c, "user-1", validRequest(), now)
	require.NoError(t, err)
	assert.Equal(t, "10", o.Items[0].Price.String())
	assert.Equal(t, "10", o.TotalAmount.String())
}

func TestCheckout_ValidatesRequest(t *testing.T) {
	c := cartWith(t, cart.AddLine{Product: tomatoes(10), Quantity: 1})

	req := validRequest()
	req.PaymentMethod = "barter"
	_, err := Checkout(c, "user-1", req, now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	req = validRequest()
	req.ShippingAddress.ZipCode = ""
	_, err = Checkout(c, "user-1", req, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipCode")

	_, err = Checkout(c, "", validRequest(), now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestPolicy_ForwardOnly(t *testing.T) {
	allowed := map[[2]models.OrderStatus]bool{
		{models.StatusPending, models.StatusConfirmed}:   true,
		{models.StatusPending, models.StatusCancelled}:   true,
		{models.StatusConfirmed, models.StatusShipped}:   true,
		{models.StatusConfirmed, models.StatusCancelled}: true,
		{models.StatusShipped, models.StatusDelivered}:   true,
	}

	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			want := allowed[[2]models.OrderStatus{from, to}]
			assert.Equal(t, want, ForwardOnly.Allows(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, ForwardOnly.Next(models.StatusDelivered))
	assert.Empty(t, ForwardOnly.Next(models.StatusCancelled))
	assert.Equal(t, []models.OrderStatus{models.StatusDelivered}, ForwardOnly.Next(models.StatusShipped))
}

func TestPolicy_Permissive(t *testing.T) {
	assert.True(t, Permissive.Allows(models.StatusDelivered, models.StatusPending))
	assert.True(t, Permissive.Allows(models.StatusCancelled, models.StatusShipped))
	assert.False(t, Permissive.Allows(models.StatusPending, "lost"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ForwardOnly, p)

	p, err = ParsePolicy("Permissive")
	require.NoError(t, err)
	assert.Equal(t, Permissive, p)

	_, err = ParsePolicy("anything-goes")
	assert.Error(t, err)
}

func TestTransition(t *testing.T) {
	later := now.Add(time.Hour)

	t.Run("admin advances", func(t *testing.T) {
		o := models.Order{Status: models.StatusPending, UpdatedAt: now}
		require.NoError(t, Transition(admin, &o, models.StatusConfirmed, ForwardOnly, later))
		assert.Equal(t, models.StatusConfirmed, o.Status)
		assert.Equal(t, later, o.UpdatedAt)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		o := models.Order{Status: models.StatusPending, UpdatedAt: now}
		err := Transition(shopper, &o, models.StatusConfirmed, Permissive, later)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
		assert.Equal(t, models.StatusPending, o.Status)
		assert.Equal(t, now, o.UpdatedAt)
	})

	t.Run("backwards is rejected under forward only", func(t *testing.T) {
		o := models.Order{Status: models.StatusShipped}
		err := Transition(admin, &o, models.StatusPending, ForwardOnly, later)
		assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
		assert.Equal(t, models.StatusShipped, o.Status)
	})

	t.Run("backwards is allowed when permissive", func(t *testing.T) {
		o := models.Order{Status: models.StatusDelivered}
		require.NoError(t, Transition(admin, &o, models.StatusPending, Permissive, later))
		assert.Equal(t, models.StatusPending, o.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		o := models.Order{Status: models.StatusPending}
		err := Transition(admin, &o, "lost", Permissive, later)
		assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
	})
}
