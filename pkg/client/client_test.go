package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/farmmarket/gateway"
	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/config"
	"github.com/example/farmmarket/pkg/models"
	"github.com/example/farmmarket/pkg/order"
	"github.com/example/farmmarket/pkg/repository/memory"
	"github.com/example/farmmarket/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	client   *Client
	services *service.Services
	tokens   *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens := auth.NewTokenIssuer("client-secret", time.Hour)
	kv := memory.NewKV()
	services := service.New(service.Deps{
		Products:   memory.NewProductStore(),
		Users:      memory.NewUserStore(),
		Orders:     memory.NewOrderStore(),
		Carts:      kv,
		UserCache:  kv,
		Audit:      memory.NewAuditLog(),
		Tokens:     tokens,
		Policy:     order.ForwardOnly,
		BcryptCost: 4,
		Logger:     zap.NewNop(),
	})
	cfg := &config.Config{Server: config.ServerConfig{Mode: gin.TestMode}}
	srv := httptest.NewServer(gateway.NewGateway(cfg, services, tokens, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)

	require.NoError(t, services.Users.EnsureAdmin(context.Background(), "Admin", "admin@farm.test", "admin123"))
	return &fixture{client: New(srv.URL, 5*time.Second), services: services, tokens: tokens}
}

func (f *fixture) seedProduct(t *testing.T, name string, price string, stock int) models.Product {
	t.Helper()
	admin, err := f.services.Users.Login(context.Background(), service.LoginRequest{Email: "admin@farm.test", Password: "admin123"})
	require.NoError(t, err)
	sess, err := f.tokens.Verify(admin.Token)
	require.NoError(t, err)

	p, err := f.services.Catalog.Create(context.Background(), sess, service.ProductInput{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: models.CategoryVegetables,
		Stock:    stock,
		Unit:     "kg",
		Farmer:   "Green Acres",
		Location: "Pune",
	})
	require.NoError(t, err)
	return p
}

var address = models.Address{Street: "1 Market Rd", City: "Pune", State: "MH", ZipCode: "411001"}

func TestClient_RegisterLoginMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.client.Register(ctx, "Asha", "asha@farm.test", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "asha@farm.test", sess.User.Email)

	_, err = f.client.Register(ctx, "Asha", "asha@farm.test", "secret1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.client.Login(ctx, "asha@farm.test", "wrong-password")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	sess, err = f.client.Login(ctx, "asha@farm.test", "secret1")
	require.NoError(t, err)
	me, err := f.client.Me(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "Asha", me.Name)

	_, err = f.client.Me(ctx, nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_ProductsAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tomato := f.seedProduct(t, "Tomato", "40", 5)
	f.seedProduct(t, "Spinach", "20", 10)

	products, err := f.client.Products(ctx, models.ProductFilter{Search: "toma"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, tomato.ID, products[0].ID)

	got, err := f.client.Product(ctx, tomato.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", got.Name)

	_, err = f.client.Product(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	sess, err := f.client.Register(ctx, "Ravi", "ravi@farm.test", "secret1")
	require.NoError(t, err)
	req := order.CheckoutRequest{ShippingAddress: address, PaymentMethod: models.PaymentCashOnDelivery}

	_, err = f.client.PlaceOrder(ctx, sess, []cart.StoredLine{{ProductID: tomato.ID, Quantity: 6}}, req)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.NotNil(t, apiErr.Available)
	assert.Equal(t, 5, *apiErr.Available)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))

	_, err = f.client.PlaceOrder(ctx, sess, nil, req)
	assert.True(t, errors.Is(err, apperr.ErrEmptyCart))

	placed, err := f.client.PlaceOrder(ctx, sess, []cart.StoredLine{{ProductID: tomato.ID, Quantity: 2}}, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, placed.Status)
	assert.True(t, decimal.NewFromInt(80).Equal(placed.TotalAmount))

	mine, err := f.client.MyOrders(ctx, sess)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, placed.ID, mine[0].ID)

	_, err = f.client.UpdateOrderStatus(ctx, sess, placed.ID, models.StatusConfirmed)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	admin, err := f.client.Login(ctx, "admin@farm.test", "admin123")
	require.NoError(t, err)
	updated, err := f.client.UpdateOrderStatus(ctx, admin, placed.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	_, err = f.client.UpdateOrderStatus(ctx, admin, placed.ID, models.StatusPending)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	fetched, err := f.client.Order(ctx, sess, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, fetched.Status)
}

func TestSession_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	s, err := LoadSession(path)
	require.NoError(t, err)
	assert.Nil(t, s)

	in := &Session{Token: "tok", User: models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser}}
	require.NoError(t, in.Save(path))

	out, err := LoadSession(path)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "tok", out.Token)
	assert.Equal(t, "u1", out.User.ID)
}
