package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/farmmarket/gateway"
	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
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

type harness struct {
	t        *testing.T
	url      string
	dir      string
	services *service.Services
	admin    auth.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens := auth.NewTokenIssuer("cli-secret", time.Hour)
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

	ctx := context.Background()
	require.NoError(t, services.Users.EnsureAdmin(ctx, "Admin", "admin@farm.test", "admin123"))
	res, err := services.Users.Login(ctx, service.LoginRequest{Email: "admin@farm.test", Password: "admin123"})
	require.NoError(t, err)
	admin, err := tokens.Verify(res.Token)
	require.NoError(t, err)

	return &harness{t: t, url: srv.URL, dir: t.TempDir(), services: services, admin: admin}
}

func (h *harness) product(name, price string, stock int) models.Product {
	h.t.Helper()
	p, err := h.services.Catalog.Create(context.Background(), h.admin, service.ProductInput{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: models.CategoryFruits,
		Stock:    stock,
		Unit:     "kg",
		Farmer:   "Hill Orchard",
		Location: "Shimla",
	})
	require.NoError(h.t, err)
	return p
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	full := append([]string{"--api", h.url, "--state", h.dir}, args...)
	err := run(context.Background(), full, &out)
	return out.String(), err
}

func TestMarketctl_ShoppingFlow(t *testing.T) {
	h := newHarness(t)
	apple := h.product("Apple", "120", 10)
	pear := h.product("Pear", "90.50", 4)

	out, err := h.run("products", "--search", "app")
	require.NoError(t, err)
	assert.Contains(t, out, apple.ID)
	assert.NotContains(t, out, pear.ID)

	_, err = h.run("checkout", "--street", "1 Rd", "--city", "Pune", "--state", "MH", "--zip", "411001")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	out, err = h.run("register", "--name", "Meera", "--email", "meera@farm.test", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "meera@farm.test")

	out, err = h.run("add", apple.ID, "2")
	require.NoError(t, err)
	assert.Contains(t, out, "240.00")

	_, err = h.run("add", pear.ID, "5")
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	out, err = h.run("add", pear.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "330.50")

	out, err = h.run("set", apple.ID, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "210.50")

	out, err = h.run("remove", pear.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "120.00")

	out, err = h.run("checkout", "--street", "1 Rd", "--city", "Pune", "--state", "MH", "--zip", "411001")
	require.NoError(t, err)
	assert.Contains(t, out, "placed, total 120.00")

	out, err = h.run("cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart is empty")

	_, err = h.run("checkout", "--street", "1 Rd", "--city", "Pune", "--state", "MH", "--zip", "411001")
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)

	out, err = h.run("orders")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	remaining, err := h.services.Catalog.Get(context.Background(), apple.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, remaining.Stock)
}

func TestMarketctl_CartDropsDeletedProducts(t *testing.T) {
	h := newHarness(t)
	apple := h.product("Apple", "120", 10)
	pear := h.product("Pear", "90", 10)

	_, err := h.run("register", "--name", "Meera", "--email", "meera@farm.test", "--password", "secret1")
	require.NoError(t, err)
	_, err = h.run("add", apple.ID, "1")
	require.NoError(t, err)
	_, err = h.run("add", pear.ID, "1")
	require.NoError(t, err)

	require.NoError(t, h.services.Catalog.Delete(context.Background(), h.admin, pear.ID))

	out, err := h.run("cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Apple")
	assert.NotContains(t, out, "Pear")
}

func TestMarketctl_CorruptCartRestoresEmpty(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "cart.json"), []byte(`{"not":"a cart"}`), 0o600))

	out, err := h.run("cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart is empty")
}

func TestMarketctl_AdminStatus(t *testing.T) {
	h := newHarness(t)
	apple := h.product("Apple", "120", 10)

	_, err := h.run("register", "--name", "Meera", "--email", "meera@farm.test", "--password", "secret1")
	require.NoError(t, err)
	_, err = h.run("add", apple.ID, "1")
	require.NoError(t, err)
	_, err = h.run("checkout", "--street", "1 Rd", "--city", "Pune", "--state", "MH", "--zip", "411001")
	require.NoError(t, err)

	orders, err := h.services.Orders.List(context.Background(), h.admin, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	id := orders[0].ID

	_, err = h.run("status", id, "confirmed")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = h.run("login", "--email", "admin@farm.test", "--password", "admin123")
	require.NoError(t, err)
	out, err := h.run("status", id, "confirmed")
	require.NoError(t, err)
	assert.Contains(t, out, "is now confirmed")

	_, err = h.run("status", id, "pending")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestMarketctl_Usage(t *testing.T) {
	err := run(context.Background(), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUsage)

	_, err = (&harness{dir: t.TempDir(), url: "http://127.0.0.1:1"}).run("fly")
	assert.ErrorIs(t, err, errUsage)

	_, err = (&harness{dir: t.TempDir(), url: "http://127.0.0.1:1"}).run("set", "only-one-arg")
	assert.ErrorIs(t, err, errUsage)
}
