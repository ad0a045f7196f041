package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

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

type stubImages struct{}

func (stubImages) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	return "https://img.example.com/" + key, nil
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	services *service.Services
	tokens   *auth.TokenIssuer
	users    *memory.UserStore
	admin    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		CORS:   config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}, MaxAge: time.Hour},
	}
	tokens := auth.NewTokenIssuer("gateway-secret", time.Hour)
	users := memory.NewUserStore()
	kv := memory.NewKV()

	services := service.New(service.Deps{
		Products:   memory.NewProductStore(),
		Users:      users,
		Orders:     memory.NewOrderStore(),
		Carts:      kv,
		UserCache:  kv,
		Audit:      memory.NewAuditLog(),
		Images:     stubImages{},
		Tokens:     tokens,
		Policy:     order.ForwardOnly,
		BcryptCost: 4,
		Logger:     zap.NewNop(),
	})

	ts := &testServer{
		t:        t,
		handler:  NewGateway(cfg, services, tokens, zap.NewNop()).Handler(),
		services: services,
		tokens:   tokens,
		users:    users,
	}

	require.NoError(t, services.Users.EnsureAdmin(context.Background(), "Admin", "admin@farm.test", "admin123"))
	ts.admin = ts.login("admin@farm.test", "admin123")
	return ts
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.AuthResult
	decode(ts.t, rec, &res)
	return res.Token
}

func (ts *testServer) registerShopper(email string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Shopper", "email": email, "password": "secret1",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res service.AuthResult
	decode(ts.t, rec, &res)
	return res.Token
}

func (ts *testServer) createProduct(name string, price string, stock int) models.Product {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/products", ts.admin, gin.H{
		"name": name, "price": price, "category": "vegetables", "stock": stock, "unit": "kg",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p models.Product
	decode(ts.t, rec, &p)
	return p
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

var shipping = gin.H{
	"shippingAddress": gin.H{"street": "1 Farm Rd", "city": "Nagpur", "state": "MH", "zipCode": "440001"},
	"paymentMethod":   "cash_on_delivery",
}

func withShipping(extra gin.H) gin.H {
	out := gin.H{}
	for k, v := range shipping {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoCORSOrigins(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Mode: gin.TestMode}}
	tokens := auth.NewTokenIssuer("gateway-secret", time.Hour)
	kv := memory.NewKV()
	services := service.New(service.Deps{
		Products:  memory.NewProductStore(),
		Users:     memory.NewUserStore(),
		Orders:    memory.NewOrderStore(),
		Carts:     kv,
		UserCache: kv,
		Audit:     memory.NewAuditLog(),
		Tokens:    tokens,
		Logger:    zap.NewNop(),
	})

	var gw *Gateway
	require.NotPanics(t, func() { gw = NewGateway(cfg, services, tokens, zap.NewNop()) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/cart", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, err := other.Issue(models.User{ID: "x", Role: models.RoleAdmin})
	require.NoError(t, err)
	rec = ts.do(http.MethodGet, "/api/admin/stats", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerShopper("kiran@example.com")

	rec := ts.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	decode(t, rec, &me)
	assert.Equal(t, "kiran@example.com", me.Email)
	assert.NotContains(t, rec.Body.String(), "PasswordHash")

	rec = ts.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": "Dup", "email": "kiran@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "kiran@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPut, "/api/users/profile", token, gin.H{"name": "Kiran R", "address": gin.H{"city": "Mysuru"}})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &me)
	assert.Equal(t, "Mysuru", me.Address.City)

	rec = ts.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodGet, "/api/users", ts.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProducts(t *testing.T) {
	ts := newTestServer(t)
	shopper := ts.registerShopper("a@example.com")

	rec := ts.do(http.MethodPost, "/api/products", shopper, gin.H{"name": "Kale", "category": "vegetables", "unit": "bunch"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Admin access required"}`, rec.Body.String())

	kale := ts.createProduct("Kale", "35.50", 12)
	ts.createProduct("Cabbage", "20", 5)
	assert.Equal(t, "35.5", kale.Price.String())

	rec = ts.do(http.MethodGet, "/api/products?search=kal", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Product
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, kale.ID, list[0].ID)

	rec = ts.do(http.MethodGet, "/api/products?category=spaceships", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/products/"+kale.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPut, "/api/products/"+kale.ID, ts.admin, gin.H{
		"name": "Kale", "price": 40, "category": "vegetables", "stock": 12, "unit": "bunch",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/products/"+kale.ID, ts.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/products/"+kale.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductImageUpload(t *testing.T) {
	ts := newTestServer(t)
	p := ts.createProduct("Pumpkin", "60", 3)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="pumpkin.png"`)
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/"+p.ID+"/image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.admin)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Product
	decode(t, rec, &updated)
	assert.Contains(t, updated.Image, "https://img.example.com/"+p.ID+"/")
}

type cartBody struct {
	Lines []struct {
		Product  models.Product  `json:"product"`
		Quantity int             `json:"quantity"`
		Subtotal decimal.Decimal `json:"subtotal"`
	} `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

func TestCartFlow(t *testing.T) {
	ts := newTestServer(t)
	shopper := ts.registerShopper("cart@example.com")
	tomatoes := ts.createProduct("Tomatoes", "10", 10)
	basil := ts.createProduct("Basil", "5", 5)

	rec := ts.do(http.MethodPost, "/api/cart/items", shopper, gin.H{"productId": tomatoes.ID, "quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPost, "/api/cart/items", shopper, gin.H{"productId": basil.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var c cartBody
	decode(t, rec, &c)
	assert.Equal(t, "55", c.Total.String())
	assert.Equal(t, 6, c.ItemCount)

	rec = ts.do(http.MethodPut, "/api/cart/items/"+tomatoes.ID, shopper, gin.H{"quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPut, "/api/cart/items/"+basil.ID, shopper, gin.H{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assert.Equal(t, "20", c.Total.String())
	assert.Equal(t, 3, c.ItemCount)

	rec = ts.do(http.MethodPost, "/api/cart/items", shopper, gin.H{"productId": basil.ID, "quantity": 6})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var stockErr map[string]interface{}
	decode(t, rec, &stockErr)
	assert.Equal(t, "Only 5 kg available in stock", stockErr["message"])
	assert.EqualValues(t, 5, stockErr["available"])

	rec = ts.do(http.MethodPost, "/api/cart/items", shopper, gin.H{"productId": basil.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/cart/items/"+tomatoes.ID, shopper, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assert.Len(t, c.Lines, 1)

	rec = ts.do(http.MethodPost, "/api/cart/checkout", shopper, shipping)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o models.Order
	decode(t, rec, &o)
	assert.Equal(t, "10", o.TotalAmount.String())
	assert.Equal(t, models.StatusPending, o.Status)

	rec = ts.do(http.MethodGet, "/api/cart", shopper, nil)
	decode(t, rec, &c)
	assert.Zero(t, c.ItemCount)

	rec = ts.do(http.MethodPost, "/api/cart/checkout", shopper, shipping)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"message":"Cart is empty"}`, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/api/cart", shopper, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderFlow(t *testing.T) {
	ts := newTestServer(t)
	shopper := ts.registerShopper("orders@example.com")
	stranger := ts.registerShopper("stranger@example.com")
	rice := ts.createProduct("Rice", "80", 10)

	rec := ts.do(http.MethodPost, "/api/orders", shopper, withShipping(gin.H{
		"items": []gin.H{{"product": rice.ID, "quantity": 2}},
		"notes": "ring twice",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o models.Order
	decode(t, rec, &o)
	assert.Equal(t, "160", o.TotalAmount.String())
	assert.Equal(t, "ring twice", o.Notes)

	rec = ts.do(http.MethodPost, "/api/orders", shopper, withShipping(gin.H{"lines": []gin.H{}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodPost, "/api/orders", shopper, withShipping(gin.H{
		"lines":         []gin.H{{"productId": rice.ID, "quantity": 1}},
		"paymentMethod": "iou",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/products/"+rice.ID, "", nil)
	var p models.Product
	decode(t, rec, &p)
	assert.Equal(t, 8, p.Stock)

	rec = ts.do(http.MethodGet, "/api/orders/my", shopper, nil)
	var mine []models.Order
	decode(t, rec, &mine)
	assert.Len(t, mine, 1)

	rec = ts.do(http.MethodGet, "/api/orders/"+o.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodGet, "/api/orders", shopper, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodGet, "/api/orders?status=pending", ts.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Order
	decode(t, rec, &all)
	assert.Len(t, all, 1)

	rec = ts.do(http.MethodPut, "/api/orders/"+o.ID+"/status", shopper, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPut, "/api/orders/"+o.ID+"/status", ts.admin, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPut, "/api/orders/"+o.ID+"/status", ts.admin, gin.H{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/orders/"+o.ID+"/status", ts.admin, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &o)
	assert.Equal(t, models.StatusConfirmed, o.Status)

	rec = ts.do(http.MethodGet, "/api/admin/stats", ts.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.Stats
	decode(t, rec, &stats)
	assert.EqualValues(t, 1, stats.Orders)
	assert.EqualValues(t, 3, stats.Users)
	assert.Equal(t, "160", stats.Revenue.String())
}

func TestSwaggerDoc(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/cart/checkout")
}
