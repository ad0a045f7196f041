// Package client talks to the marketplace REST API. Authenticated calls take the
// caller's Session explicitly; the client itself holds no credentials.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/models"
	"github.com/example/farmmarket/pkg/order"
	"github.com/go-resty/resty/v2"
)

// ErrNoSession is returned by authenticated calls made without a session.
var ErrNoSession = apperr.Unauthorized("Not logged in")

// Session is the result of a successful login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// LoadSession reads a session saved by Save. A missing file yields nil, nil.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// APIError is a non-2xx response.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"message"`
	Available *int   `json:"available,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// Unwrap maps the status back to an error kind so callers can use errors.Is with the
// apperr sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return apperr.ErrInvalidArgument
	case http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case http.StatusForbidden:
		return apperr.ErrForbidden
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		if e.Available != nil {
			return apperr.ErrInsufficientStock
		}
		return apperr.ErrConflict
	case http.StatusUnprocessableEntity:
		return apperr.ErrEmptyCart
	case http.StatusServiceUnavailable:
		return apperr.ErrUnavailable
	}
	return nil
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) request(ctx context.Context, sess *Session) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if sess != nil {
		req.SetAuthToken(sess.Token)
	}
	return req
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	var out authResponse
	resp, err := c.request(ctx, nil).
		SetBody(map[string]string{"name": name, "email": email, "password": password}).
		SetResult(&out).
		Post("/api/auth/register")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &Session{Token: out.Token, User: out.User}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out authResponse
	resp, err := c.request(ctx, nil).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/api/auth/login")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &Session{Token: out.Token, User: out.User}, nil
}

func (c *Client) Me(ctx context.Context, sess *Session) (models.User, error) {
	if sess == nil {
		return models.User{}, ErrNoSession
	}
	var user models.User
	resp, err := c.request(ctx, sess).SetResult(&user).Get("/api/auth/me")
	return user, check(resp, err)
}

func (c *Client) Products(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	req := c.request(ctx, nil)
	if filter.Category != "" {
		req.SetQueryParam("category", string(filter.Category))
	}
	if filter.Search != "" {
		req.SetQueryParam("search", filter.Search)
	}
	if filter.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(filter.Limit))
	}

	var products []models.Product
	resp, err := req.SetResult(&products).Get("/api/products")
	return products, check(resp, err)
}

func (c *Client) Product(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	resp, err := c.request(ctx, nil).
		SetPathParam("id", id).
		SetResult(&p).
		Get("/api/products/{id}")
	return p, check(resp, err)
}

type placeOrderRequest struct {
	Lines []cart.StoredLine `json:"lines"`
	order.CheckoutRequest
}

// PlaceOrder submits the lines of a locally held cart.
func (c *Client) PlaceOrder(ctx context.Context, sess *Session, lines []cart.StoredLine, req order.CheckoutRequest) (models.Order, error) {
	if sess == nil {
		return models.Order{}, ErrNoSession
	}
	var o models.Order
	resp, err := c.request(ctx, sess).
		SetBody(placeOrderRequest{Lines: lines, CheckoutRequest: req}).
		SetResult(&o).
		Post("/api/orders")
	return o, check(resp, err)
}

func (c *Client) MyOrders(ctx context.Context, sess *Session) ([]models.Order, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	var orders []models.Order
	resp, err := c.request(ctx, sess).SetResult(&orders).Get("/api/orders/my")
	return orders, check(resp, err)
}

func (c *Client) Order(ctx context.Context, sess *Session, id string) (models.Order, error) {
	if sess == nil {
		return models.Order{}, ErrNoSession
	}
	var o models.Order
	resp, err := c.request(ctx, sess).
		SetPathParam("id", id).
		SetResult(&o).
		Get("/api/orders/{id}")
	return o, check(resp, err)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, sess *Session, id string, status models.OrderStatus) (models.Order, error) {
	if sess == nil {
		return models.Order{}, ErrNoSession
	}
	var o models.Order
	resp, err := c.request(ctx, sess).
		SetPathParam("id", id).
		SetBody(map[string]models.OrderStatus{"status": status}).
		SetResult(&o).
		Put("/api/orders/{id}/status")
	return o, check(resp, err)
}
