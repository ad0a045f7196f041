package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/models"
	"github.com/example/farmmarket/pkg/order"
	"github.com/example/farmmarket/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxImageSize = 5 << 20

func (g *Gateway) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	res, err := g.services.Users.Register(c.Request.Context(), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (g *Gateway) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	res, err := g.services.Users.Login(c.Request.Context(), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (g *Gateway) me(c *gin.Context) {
	user, err := g.services.Users.Me(c.Request.Context(), session(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) updateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	user, err := g.services.Users.UpdateProfile(c.Request.Context(), session(c), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) listUsers(c *gin.Context) {
	users, err := g.services.Users.List(c.Request.Context(), session(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (g *Gateway) listProducts(c *gin.Context) {
	filter := models.ProductFilter{
		Category: models.Category(c.Query("category")),
		Search:   c.Query("search"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			g.respondError(c, apperr.InvalidArgument("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	products, err := g.services.Catalog.List(c.Request.Context(), filter)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (g *Gateway) getProduct(c *gin.Context) {
	p, err := g.services.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	p, err := g.services.Catalog.Create(c.Request.Context(), session(c), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	p, err := g.services.Catalog.Update(c.Request.Context(), session(c), c.Param("id"), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	if err := g.services.Catalog.Delete(c.Request.Context(), session(c), c.Param("id")); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

func (g *Gateway) uploadProductImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		g.respondError(c, apperr.Wrap(apperr.KindInvalidArgument, "No image uploaded", err))
		return
	}
	if file.Size > maxImageSize {
		g.respondError(c, apperr.InvalidArgument("Image must be 5MB or smaller"))
		return
	}

	f, err := file.Open()
	if err != nil {
		g.respondError(c, apperr.Wrap(apperr.KindInvalidArgument, "Invalid image", err))
		return
	}
	defer f.Close()

	p, err := g.services.Catalog.UploadImage(c.Request.Context(), session(c), c.Param("id"),
		file.Filename, file.Header.Get("Content-Type"), f)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"itemCount"`
}

type cartLineResponse struct {
	Product  models.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func toCartResponse(s cart.State) cartResponse {
	lines := make([]cartLineResponse, 0, len(s.Lines))
	for _, line := range s.Lines {
		lines = append(lines, cartLineResponse{
			Product:  line.Product,
			Quantity: line.Quantity,
			Subtotal: line.Subtotal(),
		})
	}
	return cartResponse{Lines: lines, Total: s.Total, ItemCount: s.ItemCount()}
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type setCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (g *Gateway) getCart(c *gin.Context) {
	s, err := g.services.Carts.Get(c.Request.Context(), session(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(s))
}

func (g *Gateway) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	if req.ProductID == "" {
		g.respondError(c, apperr.InvalidArgument("productId is required"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	s, err := g.services.Carts.Add(c.Request.Context(), session(c), req.ProductID, quantity)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(s))
}

func (g *Gateway) setCartItem(c *gin.Context) {
	var req setCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	if req.Quantity == nil {
		g.respondError(c, apperr.InvalidArgument("quantity is required"))
		return
	}

	s, err := g.services.Carts.SetQuantity(c.Request.Context(), session(c), c.Param("productId"), *req.Quantity)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(s))
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	s, err := g.services.Carts.Remove(c.Request.Context(), session(c), c.Param("productId"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(s))
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.services.Carts.Clear(c.Request.Context(), session(c)); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart.Empty()))
}

func (g *Gateway) checkoutCart(c *gin.Context) {
	var req order.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	o, err := g.services.Carts.Checkout(c.Request.Context(), session(c), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// orderLineRequest accepts both the current and the legacy field names.
type orderLineRequest struct {
	ProductID string `json:"productId"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Lines []orderLineRequest `json:"lines"`
	Items []orderLineRequest `json:"items"`
	order.CheckoutRequest
}

func (r createOrderRequest) storedLines() []cart.StoredLine {
	lines := r.Lines
	if len(lines) == 0 {
		lines = r.Items
	}
	stored := make([]cart.StoredLine, 0, len(lines))
	for _, line := range lines {
		id := line.ProductID
		if id == "" {
			id = line.Product
		}
		stored = append(stored, cart.StoredLine{ProductID: id, Quantity: line.Quantity})
	}
	return stored
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	o, err := g.services.Orders.Place(c.Request.Context(), session(c), req.storedLines(), req.CheckoutRequest)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (g *Gateway) myOrders(c *gin.Context) {
	orders, err := g.services.Orders.ListMine(c.Request.Context(), session(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) listOrders(c *gin.Context) {
	filter := models.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	orders, err := g.services.Orders.List(c.Request.Context(), session(c), filter)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.services.Orders.Get(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, bindError(err))
		return
	}
	o, err := g.services.Orders.UpdateStatus(c.Request.Context(), session(c), c.Param("id"), req.Status)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) stats(c *gin.Context) {
	stats, err := g.services.Dashboard.Stats(c.Request.Context(), session(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
