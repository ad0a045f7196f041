package gateway

import (
	"net/http"

	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/config"
	"github.com/example/farmmarket/pkg/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/example/farmmarket/docs"
)

type Gateway struct {
	config   *config.Config
	services *service.Services
	tokens   *auth.TokenIssuer
	logger   *zap.Logger
	router   *gin.Engine
}

func NewGateway(cfg *config.Config, services *service.Services, tokens *auth.TokenIssuer, logger *zap.Logger) *Gateway {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	// cors.New panics on an empty origin list; no origins means no cross-origin access.
	if len(cfg.CORS.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	g := &Gateway{
		config:   cfg,
		services: services,
		tokens:   tokens,
		logger:   logger.Named("gateway"),
		router:   router,
	}
	g.SetupRoutes()
	return g
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := g.router.Group("/api")
	authed := g.authMiddleware()
	admin := requireAdmin()

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", g.register)
		authRoutes.POST("/login", g.login)
		authRoutes.GET("/me", authed, g.me)
	}

	products := api.Group("/products")
	{
		products.GET("", g.listProducts)
		products.GET("/:id", g.getProduct)
		products.POST("", authed, admin, g.createProduct)
		products.PUT("/:id", authed, admin, g.updateProduct)
		products.DELETE("/:id", authed, admin, g.deleteProduct)
		products.POST("/:id/image", authed, admin, g.uploadProductImage)
	}

	carts := api.Group("/cart", authed)
	{
		carts.GET("", g.getCart)
		carts.DELETE("", g.clearCart)
		carts.POST("/items", g.addCartItem)
		carts.PUT("/items/:productId", g.setCartItem)
		carts.DELETE("/items/:productId", g.removeCartItem)
		carts.POST("/checkout", g.checkoutCart)
	}

	orders := api.Group("/orders", authed)
	{
		orders.POST("", g.createOrder)
		orders.GET("/my", g.myOrders)
		orders.GET("", admin, g.listOrders)
		orders.GET("/:id", g.getOrder)
		// Role is enforced by the order service so the refusal is a domain error.
		orders.PUT("/:id/status", g.updateOrderStatus)
	}

	users := api.Group("/users", authed)
	{
		users.GET("", admin, g.listUsers)
		users.PUT("/profile", g.updateProfile)
	}

	api.GET("/admin/stats", authed, admin, g.stats)

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler is the HTTP entry point.
func (g *Gateway) Handler() http.Handler {
	return g.router
}
