package service

import (
	"time"

	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/order"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by the services.
type Deps struct {
	Products   ProductRepository
	Users      UserRepository
	Orders     OrderRepository
	Carts      CartStore
	UserCache  UserCache
	Audit      AuditLogger
	Notifier   Notifier
	Images     ImageUploader
	Tokens     *auth.TokenIssuer
	Policy     order.Policy
	BcryptCost int
	Logger     *zap.Logger
	Now        Clock
}

type Services struct {
	Catalog   *CatalogService
	Carts     *CartService
	Orders    *OrderService
	Users     *UserService
	Dashboard *DashboardService
}

func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	orders := NewOrderService(d.Orders, d.Products, d.Notifier, d.Audit, d.Policy, d.Logger, d.Now)
	return &Services{
		Catalog:   NewCatalogService(d.Products, d.Images, d.Audit, d.Logger, d.Now),
		Carts:     NewCartService(d.Carts, d.Products, orders, d.Logger),
		Orders:    orders,
		Users:     NewUserService(d.Users, d.UserCache, d.Tokens, d.BcryptCost, d.Logger, d.Now),
		Dashboard: NewDashboardService(d.Products, d.Orders, d.Users),
	}
}
