package service

import (
	"context"
	"fmt"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
)

const recentOrderCount = 5

type Stats struct {
	Products     int64           `json:"totalProducts"`
	Orders       int64           `json:"totalOrders"`
	Users        int64           `json:"totalUsers"`
	Revenue      decimal.Decimal `json:"totalRevenue"`
	RecentOrders []models.Order  `json:"recentOrders"`
}

type DashboardService struct {
	products ProductRepository
	orders   OrderRepository
	users    UserRepository
}

func NewDashboardService(products ProductRepository, orders OrderRepository, users UserRepository) *DashboardService {
	return &DashboardService{products: products, orders: orders, users: users}
}

// Stats summarises the shop for administrators. Revenue excludes cancelled orders.
func (s *DashboardService) Stats(ctx context.Context, sess auth.Session) (Stats, error) {
	if !sess.IsAdmin() {
		return Stats{}, apperr.Forbidden(errMsgAdminRequired)
	}

	var stats Stats
	var err error
	if stats.Products, err = s.products.Count(ctx); err != nil {
		return Stats{}, fmt.Errorf("count products: %w", err)
	}
	if stats.Orders, err = s.orders.Count(ctx); err != nil {
		return Stats{}, fmt.Errorf("count orders: %w", err)
	}
	if stats.Users, err = s.users.Count(ctx); err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	if stats.Revenue, err = s.orders.Revenue(ctx); err != nil {
		return Stats{}, fmt.Errorf("revenue: %w", err)
	}
	if stats.RecentOrders, err = s.orders.List(ctx, models.OrderFilter{Limit: recentOrderCount}); err != nil {
		return Stats{}, fmt.Errorf("recent orders: %w", err)
	}
	return stats, nil
}
