// Package service orchestrates the catalog, carts, orders and users on top of the
// repositories and the cart and order core.
package service

import (
	"context"
	"io"
	"time"

	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
)

type ProductRepository interface {
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Get(ctx context.Context, id string) (models.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) error
	Count(ctx context.Context) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	Count(ctx context.Context) (int64, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
}

// CartStore persists encoded cart lines per user.
type CartStore interface {
	LoadCart(ctx context.Context, userID string) ([]byte, error)
	SaveCart(ctx context.Context, userID string, data []byte) error
	DeleteCart(ctx context.Context, userID string) error
}

type UserCache interface {
	CacheUser(ctx context.Context, user models.User) error
	GetCachedUser(ctx context.Context, userID string) (models.User, bool, error)
	InvalidateUser(ctx context.Context, userID string) error
}

type AuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditEntry) error
}

// Notifier receives order events. Implementations must not block the caller.
type Notifier interface {
	OrderPlaced(order models.Order)
	StatusChanged(order models.Order, from models.OrderStatus)
}

// ImageUploader stores a product image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Clock is swapped in tests.
type Clock func() time.Time
