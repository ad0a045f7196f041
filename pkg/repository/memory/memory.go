// Package memory implements the repositories in process, for the "memory" storage
// driver and for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStore struct {
	mu       sync.RWMutex
	products map[string]models.Product
	order    []string
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]models.Product)}
}

// List returns matching products, newest first.
func (s *ProductStore) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	products := make([]models.Product, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		p := s.products[s.order[i]]
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		products = append(products, p)
		if filter.Limit > 0 && len(products) == filter.Limit {
			break
		}
	}
	return products, nil
}

func (s *ProductStore) Get(ctx context.Context, id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return models.Product{}, apperr.NotFound("Product not found")
	}
	return p, nil
}

func (s *ProductStore) GetMany(ctx context.Context, ids []string) (map[string]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	s.products[p.ID] = *p
	s.order = append(s.order, p.ID)
	return nil
}

func (s *ProductStore) Update(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return apperr.NotFound("Product not found")
	}
	s.products[p.ID] = p
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperr.NotFound("Product not found")
	}
	delete(s.products, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *ProductStore) AdjustStock(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return apperr.NotFound("Product not found")
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return nil
}

func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

type UserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.New(apperr.KindConflict, "User already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("User not found")
	}
	return user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, apperr.NotFound("User not found")
}

func (s *UserStore) Update(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	existing.Name = user.Name
	existing.Phone = user.Phone
	existing.Address = user.Address
	existing.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = existing
	return nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	order  []string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]models.Order)}
}

func (s *OrderStore) Create(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, ok := s.orders[o.ID]; ok {
		return apperr.New(apperr.KindConflict, "Order already exists")
	}
	s.orders[o.ID] = cloneOrder(*o)
	s.order = append(s.order, o.ID)
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, apperr.NotFound("Order not found")
	}
	return cloneOrder(o), nil
}

// List returns matching orders, newest first.
func (s *OrderStore) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	orders := make([]models.Order, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		o := s.orders[s.order[i]]
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.ID), search) &&
			!strings.Contains(strings.ToLower(o.ShippingAddress.City), search) &&
			!strings.Contains(strings.ToLower(o.Notes), search) {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return apperr.NotFound("Order not found")
	}
	o.Status = status
	o.UpdatedAt = at
	s.orders[id] = o
	return nil
}

func (s *OrderStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.orders)), nil
}

func (s *OrderStore) Revenue(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, o := range s.orders {
		if o.Status != models.StatusCancelled {
			total = total.Add(o.TotalAmount)
		}
	}
	return total, nil
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// KV holds carts and cached users.
type KV struct {
	mu    sync.RWMutex
	carts map[string][]byte
	users map[string]models.User
}

func NewKV() *KV {
	return &KV{
		carts: make(map[string][]byte),
		users: make(map[string]models.User),
	}
}

func (kv *KV) LoadCart(ctx context.Context, userID string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	data, ok := kv.carts[userID]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (kv *KV) SaveCart(ctx context.Context, userID string, data []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	kv.carts[userID] = stored
	return nil
}

func (kv *KV) DeleteCart(ctx context.Context, userID string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.carts, userID)
	return nil
}

// CacheUser drops the password hash, like the JSON-encoded Redis cache.
func (kv *KV) CacheUser(ctx context.Context, user models.User) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	user.PasswordHash = ""
	kv.users[user.ID] = user
	return nil
}

func (kv *KV) GetCachedUser(ctx context.Context, userID string) (models.User, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	user, ok := kv.users[userID]
	return user, ok, nil
}

func (kv *KV) InvalidateUser(ctx context.Context, userID string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.users, userID)
	return nil
}

// AuditLog records entries in memory.
type AuditLog struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) CreateAuditLog(ctx context.Context, entry *models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	a.entries = append(a.entries, *entry)
	return nil
}

// Entries returns the entries recorded for entityID, oldest first. An empty id returns all.
func (a *AuditLog) Entries(entityID string) []models.AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []models.AuditEntry
	for _, e := range a.entries {
		if entityID == "" || e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}
