package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/farmmarket/pkg/config"
	"github.com/example/farmmarket/pkg/models"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes the value at key into dest. It reports false when the key is absent.
func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func userKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// LoadCart returns the persisted cart lines for userID, or nil when there is none.
func (r *RedisRepository) LoadCart(ctx context.Context, userID string) ([]byte, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return data, nil
}

// SaveCart stores the encoded cart and refreshes its expiry.
func (r *RedisRepository) SaveCart(ctx context.Context, userID string, data []byte) error {
	if err := r.client.Set(ctx, cartKey(userID), data, r.config.CartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *RedisRepository) DeleteCart(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Cache for user data
func (r *RedisRepository) CacheUser(ctx context.Context, user models.User) error {
	return r.SetJSON(ctx, userKey(user.ID), user, r.config.UserTTL)
}

// GetCachedUser reports false on a cache miss. The password hash is never cached.
func (r *RedisRepository) GetCachedUser(ctx context.Context, userID string) (models.User, bool, error) {
	var user models.User
	ok, err := r.GetJSON(ctx, userKey(userID), &user)
	if err != nil || !ok {
		return models.User{}, false, err
	}
	return user, true, nil
}

func (r *RedisRepository) InvalidateUser(ctx context.Context, userID string) error {
	return r.client.Del(ctx, userKey(userID)).Err()
}
