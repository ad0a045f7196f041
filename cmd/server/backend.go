package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/farmmarket/pkg/config"
	grpcserver "github.com/example/farmmarket/pkg/grpc"
	"github.com/example/farmmarket/pkg/repository"
	"github.com/example/farmmarket/pkg/repository/memory"
	"github.com/example/farmmarket/pkg/service"
	"go.uber.org/zap"
)

// backend holds the stores for the configured storage driver.
type backend struct {
	products  service.ProductRepository
	users     service.UserRepository
	orders    service.OrderRepository
	carts     service.CartStore
	userCache service.UserCache
	audit     service.AuditLogger
	probes    []grpcserver.Probe
	closers   []func(ctx context.Context) error
}

func (b *backend) Close(ctx context.Context, logger *zap.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("Failed to close storage", zap.Error(err))
		}
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		kv := memory.NewKV()
		return &backend{
			products:  memory.NewProductStore(),
			users:     memory.NewUserStore(),
			orders:    memory.NewOrderStore(),
			carts:     kv,
			userCache: kv,
			audit:     memory.NewAuditLog(),
		}, nil
	}

	b := &backend{}

	mongo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, mongo.Close)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mongo.Ping(pingCtx); err != nil {
		b.Close(ctx, logger)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	if err := mongo.EnsureIndexes(pingCtx); err != nil {
		logger.Warn("Failed to create MongoDB indexes", zap.Error(err))
	}
	logger.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))

	db, err := repository.OpenMySQL(&cfg.MySQL)
	if err != nil {
		b.Close(ctx, logger)
		return nil, err
	}
	b.closers = append(b.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	logger.Info("MySQL connected", zap.String("database", cfg.MySQL.Database))

	redis := repository.NewRedisRepository(&cfg.Redis)
	b.closers = append(b.closers, func(context.Context) error { return redis.Close() })
	if err := redis.Ping(pingCtx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	b.products = mongo.Products()
	b.users = repository.NewUserStore(db)
	b.orders = repository.NewOrderStore(db)
	b.carts = redis
	b.userCache = redis
	b.audit = mongo
	b.probes = []grpcserver.Probe{
		{Name: "mongodb", Check: mongo.Ping},
		{Name: "mysql", Check: func(ctx context.Context) error { return repository.PingMySQL(ctx, db) }},
		{Name: "redis", Check: redis.Ping},
	}
	return b, nil
}
