package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/farmmarket/gateway"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/config"
	"github.com/example/farmmarket/pkg/discovery"
	grpcserver "github.com/example/farmmarket/pkg/grpc"
	"github.com/example/farmmarket/pkg/logging"
	"github.com/example/farmmarket/pkg/notify"
	"github.com/example/farmmarket/pkg/order"
	"github.com/example/farmmarket/pkg/service"
	"github.com/example/farmmarket/pkg/storage"
	"github.com/example/farmmarket/pkg/telemetry"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "config/config.yaml", "path to the YAML config file")
	pflag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting farmmarket API",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background(), logger)

	policy, err := order.ParsePolicy(cfg.Orders.StatusPolicy)
	if err != nil {
		return err
	}

	notifier, err := notify.Start(logger, store.audit)
	if err != nil {
		return err
	}
	defer notifier.Stop()

	deps := service.Deps{
		Products:   store.products,
		Users:      store.users,
		Orders:     store.orders,
		Carts:      store.carts,
		UserCache:  store.userCache,
		Audit:      store.audit,
		Notifier:   notifier,
		Tokens:     auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Policy:     policy,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	}
	if cfg.S3.Bucket != "" {
		images, err := storage.NewImageStore(ctx, cfg.S3)
		if err != nil {
			return err
		}
		deps.Images = images
	} else {
		logger.Info("S3 bucket not configured, image uploads disabled")
	}

	services := service.New(deps)
	if cfg.Auth.AdminEmail != "" {
		if err := services.Users.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}
	}

	tracing, err := telemetry.New(cfg.Telemetry, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	gw := gateway.NewGateway(cfg, services, deps.Tokens, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: tracing.Wrap(gw.Handler()),
	}

	serverErr := make(chan error, 2)
	go func() {
		logger.Info("Gateway started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.GRPC.Enabled {
		health := grpcserver.NewHealthServer(cfg.GRPC, cfg.Server.Name, logger, store.probes...)
		go func() {
			if err := health.Listen(); err != nil {
				serverErr <- err
			}
		}()
		go health.Watch(ctx)
		defer health.Stop()
	}

	if len(cfg.Etcd.Endpoints) > 0 {
		deregister := registerService(ctx, cfg, logger)
		defer deregister()
	}

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// registerService announces the HTTP address in etcd. Discovery is optional: a
// failure is logged and the server keeps running.
func registerService(ctx context.Context, cfg *config.Config, logger *zap.Logger) func() {
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		return func() {}
	}

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		logger.Warn("Failed to register service", zap.Error(err))
		sd.Close()
		return func() {}
	}
	logger.Info("Service registered in etcd", zap.String("address", instance.Addr()))

	return func() {
		dctx, cancel := context.WithTimeout(context.Background(), cfg.Etcd.DialTimeout)
		defer cancel()
		if err := sd.Deregister(dctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
}
