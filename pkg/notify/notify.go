// Package notify delivers order events to a notification actor so that order handling
// never waits on downstream delivery.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/farmmarket/pkg/models"
	"go.uber.org/zap"
)

const auditTimeout = 5 * time.Second

// AuditLogger records delivered notifications.
type AuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditEntry) error
}

// Messages
type OrderPlaced struct {
	Order models.Order
}

type StatusChanged struct {
	Order models.Order
	From  models.OrderStatus
}

type GetStats struct{}

type Stats struct {
	OrdersPlaced  int
	StatusChanges int
	LastOrderID   string
	AuditFailures int
}

// NotificationActor handles order notifications
type NotificationActor struct {
	logger *zap.Logger
	audit  AuditLogger
	stats  Stats
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.stats.OrdersPlaced++
		a.stats.LastOrderID = msg.Order.ID
		a.logger.Info("Sending order confirmation",
			zap.String("order_id", msg.Order.ID),
			zap.String("user_id", msg.Order.UserID),
			zap.Int("item_count", len(msg.Order.Items)),
			zap.String("total_amount", msg.Order.TotalAmount.String()))
		a.record("order_placed", msg.Order, map[string]interface{}{
			"user_id":      msg.Order.UserID,
			"total_amount": msg.Order.TotalAmount.String(),
		})

	case *StatusChanged:
		a.stats.StatusChanges++
		a.logger.Info("Sending status update",
			zap.String("order_id", msg.Order.ID),
			zap.String("user_id", msg.Order.UserID),
			zap.String("from", string(msg.From)),
			zap.String("to", string(msg.Order.Status)))
		a.record("status_changed", msg.Order, map[string]interface{}{
			"from": string(msg.From),
			"to":   string(msg.Order.Status),
		})

	case *GetStats:
		ctx.Respond(a.stats)

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")
	}
}

func (a *NotificationActor) record(action string, o models.Order, data map[string]interface{}) {
	if a.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	err := a.audit.CreateAuditLog(ctx, &models.AuditEntry{
		Service:  "notify",
		Action:   action,
		EntityID: o.ID,
		Data:     data,
	})
	if err != nil {
		a.stats.AuditFailures++
		a.logger.Warn("Failed to write notification audit", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// Notifier forwards order events to the notification actor.
type Notifier struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

// Start spawns the notification actor in a new actor system.
func Start(logger *zap.Logger, audit AuditLogger) (*Notifier, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor"), audit: audit}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	return &Notifier{system: system, pid: pid, logger: logger}, nil
}

func (n *Notifier) OrderPlaced(o models.Order) {
	n.system.Root.Send(n.pid, &OrderPlaced{Order: o})
}

func (n *Notifier) StatusChanged(o models.Order, from models.OrderStatus) {
	n.system.Root.Send(n.pid, &StatusChanged{Order: o, From: from})
}

// stats asks the actor for its counters. Messages sent earlier are processed first.
func (n *Notifier) stats(timeout time.Duration) (Stats, error) {
	result, err := n.system.Root.RequestFuture(n.pid, &GetStats{}, timeout).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get notification stats: %w", err)
	}
	stats, ok := result.(Stats)
	if !ok {
		return Stats{}, fmt.Errorf("unexpected stats reply %T", result)
	}
	return stats, nil
}

// Stop drains pending notifications and shuts the actor system down.
func (n *Notifier) Stop() {
	if err := n.system.Root.PoisonFuture(n.pid).Wait(); err != nil {
		n.logger.Warn("Notification actor did not stop cleanly", zap.Error(err))
	}
	n.system.Shutdown()
}
