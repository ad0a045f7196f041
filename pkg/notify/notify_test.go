package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/farmmarket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type auditRecorder struct {
	mu      sync.Mutex
	actions []string
	fail    bool
}

func (r *auditRecorder) CreateAuditLog(ctx context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("mongo down")
	}
	r.actions = append(r.actions, entry.Action+":"+entry.EntityID)
	return nil
}

func TestNotifier_DeliversInOrder(t *testing.T) {
	audit := &auditRecorder{}
	n, err := Start(zap.NewNop(), audit)
	require.NoError(t, err)
	defer n.Stop()

	o := models.Order{ID: "o-1", UserID: "u-1", Status: models.StatusPending}
	n.OrderPlaced(o)
	o.Status = models.StatusConfirmed
	n.StatusChanged(o, models.StatusPending)

	stats, err := n.stats(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OrdersPlaced)
	assert.Equal(t, 1, stats.StatusChanges)
	assert.Equal(t, "o-1", stats.LastOrderID)

	audit.mu.Lock()
	defer audit.mu.Unlock()
	assert.Equal(t, []string{"order_placed:o-1", "status_changed:o-1"}, audit.actions)
}

func TestNotifier_AuditFailureIsCounted(t *testing.T) {
	n, err := Start(zap.NewNop(), &auditRecorder{fail: true})
	require.NoError(t, err)
	defer n.Stop()

	n.OrderPlaced(models.Order{ID: "o-2"})

	stats, err := n.stats(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OrdersPlaced)
	assert.Equal(t, 1, stats.AuditFailures)
}
