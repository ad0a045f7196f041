package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/models"
)

// Policy decides which status changes an administrator may make.
type Policy int

const (
	// ForwardOnly walks pending→confirmed→shipped→delivered and allows cancelling an
	// order that has not shipped.
	ForwardOnly Policy = iota
	// Permissive allows any status to be set to any other.
	Permissive
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward_only":
		return ForwardOnly, nil
	case "permissive":
		return Permissive, nil
	}
	return ForwardOnly, fmt.Errorf("unknown status policy %q", s)
}

func (p Policy) String() string {
	if p == Permissive {
		return "permissive"
	}
	return "forward_only"
}

var forward = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:   {models.StatusDelivered},
}

// Allows reports whether from may change to to under the policy.
func (p Policy) Allows(from, to models.OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if p == Permissive {
		return true
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from the given one.
func (p Policy) Next(from models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for _, to := range models.OrderStatuses {
		if to != from && p.Allows(from, to) {
			out = append(out, to)
		}
	}
	return out
}

// Transition changes o's status on behalf of sess. Only administrators may do this.
// On error o is left untouched.
func Transition(sess auth.Session, o *models.Order, to models.OrderStatus, p Policy, now time.Time) error {
	if !sess.IsAdmin() {
		return apperr.Forbidden("Admin access required")
	}
	if !to.Valid() {
		return apperr.Newf(apperr.KindInvalidArgument, "Unknown order status %q", to)
	}
	if !p.Allows(o.Status, to) {
		return apperr.Newf(apperr.KindInvalidTransition, "Cannot move order from %s to %s", o.Status, to)
	}

	o.Status = to
	o.UpdatedAt = now
	return nil
}
