package service

import (
	"context"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

// Multi fans one event out to several notifiers in order.  Nil entries are
// skipped.
type Multi []billing.Notifier

// Notify satisfies billing.Notifier.
func (m Multi) Notify(ctx context.Context, ev queue.ParkingEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}
