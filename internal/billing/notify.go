package billing

import (
	"context"

	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

// Notifier receives domain events after the corresponding transaction has
// committed.  Implementations must not block for long and must swallow
// their own failures; committed state is never rolled back for them.
type Notifier interface {
	Notify(ctx context.Context, ev queue.ParkingEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, queue.ParkingEvent) {}
