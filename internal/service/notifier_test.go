package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

type recorder struct{ got []queue.EventType }

func (r *recorder) Notify(_ context.Context, ev queue.ParkingEvent) { r.got = append(r.got, ev.Type) }

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b}

	m.Notify(context.Background(), queue.ParkingEvent{Type: queue.EventVehicleEntered})

	assert.Equal(t, []queue.EventType{queue.EventVehicleEntered}, a.got)
	assert.Equal(t, []queue.EventType{queue.EventVehicleEntered}, b.got)
}
