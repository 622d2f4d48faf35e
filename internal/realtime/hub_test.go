package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

func startHub(t *testing.T, lots []uint64) (*Hub, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHub()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.Serve(w, r, lots); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return h, conn
}

func TestHubBroadcastsToSubscribedLots(t *testing.T) {
	h, conn := startHub(t, []uint64{1})

	h.Notify(context.Background(), queue.ParkingEvent{Type: queue.EventVehicleEntered, LotID: 2, Plate: "OTHER"})
	h.Notify(context.Background(), queue.ParkingEvent{Type: queue.EventPaymentSettled, LotID: 1, Plate: "ABC123", Amount: "30"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got queue.ParkingEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, queue.EventPaymentSettled, got.Type)
	assert.Equal(t, "ABC123", got.Plate)
	assert.Equal(t, "30", got.Amount)
}

func TestHubAllLotsSubscriber(t *testing.T) {
	h, conn := startHub(t, nil)

	h.Notify(context.Background(), queue.ParkingEvent{Type: queue.EventVehicleExited, LotID: 7, Plate: "XYZ"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got queue.ParkingEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(7), got.LotID)
}

func TestHubUnregistersOnClose(t *testing.T) {
	h, conn := startHub(t, nil)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyDoesNotBlockWithoutRun(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Notify(context.Background(), queue.ParkingEvent{Type: queue.EventVehicleEntered})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a saturated hub")
	}
}
