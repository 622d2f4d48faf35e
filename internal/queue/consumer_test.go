package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	line := FormatLine(ParkingEvent{
		Type:          EventPaymentSettled,
		LotID:         2,
		SessionID:     15,
		Plate:         "AB123",
		TransactionID: "TXN1234",
		Amount:        "30.00",
		Method:        "Cash",
		PaidUntil:     "2025-03-01T10:25:00Z",
		OccurredAt:    "2025-03-01T10:10:00Z",
	})

	assert.Equal(t,
		`[2025-03-01T10:10:00Z] payment.settled | lot_id=2 | session_id=15 | plate="AB123" | txn=TXN1234 | amount=30.00 | method=Cash | paid_until=2025-03-01T10:25:00Z`+"\n",
		line)
}

func TestFormatLineOmitsEmptyFields(t *testing.T) {
	line := FormatLine(ParkingEvent{Type: EventVehicleEntered, LotID: 1, SessionID: 3, Plate: "XY9", OccurredAt: "2025-03-01T09:00:00Z"})

	assert.Equal(t, `[2025-03-01T09:00:00Z] vehicle.entered | lot_id=1 | session_id=3 | plate="XY9"`+"\n", line)
}

func TestHandleAppendsToLog(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{LogDir: filepath.Join(dir, "logs")}

	for _, ev := range []ParkingEvent{
		{Type: EventVehicleEntered, LotID: 1, SessionID: 3, Plate: "XY9", OccurredAt: "a"},
		{Type: EventVehicleExited, LotID: 1, SessionID: 3, Plate: "XY9", OccurredAt: "b"},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "parking.log"))
	require.NoError(t, err)
	assert.Equal(t,
		"[a] vehicle.entered | lot_id=1 | session_id=3 | plate=\"XY9\"\n[b] vehicle.exited | lot_id=1 | session_id=3 | plate=\"XY9\"\n",
		string(data))
}

func TestHandleRejectsMalformed(t *testing.T) {
	c := &Consumer{LogDir: t.TempDir()}

	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"lot_id":1}`)))
}
