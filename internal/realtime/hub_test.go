package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmadera/payfriend/internal/ledger"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sampleTransfer(amount ledger.Cents) *ledger.Transaction {
	return &ledger.Transaction{
		ID:        "txn-test-1",
		From:      ledger.Party{UID: "alice", Name: "Alice"},
		To:        ledger.Party{UID: "bob", Name: "Bob"},
		Amount:    amount,
		Timestamp: time.Now(),
		Status:    ledger.StatusCompleted,
	}
}

func TestHubBroadcastsTransfers(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	// Give the register message time to land before broadcasting.
	require.Eventually(t, func() bool {
		return hub.Stats()["connectedClients"].(int) == 1
	}, time.Second, 10*time.Millisecond)

	hub.PublishTransfer(sampleTransfer(ledger.Cents(2500)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, EventTransfer, event.Type)
	require.NotNil(t, event.Transfer)
	assert.Equal(t, "txn-test-1", event.Transfer.ID)
	assert.Equal(t, ledger.Cents(2500), event.Transfer.Amount)
}

func TestHubSubscriptionFiltersByUser(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	require.Eventually(t, func() bool {
		return hub.Stats()["connectedClients"].(int) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Subscription{UserUIDs: []string{"carol"}}))
	time.Sleep(50 * time.Millisecond) // let readPump apply the subscription

	// alice→bob does not involve carol: filtered out.
	hub.PublishTransfer(sampleTransfer(ledger.Cents(100)))

	involved := sampleTransfer(ledger.Cents(200))
	involved.ID = "txn-test-2"
	involved.To = ledger.Party{UID: "carol", Name: "Carol"}
	hub.PublishTransfer(involved)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "txn-test-2", event.Transfer.ID)
}

func TestClientWantsMinAmount(t *testing.T) {
	c := &Client{min: ledger.Cents(5000)}

	below := &Event{Type: EventTransfer, Transfer: sampleTransfer(ledger.Cents(4999))}
	atMin := &Event{Type: EventTransfer, Transfer: sampleTransfer(ledger.Cents(5000))}

	assert.False(t, c.wants(below))
	assert.True(t, c.wants(atMin))
}

func TestPublishTransferDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	// Run loop never started: the broadcast buffer fills up.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.PublishTransfer(sampleTransfer(ledger.Cents(1)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishTransfer blocked on a full channel")
	}
}
