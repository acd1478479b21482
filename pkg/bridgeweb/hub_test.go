package bridgeweb

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log := logger.New(logger.Config{Level: "info"})
	return NewHub(log)
}

func TestHub_New(t *testing.T) {
	hub := newTestHub(t)
	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("new hub should have no clients, got %d", hub.ClientCount())
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := newTestHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go hub.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	hub.Broadcast(Event{Type: "test", Data: map[string]interface{}{"message": "hello"}})
	time.Sleep(20 * time.Millisecond)
}

func TestHub_ClientRoundTrip(t *testing.T) {
	hub := newTestHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", hub.ClientCount())
	}

	hub.BroadcastCallStart(312100, 312200, 42, "network", "dmr")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(msg), "call_start") {
		t.Errorf("expected call_start event, got %s", msg)
	}
	if !strings.Contains(string(msg), "312100") {
		t.Errorf("expected srcId in payload, got %s", msg)
	}
}

func TestHub_BroadcastHelpers(t *testing.T) {
	hub := newTestHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go hub.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	hub.BroadcastCallStart(1, 2, 3, "local", "p25")
	hub.BroadcastCallEnd(1, 2, 5*time.Second)
	hub.BroadcastKeyStatus(0x01, 7, true)
	hub.BroadcastPeerState("connected")
	time.Sleep(20 * time.Millisecond)
}

func TestEvent_Marshal(t *testing.T) {
	event := Event{
		Type:      "peer_state",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"state": "connected"},
	}

	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("marshaled data is empty")
	}
	if !strings.Contains(string(data), "peer_state") {
		t.Error("marshaled data doesn't contain event type")
	}
}
