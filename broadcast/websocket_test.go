package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestHub_BroadcastsToClients tests websocket delivery
// Given: two connected websocket clients
// When: an event is sent to the hub
// Then: both clients read it as JSON
func TestHub_BroadcastsToClients(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c1 := dialHub(t, srv)
	c2 := dialHub(t, srv)
	waitClients(t, hub, 2)

	// Act
	if err := hub.Send(context.Background(), ErrorEvent{SourceID: 3, Message: "oops"}); err != nil {
		t.Fatal(err)
	}

	// Assert
	for i, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("client %d: %v", i, err)
		}
		var ev ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("client %d: %v", i, err)
		}
		if ev.SourceID != 3 || ev.Message != "oops" {
			t.Errorf("client %d got %+v", i, ev)
		}
	}
}

// TestHub_ClientDisconnect tests cleanup after a client leaves
func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dialHub(t, srv)
	waitClients(t, hub, 1)

	c.Close()

	waitClients(t, hub, 0)
}

// TestHub_Close tests that a closed hub refuses events
func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dialHub(t, srv)
	waitClients(t, hub, 1)

	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", hub.ClientCount())
	}
	if err := hub.Send(context.Background(), ErrorEvent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := c.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}
