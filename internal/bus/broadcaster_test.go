package bus

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkiernan/scoutpost/internal/location"
)

func dialBroadcaster(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, br *Broadcaster, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for br.ConnectionCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("connection count never reached %d", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcasterDeliversEnvelope(t *testing.T) {
	b := New()
	br := NewBroadcaster(b)

	server := httptest.NewServer(br)
	defer server.Close()

	conn := dialBroadcaster(t, server)
	waitForConnections(t, br, 1)

	b.Publish(LocationSaved{Record: &location.Record{ID: 3, PlaceID: "place-3", Name: "Dock"}})

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var msg struct {
		Event string `json:"event"`
		Data  struct {
			Record *location.Record `json:"record"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if msg.Event != EventLocationSaved {
		t.Errorf("event = %q, want %q", msg.Event, EventLocationSaved)
	}
	if msg.Data.Record == nil || msg.Data.Record.PlaceID != "place-3" {
		t.Errorf("payload = %+v, want the saved record", msg.Data.Record)
	}
}

func TestBroadcasterFansOutToAllObservers(t *testing.T) {
	b := New()
	br := NewBroadcaster(b)

	server := httptest.NewServer(br)
	defer server.Close()

	first := dialBroadcaster(t, server)
	second := dialBroadcaster(t, server)
	waitForConnections(t, br, 2)

	b.Publish(LocationsCleared{})

	for i, conn := range []*websocket.Conn{first, second} {
		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatal(err)
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("observer %d read failed: %v", i, err)
		}
		if !strings.Contains(string(data), EventLocationsCleared) {
			t.Errorf("observer %d got %s", i, data)
		}
	}
}

func TestBroadcasterDetachOnClose(t *testing.T) {
	b := New()
	br := NewBroadcaster(b)

	server := httptest.NewServer(br)
	defer server.Close()

	conn := dialBroadcaster(t, server)
	waitForConnections(t, br, 1)

	conn.Close()
	waitForConnections(t, br, 0)
}
