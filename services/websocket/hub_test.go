package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub, userID uint, room string) *Client {
	c := &Client{hub: h, send: make(chan []byte, 4), userID: userID, room: room}
	h.register <- c
	return c
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for h.GetClientCount() != n {
		select {
		case <-deadline:
			t.Fatalf("expected %d clients, got %d", n, h.GetClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBroadcastToRoomOnlyReachesRoomObservers(t *testing.T) {
	h := NewHub()
	go h.Run()

	inRoom := newTestClient(h, 1, "7-3-2026-08-31-09:00")
	otherRoom := newTestClient(h, 2, "7-4-2026-08-31-11:00")
	noRoom := newTestClient(h, 3, "")
	waitForClients(t, h, 3)

	h.BroadcastToRoom("7-3-2026-08-31-09:00", map[string]string{"type": "CREATE"})

	select {
	case raw := <-inRoom.send:
		var msg map[string]string
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if msg["type"] != "CREATE" {
			t.Fatalf("unexpected message %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("room observer received nothing")
	}

	select {
	case <-otherRoom.send:
		t.Fatal("observer of another room received the event")
	case <-noRoom.send:
		t.Fatal("roomless client received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToEmptyRoomIsDropped(t *testing.T) {
	h := NewHub()
	go h.Run()

	// No observers: publish must be a silent no-op.
	h.BroadcastToRoom("1-1-2026-08-31-09:00", map[string]string{"type": "UPDATE"})
	if n := h.RoomObserverCount("1-1-2026-08-31-09:00"); n != 0 {
		t.Fatalf("expected no observers, got %d", n)
	}
}

func TestBroadcastToUser(t *testing.T) {
	h := NewHub()
	go h.Run()

	target := newTestClient(h, 42, "")
	other := newTestClient(h, 43, "")
	waitForClients(t, h, 2)

	h.BroadcastToUser(42, map[string]string{"type": "notification"})

	select {
	case <-target.send:
	case <-time.After(time.Second):
		t.Fatal("target user received nothing")
	}
	select {
	case <-other.send:
		t.Fatal("other user received the message")
	case <-time.After(50 * time.Millisecond):
	}
}
