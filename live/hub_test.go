package live

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send:   make(chan []byte, 10),
		UserID: "u1",
	}

	if !hub.Register(client) {
		t.Fatal("register refused on a running hub")
	}

	hub.Broadcast("u1", Update{Type: "cart_updated", PurchaseID: "p1"})

	select {
	case got := <-client.Send:
		var update Update
		if err := json.Unmarshal(got, &update); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if update.Type != "cart_updated" || update.PurchaseID != "p1" {
			t.Fatalf("unexpected update %+v", update)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for update")
	}

	hub.Unregister(client)
}

func TestHubBroadcastIsPerUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	mine := &Client{Send: make(chan []byte, 10), UserID: "u1"}
	theirs := &Client{Send: make(chan []byte, 10), UserID: "u2"}
	hub.Register(mine)
	hub.Register(theirs)

	hub.Broadcast("u1", Update{Type: "order_paid", PurchaseID: "p9"})

	select {
	case <-mine.Send:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for own update")
	}

	select {
	case msg := <-theirs.Send:
		t.Fatalf("update leaked to another user: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// A connection arriving after shutdown must be refused, not parked on the
// register channel forever.
func TestHubRegisterAfterStop(t *testing.T) {
	hub := NewHub()
	hub.Stop()

	client := &Client{Send: make(chan []byte, 10), UserID: "u1"}

	refused := make(chan bool, 1)
	go func() { refused <- !hub.Register(client) }()

	select {
	case ok := <-refused:
		if !ok {
			t.Fatal("register accepted on a stopped hub")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("register blocked on a stopped hub")
	}

	// must not block either
	hub.Unregister(client)
}
