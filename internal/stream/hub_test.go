package stream

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Gyeri/warphunt/internal/game"
)

func TestHubPublishReachesEverySession(t *testing.T) {
	h := NewHub(4)
	tab1 := h.Subscribe("user123", "tab-1")
	tab2 := h.Subscribe("user123", "tab-2")
	other := h.Subscribe("someone-else", "tab-1")

	h.Publish("user123", game.Event{Type: game.EventTick})

	for _, sub := range []*Subscription{tab1, tab2} {
		select {
		case ev := <-sub.Events():
			if ev.Type != game.EventTick {
				t.Errorf("Expected tick event, got %q", ev.Type)
			}
		default:
			t.Error("Expected an event to be queued")
		}
	}
	select {
	case ev := <-other.Events():
		t.Errorf("Unexpected event for another user: %+v", ev)
	default:
	}
}

func TestHubPublishDropsWhenFull(t *testing.T) {
	h := NewHub(2)
	sub := h.Subscribe("user123", "tab-1")

	for i := 0; i < 5; i++ {
		h.Publish("user123", game.Event{Type: game.EventTick, Data: i})
	}

	if got := sub.Dropped(); got != 3 {
		t.Errorf("Expected 3 dropped events, got %d", got)
	}
	if got := len(sub.Events()); got != 2 {
		t.Errorf("Expected 2 queued events, got %d", got)
	}
}

func TestHubSubscribeReplacesSession(t *testing.T) {
	h := NewHub(1)
	first := h.Subscribe("user123", "tab-1")
	second := h.Subscribe("user123", "tab-1")

	if _, ok := <-first.Events(); ok {
		t.Error("Expected replaced subscription to be closed")
	}

	// A stale unsubscribe must not end the replacement.
	h.Unsubscribe(first)
	if got := h.Count("user123"); got != 1 {
		t.Fatalf("Expected 1 subscription, got %d", got)
	}

	h.Unsubscribe(second)
	if got := h.Count("user123"); got != 0 {
		t.Errorf("Expected 0 subscriptions, got %d", got)
	}
	if _, ok := <-second.Events(); ok {
		t.Error("Expected unsubscribed queue to be closed")
	}
}

func TestHubCloseUser(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe("user123", "tab-1")
	h.CloseUser("user123")

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected subscription to be closed")
	}
	h.Unsubscribe(sub)
	h.CloseUser("user123")
	h.Publish("user123", game.Event{Type: game.EventTick})
}

func TestHubConcurrentAccess(t *testing.T) {
	h := NewHub(8)
	userID := "concurrentUser"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sub := h.Subscribe(userID, "tab-"+strconv.Itoa(i%10))
			if i%3 == 0 {
				h.Unsubscribe(sub)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.Publish(userID, game.Event{Type: game.EventTick, At: time.Now()})
		}
	}()
	wg.Wait()
}
