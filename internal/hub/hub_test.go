package hub

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmfalke/sharelist/internal/event"
	"github.com/dmfalke/sharelist/internal/model"
)

func testEvent(name string) event.Event {
	return event.NewItemEvent(event.TypeItemAdded, &model.Item{ID: 1, ListID: 42, Name: name, Category: "Dairy"}, event.Actor{UserID: 3, Name: "Alice"})
}

func TestRegisterUnregister(t *testing.T) {
	h := New(slog.Default(), nil)

	c1 := NewChannel(4)
	c2 := NewChannel(4)

	h.Register(42, c1)
	h.Register(42, c2)

	if got := h.ChannelCount(42); got != 2 {
		t.Fatalf("expected 2 channels, got %d", got)
	}

	h.Unregister(42, c1)
	if got := h.ChannelCount(42); got != 1 {
		t.Fatalf("expected 1 channel after unregister, got %d", got)
	}

	h.Unregister(42, c2)
	if got := h.ChannelCount(42); got != 0 {
		t.Fatalf("expected 0 channels, got %d", got)
	}
	if got := h.ListCount(); got != 0 {
		t.Fatalf("expected empty list entry to be dropped, got %d lists", got)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	h := New(slog.Default(), nil)
	c := NewChannel(4)
	h.Register(42, c)
	h.Unregister(42, c)
	// A channel that is already gone, and a list that was never registered.
	h.Unregister(42, c)
	h.Unregister(99, c)

	if got := h.ListCount(); got != 0 {
		t.Errorf("expected 0 lists, got %d", got)
	}
}

func TestBroadcastFanOut(t *testing.T) {
	h := New(slog.Default(), nil)

	c1 := NewChannel(4)
	c2 := NewChannel(4)
	other := NewChannel(4)
	h.Register(42, c1)
	h.Register(42, c2)
	h.Register(7, other)

	h.Broadcast(42, testEvent("Eggs"))

	for _, c := range []*Channel{c1, c2} {
		select {
		case data := <-c.Recv():
			ev, err := event.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if ev.Type != event.TypeItemAdded {
				t.Errorf("type = %q, want item_added", ev.Type)
			}
			if ev.Item == nil || ev.Item.Name != "Eggs" {
				t.Errorf("item = %+v, want Eggs", ev.Item)
			}
			if ev.UserName != "Alice" {
				t.Errorf("userName = %q, want Alice", ev.UserName)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for broadcast")
		}
	}

	// The other list's channel must not receive anything.
	select {
	case <-other.Recv():
		t.Fatal("channel on list 7 received a list 42 broadcast")
	default:
	}
}

func TestBroadcastNoSubscribers(t *testing.T) {
	h := New(slog.Default(), nil)
	c := NewChannel(4)
	h.Register(7, c)

	// Zero subscribers for list 42: must not error or touch list 7.
	h.Broadcast(42, testEvent("Milk"))

	if got := h.ChannelCount(7); got != 1 {
		t.Errorf("list 7 channel count = %d, want 1", got)
	}
}

func TestBroadcastEvictsClosedChannel(t *testing.T) {
	h := New(slog.Default(), nil)

	alive := NewChannel(4)
	dead := NewChannel(4)
	h.Register(42, alive)
	h.Register(42, dead)

	dead.Closed()
	h.Broadcast(42, testEvent("Eggs"))

	if got := h.ChannelCount(42); got != 1 {
		t.Fatalf("expected dead channel evicted, count = %d", got)
	}

	select {
	case <-alive.Recv():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("live channel missed the broadcast")
	}
}

func TestBroadcastFullBufferDrops(t *testing.T) {
	h := New(slog.Default(), nil)

	c := NewChannel(2)
	h.Register(42, c)

	for i := 0; i < 5; i++ {
		h.Broadcast(42, testEvent("Milk"))
	}

	// The channel stays registered; only overflow messages are lost.
	if got := h.ChannelCount(42); got != 1 {
		t.Fatalf("channel count = %d, want 1", got)
	}

	count := 0
	for {
		select {
		case <-c.Recv():
			count++
		default:
			if count != 2 {
				t.Errorf("buffered messages = %d, want 2", count)
			}
			return
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	h := New(slog.Default(), nil)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(listID int64) {
			defer wg.Done()
			c := NewChannel(4)
			h.Register(listID, c)
			h.Broadcast(listID, testEvent("Bread"))
			for {
				select {
				case <-c.Recv():
				default:
					h.Unregister(listID, c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := h.ListCount(); got != 0 {
		t.Errorf("expected 0 lists after concurrent test, got %d", got)
	}
}
