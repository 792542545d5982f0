package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmfalke/sharelist/internal/event"
	"github.com/dmfalke/sharelist/internal/model"
)

// fakeConn is a scripted stream connection. Tests push events in and tear it
// down from the "server" side by calling fail or Close.
type fakeConn struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) Recv() ([]byte, error) {
	select {
	case data := <-c.msgs:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(t *testing.T, ev event.Event) {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	select {
	case c.msgs <- data:
	case <-time.After(time.Second):
		t.Fatal("push blocked")
	}
}

type fakeTransport struct {
	mu        sync.Mutex
	dials     int
	failFirst int // fail this many dials before succeeding
	failAll   bool
	conns     []*fakeConn
}

func (t *fakeTransport) Dial(ctx context.Context, url string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.failAll || t.dials <= t.failFirst {
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (ft *fakeTransport) conn(t *testing.T, i int) *fakeConn {
	t.Helper()
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if i >= len(ft.conns) {
		t.Fatalf("no connection %d (have %d)", i, len(ft.conns))
	}
	return ft.conns[i]
}

func testEvent() event.Event {
	return event.NewItemEvent(event.TypeItemAdded, &model.Item{ID: 1, ListID: 42, Name: "Eggs", Category: "Dairy"}, event.Actor{UserID: 7, Name: "Alice"})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

const testURL = "http://host/api/lists/42/events"

func TestSubscribeDedup(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, Config{}, slog.Default())
	defer m.Close()

	var mu sync.Mutex
	got := make([]int, 3)
	unsubs := make([]func(), 3)
	for i := range unsubs {
		i := i
		unsubs[i] = m.Subscribe(testURL, func(event.Event) {
			mu.Lock()
			got[i]++
			mu.Unlock()
		}, nil)
	}

	waitFor(t, func() bool { return m.State(testURL) == StateOpen }, "never opened")
	if transport.dialCount() != 1 {
		t.Fatalf("dials = %d, want 1 for 3 subscriptions", transport.dialCount())
	}

	transport.conn(t, 0).push(t, testEvent())
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got[0] == 1 && got[1] == 1 && got[2] == 1
	}, "event not fanned out to all subscribers")

	// Removing all but one listener keeps the connection.
	unsubs[0]()
	unsubs[1]()
	unsubs[1]() // second call is a no-op
	if m.State(testURL) != StateOpen {
		t.Fatalf("state = %s, want open with one listener left", m.State(testURL))
	}

	unsubs[2]()
	waitFor(t, func() bool { return transport.conn(t, 0).isClosed() }, "transport not closed after last unsubscribe")
	waitFor(t, func() bool { return m.State(testURL) == StateAbsent }, "connection entry not removed")
	if transport.dialCount() != 1 {
		t.Errorf("dials = %d, want still 1", transport.dialCount())
	}
}

func TestDistinctURLsDialSeparately(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, Config{}, slog.Default())
	defer m.Close()

	m.Subscribe("http://host/api/lists/1/events", nil, nil)
	m.Subscribe("http://host/api/lists/2/events", nil, nil)

	waitFor(t, func() bool { return transport.dialCount() == 2 }, "want one dial per URL")
	if m.ConnCount() != 2 {
		t.Errorf("conns = %d, want 2", m.ConnCount())
	}
}

func TestBackoffSchedule(t *testing.T) {
	base := 2 * time.Millisecond
	ceiling := 8 * time.Millisecond
	transport := &fakeTransport{failAll: true}
	m := NewManager(transport, Config{BackoffBase: base, BackoffCap: ceiling}, slog.Default())
	defer m.Close()

	var mu sync.Mutex
	var delays []time.Duration
	m.scheduleHook = func(_ string, d time.Duration) {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
	}

	var errs int
	m.Subscribe(testURL, nil, func(error) {
		mu.Lock()
		errs++
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delays) >= 5
	}, "not enough reconnect attempts")

	mu.Lock()
	defer mu.Unlock()
	want := []time.Duration{base, 2 * base, 4 * base, ceiling, ceiling}
	for i, w := range want {
		if delays[i] != w {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], w)
		}
	}
	if errs == 0 {
		t.Error("onError never invoked for failed dials")
	}
}

func TestAttemptResetsOnOpen(t *testing.T) {
	base := 2 * time.Millisecond
	transport := &fakeTransport{failFirst: 2}
	m := NewManager(transport, Config{BackoffBase: base, BackoffCap: 8 * base}, slog.Default())
	defer m.Close()

	var mu sync.Mutex
	var delays []time.Duration
	m.scheduleHook = func(_ string, d time.Duration) {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
	}

	m.Subscribe(testURL, nil, nil)
	waitFor(t, func() bool { return m.State(testURL) == StateOpen }, "never opened")

	// Kill the open connection from the server side; the next delay must be
	// back at the base, not a continuation of the dial-failure schedule.
	transport.conn(t, 0).Close()
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delays) >= 3
	}, "no reconnect after server-side close")

	mu.Lock()
	defer mu.Unlock()
	if delays[0] != base || delays[1] != 2*base {
		t.Errorf("dial-failure delays = %v, %v, want %v, %v", delays[0], delays[1], base, 2*base)
	}
	if delays[2] != base {
		t.Errorf("post-open delay = %v, want reset to %v", delays[2], base)
	}
}

func TestHeartbeatTimeoutReconnectsOnce(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, Config{
		BackoffBase:      time.Millisecond,
		BackoffCap:       4 * time.Millisecond,
		HeartbeatTimeout: 25 * time.Millisecond,
	}, slog.Default())
	defer m.Close()

	var mu sync.Mutex
	var errs []error
	m.Subscribe(testURL, nil, func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})

	// First connection stays silent past the deadline.
	waitFor(t, func() bool { return transport.dialCount() == 2 }, "heartbeat timeout did not reconnect")
	if !transport.conn(t, 0).isClosed() {
		t.Error("dead connection not closed")
	}

	mu.Lock()
	if len(errs) != 1 || !errors.Is(errs[0], errHeartbeatTimeout) {
		t.Errorf("errors = %v, want exactly one heartbeat timeout", errs)
	}
	mu.Unlock()

	// Keep the replacement alive with heartbeats: no further dials.
	stop := time.After(80 * time.Millisecond)
	for {
		select {
		case <-stop:
			if d := transport.dialCount(); d != 2 {
				t.Fatalf("dials = %d, want 2 while heartbeats flow", d)
			}
			return
		case <-time.After(8 * time.Millisecond):
			transport.conn(t, 1).push(t, event.Heartbeat())
		}
	}
}

func TestHeartbeatsNotForwarded(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, Config{}, slog.Default())
	defer m.Close()

	var mu sync.Mutex
	var seen []event.Type
	m.Subscribe(testURL, func(ev event.Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	}, nil)

	waitFor(t, func() bool { return m.State(testURL) == StateOpen }, "never opened")
	conn := transport.conn(t, 0)
	conn.push(t, event.Heartbeat())
	conn.push(t, testEvent())
	conn.push(t, event.Heartbeat())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 1
	}, "real event not delivered")

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != event.TypeItemAdded {
		t.Errorf("forwarded = %v, want only item_added", seen)
	}
}

func TestWakeReconnectsOnlyWhenStale(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, Config{HeartbeatTimeout: time.Second}, slog.Default())
	defer m.Close()

	m.Subscribe(testURL, nil, nil)
	waitFor(t, func() bool { return m.State(testURL) == StateOpen }, "never opened")

	// Fresh connection: wake is a no-op.
	m.Wake()
	time.Sleep(20 * time.Millisecond)
	if d := transport.dialCount(); d != 1 {
		t.Fatalf("dials = %d after wake on fresh connection, want 1", d)
	}

	// Simulate a suspended transport: the last message is far in the past
	// but the deadline timer has not fired yet.
	m.mu.Lock()
	m.conns[testURL].last = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	m.Wake()
	waitFor(t, func() bool { return transport.dialCount() == 2 }, "wake on stale connection did not reconnect")
}

func TestCallbackMayUnsubscribeItself(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, Config{}, slog.Default())
	defer m.Close()

	var mu sync.Mutex
	var calls int
	var unsub func()
	unsub = m.Subscribe(testURL, func(event.Event) {
		mu.Lock()
		calls++
		mu.Unlock()
		unsub()
	}, nil)
	keep := m.Subscribe(testURL, nil, nil)
	defer keep()

	waitFor(t, func() bool { return m.State(testURL) == StateOpen }, "never opened")
	conn := transport.conn(t, 0)
	conn.push(t, testEvent())
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, "callback never ran")

	conn.push(t, testEvent())
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after self-unsubscribe", calls)
	}
}
