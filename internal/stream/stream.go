// Package stream implements the client half of the realtime channel: a
// connection manager that keeps at most one transport connection per stream
// URL, fans incoming events out to every subscriber, and recovers from dead
// connections with capped exponential backoff and heartbeat deadline checks.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmfalke/sharelist/internal/event"
)

// State describes the lifecycle of the connection backing one URL.
type State int

const (
	StateAbsent State = iota
	StateConnecting
	StateOpen
	StateDegraded
	StateReconnectScheduled
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDegraded:
		return "degraded"
	case StateReconnectScheduled:
		return "reconnect-scheduled"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config tunes reconnection and dead-connection detection.
type Config struct {
	// BackoffBase is the first reconnect delay; each subsequent attempt
	// doubles it up to BackoffCap. The counter resets on a successful open.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// HeartbeatTimeout is how long a connection may go without any message
	// (heartbeat included) before it is declared dead. The server emits
	// heartbeats every 30s, so this needs headroom above that.
	HeartbeatTimeout time.Duration
}

const (
	defaultBackoffBase      = time.Second
	defaultBackoffCap       = 30 * time.Second
	defaultHeartbeatTimeout = 45 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaultBackoffCap
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	return c
}

// MessageFunc receives every decoded non-heartbeat event for a subscription.
type MessageFunc func(ev event.Event)

// ErrorFunc observes transport failures. Errors are informational: the
// manager keeps reconnecting regardless, so this exists only to drive an
// optional connectivity indicator.
type ErrorFunc func(err error)

type subscriber struct {
	onMessage MessageFunc
	onError   ErrorFunc
}

// connection is the one physical stream per URL. Its fields are guarded by
// the manager mutex; the run goroutine is the only writer of the transport.
type connection struct {
	url     string
	cancel  context.CancelFunc
	subs    map[int64]subscriber
	nextSub int64
	state   State
	last    time.Time // arrival time of the most recent message
	wake    chan struct{}
}

// Manager multiplexes subscriptions onto at most one transport connection
// per URL. All methods are safe for concurrent use; callbacks are invoked
// from the connection's goroutine, one message at a time, and may themselves
// call Subscribe or their own unsubscribe.
type Manager struct {
	transport Transport
	cfg       Config
	logger    *slog.Logger

	mu    sync.Mutex
	conns map[string]*connection

	// scheduleHook observes each reconnect delay as it is armed.
	scheduleHook func(url string, delay time.Duration)
}

func NewManager(transport Transport, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		transport: transport,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		conns:     make(map[string]*connection),
	}
}

// Subscribe attaches a listener to the connection for url, dialing it if
// this is the first listener. The returned function removes the listener;
// when the last one is removed the connection is torn down. onError may be
// nil. Unsubscribing more than once is a no-op.
func (m *Manager) Subscribe(url string, onMessage MessageFunc, onError ErrorFunc) func() {
	m.mu.Lock()
	c, ok := m.conns[url]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		c = &connection{
			url:    url,
			cancel: cancel,
			subs:   make(map[int64]subscriber),
			state:  StateConnecting,
			last:   time.Now(),
			wake:   make(chan struct{}, 1),
		}
		m.conns[url] = c
		go m.run(ctx, c)
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = subscriber{onMessage: onMessage, onError: onError}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(url, c, id) })
	}
}

func (m *Manager) unsubscribe(url string, c *connection, id int64) {
	m.mu.Lock()
	delete(c.subs, id)
	empty := len(c.subs) == 0
	if empty && m.conns[url] == c {
		delete(m.conns, url)
	}
	m.mu.Unlock()

	if empty {
		c.cancel()
	}
}

// Wake signals that the application returned to the foreground. Every open
// connection checks its time-since-last-message immediately; a stale one
// reconnects now instead of waiting for the next heartbeat deadline, because
// background suspension can stall a transport without surfacing an error.
func (m *Manager) Wake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// State reports the connection state for url, StateAbsent when no
// subscription exists.
func (m *Manager) State(url string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[url]; ok {
		return c.state
	}
	return StateAbsent
}

// ConnCount returns the number of live connections across all URLs.
func (m *Manager) ConnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Close tears down every connection. Subscriptions are not notified; this is
// for process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*connection)
	m.mu.Unlock()

	for _, c := range conns {
		c.cancel()
	}
}

var (
	errHeartbeatTimeout = errors.New("heartbeat deadline exceeded")
	errStaleOnWake      = errors.New("stale connection on wake")
)

// run owns the connection lifecycle for one URL. Being the only goroutine
// that dials or closes the transport, it is also the guard against parallel
// reconnect attempts: error and heartbeat-timeout paths both land here and
// are handled strictly one at a time.
func (m *Manager) run(ctx context.Context, c *connection) {
	backoff := m.newBackoff()
	for {
		m.setState(c, StateConnecting)
		conn, err := m.transport.Dial(ctx, c.url)
		if err != nil {
			if ctx.Err() != nil {
				m.setState(c, StateClosed)
				return
			}
			m.notifyError(c, err)
			if !m.sleepBackoff(ctx, c, backoff) {
				return
			}
			continue
		}

		m.setState(c, StateOpen)
		m.touch(c)
		backoff = m.newBackoff()
		m.logger.Info("stream open", "url", c.url)

		err = m.pump(ctx, c, conn)
		conn.Close()
		if ctx.Err() != nil {
			m.setState(c, StateClosed)
			return
		}

		m.setState(c, StateDegraded)
		m.notifyError(c, err)
		m.logger.Warn("stream degraded", "url", c.url, "error", err)
		if !m.sleepBackoff(ctx, c, backoff) {
			return
		}
	}
}

// pump reads the open transport until it errors, the heartbeat deadline
// passes, or a wake finds the connection stale. It returns the reason the
// connection should be considered dead.
func (m *Manager) pump(ctx context.Context, c *connection, conn Conn) error {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		for {
			data, err := conn.Recv()
			if err != nil {
				select {
				case errs <- err:
				case <-pctx.Done():
				}
				return
			}
			select {
			case msgs <- data:
			case <-pctx.Done():
				return
			}
		}
	}()

	deadline := time.NewTimer(m.cfg.HeartbeatTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-msgs:
			m.deliver(c, data)
			if !deadline.Stop() {
				<-deadline.C
			}
			deadline.Reset(m.cfg.HeartbeatTimeout)
		case err := <-errs:
			return err
		case <-deadline.C:
			return errHeartbeatTimeout
		case <-c.wake:
			if time.Since(m.lastMessage(c)) > m.cfg.HeartbeatTimeout {
				return errStaleOnWake
			}
		}
	}
}

// deliver decodes one wire message and fans it out. Heartbeats reset the
// liveness clock and stop there; they are never forwarded.
func (m *Manager) deliver(c *connection, data []byte) {
	ev, err := event.Decode(data)
	if err != nil {
		m.logger.Warn("drop undecodable message", "url", c.url, "error", err)
		return
	}
	m.touch(c)
	if ev.IsHeartbeat() {
		return
	}
	for _, s := range m.snapshot(c) {
		if s.onMessage != nil {
			s.onMessage(ev)
		}
	}
}

func (m *Manager) notifyError(c *connection, err error) {
	for _, s := range m.snapshot(c) {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

// snapshot copies the subscriber set so callbacks can subscribe or
// unsubscribe reentrantly without deadlocking on the manager mutex.
func (m *Manager) snapshot(c *connection) []subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	return subs
}

// sleepBackoff arms the next reconnect delay and waits it out. It returns
// false when the connection was torn down while waiting.
func (m *Manager) sleepBackoff(ctx context.Context, c *connection, b retry.Backoff) bool {
	delay, _ := b.Next()
	if m.scheduleHook != nil {
		m.scheduleHook(c.url, delay)
	}
	m.setState(c, StateReconnectScheduled)
	m.logger.Debug("reconnect scheduled", "url", c.url, "delay", delay)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		m.setState(c, StateClosed)
		return false
	case <-t.C:
		return true
	}
}

func (m *Manager) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(m.cfg.BackoffCap, retry.NewExponential(m.cfg.BackoffBase))
}

func (m *Manager) setState(c *connection, s State) {
	m.mu.Lock()
	c.state = s
	m.mu.Unlock()
}

func (m *Manager) touch(c *connection) {
	m.mu.Lock()
	c.last = time.Now()
	m.mu.Unlock()
}

func (m *Manager) lastMessage(c *connection) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return c.last
}
