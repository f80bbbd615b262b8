package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/kotleni/SyncRezka-Backend/internal/metrics"
)

const (
	// defaultSendBuffer is the number of frames that can be queued per client.
	defaultSendBuffer = 16

	// writeTimeout is the max time to wait for a single write to complete.
	writeTimeout = 5 * time.Second

	// idleCheckInterval is how often the idle reaper runs.
	idleCheckInterval = 30 * time.Second
)

// outFrame is one queued write: either a text frame or a close request.
// Routing closes through the same queue keeps them ordered after any
// frames queued before them, so an error frame always reaches the wire
// before the closure that follows it.
type outFrame struct {
	data   []byte
	close  bool
	reason string
}

// Client is one WebSocket connection. It implements protocol.Conn: the
// dispatcher holds it as the sender's connection, and the session
// registry holds it as a User's outbound capability.
type Client struct {
	conn *websocket.Conn
	send chan outFrame
	id   string
	mgr  *ConnManager

	// removed is set once the connection leaves the manager; from then
	// on the handle is closed for sending.
	removed atomic.Bool
}

// ID returns the server-assigned connection id.
func (c *Client) ID() string { return c.id }

// Send queues a frame for delivery. It returns false if the connection
// is closed for sending or the buffer is full (slow consumer).
func (c *Client) Send(data []byte) bool {
	if c.removed.Load() {
		return false
	}
	return c.mgr.send(c, data)
}

// Closed reports whether the connection is closed for sending.
func (c *Client) Closed() bool {
	return c.removed.Load()
}

// Close closes the WebSocket with a normal-closure status and the given
// reason, after any frames already queued have been written. The read
// loop observes the closure and unwinds.
func (c *Client) Close(reason string) {
	if !c.removed.Load() && c.send != nil {
		select {
		case c.send <- outFrame{close: true, reason: reason}:
			return
		default:
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, reason)
}

// connEntry holds per-connection metadata alongside the cancel function.
type connEntry struct {
	cancel      context.CancelFunc
	connectedAt time.Time
	lastActive  time.Time
}

// ConnStats holds point-in-time connection statistics.
type ConnStats struct {
	Active        int
	MaxConns      int
	Rejected      int64
	DroppedFrames int64
	IdleReaped    int64
}

// ConnManager tracks all active WebSocket connections and provides
// lifecycle management including graceful shutdown, per-client buffered
// send channels, connection limits, and idle detection.
type ConnManager struct {
	mu         sync.Mutex
	clients    map[*Client]*connEntry
	closed     bool
	maxConns   int
	idleTTL    time.Duration
	sendBuffer int
	stopIdle   context.CancelFunc

	// Atomic counters for stats.
	rejected      atomic.Int64
	droppedFrames atomic.Int64
	idleReaped    atomic.Int64
}

// ConnManagerOption configures a ConnManager.
type ConnManagerOption func(*ConnManager)

// WithMaxConns sets the maximum number of concurrent connections.
// When the limit is reached, new connections are rejected.
// A value of 0 means unlimited (default).
func WithMaxConns(n int) ConnManagerOption {
	return func(cm *ConnManager) {
		cm.maxConns = n
	}
}

// WithIdleTimeout sets how long a connection can be idle before it is
// automatically closed. A value of 0 disables idle reaping (default).
func WithIdleTimeout(d time.Duration) ConnManagerOption {
	return func(cm *ConnManager) {
		cm.idleTTL = d
	}
}

// WithSendBuffer sets the per-client send queue depth.
func WithSendBuffer(n int) ConnManagerOption {
	return func(cm *ConnManager) {
		if n > 0 {
			cm.sendBuffer = n
		}
	}
}

// NewConnManager creates a new connection manager with optional configuration.
func NewConnManager(opts ...ConnManagerOption) *ConnManager {
	cm := &ConnManager{
		clients:    make(map[*Client]*connEntry),
		sendBuffer: defaultSendBuffer,
	}
	for _, opt := range opts {
		opt(cm)
	}
	if cm.idleTTL > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		cm.stopIdle = cancel
		go cm.idleReapLoop(ctx)
	}
	return cm
}

// Add registers a client and starts its write pump. The returned
// context is cancelled when the client is removed or the manager shuts
// down. Returns a cancelled context if the manager is closed or at
// capacity.
func (cm *ConnManager) Add(c *Client) context.Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c.mgr = cm

	if cm.closed {
		c.removed.Store(true)
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return cancelledContext()
	}

	if cm.maxConns > 0 && len(cm.clients) >= cm.maxConns {
		cm.rejected.Add(1)
		c.removed.Store(true)
		c.conn.Close(websocket.StatusTryAgainLater, "server at capacity")
		return cancelledContext()
	}

	now := time.Now()
	c.send = make(chan outFrame, cm.sendBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	cm.clients[c] = &connEntry{
		cancel:      cancel,
		connectedAt: now,
		lastActive:  now,
	}
	metrics.ConnectionsActive.Inc()

	go cm.writePump(ctx, c)

	return ctx
}

// Remove stops a client's write pump and marks its handle closed for
// sending. The send channel is never closed, so a broadcast racing a
// disconnect can only observe a dropped frame, never a panic.
func (cm *ConnManager) Remove(c *Client) {
	cm.mu.Lock()
	entry, ok := cm.clients[c]
	if ok {
		delete(cm.clients, c)
	}
	cm.mu.Unlock()

	if ok {
		c.removed.Store(true)
		entry.cancel()
		metrics.ConnectionsActive.Dec()
	}
}

// send queues a frame for delivery to the client.
func (cm *ConnManager) send(c *Client, data []byte) bool {
	select {
	case c.send <- outFrame{data: data}:
		return true
	default:
		cm.droppedFrames.Add(1)
		log.Warn().Str("conn", c.id).Msg("send buffer full, dropping frame")
		return false
	}
}

// Touch updates the last-active timestamp for a client. Call this when
// a client sends a frame to prevent idle reaping.
func (cm *ConnManager) Touch(c *Client) {
	cm.mu.Lock()
	if entry, ok := cm.clients[c]; ok {
		entry.lastActive = time.Now()
	}
	cm.mu.Unlock()
}

// Count returns the number of active connections.
func (cm *ConnManager) Count() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.clients)
}

// Stats returns point-in-time connection statistics.
func (cm *ConnManager) Stats() ConnStats {
	cm.mu.Lock()
	active := len(cm.clients)
	maxConns := cm.maxConns
	cm.mu.Unlock()
	return ConnStats{
		Active:        active,
		MaxConns:      maxConns,
		Rejected:      cm.rejected.Load(),
		DroppedFrames: cm.droppedFrames.Load(),
		IdleReaped:    cm.idleReaped.Load(),
	}
}

// Shutdown gracefully closes all connections. It cancels every write
// pump and closes each WebSocket with StatusGoingAway.
func (cm *ConnManager) Shutdown() {
	cm.mu.Lock()
	cm.closed = true
	clients := make(map[*Client]*connEntry, len(cm.clients))
	for c, entry := range cm.clients {
		clients[c] = entry
	}
	cm.clients = make(map[*Client]*connEntry)
	cm.mu.Unlock()

	if cm.stopIdle != nil {
		cm.stopIdle()
	}

	for c, entry := range clients {
		c.removed.Store(true)
		entry.cancel()
		metrics.ConnectionsActive.Dec()
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// idleReapLoop periodically checks for and closes idle connections.
func (cm *ConnManager) idleReapLoop(ctx context.Context) {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cm.reapIdle()
		}
	}
}

// reapIdle closes connections that have been idle longer than idleTTL.
func (cm *ConnManager) reapIdle() {
	cm.mu.Lock()
	now := time.Now()
	stale := make(map[*Client]*connEntry)
	for c, entry := range cm.clients {
		if now.Sub(entry.lastActive) > cm.idleTTL {
			stale[c] = entry
			delete(cm.clients, c)
		}
	}
	cm.mu.Unlock()

	for c, entry := range stale {
		c.removed.Store(true)
		entry.cancel()
		metrics.ConnectionsActive.Dec()
		c.conn.Close(websocket.StatusPolicyViolation, "idle timeout")
		cm.idleReaped.Add(1)
		log.Info().Str("conn", c.id).Msg("reaped idle connection")
	}
}

// writePump drains the client's send channel, writing each frame to the
// WebSocket connection. It exits when ctx is cancelled.
func (cm *ConnManager) writePump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			if f.close {
				c.conn.Close(websocket.StatusNormalClosure, f.reason)
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, f.data)
			cancel()
			if err != nil {
				log.Debug().Str("conn", c.id).Err(err).Msg("write failed")
				return
			}
		}
	}
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
