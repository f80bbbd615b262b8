package ws

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/kotleni/SyncRezka-Backend/internal/metrics"
	"github.com/kotleni/SyncRezka-Backend/internal/protocol"
	"github.com/kotleni/SyncRezka-Backend/internal/ratelimit"
)

// Handler upgrades HTTP requests to WebSockets and runs one read loop
// per connection, feeding every inbound frame to the dispatcher.
type Handler struct {
	conns      *ConnManager
	dispatcher *protocol.Dispatcher
	limiter    *ratelimit.CommandLimiter
	readLimit  int64
}

// NewHandler creates a WebSocket handler. limiter may be nil to disable
// rate limiting; readLimit 0 keeps the library default frame size.
func NewHandler(conns *ConnManager, dispatcher *protocol.Dispatcher, limiter *ratelimit.CommandLimiter, readLimit int64) *Handler {
	return &Handler{
		conns:      conns,
		dispatcher: dispatcher,
		limiter:    limiter,
		readLimit:  readLimit,
	}
}

// ServeHTTP upgrades the connection and blocks in the read loop until
// the client disconnects or a handler closes the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow all origins in dev; tighten in production.
	})
	if err != nil {
		log.Error().Err(err).Msg("ws: accept error")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := &Client{
		conn: conn,
		id:   uuid.NewString(),
	}

	connCtx := h.conns.Add(client)
	metrics.ConnectionsTotal.Inc()
	defer func() {
		h.conns.Remove(client)
		if h.limiter != nil {
			h.limiter.Forget(client.id)
		}
	}()

	log.Info().Str("conn", client.id).Str("remote", r.RemoteAddr).Msg("connection opened")
	h.readLoop(r.Context(), connCtx, client)
	log.Info().Str("conn", client.id).Msg("connection closed")
}

// readLoop reads frames from the client until the connection closes,
// the manager cancels connCtx, or the dispatcher issues a close.
func (h *Handler) readLoop(ctx context.Context, connCtx context.Context, client *Client) {
	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		_, data, err := client.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancelled.
			return
		}

		if h.limiter != nil && !h.limiter.Allow(client.id) {
			metrics.RateLimited.Inc()
			continue
		}

		h.conns.Touch(client)

		if !h.dispatcher.Dispatch(client, data) {
			return
		}
	}
}
