package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"script-fighters/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	wsWriteWait    = 2 * time.Second
	wsMaxInputSize = 1 << 10

	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

// BroadcastSource is the engine surface the hub streams from.
type BroadcastSource interface {
	GetSnapshot() *game.MatchSnapshot
	DrainRequests(dst []game.Request) []game.Request
	SetIntent(side game.Side, in game.Intent) error
	EventLogStats() game.EventLogStats
}

// envelope is one pushed message. The same shape is used for both encodings.
type envelope struct {
	Event string `json:"event" msgpack:"event"`
	Data  any    `json:"data" msgpack:"data"`
}

// inputMessage lets a controller send intents over the socket instead of POST.
type inputMessage struct {
	Type   string      `json:"type"`
	Side   game.Side   `json:"side"`
	Intent game.Intent `json:"intent"`
}

// frame carries one message in both encodings.
type frame struct {
	json    []byte
	msgpack []byte
}

// wsClient tracks a WebSocket connection with its source IP and encoding
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	format string
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan frame
	register   chan *wsClient
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	conns    *ConnLimiter
	source   BroadcastSource
	logger   *zap.Logger
}

// NewWebSocketHub creates a hub that streams from source. Origins are
// checked against the same list as CORS.
func NewWebSocketHub(source BroadcastSource, origins *OriginChecker, logger *zap.Logger) *WebSocketHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan frame, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		conns:      NewConnLimiter(MaxWSConnectionsPerIP),
		source:     source,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			logger.Warn("websocket origin rejected", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run owns the client set until Stop is called.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client connected", zap.String("ip", client.ip), zap.String("format", client.format), zap.Int("total", count))
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn, client := range h.clients {
				kind, payload := websocket.TextMessage, msg.json
				if client.format == formatMsgpack {
					kind, payload = websocket.BinaryMessage, msg.msgpack
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(kind, payload); err != nil {
					failed = append(failed, conn)
					continue
				}
				IncrementWSMessages(client.format)
			}
			h.mu.RUnlock()
			for _, conn := range failed {
				h.drop(conn)
			}

		case <-h.done:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.conns.Release(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// drop removes a client and releases its per-IP slot.
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		h.conns.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("client disconnected", zap.Int("remaining", count))
		UpdateWSConnections(count)
	}
}

// Stop closes every connection and ends Run. Safe to call twice.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast sends a message to all connected clients. Messages are dropped
// when the hub falls behind.
func (h *WebSocketHub) Broadcast(event string, data any) {
	msg := envelope{Event: event, Data: data}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode json frame", zap.String("event", event), zap.Error(err))
		return
	}
	packed, err := msgpack.Marshal(msg)
	if err != nil {
		h.logger.Error("encode msgpack frame", zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- frame{json: jsonBytes, msgpack: packed}:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the latest snapshot and pending presentation
// requests hz times per second until ctx is cancelled.
func (h *WebSocketHub) StartBroadcastLoop(ctx context.Context, hz int) {
	ticker := time.NewTicker(time.Second / time.Duration(max(1, hz)))

	go func() {
		defer ticker.Stop()
		var requests []game.Request
		var lastSeq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case <-ticker.C:
			}

			UpdateEventLogStats(h.source.EventLogStats())

			// Requests are drained even without listeners so the queue stays short.
			requests = h.source.DrainRequests(requests[:0])
			if h.ClientCount() == 0 {
				continue
			}

			snap := h.source.GetSnapshot()
			if snap != nil && snap.Sequence != lastSeq {
				lastSeq = snap.Sequence
				h.Broadcast("match:state", snap)
			}
			if len(requests) > 0 {
				h.Broadcast("match:requests", requests)
			}
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection.
// ?format=msgpack switches the client to binary frames.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		h.logger.Warn("websocket rejected: total limit", zap.Int("total", total))
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.conns.Acquire(ip) {
		h.logger.Warn("websocket rejected: per-IP limit", zap.String("ip", ip))
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	format := formatJSON
	if r.URL.Query().Get("format") == formatMsgpack {
		format = formatMsgpack
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		h.conns.Release(ip)
		return
	}
	conn.SetReadLimit(wsMaxInputSize)

	client := &wsClient{conn: conn, ip: ip, format: format}
	select {
	case h.register <- client:
	case <-h.done:
		h.conns.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

// readLoop accepts input messages until the connection closes.
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.done:
		}
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inputMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "input" {
			continue
		}
		if err := h.source.SetIntent(msg.Side, msg.Intent); err != nil {
			h.logger.Debug("websocket input rejected", zap.String("ip", client.ip), zap.Error(err))
		}
	}
}
