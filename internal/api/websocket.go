package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// MaxWSMessagesPerSec caps inbound key messages per connection
	MaxWSMessagesPerSec = 120

	// DefaultBroadcastInterval is how often match state is pushed
	DefaultBroadcastInterval = 50 * time.Millisecond

	wsWriteTimeout = 2 * time.Second
	wsMaxMessage   = 1024
)

// Broadcast event names
const (
	EventMatchState    = "match:state"
	EventMatchSnapshot = "match:snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Non-browser clients send no Origin
		if origin == "" || IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP and encoding
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	binary  bool // msgpack frames instead of JSON text
	limiter *rate.Limiter
	held    map[string]bool // keys this connection holds down; owned by readLoop
}

// wsEnvelope is the frame pushed to clients
type wsEnvelope struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

// wsInbound is a message sent by a client
type wsInbound struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
	Player  int    `json:"player"`
	AI      bool   `json:"ai"`
}

// encodedFrame holds one broadcast in both encodings
type encodedFrame struct {
	text   []byte
	binary []byte
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	engine     EngineInterface
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan encodedFrame
	register   chan *wsClient
	unregister chan *websocket.Conn
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface) *WebSocketHub {
	return &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan encodedFrame, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run starts the hub. It is the only goroutine writing to connections.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.wsLimiter.Release(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case frame := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

				var err error
				if client.binary {
					err = conn.WriteMessage(websocket.BinaryMessage, frame.binary)
				} else {
					err = conn.WriteMessage(websocket.TextMessage, frame.text)
				}
				if err != nil {
					h.removeLocked(conn)
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// removeLocked drops a client; caller holds h.mu
func (h *WebSocketHub) removeLocked(conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

// Stop closes every connection and ends Run
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	env := wsEnvelope{Event: event, Data: data}

	text, err := json.Marshal(env)
	if err != nil {
		return
	}
	binary, err := msgpack.Marshal(env)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- encodedFrame{text: text, binary: binary}:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes lifecycle state and entity snapshots periodically
func (h *WebSocketHub) StartBroadcastLoop(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64

		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}

			snapshot := h.engine.GetSnapshot()
			if snapshot.Sequence == lastSeq {
				continue
			}
			lastSeq = snapshot.Sequence

			h.Broadcast(EventMatchState, snapshot.Lifecycle)
			h.Broadcast(EventMatchSnapshot, &snapshot)
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", MaxWSConnectionsTotal)
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}
	conn.SetReadLimit(wsMaxMessage)

	client := &wsClient{
		conn:    conn,
		ip:      ip,
		binary:  r.URL.Query().Get("format") == FormatMsgpack,
		limiter: rate.NewLimiter(MaxWSMessagesPerSec, MaxWSMessagesPerSec/4),
		held:    make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

// readLoop applies client commands until the connection drops. Keys the
// client still holds are released when it goes away.
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		for key := range client.held {
			applyKey(h.engine, keyRequest{Key: key, Pressed: false})
		}
		select {
		case h.unregister <- client.conn:
		case <-h.stopChan:
		}
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsInbound
		if err := json.Unmarshal(message, &msg); err != nil {
			RecordConnectionRejected("invalid")
			continue
		}

		// Releases are never limited so a key cannot stay stuck down
		release := msg.Type == "key" && !msg.Pressed
		if !release && !client.limiter.Allow() {
			RecordConnectionRejected("rate_limit")
			continue
		}
		h.handleInbound(client, msg)
	}
}

// handleInbound dispatches one client command
func (h *WebSocketHub) handleInbound(client *wsClient, msg wsInbound) {
	switch msg.Type {
	case "key":
		if msg.Key == "" {
			return
		}
		if msg.Pressed {
			client.held[msg.Key] = true
		} else {
			delete(client.held, msg.Key)
		}
		applyKey(h.engine, keyRequest{Key: msg.Key, Pressed: msg.Pressed})
	case "ai":
		if err := h.engine.SetPlayerAI(msg.Player, msg.AI); err != nil {
			log.Printf("⚠️ WebSocket ai command from %s: %v", client.ip, err)
		}
	case "restart":
		h.engine.RequestRestart()
	default:
		log.Printf("📨 Unknown WebSocket message type %q from %s", msg.Type, client.ip)
	}
}
