package network

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is one renderer connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	burst := int(hub.opts.MaxMessagesPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.opts.ClientSendBuffer),
		limiter: rate.NewLimiter(rate.Limit(hub.opts.MaxMessagesPerSecond), burst),
	}
}

// queue hands a frame to the write pump without blocking. It reports false
// when the client is gone or its buffer is full.
func (c *Client) queue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Register adds the client to the hub. It reports false once the hub stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

func (c *Client) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps actions from the websocket connection into the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warnf("WebSocket read error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(raw []byte) {
	c.hub.metrics.RecordWSMessage(true)

	var meta struct {
		RequestID string `json:"requestId"`
	}
	_ = json.Unmarshal(raw, &meta)

	if !c.limiter.Allow() {
		c.hub.metrics.RecordWSRateLimited()
		c.reply(Message{Type: MessageError, RequestID: meta.RequestID, Payload: errorBody{Error: "rate limit exceeded"}})
		return
	}

	action, err := engine.DecodeAction(raw)
	if err != nil {
		c.hub.metrics.RecordWSError()
		c.hub.logger.Warnf("Failed to parse action from WebSocket: %v", err)
		c.reply(Message{Type: MessageError, RequestID: meta.RequestID, Payload: errorBody{Error: err.Error()}})
		return
	}

	result := c.hub.engine.Dispatch(action)
	c.reply(Message{Type: MessageActionResult, RequestID: meta.RequestID, Payload: result})
}

func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Errorf("Failed to serialize %s: %v", msg.Type, err)
		return
	}
	if !c.queue(payload) {
		c.hub.logger.Warn("Client send buffer full, dropping " + msg.Type)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
			c.hub.metrics.RecordWSMessage(false)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Renderers run on their own dev origin
	},
}

// ServeWs upgrades the request, sends the current snapshot and starts the
// client's pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxClients > 0 && h.ClientCount() >= h.opts.MaxClients {
		writeJSONError(w, "Too many clients", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warnf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(h, conn)
	if !client.Register() {
		conn.Close()
		return
	}
	client.reply(Message{Type: MessageStateUpdated, Payload: h.engine.GetState()})

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
