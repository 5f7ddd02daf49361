// Package network exposes the engine to renderers: a websocket hub that
// streams state snapshots and accepts actions, plus a small HTTP API.
package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

// Outbound message types.
const (
	MessageStateUpdated = "stateUpdated"
	MessageActionResult = "actionResult"
	MessageEvent        = "event"
	MessageError        = "error"
)

// Engine is what the transport needs from the simulation.
type Engine interface {
	Dispatch(a engine.Action) engine.ActionResult
	GetState() *state.GameState
}

// Message is the envelope of every frame sent to a renderer.
type Message struct {
	Type      string `json:"type"`
	Event     string `json:"event,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// HubOptions tune buffering and admission.
type HubOptions struct {
	BroadcastBuffer      int
	ClientSendBuffer     int
	MaxClients           int
	MaxMessagesPerSecond float64
}

func (o HubOptions) withDefaults() HubOptions {
	if o.BroadcastBuffer < 1 {
		o.BroadcastBuffer = 64
	}
	if o.ClientSendBuffer < 1 {
		o.ClientSendBuffer = 64
	}
	if o.MaxMessagesPerSecond <= 0 {
		o.MaxMessagesPerSecond = 20
	}
	return o
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	engine     Engine
	logger     *logger.Logger
	metrics    *metrics.Collector
	opts       HubOptions
}

// NewHub initializes a new WebSocket Hub.
func NewHub(eng Engine, log *logger.Logger, m *metrics.Collector, opts HubOptions) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	opts = opts.withDefaults()
	return &Hub{
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		engine:     eng,
		logger:     log.With("hub"),
		metrics:    m,
		opts:       opts,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.queue(message) {
					// Too slow to keep up; it reconnects and gets a fresh snapshot.
					delete(h.clients, client)
					client.close()
					h.metrics.RecordWSConnection(-1)
					h.logger.Warn("Dropped WebSocket client with a full send buffer")
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("WebSocket client disconnected")
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It never blocks the caller:
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s for WebSocket broadcast: %v", msg.Type, err)
		return false
	}
	select {
	case h.broadcast <- payload:
		return true
	default:
		h.logger.Warn("Broadcast queue full, dropping " + msg.Type)
		return false
	}
}

// HandleStateUpdated is a bus handler forwarding snapshots to renderers.
func (h *Hub) HandleStateUpdated(ev events.Event) {
	su, ok := ev.(events.StateUpdated)
	if !ok || su.State == nil {
		return
	}
	h.Broadcast(Message{Type: MessageStateUpdated, Payload: su.State})
}

// HandleEvent is a bus handler forwarding domain notifications (log
// unlocks, battle results) to renderers.
func (h *Hub) HandleEvent(ev events.Event) {
	h.Broadcast(Message{Type: MessageEvent, Event: string(ev.Type()), Payload: ev})
}

// Attach subscribes the hub to the bus and returns a function that detaches it.
func (h *Hub) Attach(subscribe func(events.EventType, events.Handler) func()) func() {
	unsubs := []func(){
		subscribe(events.EventTypeStateUpdated, h.HandleStateUpdated),
	}
	for _, t := range []events.EventType{
		events.EventTypeLogUnlocked,
		events.EventTypeCombatEnded,
		events.EventTypeEncounterCompleted,
		events.EventTypeUpgradePurchased,
	} {
		unsubs = append(unsubs, subscribe(t, h.HandleEvent))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
