// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics. The zero value is not usable;
// create one with New.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	StatePublishes int64
	lastTickTime   time.Time

	// Action metrics
	ActionsAccepted int64
	ActionsRejected int64
	ActionsUnknown  int64

	// Persistence metrics
	Saves           int64
	SaveErrors      int64
	SaveLatencySum  int64
	SaveLatencyMax  int64
	EventsWritten   int64
	EventWriteError int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSRateLimited       int64

	startTime time.Time
	mu        sync.RWMutex
}

// New creates a collector whose uptime starts now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a frame completion.
func (c *Collector) RecordTick(latency time.Duration, published bool) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))
	if published {
		atomic.AddInt64(&c.StatePublishes, 1)
	}

	c.mu.Lock()
	c.lastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordAction records the outcome of a dispatched action.
func (c *Collector) RecordAction(success bool) {
	if success {
		atomic.AddInt64(&c.ActionsAccepted, 1)
		return
	}
	atomic.AddInt64(&c.ActionsRejected, 1)
}

// RecordUnknownAction records an action type nothing handles.
func (c *Collector) RecordUnknownAction() {
	atomic.AddInt64(&c.ActionsUnknown, 1)
}

// RecordSave records a save attempt.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.Saves, 1)
	atomic.AddInt64(&c.SaveLatencySum, int64(latency))
	storeMax(&c.SaveLatencyMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
	}
}

// RecordEventWrite records a ledger write to the database.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventWriteError, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordWSRateLimited records a message dropped by a client's limiter.
func (c *Collector) RecordWSRateLimited() {
	atomic.AddInt64(&c.WSRateLimited, 1)
}

// TickStats summarises the frame loop.
type TickStats struct {
	Count          int64   `json:"count"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	MaxLatencyMs   float64 `json:"max_latency_ms"`
	StatePublishes int64   `json:"state_publishes"`
	LastTick       string  `json:"last_tick"`
}

// ActionStats summarises dispatched actions.
type ActionStats struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Unknown  int64 `json:"unknown"`
}

// PersistenceStats summarises saves and ledger writes.
type PersistenceStats struct {
	Saves          int64   `json:"saves"`
	SaveErrors     int64   `json:"save_errors"`
	AvgSaveMs      float64 `json:"avg_save_ms"`
	MaxSaveMs      float64 `json:"max_save_ms"`
	EventsWritten  int64   `json:"events_written"`
	EventWriteErrs int64   `json:"event_write_errors"`
}

// WebSocketStats summarises the renderer transport.
type WebSocketStats struct {
	ActiveConnections int64 `json:"active_connections"`
	MessagesIn        int64 `json:"messages_in"`
	MessagesOut       int64 `json:"messages_out"`
	Errors            int64 `json:"errors"`
	RateLimited       int64 `json:"rate_limited"`
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Tick          TickStats        `json:"tick"`
	Actions       ActionStats      `json:"actions"`
	Persistence   PersistenceStats `json:"persistence"`
	WebSocket     WebSocketStats   `json:"websocket"`
}

// Snapshot returns current metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	lastTick := c.lastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saves := atomic.LoadInt64(&c.Saves)

	var tickAvg, saveAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if saves > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatencySum)) / float64(saves) / 1e6
	}

	last := ""
	if !lastTick.IsZero() {
		last = lastTick.Format(time.RFC3339)
	}

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Tick: TickStats{
			Count:          tickCount,
			AvgLatencyMs:   tickAvg,
			MaxLatencyMs:   float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			StatePublishes: atomic.LoadInt64(&c.StatePublishes),
			LastTick:       last,
		},
		Actions: ActionStats{
			Accepted: atomic.LoadInt64(&c.ActionsAccepted),
			Rejected: atomic.LoadInt64(&c.ActionsRejected),
			Unknown:  atomic.LoadInt64(&c.ActionsUnknown),
		},
		Persistence: PersistenceStats{
			Saves:          saves,
			SaveErrors:     atomic.LoadInt64(&c.SaveErrors),
			AvgSaveMs:      saveAvg,
			MaxSaveMs:      float64(atomic.LoadInt64(&c.SaveLatencyMax)) / 1e6,
			EventsWritten:  atomic.LoadInt64(&c.EventsWritten),
			EventWriteErrs: atomic.LoadInt64(&c.EventWriteError),
		},
		WebSocket: WebSocketStats{
			ActiveConnections: atomic.LoadInt64(&c.WSConnectionsActive),
			MessagesIn:        atomic.LoadInt64(&c.WSMessagesIn),
			MessagesOut:       atomic.LoadInt64(&c.WSMessagesOut),
			Errors:            atomic.LoadInt64(&c.WSErrors),
			RateLimited:       atomic.LoadInt64(&c.WSRateLimited),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s := c.Snapshot()

		// Tick metrics
		fmt.Fprintf(w, "# HELP reactor_tick_count Total frames simulated\n")
		fmt.Fprintf(w, "# TYPE reactor_tick_count counter\n")
		fmt.Fprintf(w, "reactor_tick_count %d\n\n", s.Tick.Count)

		fmt.Fprintf(w, "# HELP reactor_tick_latency_max_ms Maximum frame latency\n")
		fmt.Fprintf(w, "# TYPE reactor_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "reactor_tick_latency_max_ms %.2f\n\n", s.Tick.MaxLatencyMs)

		fmt.Fprintf(w, "# HELP reactor_state_publishes Total stateUpdated publications\n")
		fmt.Fprintf(w, "# TYPE reactor_state_publishes counter\n")
		fmt.Fprintf(w, "reactor_state_publishes %d\n\n", s.Tick.StatePublishes)

		// Action metrics
		fmt.Fprintf(w, "# HELP reactor_actions_total Dispatched actions by result\n")
		fmt.Fprintf(w, "# TYPE reactor_actions_total counter\n")
		fmt.Fprintf(w, "reactor_actions_total{result=\"accepted\"} %d\n", s.Actions.Accepted)
		fmt.Fprintf(w, "reactor_actions_total{result=\"rejected\"} %d\n", s.Actions.Rejected)
		fmt.Fprintf(w, "reactor_actions_total{result=\"unknown\"} %d\n\n", s.Actions.Unknown)

		// Persistence metrics
		fmt.Fprintf(w, "# HELP reactor_saves_total Save attempts\n")
		fmt.Fprintf(w, "# TYPE reactor_saves_total counter\n")
		fmt.Fprintf(w, "reactor_saves_total %d\n\n", s.Persistence.Saves)

		fmt.Fprintf(w, "# HELP reactor_save_errors_total Failed saves\n")
		fmt.Fprintf(w, "# TYPE reactor_save_errors_total counter\n")
		fmt.Fprintf(w, "reactor_save_errors_total %d\n\n", s.Persistence.SaveErrors)

		fmt.Fprintf(w, "# HELP reactor_events_written Total ledger events written\n")
		fmt.Fprintf(w, "# TYPE reactor_events_written counter\n")
		fmt.Fprintf(w, "reactor_events_written %d\n\n", s.Persistence.EventsWritten)

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP reactor_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE reactor_ws_connections gauge\n")
		fmt.Fprintf(w, "reactor_ws_connections %d\n\n", s.WebSocket.ActiveConnections)

		fmt.Fprintf(w, "# HELP reactor_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE reactor_ws_messages_total counter\n")
		fmt.Fprintf(w, "reactor_ws_messages_total{direction=\"in\"} %d\n", s.WebSocket.MessagesIn)
		fmt.Fprintf(w, "reactor_ws_messages_total{direction=\"out\"} %d\n\n", s.WebSocket.MessagesOut)

		fmt.Fprintf(w, "# HELP reactor_ws_rate_limited_total Messages dropped by client rate limits\n")
		fmt.Fprintf(w, "# TYPE reactor_ws_rate_limited_total counter\n")
		fmt.Fprintf(w, "reactor_ws_rate_limited_total %d\n", s.WebSocket.RateLimited)
	}
}
