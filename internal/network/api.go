package network

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
	"github.com/MRamiBalles/ReactorIdle/server/internal/infra/storage"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

// maxActionBody bounds a POSTed action envelope.
const maxActionBody = 64 << 10

// HistorySource rebuilds views from the persisted event ledger.
type HistorySource interface {
	GenerateRecap(ctx context.Context, since time.Time, limit int) ([]storage.RecapEvent, error)
	RebuildResourceFlow(ctx context.Context, since time.Time) (*storage.ResourceFlow, error)
}

// SaveLister lists stored saves.
type SaveLister interface {
	List(ctx context.Context) ([]storage.SaveInfo, error)
}

// API serves the HTTP surface of the server.
type API struct {
	engine  Engine
	hub     *Hub
	history HistorySource
	saves   SaveLister
	metrics *metrics.Collector
	logger  *logger.Logger
	now     func() time.Time
}

// NewAPI creates the HTTP API. history, saves and hub may be nil; their
// routes then answer 503 (or are not registered for the hub).
func NewAPI(eng Engine, hub *Hub, history HistorySource, saves SaveLister, m *metrics.Collector, log *logger.Logger) *API {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &API{
		engine:  eng,
		hub:     hub,
		history: history,
		saves:   saves,
		metrics: m,
		logger:  log.With("api"),
		now:     time.Now,
	}
}

// HistoryResponse is the API response for /api/history.
type HistoryResponse struct {
	TotalEvents int                   `json:"total_events"`
	Since       string                `json:"since,omitempty"`
	GeneratedAt string                `json:"generated_at"`
	Events      []storage.RecapEvent  `json:"events"`
	Flow        *storage.ResourceFlow `json:"flow,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// RegisterRoutes sets up the API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/dispatch", a.HandleDispatch)
	mux.HandleFunc("/api/history", a.HandleHistory)
	mux.HandleFunc("/api/saves", a.HandleSaves)
	mux.HandleFunc("/metrics", a.metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", a.metrics.PrometheusHandler())
	if a.hub != nil {
		mux.HandleFunc("/ws", a.hub.ServeWs)
	}
}

// Handler returns a mux with every route registered.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// HandleState returns the current game state.
// GET /api/state
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.GetState())
}

// HandleDispatch applies one action envelope and returns its result.
// POST /api/dispatch {"type":"CLICK_RESOURCE","payload":{"category":"reactor"}}
func (a *API) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBody))
	if err != nil {
		writeJSONError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	action, err := engine.DecodeAction(body)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := a.engine.Dispatch(action)
	if !result.Success {
		a.logger.Debug(string(action.Kind()) + " rejected: " + result.Message)
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleHistory returns the recap of persisted events.
// GET /api/history?since=RFC3339&limit=N&flow=true
func (a *API) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.history == nil {
		writeJSONError(w, "History is not available", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	var since time.Time
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSONError(w, "Invalid since, expected RFC3339", http.StatusBadRequest)
			return
		}
		since = t
	}
	limit := storage.DefaultRecapLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recap, err := a.history.GenerateRecap(r.Context(), since, limit)
	if err != nil {
		a.logger.Errorf("history: %v", err)
		writeJSONError(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	resp := HistoryResponse{
		TotalEvents: len(recap),
		GeneratedAt: a.now().UTC().Format(time.RFC3339),
		Events:      recap,
	}
	if !since.IsZero() {
		resp.Since = since.UTC().Format(time.RFC3339)
	}
	if q.Get("flow") == "true" {
		flow, err := a.history.RebuildResourceFlow(r.Context(), since)
		if err != nil {
			a.logger.Errorf("history flow: %v", err)
			writeJSONError(w, "Failed to read history", http.StatusInternalServerError)
			return
		}
		resp.Flow = flow
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleSaves lists stored saves, newest first.
// GET /api/saves
func (a *API) HandleSaves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.saves == nil {
		writeJSONError(w, "Saves are not available", http.StatusServiceUnavailable)
		return
	}
	list, err := a.saves.List(r.Context())
	if err != nil {
		a.logger.Errorf("saves: %v", err)
		writeJSONError(w, "Failed to list saves", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saves": list})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError sends an error response.
func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorBody{Error: message})
}
