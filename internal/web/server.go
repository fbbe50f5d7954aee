// Package web exposes the read-only HTTP API of the occurd daemon.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calyptra/liboccur/event"
	"github.com/calyptra/liboccur/pipeline"
)

// Snapshot is one consolidated refresh result as served over HTTP.
type Snapshot struct {
	Events      []event.CalendarEvent
	Status      map[string]string // per-master expansion status lines
	WindowStart time.Time
	WindowEnd   time.Time
	RefreshedAt time.Time
}

// EventSource supplies the latest snapshot to the API handlers.
type EventSource interface {
	Snapshot() Snapshot
}

// Store is a concurrency-safe snapshot holder. The refresh loop writes
// it, the API reads it.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the current snapshot.
func (s *Store) Set(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Server provides the HTTP API: /health, /api/events and /metrics.
type Server struct {
	source EventSource
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer constructs a Server reading from the given source. A nil
// logger selects slog.Default().
func NewServer(source EventSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		source: source,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.Handle("/metrics", promhttp.Handler())
}

type healthResponse struct {
	Status      string    `json:"status"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Events      int       `json:"events"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.source.Snapshot()
	resp := healthResponse{
		Status:      "ok",
		RefreshedAt: snap.RefreshedAt,
		Events:      len(snap.Events),
	}
	if snap.RefreshedAt.IsZero() {
		resp.Status = "starting"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type apiEvent struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	AllDay    bool      `json:"all_day"`
	ShowAs    string    `json:"show_as"`
	Cancelled bool      `json:"cancelled,omitempty"`
	Location  string    `json:"location,omitempty"`
	Attendees []string  `json:"attendees,omitempty"`
	Recurring bool      `json:"recurring,omitempty"`
	MasterUID string    `json:"master_uid,omitempty"`
}

type eventsResponse struct {
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	RefreshedAt time.Time         `json:"refreshed_at"`
	Count       int               `json:"count"`
	Events      []apiEvent        `json:"events"`
	Expansion   map[string]string `json:"expansion_status,omitempty"`
}

// handleEvents serves the snapshot, optionally narrowed by start/end
// query parameters in RFC 3339 form. The snapshot is already sorted, so
// narrowing preserves order.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.source.Snapshot()
	start, end := snap.WindowStart, snap.WindowEnd

	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid start parameter, want RFC 3339", http.StatusBadRequest)
			return
		}
		start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid end parameter, want RFC 3339", http.StatusBadRequest)
			return
		}
		end = t
	}

	resp := eventsResponse{
		WindowStart: start,
		WindowEnd:   end,
		RefreshedAt: snap.RefreshedAt,
		Events:      make([]apiEvent, 0, len(snap.Events)),
		Expansion:   snap.Status,
	}
	for _, ev := range snap.Events {
		if !pipeline.InWindow(ev, start, end) {
			continue
		}
		resp.Events = append(resp.Events, apiEvent{
			ID:        ev.ID,
			Subject:   ev.Subject,
			Start:     ev.Start,
			End:       ev.End,
			AllDay:    ev.IsAllDay,
			ShowAs:    string(ev.ShowAs),
			Cancelled: ev.IsCancelled,
			Location:  ev.Location,
			Attendees: ev.Attendees,
			Recurring: ev.IsRecurring,
			MasterUID: ev.RRuleMasterUID,
		})
	}
	resp.Count = len(resp.Events)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encoding events response", "err", err)
	}
}
