package stats

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// statsAPIResponse mirrors the JSON Receiver.handleStats produces.
type statsAPIResponse struct {
	ReceivedAt time.Time       `json:"received_at"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

// Dashboard polls a stats Receiver over HTTP, caches the last response in
// memory, and re-serves it to browsers on their own, independently
// configurable interval.
type Dashboard struct {
	upstreamURL string
	client      *http.Client
	log         *logrus.Entry

	mu    sync.RWMutex
	cache *statsAPIResponse
}

func NewDashboard(upstreamStatsURL string, clientTimeout time.Duration, log *logrus.Entry) *Dashboard {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dashboard{
		upstreamURL: upstreamStatsURL,
		client:      &http.Client{Timeout: clientTimeout},
		log:         log,
	}
}

// Run polls the upstream stats receiver every interval until done is
// closed. Meant to run in its own goroutine.
func (d *Dashboard) Run(interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	d.pollOnce()
	for {
		select {
		case <-ticker.C:
			d.pollOnce()
		case <-done:
			return
		}
	}
}

func (d *Dashboard) pollOnce() {
	resp, err := d.client.Get(d.upstreamURL)
	if err != nil {
		d.log.WithError(err).Debug("dashboard: poll failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		d.log.WithField("status", resp.StatusCode).Debug("dashboard: upstream not ok")
		return
	}
	var parsed statsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		d.log.WithError(err).Debug("dashboard: malformed upstream response")
		return
	}
	d.mu.Lock()
	d.cache = &parsed
	d.mu.Unlock()
}

// Router builds the HTTP router browsers poll.
func (d *Dashboard) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(d.log))
	router.HandleFunc("/api/stats", d.handleStats).Methods("GET")
	router.HandleFunc("/health", d.handleHealth).Methods("GET")
	return router
}

func (d *Dashboard) handleStats(w http.ResponseWriter, req *http.Request) {
	d.mu.RLock()
	cached := d.cache
	d.mu.RUnlock()
	if cached == nil {
		http.Error(w, "no snapshot cached yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cached)
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, req *http.Request) {
	d.mu.RLock()
	cached := d.cache
	d.mu.RUnlock()
	if cached == nil {
		http.Error(w, "no snapshot cached yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}
