package stats

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Receiver is a TCP server that accepts newline-delimited JSON snapshots
// and an HTTP server that exposes the last one received.
// Last-writer-wins; there is no history and no cleanup task.
type Receiver struct {
	staleness time.Duration
	log       *logrus.Entry

	mu       sync.RWMutex
	raw      json.RawMessage
	received time.Time
}

func NewReceiver(staleness time.Duration, log *logrus.Entry) *Receiver {
	if staleness <= 0 {
		staleness = 15 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Receiver{staleness: staleness, log: log}
}

// ServeTCP accepts connections on lis and reads newline-delimited JSON
// records until lis is closed. Each line overwrites the previous snapshot.
func (r *Receiver) ServeTCP(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go r.handleConn(conn)
	}
}

func (r *Receiver) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			r.log.WithError(err).Debug("stats: malformed snapshot line dropped")
			continue
		}
		r.mu.Lock()
		r.raw = append(json.RawMessage(nil), probe...)
		r.received = time.Now()
		r.mu.Unlock()
	}
}

// Age returns how long ago the last snapshot was received. A zero
// received time (nothing ever pushed) reports as a very large age.
func (r *Receiver) Age() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.received.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return time.Since(r.received)
}

func (r *Receiver) Stale() bool {
	return r.Age() > r.staleness
}

// Router builds the HTTP router for GET /api/stats and GET /health.
func (r *Receiver) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(r.log))
	router.HandleFunc("/api/stats", r.handleStats).Methods("GET")
	router.HandleFunc("/health", r.handleHealth).Methods("GET")
	return router
}

func (r *Receiver) handleStats(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	raw := r.raw
	received := r.received
	r.mu.RUnlock()
	if raw == nil {
		http.Error(w, "no snapshot received yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		ReceivedAt time.Time       `json:"received_at"`
		Snapshot   json.RawMessage `json:"snapshot"`
	}{ReceivedAt: received, Snapshot: raw})
}

func (r *Receiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	if r.Stale() {
		http.Error(w, "stale", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func loggingMiddleware(log *logrus.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, req)
			log.WithFields(logrus.Fields{
				"method": req.Method,
				"path":   req.RequestURI,
				"took":   time.Since(start),
			}).Debug("stats request")
		})
	}
}
