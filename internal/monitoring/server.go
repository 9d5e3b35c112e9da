// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc returns a JSON-serializable snapshot of crawl progress.
type StatusFunc func() interface{}

// Server exposes /healthz, /metrics and /status for a running crawl. It is
// optional: sessions run fine without one.
type Server struct {
	srv *http.Server
}

// NewServer builds the status server. status may be nil, in which case
// /status reports an empty object.
func NewServer(addr string, metrics *Metrics, status StatusFunc) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if registry := metrics.Registry(); registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var snapshot interface{} = map[string]string{}
		if status != nil {
			snapshot = status()
		}
		json.NewEncoder(w).Encode(snapshot)
	}).Methods(http.MethodGet)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed on
// clean shutdown.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
