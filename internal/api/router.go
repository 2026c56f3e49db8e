// Package api exposes the counter registry over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/developingchet/counterd/internal/registry"
)

// Options controls the ambient parts of the router.
type Options struct {
	// CORSAllowedOrigins enables CORS for the listed origins. Empty disables it.
	CORSAllowedOrigins []string
	// Metrics mounts the Prometheus handler on /metrics.
	Metrics bool
	// Ready backs /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter builds the full HTTP routing tree around reg.
func NewRouter(reg *registry.Registry, opts Options) http.Handler {
	h := &Handler{reg: reg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/counters", func(r chi.Router) {
		// A bare collection path carries an empty name.
		r.Post("/", h.Create)
		r.Put("/", h.Increment)
		r.Get("/", h.Read)
		r.Delete("/", h.Delete)

		r.Post("/{name}", h.Create)
		r.Put("/{name}", h.Increment)
		r.Get("/{name}", h.Read)
		r.Delete("/{name}", h.Delete)
	})

	return r
}
