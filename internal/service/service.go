// Package service wires configuration, storage, the registry and the HTTP
// server into one runnable process.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/developingchet/counterd/internal/api"
	"github.com/developingchet/counterd/internal/config"
	"github.com/developingchet/counterd/internal/registry"
	"github.com/developingchet/counterd/internal/storage"
)

// Service owns the store and the HTTP server for the process lifetime.
type Service struct {
	cfg     *config.Config
	store   storage.Store
	reg     *registry.Registry
	httpSrv *http.Server
}

// New opens the configured store and builds the HTTP server around it.
func New(cfg *config.Config) (*Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, storeOptions(cfg))
	if err != nil {
		return nil, err
	}
	return newWithStore(cfg, store), nil
}

func newWithStore(cfg *config.Config, store storage.Store) *Service {
	s := &Service{
		cfg:   cfg,
		store: store,
		reg:   registry.New(store),
	}

	handler := api.NewRouter(s.reg, api.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            cfg.MetricsEnabled,
		Ready:              s.Healthy,
	})

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func storeOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Backend:  cfg.StoreBackend,
		BoltPath: filepath.Join(cfg.DataDir, "counters.db"),
		Redis: storage.RedisOptions{
			Addrs:    cfg.RedisAddrs,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Service) Handler() http.Handler { return s.httpSrv.Handler }

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts the server down gracefully.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	s.refreshGauges(ctx)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go runJanitor(janitorCtx, s, s.cfg.JanitorInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(ln)
	}()

	log.Info().
		Str("addr", ln.Addr().String()).
		Str("store", s.cfg.StoreBackend).
		Bool("metrics", s.cfg.MetricsEnabled).
		Str("log_level", s.cfg.LogLevel).
		Str("version", s.cfg.BuildVersion).
		Msg("counterd started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown error")
		return err
	}
	log.Info().Msg("counterd stopped")
	return nil
}

// Healthy reports whether the store is reachable.
func (s *Service) Healthy(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store %s: %w", s.cfg.StoreBackend, err)
	}
	return nil
}

// Close releases the store. Call after Run returns.
func (s *Service) Close() {
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}
}
