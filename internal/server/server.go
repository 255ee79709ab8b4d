// Package server hosts the console: it mounts plugins under /console/<label>/,
// exposes health and metrics endpoints and runs the periodic registry sweep.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/plugboard/plugboard/internal/config"
	"github.com/plugboard/plugboard/internal/logging"
	"github.com/plugboard/plugboard/internal/metrics"
	"github.com/plugboard/plugboard/internal/middleware"
	"github.com/plugboard/plugboard/internal/store"
	"github.com/plugboard/plugboard/pkg/console"
	"github.com/plugboard/plugboard/pkg/registry"
)

const shutdownTimeout = 15 * time.Second

// Server is the console host.
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Metrics
	host    *registry.Registry
	store   store.Store

	router      *mux.Router
	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter
	stopCleanup func()
	auth        *middleware.AuthMiddleware
	cron        *cron.Cron

	mu      sync.Mutex
	plugins []console.Plugin

	removeListener func()
}

// New creates a console host over the given registry and store. The store may
// be nil; plugins that track it simply see no service.
func New(cfg *config.Config, log *logging.Logger, m *metrics.Metrics, host *registry.Registry, st store.Store) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server: config: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		host:    host,
		store:   st,
		router:  mux.NewRouter(),
		cron:    cron.New(),
	}

	if st != nil {
		if _, err := host.Register(store.ServiceName, st, map[string]string{"alias": cfg.Store.Alias}); err != nil {
			return nil, fmt.Errorf("server: register store: %w", err)
		}
	}

	// Keep the registry gauges and event counters current.
	s.removeListener = host.AddListener(func(ev registry.Event) {
		m.RecordRegistryEvent(string(ev.Type))
		m.SetServicesRegistered(host.Size())
		m.SetTrackersOpen(host.OpenTrackers())
	})
	m.SetServicesRegistered(host.Size())

	s.buildRoutes()

	if cfg.Sweep.Schedule != "" {
		if _, err := s.cron.AddFunc(cfg.Sweep.Schedule, s.sweep); err != nil {
			return nil, fmt.Errorf("server: sweep schedule: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// buildRoutes wires the middleware chain and the host endpoints.
func (s *Server) buildRoutes() {
	tracing := middleware.NewTracingMiddleware(s.log)
	cors := middleware.NewCORSMiddleware(s.cfg.Server.AllowedOrigins)
	s.rateLimiter = middleware.NewRateLimiter(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst, s.log)

	s.router.Use(tracing.Handler)
	s.router.Use(middleware.MetricsMiddleware("console", s.metrics))
	s.router.Use(cors.Handler)
	s.router.Use(s.rateLimiter.Handler)

	if s.cfg.Auth.Enabled {
		s.auth = middleware.NewAuthMiddleware([]byte(s.cfg.Auth.Secret), s.log,
			[]string{"/healthz", "/metrics", "/console/login"})
		s.router.Use(s.auth.Handler)
		s.router.HandleFunc("/console/login", s.handleLogin).Methods(http.MethodPost)
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/console", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/console/", s.handleIndex).Methods(http.MethodGet)
}

// Mount registers the plugins with the registry and routes their /label/
// namespace to them. Registration failures roll nothing back; the caller
// shuts the server down on error.
func (s *Server) Mount(plugins ...console.Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range plugins {
		if reg, ok := p.(console.Registrable); ok {
			if err := reg.Register(s.host); err != nil {
				return fmt.Errorf("server: mount %s: %w", p.Label(), err)
			}
		}

		// The plugin sees paths relative to /console, matching its
		// /label/ resource namespace. The label segment is matched
		// exactly: a label that prefixes another ("sys", "sysinfo")
		// must not steal the longer plugin's requests.
		handler := http.StripPrefix("/console", p)
		s.router.Handle("/console/"+p.Label(), handler)
		s.router.PathPrefix("/console/" + p.Label() + "/").Handler(handler)

		s.plugins = append(s.plugins, p)
		s.log.Info("plugin mounted",
			zap.String("label", p.Label()),
			zap.String("title", p.Title()))
	}

	s.metrics.SetPluginsMounted(len(s.plugins))
	return nil
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start begins serving. It blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.stopCleanup = s.rateLimiter.StartCleanup(5 * time.Minute)
	s.cron.Start()

	s.log.Info("console listening", zap.String("addr", s.cfg.Server.Listen))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown stops the listener, unregisters the plugins and closes the store
// and the registry, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	cronCtx := s.cron.Stop()
	if s.stopCleanup != nil {
		s.stopCleanup()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}

	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
	}

	s.mu.Lock()
	plugins := append([]console.Plugin(nil), s.plugins...)
	s.mu.Unlock()

	for _, p := range plugins {
		reg, ok := p.(console.Registrable)
		if !ok {
			continue
		}
		if err := reg.Unregister(); err != nil {
			s.log.Warn("plugin unregister failed",
				zap.String("label", p.Label()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if s.store != nil {
		if err := s.store.Close(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.removeListener != nil {
		s.removeListener()
	}
	s.host.Close()

	s.log.Info("console stopped")
	return firstErr
}

// sweep logs a registry and store health snapshot and refreshes the gauges.
// It runs on the configured cron schedule.
func (s *Server) sweep() {
	infos := s.host.List()
	s.metrics.SetServicesRegistered(len(infos))
	s.metrics.SetTrackersOpen(s.host.OpenTrackers())

	s.mu.Lock()
	mounted := len(s.plugins)
	s.mu.Unlock()
	s.metrics.SetPluginsMounted(mounted)

	storeHealth := "none"
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.Health(ctx); err != nil {
			storeHealth = err.Error()
		} else {
			storeHealth = "ok"
		}
		cancel()
	}

	s.log.Debug("registry sweep",
		zap.Int("services", len(infos)),
		zap.Int("plugins", mounted),
		zap.String("store", storeHealth))
}

// sortedPlugins returns the mounted plugins ordered by category then label.
func (s *Server) sortedPlugins() []console.Plugin {
	s.mu.Lock()
	plugins := append([]console.Plugin(nil), s.plugins...)
	s.mu.Unlock()

	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Category() != plugins[j].Category() {
			return plugins[i].Category() < plugins[j].Category()
		}
		return plugins[i].Label() < plugins[j].Label()
	})
	return plugins
}
