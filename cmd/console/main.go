// Command console runs the plugboard console host: it opens the configured
// store, loads manifest extension declarations, mounts the enabled built-in
// plugins and serves them until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/plugboard/plugboard/internal/config"
	"github.com/plugboard/plugboard/internal/logging"
	"github.com/plugboard/plugboard/internal/metrics"
	"github.com/plugboard/plugboard/internal/server"
	"github.com/plugboard/plugboard/internal/store"
	"github.com/plugboard/plugboard/pkg/console"
	"github.com/plugboard/plugboard/pkg/extension"
	"github.com/plugboard/plugboard/pkg/registry"
	"github.com/plugboard/plugboard/plugins/events"
	"github.com/plugboard/plugboard/plugins/services"
	"github.com/plugboard/plugboard/plugins/sysinfo"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	log := logging.New("console")
	defer func() { _ = log.Sync() }()

	cfg := config.LoadOrDefault()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	if cfg.ManifestDir != "" {
		if err := extension.Default.LoadManifestDir(cfg.ManifestDir); err != nil {
			log.Error("failed to load manifests", zap.Error(err))
			os.Exit(1)
		}
	}

	m := metrics.New()

	ctx := context.Background()
	st, err := store.Open(ctx, extension.Default, cfg.Store.Alias, cfg.Store.DSN)
	if err != nil {
		m.RecordProviderLookup(store.ProvidersPoint, "error")
		log.Error("failed to open store", zap.Error(err), zap.String("alias", cfg.Store.Alias))
		os.Exit(1)
	}
	m.RecordProviderLookup(store.ProvidersPoint, "ok")

	host := registry.New()

	srv, err := server.New(cfg, log, m, host, st)
	if err != nil {
		log.Error("failed to create server", zap.Error(err))
		os.Exit(1)
	}

	plugins, err := buildPlugins(cfg, host)
	if err != nil {
		log.Error("failed to create plugins", zap.Error(err))
		os.Exit(1)
	}
	if err := srv.Mount(plugins...); err != nil {
		log.Error("failed to mount plugins", zap.Error(err))
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}
}

// buildPlugins creates the enabled built-in plugins.
func buildPlugins(cfg *config.Config, host *registry.Registry) ([]console.Plugin, error) {
	var plugins []console.Plugin

	if cfg.PluginEnabled(services.Label) {
		p, err := services.New(host)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}

	if cfg.PluginEnabled(sysinfo.Label) {
		p, err := sysinfo.New()
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}

	if cfg.PluginEnabled(events.Label) {
		p, err := events.New(host)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}

	return plugins, nil
}
