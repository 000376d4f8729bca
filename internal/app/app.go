// Package app wires the SDK components from a Config with fx.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/internal/config"
	"github.com/fxnlabs/marketplace-sdk/internal/devregistry"
	"github.com/fxnlabs/marketplace-sdk/pkg/cache"
	"github.com/fxnlabs/marketplace-sdk/pkg/contracts"
	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/network"
	"github.com/fxnlabs/marketplace-sdk/pkg/registry"
)

// Module provides the metrics registry, cache store, registry client and
// contract registry, and runs the cache sweeper and the optional metrics
// listener for the lifetime of the app.
func Module(cfg *config.Config, log *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, log),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: fxLogger(log)}
		}),
		fx.Provide(
			NewPrometheusRegistry,
			NewMetrics,
			NewResolver,
			NewStore,
			NewRegistryClient,
			NewContractRegistry,
		),
		fx.Invoke(RunSweeper, ServeMetrics),
	)
}

// DevRegistryModule loads the manifest named in the config and serves it.
func DevRegistryModule() fx.Option {
	return fx.Options(
		fx.Provide(NewManifest, NewDevRegistry),
		fx.Invoke(ServeDevRegistry),
	)
}

// fxLogger quiets the fx lifecycle events below warn. A logger that is already
// above warn is used as is, since zap cannot lower a level.
func fxLogger(log *zap.Logger) *zap.Logger {
	log = log.Named("fx")
	if !log.Core().Enabled(zap.WarnLevel) {
		return log
	}
	return log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
}

func NewPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func NewResolver(cfg *config.Config) *network.Resolver {
	return network.NewResolver(cfg.Networks)
}

func NewStore(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *cache.Store {
	return cache.New(
		cache.WithSize(cfg.Cache.Size),
		cache.WithGCTime(cfg.Cache.GCTime),
		cache.WithStaleIfError(cfg.Cache.StaleIfError),
		cache.WithLogger(log),
		cache.WithMetrics(m),
	)
}

func NewRegistryClient(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*registry.Client, error) {
	return registry.NewClient(cfg.Registry.URL,
		registry.WithAPIKey(cfg.Registry.APIKey),
		registry.WithTimeout(cfg.Registry.Timeout),
		registry.WithLogger(log),
		registry.WithMetrics(m),
	)
}

func NewContractRegistry(client *registry.Client, store *cache.Store, resolver *network.Resolver, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *contracts.Registry {
	return contracts.NewRegistry(client, store,
		contracts.WithABITTL(cfg.Cache.ABITTL),
		contracts.WithResolver(resolver),
		contracts.WithLogger(log),
		contracts.WithMetrics(m),
	)
}

// RunSweeper collects expired cache entries in the background while the app runs.
func RunSweeper(lc fx.Lifecycle, store *cache.Store, cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				store.Run(ctx, cfg.Cache.SweepInterval)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// ServeMetrics exposes reg on metrics.listenAddress. An empty address disables it.
func ServeMetrics(lc fx.Lifecycle, cfg *config.Config, reg *prometheus.Registry, log *zap.Logger) {
	if cfg.Metrics.ListenAddress == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	serve(lc, &http.Server{Addr: cfg.Metrics.ListenAddress, Handler: mux}, log.Named("metrics"))
}

func NewManifest(cfg *config.Config) (*devregistry.Manifest, error) {
	return devregistry.LoadManifestFile(cfg.DevRegistry.ManifestPath)
}

func NewDevRegistry(manifest *devregistry.Manifest, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *devregistry.Server {
	return devregistry.NewServer(manifest,
		devregistry.WithAPIKey(cfg.DevRegistry.APIKey),
		devregistry.WithLogger(log),
		devregistry.WithMetrics(m),
	)
}

func ServeDevRegistry(lc fx.Lifecycle, cfg *config.Config, server *devregistry.Server, log *zap.Logger) {
	serve(lc, &http.Server{Addr: cfg.DevRegistry.ListenAddress, Handler: server.Handler()}, log.Named("devregistry"))
}

// serve binds srv on start, so that a busy port fails app start, and shuts it
// down gracefully on stop.
func serve(lc fx.Lifecycle, srv *http.Server, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting server", zap.String("address", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
