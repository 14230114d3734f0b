// Package serve implements the serve subcommand.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/sighting-analytics-service/internal/adapter/http"
	"github.com/couchcryptid/sighting-analytics-service/internal/analytics"
	"github.com/couchcryptid/sighting-analytics-service/internal/app"
	"github.com/couchcryptid/sighting-analytics-service/internal/pipeline"
	"github.com/spf13/cobra"
)

type flags struct {
	addr     string
	source   string
	clusters string
}

// Command creates the serve command.
func Command(ctx *app.Context) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics query API",
		Long: `Load the sighting table and its clustered snapshot and serve the
year, map, top-N, time series, and cluster queries over HTTP.
Send SIGHUP to reload the snapshots without restarting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.addr != "" {
				ctx.Config.HTTPAddr = f.addr
			}
			if f.source != "" {
				ctx.Config.SightingsPath = f.source
			}
			if f.clusters != "" {
				ctx.Config.ClustersPath = f.clusters
			}
			return run(cmd.Context(), ctx)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&f.source, "source", "", "raw sighting table (overrides SIGHTINGS_PATH)")
	cmd.Flags().StringVar(&f.clusters, "clusters", "", "clustered snapshot (overrides CLUSTERS_PATH)")
	return cmd
}

func run(parent context.Context, a *app.Context) error {
	cfg, logger := a.Config, a.Logger
	if parent == nil {
		parent = context.Background()
	}

	store := a.Store()
	p := pipeline.New(store, store, nil, logger, a.Metrics, pipeline.Options{Cluster: a.ClusterOptions()})
	eng := analytics.NewEngine(analytics.Options{
		MaxIterations: cfg.ClusterMaxIterations,
		CacheTTL:      cfg.ClusterCacheTTL,
	}, logger, a.Metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, cfg.TopN, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// Start HTTP server. /readyz reports 503 until the first load completes.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	load := func() error {
		ds, err := p.Dataset(ctx, store)
		if err != nil {
			return err
		}
		eng.Load(ds)
		if err := eng.EnsureClusters(cfg.ClusterK, cfg.ClusterSeed); err != nil {
			logger.Warn("serving without clusters", "error", err)
		}
		return nil
	}

	if err := load(); err != nil {
		logger.Error("initial load failed", "error", err)
		stop()
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-hup:
			logger.Info("reloading snapshots")
			if err := load(); err != nil {
				logger.Error("reload failed, keeping current dataset", "error", err)
			}
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	if eng.Dataset() == nil {
		return errors.New("no dataset was loaded")
	}
	return nil
}
