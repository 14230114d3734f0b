// Package app holds the process-wide dependencies shared by CLI subcommands.
package app

import (
	"log/slog"

	"github.com/couchcryptid/sighting-analytics-service/internal/cluster"
	"github.com/couchcryptid/sighting-analytics-service/internal/config"
	"github.com/couchcryptid/sighting-analytics-service/internal/observability"
	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
)

// Context is populated once by the root command before any subcommand runs.
type Context struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Init loads configuration and builds the logger and registered metrics.
func (c *Context) Init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger = observability.NewLogger(cfg)
	c.Metrics = observability.NewMetrics()
	return nil
}

// Store returns the snapshot files named by the configuration.
func (c *Context) Store() *snapshot.Store {
	return &snapshot.Store{
		SourcePath:     c.Config.SightingsPath,
		NormalizedPath: c.Config.NormalizedPath,
		ClusteredPath:  c.Config.ClustersPath,
	}
}

// ClusterOptions returns the configured clustering parameters.
func (c *Context) ClusterOptions() cluster.Options {
	return cluster.Options{
		K:             c.Config.ClusterK,
		Seed:          c.Config.ClusterSeed,
		MaxIterations: c.Config.ClusterMaxIterations,
	}
}
