// Package build implements the build subcommand.
package build

import (
	"context"
	"fmt"

	"github.com/couchcryptid/sighting-analytics-service/internal/adapter/kafka"
	"github.com/couchcryptid/sighting-analytics-service/internal/app"
	"github.com/couchcryptid/sighting-analytics-service/internal/pipeline"
	"github.com/spf13/cobra"
)

type flags struct {
	source     string
	normalized string
	clusters   string
	k          int
	seed       int64
	noPublish  bool
}

// Command creates the build command.
func Command(ctx *app.Context) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the normalized and clustered snapshots",
		Long: `Read the raw sighting table, normalize every row, run k-means over all
rows with coordinates, and write the normalized and clustered snapshots.
When KAFKA_BROKERS is set the clustered rows are also published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.Config
			if f.source != "" {
				cfg.SightingsPath = f.source
			}
			if f.normalized != "" {
				cfg.NormalizedPath = f.normalized
			}
			if f.clusters != "" {
				cfg.ClustersPath = f.clusters
			}
			if cmd.Flags().Changed("k") {
				cfg.ClusterK = f.k
			}
			if cmd.Flags().Changed("seed") {
				cfg.ClusterSeed = f.seed
			}
			return run(cmd.Context(), ctx, !f.noPublish)
		},
	}

	cmd.Flags().StringVar(&f.source, "source", "", "raw sighting table (overrides SIGHTINGS_PATH)")
	cmd.Flags().StringVar(&f.normalized, "normalized", "", "normalized snapshot output (overrides NORMALIZED_PATH)")
	cmd.Flags().StringVar(&f.clusters, "clusters", "", "clustered snapshot output (overrides CLUSTERS_PATH)")
	cmd.Flags().IntVar(&f.k, "k", 0, "number of clusters (overrides CLUSTER_K)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "k-means++ seed (overrides CLUSTER_SEED)")
	cmd.Flags().BoolVar(&f.noPublish, "no-publish", false, "skip the Kafka export even when brokers are configured")
	return cmd
}

func run(ctx context.Context, a *app.Context, publish bool) error {
	cfg, logger := a.Config, a.Logger
	if cfg.ClusterK <= 0 {
		return fmt.Errorf("k must be positive, got %d", cfg.ClusterK)
	}

	var publisher pipeline.Publisher
	if publish && cfg.KafkaEnabled() {
		writer := kafka.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka export enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	store := a.Store()
	p := pipeline.New(store, store, publisher, logger, a.Metrics, pipeline.Options{Cluster: a.ClusterOptions()})
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("rows: %d (warnings: %d)\n", report.Rows, report.Warnings)
	fmt.Printf("clustered: %d in %d iterations (converged: %t)\n", report.Clustered, report.Iterations, report.Converged)
	for id, n := range report.ClusterSizes {
		fmt.Printf("  cluster %d: %d\n", id, n)
	}
	if report.Published > 0 {
		fmt.Printf("published: %d to %s\n", report.Published, cfg.KafkaSinkTopic)
	}
	return nil
}
