// Package pipeline builds the derived sighting snapshots: it extracts the raw
// table, normalizes it once, clusters the full table and writes the normalized
// and cluster-augmented files, optionally publishing the clustered rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sighting-analytics-service/internal/analytics"
	"github.com/couchcryptid/sighting-analytics-service/internal/cluster"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/observability"
	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
)

// Extractor reads the raw sighting table.
type Extractor interface {
	Extract(ctx context.Context) (*snapshot.Source, error)
}

// Loader persists the derived tables.
type Loader interface {
	WriteNormalized(ctx context.Context, header []string, sightings []domain.Sighting) error
	WriteClustered(ctx context.Context, header []string, sightings []domain.Sighting, assignments map[int]int) error
}

// ClusteredReader reads a previously written cluster-augmented table.
type ClusteredReader interface {
	ReadClustered(ctx context.Context) (*snapshot.Clustered, error)
}

// Publisher exports clustered sightings downstream.
type Publisher interface {
	Publish(ctx context.Context, sightings []domain.ClusteredSighting) error
}

// Options tunes a Pipeline.
type Options struct {
	Cluster cluster.Options
	// MaxLoggedWarnings caps the per-row parse warnings logged at warn level.
	MaxLoggedWarnings int
	// PublishAttempts is the number of tries per publish before giving up.
	PublishAttempts int
}

// Report summarizes one snapshot build.
type Report struct {
	Rows         int
	Warnings     int
	Clustered    int
	ClusterSizes []int
	Iterations   int
	Converged    bool
	Published    int
	Duration     time.Duration
}

// Pipeline orchestrates extract, normalize, cluster and load.
type Pipeline struct {
	extractor Extractor
	loader    Loader
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool
}

// New creates a Pipeline with the given stages and observability. publisher
// may be nil to skip the export step.
func New(e Extractor, l Loader, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.MaxLoggedWarnings <= 0 {
		opts.MaxLoggedWarnings = 20
	}
	if opts.PublishAttempts <= 0 {
		opts.PublishAttempts = 3
	}
	return &Pipeline{
		extractor: e,
		loader:    l,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a build has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot built yet")
	}
	return nil
}

// Run performs one full snapshot build.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	p.logger.Info("snapshot build started", "k", p.opts.Cluster.K, "seed", p.opts.Cluster.Seed)

	src, sightings, warnings, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.loader.WriteNormalized(ctx, src.Header, sightings); err != nil {
		p.metrics.SnapshotWrites.WithLabelValues("normalized", "error").Inc()
		return nil, fmt.Errorf("write normalized snapshot: %w", err)
	}
	p.metrics.SnapshotWrites.WithLabelValues("normalized", "success").Inc()

	clusterStart := time.Now()
	res, err := cluster.Run(sightings, p.opts.Cluster)
	if err != nil {
		return nil, fmt.Errorf("cluster sightings: %w", err)
	}
	p.metrics.ClusterDuration.Observe(time.Since(clusterStart).Seconds())
	p.metrics.ClusterIterations.Observe(float64(res.Iterations))
	if !res.Converged {
		p.logger.Warn("clustering hit the iteration cap", "iterations", res.Iterations)
	}

	if err := p.loader.WriteClustered(ctx, src.Header, sightings, res.Assignments); err != nil {
		p.metrics.SnapshotWrites.WithLabelValues("clustered", "error").Inc()
		return nil, fmt.Errorf("write clustered snapshot: %w", err)
	}
	p.metrics.SnapshotWrites.WithLabelValues("clustered", "success").Inc()

	report := &Report{
		Rows:         len(sightings),
		Warnings:     warnings,
		Clustered:    len(res.Assignments),
		ClusterSizes: res.Sizes(),
		Iterations:   res.Iterations,
		Converged:    res.Converged,
	}

	if p.publisher != nil {
		clustered := analytics.JoinClusters(sightings, res.Assignments)
		if err := p.publish(ctx, clustered); err != nil {
			return nil, err
		}
		report.Published = len(clustered)
	}

	report.Duration = time.Since(start)
	p.ready.Store(true)
	p.logger.Info("snapshot build complete",
		"rows", report.Rows,
		"warnings", report.Warnings,
		"clustered", report.Clustered,
		"cluster_sizes", report.ClusterSizes,
		"iterations", report.Iterations,
		"published", report.Published,
		"duration", report.Duration,
	)
	return report, nil
}

// Dataset extracts and normalizes the source table and attaches the clustered
// snapshot when reader is non-nil and has one. A missing clustered file is
// not an error; the dataset is returned without clusters.
func (p *Pipeline) Dataset(ctx context.Context, reader ClusteredReader) (*analytics.Dataset, error) {
	_, sightings, _, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return analytics.NewDataset(sightings, nil), nil
	}

	snap, err := reader.ReadClustered(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("clustered snapshot unavailable, serving without clusters", "error", err)
		return analytics.NewDataset(sightings, nil), nil
	}

	clustered, _ := domain.Normalize(snap.Records)
	out := make([]domain.ClusteredSighting, len(clustered))
	for i := range clustered {
		out[i] = domain.ClusteredSighting{Sighting: clustered[i], ClusterID: snap.Clusters[i]}
	}
	p.logger.Info("clustered snapshot loaded", "rows", len(out))
	return analytics.NewDataset(sightings, out), nil
}

// publish sends the clustered rows, retrying with exponential backoff.
func (p *Pipeline) publish(ctx context.Context, clustered []domain.ClusteredSighting) error {
	// Start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= p.opts.PublishAttempts; attempt++ {
		if err = p.publisher.Publish(ctx, clustered); err == nil {
			p.metrics.RecordsExported.Add(float64(len(clustered)))
			return nil
		}
		p.logger.Error("publish clustered sightings failed", "error", err, "attempt", attempt, "rows", len(clustered))
		if attempt == p.opts.PublishAttempts || !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish clustered sightings: %w", err)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
