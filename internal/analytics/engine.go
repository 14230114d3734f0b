package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sighting-analytics-service/internal/aggregate"
	"github.com/couchcryptid/sighting-analytics-service/internal/cluster"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/observability"
	"github.com/patrickmn/go-cache"
)

// MapPoint is one sighting plotted on the map.
type MapPoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}

// ClusterPoint is a MapPoint colored by its cluster.
type ClusterPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Label     string  `json:"label"`
	ClusterID int     `json:"cluster_id"`
}

// Options tunes an Engine.
type Options struct {
	// MaxIterations caps on-demand clustering runs; zero uses the package default.
	MaxIterations int
	// CacheTTL bounds how long an on-demand clustering result is reused.
	CacheTTL time.Duration
}

// Engine answers presentation queries against the current Dataset. The
// dataset pointer is swapped atomically on reload, so queries in flight keep
// reading the snapshot they started with.
type Engine struct {
	current atomic.Pointer[Dataset]
	results *cache.Cache
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an Engine with no dataset loaded.
func NewEngine(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Engine{
		results: cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Load installs ds as the served dataset.
func (e *Engine) Load(ds *Dataset) {
	e.current.Store(ds)
	e.loaded(ds)
}

func (e *Engine) loaded(ds *Dataset) {
	e.metrics.DatasetRows.Set(float64(ds.Index().Len()))
	e.metrics.DatasetYears.Set(float64(len(ds.Index().Years())))
	e.logger.Info("dataset loaded",
		"dataset_id", ds.ID,
		"rows", ds.Index().Len(),
		"rows_without_year", ds.Index().Unknown(),
		"years", len(ds.Index().Years()),
		"clustered_rows", len(ds.clustered),
	)
}

// Dataset returns the served dataset, or nil before the first Load.
func (e *Engine) Dataset() *Dataset {
	return e.current.Load()
}

// CheckReadiness returns nil once a dataset is loaded.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if e.current.Load() == nil {
		return errors.New("no dataset loaded yet")
	}
	return nil
}

// Years returns the distinct years present, ascending.
func (e *Engine) Years() []int {
	ds := e.current.Load()
	e.count("years", nil)
	if ds == nil {
		return []int{}
	}
	return ds.Index().Years()
}

// Count returns the number of sightings in year, with or without coordinates.
func (e *Engine) Count(year int) int {
	ds := e.current.Load()
	e.count("count", nil)
	if ds == nil {
		return 0
	}
	return ds.Index().Count(year)
}

// MapPoints returns the sightings of year that have coordinates.
func (e *Engine) MapPoints(year int) []MapPoint {
	ds := e.current.Load()
	e.count("map", nil)
	points := []MapPoint{}
	if ds == nil {
		return points
	}
	for _, s := range ds.Index().FilterByYear(year) {
		if !s.HasCoordinates() {
			continue
		}
		points = append(points, MapPoint{Lat: *s.Latitude, Lon: *s.Longitude, Label: s.Location})
	}
	return points
}

// Top runs the aggregation selected by mode over the sightings of year.
func (e *Engine) Top(mode aggregate.Mode, year, n int) ([]aggregate.Entry, error) {
	ds := e.current.Load()
	var subset []domain.Sighting
	if ds != nil {
		subset = ds.Index().FilterByYear(year)
	}
	entries, err := aggregate.Run(mode, subset, n)
	e.count("top", err)
	return entries, err
}

// TimeSeries returns the per-year counts of every year up to and including upTo.
func (e *Engine) TimeSeries(upTo int) []domain.YearCount {
	ds := e.current.Load()
	e.count("timeseries", nil)
	if ds == nil {
		return []domain.YearCount{}
	}
	return ds.Index().CumulativeCounts(upTo)
}

// Clusters returns the clustered sightings of year. Cluster geometry comes
// from the whole dataset; only the display is scoped to the year.
func (e *Engine) Clusters(year int) []ClusterPoint {
	ds := e.current.Load()
	e.count("clusters", nil)
	points := []ClusterPoint{}
	if ds == nil {
		return points
	}
	for _, s := range ds.Clustered(year) {
		if !s.HasCoordinates() {
			continue
		}
		points = append(points, ClusterPoint{Lat: *s.Latitude, Lon: *s.Longitude, Label: s.Location, ClusterID: s.ClusterID})
	}
	return points
}

// Cluster runs k-means over the full served dataset. Results are memoized per
// (dataset, k, seed); a cached result is identical to a fresh run.
func (e *Engine) Cluster(k int, seed int64) (*cluster.Result, error) {
	ds := e.current.Load()
	if ds == nil {
		return nil, fmt.Errorf("%w: no dataset loaded", cluster.ErrInsufficientData)
	}

	key := fmt.Sprintf("%s|%d|%d", ds.ID, k, seed)
	if v, ok := e.results.Get(key); ok {
		e.metrics.ClusterCache.WithLabelValues("hit").Inc()
		return v.(*cluster.Result), nil
	}
	e.metrics.ClusterCache.WithLabelValues("miss").Inc()

	start := time.Now()
	res, err := cluster.Run(ds.Sightings(), cluster.Options{K: k, Seed: seed, MaxIterations: e.opts.MaxIterations})
	if err != nil {
		return nil, err
	}
	e.metrics.ClusterDuration.Observe(time.Since(start).Seconds())
	e.metrics.ClusterIterations.Observe(float64(res.Iterations))
	e.logger.Info("clustering complete",
		"dataset_id", ds.ID,
		"k", k,
		"seed", seed,
		"points", len(res.Assignments),
		"iterations", res.Iterations,
		"converged", res.Converged,
		"duration", time.Since(start),
	)

	e.results.SetDefault(key, res)
	return res, nil
}

// EnsureClusters attaches an on-demand clustering of the full dataset when
// the served dataset has no cluster snapshot. A dataset installed by a
// concurrent Load wins over the clustered copy.
func (e *Engine) EnsureClusters(k int, seed int64) error {
	ds := e.current.Load()
	if ds == nil {
		return errors.New("no dataset loaded")
	}
	if ds.HasClusters() {
		return nil
	}
	res, err := e.Cluster(k, seed)
	if err != nil {
		return fmt.Errorf("cluster dataset: %w", err)
	}
	next := ds.WithClusters(JoinClusters(ds.Sightings(), res.Assignments))
	if !e.current.CompareAndSwap(ds, next) {
		e.logger.Info("dataset reloaded during clustering, keeping the newer dataset", "dataset_id", ds.ID)
		return nil
	}
	e.loaded(next)
	return nil
}

func (e *Engine) count(query string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	e.metrics.Queries.WithLabelValues(query, outcome).Inc()
}
