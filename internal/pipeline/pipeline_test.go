package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/sighting-analytics-service/internal/cluster"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/observability"
	"github.com/couchcryptid/sighting-analytics-service/internal/pipeline"
	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	source *snapshot.Source
	err    error
}

func (m *mockExtractor) Extract(_ context.Context) (*snapshot.Source, error) {
	return m.source, m.err
}

type mockLoader struct {
	normalized  []domain.Sighting
	assignments map[int]int
	err         error
}

func (m *mockLoader) WriteNormalized(_ context.Context, _ []string, sightings []domain.Sighting) error {
	m.normalized = sightings
	return m.err
}

func (m *mockLoader) WriteClustered(_ context.Context, _ []string, _ []domain.Sighting, assignments map[int]int) error {
	m.assignments = assignments
	return nil
}

type mockPublisher struct {
	failures  int
	calls     int
	published []domain.ClusteredSighting
}

func (m *mockPublisher) Publish(_ context.Context, sightings []domain.ClusteredSighting) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.published = sightings
	return nil
}

type mockClusteredReader struct {
	snap *snapshot.Clustered
	err  error
}

func (m *mockClusteredReader) ReadClustered(_ context.Context) (*snapshot.Clustered, error) {
	return m.snap, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{source: sampleSource()}, ldr, nil, discardLogger(), metrics,
		pipeline.Options{Cluster: cluster.Options{K: 2, Seed: 42}})

	require.Error(t, p.CheckReadiness(context.Background()))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, 1, report.Warnings)
	assert.Equal(t, 4, report.Clustered, "the row without coordinates is not clustered")
	assert.Len(t, report.ClusterSizes, 2)
	assert.Zero(t, report.Published)

	require.Len(t, ldr.normalized, 5)
	assert.Len(t, ldr.assignments, 4)
	assert.NotContains(t, ldr.assignments, 4)
	require.NoError(t, p.CheckReadiness(context.Background()))

	assert.InDelta(t, 5, testutil.ToFloat64(metrics.RecordsLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ParseWarnings.WithLabelValues(domain.FieldDuration)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotWrites.WithLabelValues("normalized", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotWrites.WithLabelValues("clustered", "success")), 0)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	p := pipeline.New(&mockExtractor{err: errors.New("disk on fire")}, &mockLoader{}, nil,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{Cluster: cluster.Options{K: 2}})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract sightings")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadError(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{source: sampleSource()}, &mockLoader{err: errors.New("read-only")}, nil,
		discardLogger(), metrics, pipeline.Options{Cluster: cluster.Options{K: 2}})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write normalized snapshot")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotWrites.WithLabelValues("normalized", "error")), 0)
}

func TestPipeline_Run_InsufficientData(t *testing.T) {
	p := pipeline.New(&mockExtractor{source: sampleSource()}, &mockLoader{}, nil,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{Cluster: cluster.Options{K: 10}})

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, cluster.ErrInsufficientData)
}

func TestPipeline_Run_PublishesWithRetry(t *testing.T) {
	pub := &mockPublisher{failures: 1}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{source: sampleSource()}, &mockLoader{}, pub,
		discardLogger(), metrics, pipeline.Options{Cluster: cluster.Options{K: 2, Seed: 1}, PublishAttempts: 2})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pub.calls)
	assert.Len(t, pub.published, 4)
	assert.Equal(t, 4, report.Published)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.RecordsExported), 0)
}

func TestPipeline_Run_PublishGivesUp(t *testing.T) {
	pub := &mockPublisher{failures: 5}
	p := pipeline.New(&mockExtractor{source: sampleSource()}, &mockLoader{}, pub,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{Cluster: cluster.Options{K: 2}, PublishAttempts: 2})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, 2, pub.calls)
}

func TestPipeline_Run_PublishStopsOnCancel(t *testing.T) {
	pub := &mockPublisher{failures: 5}
	ctx, cancel := context.WithCancel(context.Background())
	p := pipeline.New(&mockExtractor{source: sampleSource()}, &cancelOnWrite{cancel: cancel}, pub,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{Cluster: cluster.Options{K: 2}, PublishAttempts: 5})

	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, pub.calls)
}

// cancelOnWrite cancels the build context once the clustered table is written.
type cancelOnWrite struct {
	mockLoader
	cancel context.CancelFunc
}

func (c *cancelOnWrite) WriteClustered(ctx context.Context, header []string, s []domain.Sighting, a map[int]int) error {
	c.cancel()
	return c.mockLoader.WriteClustered(ctx, header, s, a)
}

func TestPipeline_Dataset(t *testing.T) {
	src := sampleSource()
	p := pipeline.New(&mockExtractor{source: src}, &mockLoader{}, nil,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})

	t.Run("without reader", func(t *testing.T) {
		ds, err := p.Dataset(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 5, ds.Index().Len())
		assert.False(t, ds.HasClusters())
	})

	t.Run("with clustered snapshot", func(t *testing.T) {
		reader := &mockClusteredReader{snap: &snapshot.Clustered{
			Records:  src.Records[:2],
			Clusters: []int{1, 0},
		}}
		ds, err := p.Dataset(context.Background(), reader)
		require.NoError(t, err)
		require.True(t, ds.HasClusters())

		got := ds.Clustered(2001)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].ClusterID)
		assert.Equal(t, "alpha", got[0].Location)
		assert.Equal(t, 0, got[1].ClusterID)
	})

	t.Run("missing clustered snapshot", func(t *testing.T) {
		ds, err := p.Dataset(context.Background(), &mockClusteredReader{err: errors.New("open snapshot: no such file")})
		require.NoError(t, err)
		assert.False(t, ds.HasClusters())
	})

	t.Run("extract error", func(t *testing.T) {
		failing := pipeline.New(&mockExtractor{err: errors.New("gone")}, &mockLoader{}, nil,
			discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})
		_, err := failing.Dataset(context.Background(), nil)
		require.Error(t, err)
	})
}

// --- helpers ---

func sampleSource() *snapshot.Source {
	return &snapshot.Source{
		Header: snapshot.RequiredColumns,
		Records: []domain.RawRecord{
			{Datetime: "3/1/2001 20:00", Latitude: "47.6", Longitude: "-122.3", City: "alpha", Shape: "disk", Duration: "60"},
			{Datetime: "3/2/2001 21:00", Latitude: "47.7", Longitude: "-122.4", City: "beta", Shape: "light", Duration: "120"},
			{Datetime: "4/2/2002 22:00", Latitude: "25.7", Longitude: "-80.2", City: "gamma", Shape: "orb", Duration: "soon"},
			{Datetime: "5/2/2002 23:00", Latitude: "25.8", Longitude: "-80.1", City: "delta", Shape: "disk", Duration: "30"},
			{Datetime: "6/2/2003 01:00", City: "epsilon", Shape: "cigar", Duration: "5"},
		},
	}
}
