// Package analytics serves the derived tables of one immutable sighting
// dataset: year list, map points, top-N rankings, the yearly time series and
// cluster assignments.
package analytics

import (
	"time"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/timeindex"
	"github.com/google/uuid"
)

// Dataset is one fully materialized load of the sighting table. It is never
// mutated; a reload builds a new Dataset.
type Dataset struct {
	ID       string
	LoadedAt time.Time

	index     *timeindex.Index
	clustered []domain.ClusteredSighting
	byYear    map[int][]int // positions in clustered
}

// NewDataset indexes sightings by year. clustered holds the precomputed
// cluster snapshot and may be nil.
func NewDataset(sightings []domain.Sighting, clustered []domain.ClusteredSighting) *Dataset {
	ds := &Dataset{
		ID:        uuid.NewString(),
		LoadedAt:  clock.Now(),
		index:     timeindex.New(sightings),
		clustered: clustered,
		byYear:    make(map[int][]int),
	}
	for i := range clustered {
		if y := clustered[i].Year; y != nil {
			ds.byYear[*y] = append(ds.byYear[*y], i)
		}
	}
	return ds
}

// Index exposes the temporal index.
func (ds *Dataset) Index() *timeindex.Index { return ds.index }

// Sightings returns the full table, including rows without a year.
func (ds *Dataset) Sightings() []domain.Sighting { return ds.index.Table() }

// HasClusters reports whether a cluster snapshot is attached.
func (ds *Dataset) HasClusters() bool { return ds.clustered != nil }

// Clustered returns the clustered rows of year y in snapshot order.
func (ds *Dataset) Clustered(y int) []domain.ClusteredSighting {
	positions := ds.byYear[y]
	out := make([]domain.ClusteredSighting, len(positions))
	for i, p := range positions {
		out[i] = ds.clustered[p]
	}
	return out
}

// WithClusters returns a copy of ds sharing its identity, table and index but
// carrying a different cluster snapshot.
func (ds *Dataset) WithClusters(clustered []domain.ClusteredSighting) *Dataset {
	next := NewDataset(nil, clustered)
	next.ID = ds.ID
	next.LoadedAt = ds.LoadedAt
	next.index = ds.index
	return next
}

// JoinClusters pairs sightings with their assignment. Sightings without one
// are left out, mirroring the on-disk clustered snapshot.
func JoinClusters(sightings []domain.Sighting, assignments map[int]int) []domain.ClusteredSighting {
	out := make([]domain.ClusteredSighting, 0, len(assignments))
	for i := range sightings {
		if c, ok := assignments[i]; ok {
			out = append(out, domain.ClusteredSighting{Sighting: sightings[i], ClusterID: c})
		}
	}
	return out
}
