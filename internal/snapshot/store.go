package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
)

// Store binds the three snapshot files of one dataset: the raw source, the
// normalized table and the cluster-augmented table. Empty paths disable the
// corresponding write.
type Store struct {
	SourcePath     string
	NormalizedPath string
	ClusteredPath  string
}

// Source is the raw table together with its parsed records.
type Source struct {
	Header  []string
	Records []domain.RawRecord
}

// Clustered is a cluster-augmented table read back from disk.
type Clustered struct {
	Records  []domain.RawRecord
	Clusters []int
}

// Extract reads and lifts the raw source table.
func (s *Store) Extract(ctx context.Context) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := ReadTable(s.SourcePath)
	if err != nil {
		return nil, err
	}
	recs, err := t.Records()
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.SourcePath, err)
	}
	return &Source{Header: t.Header, Records: recs}, nil
}

// WriteNormalized replaces the normalized snapshot.
func (s *Store) WriteNormalized(ctx context.Context, header []string, sightings []domain.Sighting) error {
	if s.NormalizedPath == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteTable(s.NormalizedPath, NormalizedTable(header, sightings))
}

// WriteClustered replaces the cluster-augmented snapshot.
func (s *Store) WriteClustered(ctx context.Context, header []string, sightings []domain.Sighting, assignments map[int]int) error {
	if s.ClusteredPath == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteTable(s.ClusteredPath, ClusteredTable(header, sightings, assignments))
}

// ReadClustered loads the cluster-augmented snapshot.
func (s *Store) ReadClustered(ctx context.Context) (*Clustered, error) {
	if s.ClusteredPath == "" {
		return nil, errors.New("no clustered snapshot configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := ReadTable(s.ClusteredPath)
	if err != nil {
		return nil, err
	}
	recs, err := t.Records()
	if err != nil {
		return nil, fmt.Errorf("clustered %s: %w", s.ClusteredPath, err)
	}
	ids, err := t.ClusterIDs()
	if err != nil {
		return nil, fmt.Errorf("clustered %s: %w", s.ClusteredPath, err)
	}
	return &Clustered{Records: recs, Clusters: ids}, nil
}
