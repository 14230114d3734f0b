package snapshot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
)

// Records lifts each row into a RawRecord. Columns other than the required
// ones (and the cluster column) are copied into Extra.
func (t *Table) Records() ([]domain.RawRecord, error) {
	if err := t.Require(RequiredColumns...); err != nil {
		return nil, err
	}
	dt, lat, lon := t.Column(ColDatetime), t.Column(ColLatitude), t.Column(ColLongitude)
	city, shape, dur := t.Column(ColCity), t.Column(ColShape), t.Column(ColDuration)

	extras := t.extraColumns()
	out := make([]domain.RawRecord, len(t.Rows))
	for i, row := range t.Rows {
		rec := domain.RawRecord{
			Datetime:  row[dt],
			Latitude:  row[lat],
			Longitude: row[lon],
			City:      row[city],
			Shape:     row[shape],
			Duration:  row[dur],
		}
		if len(extras) > 0 {
			rec.Extra = make(map[string]string, len(extras))
			for _, c := range extras {
				rec.Extra[t.Header[c]] = row[c]
			}
		}
		out[i] = rec
	}
	return out, nil
}

// ClusterIDs parses the cluster column. Every row must carry an integer id.
func (t *Table) ClusterIDs() ([]int, error) {
	if err := t.Require(ColCluster); err != nil {
		return nil, err
	}
	col := t.Column(ColCluster)
	ids := make([]int, len(t.Rows))
	for i, row := range t.Rows {
		id, err := strconv.Atoi(strings.TrimSpace(row[col]))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("row %d: invalid cluster id %q", i+1, row[col])
		}
		ids[i] = id
	}
	return ids, nil
}

func (t *Table) extraColumns() []int {
	known := map[string]bool{ColCluster: true}
	for _, c := range RequiredColumns {
		known[c] = true
	}
	var extras []int
	for i, h := range t.Header {
		if !known[h] {
			extras = append(extras, i)
		}
	}
	return extras
}

// NormalizedTable renders sightings back into header's column layout using
// their normalized values. Absent values become empty cells.
func NormalizedTable(header []string, sightings []domain.Sighting) *Table {
	t := &Table{Header: withoutColumn(header, ColCluster), Rows: make([][]string, len(sightings))}
	for i := range sightings {
		t.Rows[i] = renderRow(t.Header, &sightings[i])
	}
	return t
}

// ClusteredTable is NormalizedTable plus a trailing cluster column, limited to
// the sightings present in assignments (keyed by slice index).
func ClusteredTable(header []string, sightings []domain.Sighting, assignments map[int]int) *Table {
	base := withoutColumn(header, ColCluster)
	t := &Table{Header: append(base, ColCluster), Rows: make([][]string, 0, len(assignments))}
	for i := range sightings {
		c, ok := assignments[i]
		if !ok {
			continue
		}
		row := renderRow(base, &sightings[i])
		t.Rows = append(t.Rows, append(row, strconv.Itoa(c)))
	}
	return t
}

func renderRow(header []string, s *domain.Sighting) []string {
	row := make([]string, len(header))
	for i, col := range header {
		switch col {
		case ColDatetime:
			row[i] = domain.FormatTimestamp(s.Timestamp)
		case ColLatitude:
			row[i] = formatFloat(s.Latitude)
		case ColLongitude:
			row[i] = formatFloat(s.Longitude)
		case ColCity:
			row[i] = s.Location
		case ColShape:
			row[i] = s.Shape
		case ColDuration:
			row[i] = formatFloat(s.DurationSeconds)
		default:
			row[i] = s.Extra[col]
		}
	}
	return row
}

func withoutColumn(header []string, name string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		if h != name {
			out = append(out, h)
		}
	}
	return out
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
