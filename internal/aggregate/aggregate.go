package aggregate

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
)

// DefaultN is the number of entries returned when n <= 0.
const DefaultN = 5

// Field is a categorical sighting attribute to group by.
type Field int

const (
	FieldLocation Field = iota
	FieldShape
)

func (f Field) value(s domain.Sighting) string {
	if f == FieldShape {
		return s.Shape
	}
	return s.Location
}

// Entry is one ranked category.
type Entry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// group accumulates one category in first-encounter order.
type group struct {
	label string
	sum   float64
	n     int
}

// Run executes the ranking selected by mode over subset.
func Run(mode Mode, subset []domain.Sighting, n int) ([]Entry, error) {
	switch mode {
	case TopLocations:
		return TopByCount(subset, FieldLocation, n), nil
	case UfoShapes:
		return TopByCount(subset, FieldShape, n), nil
	case AvgDuration:
		return TopByMeanDuration(subset, n), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
}

// TopByCount returns the n most frequent values of field in subset, highest
// first. Ties keep the order in which the values first appear. Empty labels
// are not counted.
func TopByCount(subset []domain.Sighting, field Field, n int) []Entry {
	groups := groupBy(subset, field, func(domain.Sighting) (float64, bool) { return 1, true })
	entries := make([]Entry, 0, len(groups))
	for _, g := range groups {
		entries = append(entries, Entry{Label: g.label, Value: float64(g.n)})
	}
	return rank(entries, n)
}

// TopByMeanDuration returns the n locations with the highest mean duration,
// highest first. Sightings without a duration are left out of both the sum
// and the count; a location with none at all is left out entirely.
func TopByMeanDuration(subset []domain.Sighting, n int) []Entry {
	groups := groupBy(subset, FieldLocation, func(s domain.Sighting) (float64, bool) {
		if s.DurationSeconds == nil {
			return 0, false
		}
		return *s.DurationSeconds, true
	})
	entries := make([]Entry, 0, len(groups))
	for _, g := range groups {
		if g.n == 0 {
			continue
		}
		entries = append(entries, Entry{Label: g.label, Value: g.sum / float64(g.n)})
	}
	return rank(entries, n)
}

// groupBy buckets subset by field in first-encounter order. measure returns
// the value to add and whether the sighting contributes to the group's count.
func groupBy(subset []domain.Sighting, field Field, measure func(domain.Sighting) (float64, bool)) []*group {
	byLabel := make(map[string]*group)
	var order []*group
	for _, s := range subset {
		label := field.value(s)
		if label == "" {
			continue
		}
		g, ok := byLabel[label]
		if !ok {
			g = &group{label: label}
			byLabel[label] = g
			order = append(order, g)
		}
		if v, ok := measure(s); ok {
			g.sum += v
			g.n++
		}
	}
	return order
}

// rank sorts entries by value descending, keeping input order among equal
// values, and truncates to n (DefaultN when n <= 0).
func rank(entries []Entry, n int) []Entry {
	if n <= 0 {
		n = DefaultN
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
