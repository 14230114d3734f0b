// Package timeindex groups a sighting table by calendar year.
package timeindex

import (
	"sort"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
)

// Index maps each year to the positions of its sightings in the owning table.
// It is built once and never mutated, so concurrent readers need no locking.
type Index struct {
	table   []domain.Sighting
	byYear  map[int][]int
	years   []int
	unknown int
}

// New builds an index over sightings in a single pass plus a sort of the
// distinct years. The slice is referenced, not copied; callers must not
// modify it afterwards.
func New(sightings []domain.Sighting) *Index {
	idx := &Index{
		table:  sightings,
		byYear: make(map[int][]int),
	}
	for i := range sightings {
		if sightings[i].Year == nil {
			idx.unknown++
			continue
		}
		y := *sightings[i].Year
		if _, ok := idx.byYear[y]; !ok {
			idx.years = append(idx.years, y)
		}
		idx.byYear[y] = append(idx.byYear[y], i)
	}
	sort.Ints(idx.years)
	return idx
}

// Len returns the size of the full table, including rows without a year.
func (idx *Index) Len() int { return len(idx.table) }

// Unknown returns the number of rows whose year could not be determined.
func (idx *Index) Unknown() int { return idx.unknown }

// Table returns the indexed sightings. The slice must be treated as read-only.
func (idx *Index) Table() []domain.Sighting { return idx.table }

// Years returns the distinct years present, ascending.
func (idx *Index) Years() []int {
	out := make([]int, len(idx.years))
	copy(out, idx.years)
	return out
}

// Count returns the number of sightings in year y.
func (idx *Index) Count(y int) int {
	return len(idx.byYear[y])
}

// FilterByYear returns the sightings reported in year y in table order.
// Unknown years yield an empty slice.
func (idx *Index) FilterByYear(y int) []domain.Sighting {
	positions := idx.byYear[y]
	out := make([]domain.Sighting, len(positions))
	for i, p := range positions {
		out[i] = idx.table[p]
	}
	return out
}

// CumulativeCounts returns the per-year count for every indexed year up to
// and including y, ascending. Each entry is that year's own count; the series
// grows with y but the values are not summed.
func (idx *Index) CumulativeCounts(y int) []domain.YearCount {
	n := sort.Search(len(idx.years), func(i int) bool { return idx.years[i] > y })
	out := make([]domain.YearCount, n)
	for i, year := range idx.years[:n] {
		out[i] = domain.YearCount{Year: year, Count: len(idx.byYear[year])}
	}
	return out
}
