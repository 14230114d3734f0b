// Package mockdata generates deterministic synthetic sighting tables shaped
// like the NUFORC export. A fixed share of rows carries the defects found in
// the real file so parsers and clustering see realistic input.
package mockdata

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
)

// Header is the column layout of generated tables.
var Header = []string{
	snapshot.ColDatetime,
	snapshot.ColCity,
	"state",
	"country",
	snapshot.ColShape,
	snapshot.ColDuration,
	"described_duration",
	snapshot.ColLatitude,
	snapshot.ColLongitude,
}

type place struct {
	city, state string
	lat, lon    float64
}

var places = []place{
	{"seattle", "wa", 47.6063889, -122.3308333},
	{"portland", "or", 45.5236111, -122.675},
	{"phoenix", "az", 33.4483333, -112.0733333},
	{"los angeles", "ca", 34.0522222, -118.2427778},
	{"chicago", "il", 41.85, -87.65},
	{"new york city", "ny", 40.7141667, -74.0063889},
	{"houston", "tx", 29.7630556, -95.3630556},
	{"miami", "fl", 25.7738889, -80.1938889},
	{"denver", "co", 39.7391667, -104.9841667},
	{"roswell", "nm", 33.3941667, -104.5225},
}

var shapes = []string{"light", "circle", "triangle", "fireball", "disk", "sphere", "oval", "cigar", "unknown", ""}

// Every n-th row carries one defect.
const (
	missingCoordsEvery = 17
	badTimeEvery       = 23
	badDurationEvery   = 29
)

// Options controls generation.
type Options struct {
	Rows      int
	Seed      uint64
	FirstYear int
	LastYear  int
}

// Generate builds a table of opts.Rows synthetic sightings. The same options
// always produce the same table.
func Generate(opts Options) (*snapshot.Table, error) {
	if opts.Rows < 0 {
		return nil, fmt.Errorf("rows must not be negative, got %d", opts.Rows)
	}
	if opts.LastYear < opts.FirstYear {
		return nil, fmt.Errorf("last year %d precedes first year %d", opts.LastYear, opts.FirstYear)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	years := opts.LastYear - opts.FirstYear + 1

	t := &snapshot.Table{Header: Header, Rows: make([][]string, opts.Rows)}
	for i := range t.Rows {
		n := i + 1
		p := places[rng.IntN(len(places))]
		year := opts.FirstYear + rng.IntN(years)
		month, day := 1+rng.IntN(12), 1+rng.IntN(28)
		hour, minute := rng.IntN(24), rng.IntN(60)
		seconds := 5 * (1 + rng.IntN(240))

		datetime := fmt.Sprintf("%d/%d/%d %02d:%02d", month, day, year, hour, minute)
		if n%badTimeEvery == 0 {
			datetime = fmt.Sprintf("%d/%d/%d 24:00", month, day, year)
		}
		duration := strconv.Itoa(seconds)
		if n%badDurationEvery == 0 {
			duration = "a few"
		}
		lat := strconv.FormatFloat(p.lat+jitter(rng), 'f', 7, 64)
		lon := strconv.FormatFloat(p.lon+jitter(rng), 'f', 7, 64)
		if n%missingCoordsEvery == 0 {
			lat, lon = "", ""
		}

		t.Rows[i] = []string{
			datetime,
			p.city,
			p.state,
			"us",
			shapes[rng.IntN(len(shapes))],
			duration,
			describe(seconds),
			lat,
			lon,
		}
	}
	return t, nil
}

// jitter spreads points up to half a degree around a city.
func jitter(rng *rand.Rand) float64 {
	return rng.Float64() - 0.5
}

func describe(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	return fmt.Sprintf("%d minutes", seconds/60)
}
