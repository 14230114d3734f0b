// Package aggregate ranks categories of a sighting subset by count or by mean
// duration.
package aggregate

import (
	"errors"
	"fmt"
)

// ErrInvalidMode is returned for an aggregation mode outside the known set.
var ErrInvalidMode = errors.New("invalid aggregation mode")

// Mode selects which ranking Run computes.
type Mode int

const (
	// TopLocations counts sightings per location.
	TopLocations Mode = iota + 1
	// UfoShapes counts sightings per reported shape.
	UfoShapes
	// AvgDuration averages encounter duration per location.
	AvgDuration
)

var modeNames = map[Mode]string{
	TopLocations: "top_locations",
	UfoShapes:    "ufo_shapes",
	AvgDuration:  "avg_duration",
}

var modeTitles = map[Mode]string{
	TopLocations: "Top Locations",
	UfoShapes:    "Ufo Shapes",
	AvgDuration:  "Avg Duration",
}

// Modes lists every valid mode in display order.
func Modes() []Mode {
	return []Mode{TopLocations, UfoShapes, AvgDuration}
}

// ParseMode maps a wire name such as "top_locations" to its Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Title returns the chart title of the mode, e.g. "Top Locations".
func (m Mode) Title() string {
	return modeTitles[m]
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}
