package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the expected datetime format: month/day/year hour:minute.
const TimestampLayout = "1/2/2006 15:04"

// Field names reported in ParseWarnings. They match the source column names.
const (
	FieldDatetime  = "datetime"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldDuration  = "encounter_duration"
)

// ParseWarning describes one field of one row that could not be parsed.
// The row is still part of the normalized table with that field absent.
type ParseWarning struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (w ParseWarning) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", w.Row, w.Field, w.Value, w.Reason)
}

// Normalize parses raw rows into sightings. Output order matches input order
// and no rows are dropped; unparseable fields become nil and are reported as
// warnings.
func Normalize(rows []RawRecord) ([]Sighting, []ParseWarning) {
	sightings := make([]Sighting, len(rows))
	var warnings []ParseWarning

	for i, rec := range rows {
		s, w := normalizeRecord(i, rec)
		sightings[i] = s
		warnings = append(warnings, w...)
	}
	return sightings, warnings
}

func normalizeRecord(row int, rec RawRecord) (Sighting, []ParseWarning) {
	var warnings []ParseWarning
	warn := func(field, value, reason string) {
		warnings = append(warnings, ParseWarning{Row: row, Field: field, Value: value, Reason: reason})
	}

	s := Sighting{
		ID:       generateID(rec.Datetime, rec.Latitude, rec.Longitude, rec.City, rec.Shape),
		Row:      row,
		Location: strings.TrimSpace(rec.City),
		Shape:    strings.TrimSpace(rec.Shape),
		Extra:    rec.Extra,
	}

	if ts, err := ParseTimestamp(rec.Datetime); err != nil {
		warn(FieldDatetime, rec.Datetime, err.Error())
	} else if ts != nil {
		year := ts.Year()
		s.Timestamp = ts
		s.Year = &year
	}

	var err error
	if s.Latitude, err = parseBoundedFloat(rec.Latitude, -90, 90); err != nil {
		warn(FieldLatitude, rec.Latitude, err.Error())
	}
	if s.Longitude, err = parseBoundedFloat(rec.Longitude, -180, 180); err != nil {
		warn(FieldLongitude, rec.Longitude, err.Error())
	}
	if s.DurationSeconds, err = parseBoundedFloat(rec.Duration, 0, math.MaxFloat64); err != nil {
		warn(FieldDuration, rec.Duration, err.Error())
	}

	return s, warnings
}

// ParseTimestamp parses a datetime in TimestampLayout as UTC. It returns
// (nil, nil) for an empty string.
func ParseTimestamp(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &t, nil
}

// FormatTimestamp renders a timestamp the way the source writes it, with
// zero-padded fields. Nil renders as an empty string.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("01/02/2006 15:04")
}

// parseBoundedFloat parses s as a finite float within [lo, hi]. Empty input
// yields (nil, nil): missing is absent but not worth a warning.
func parseBoundedFloat(s string, lo, hi float64) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New("not finite")
	}
	if v < lo || v > hi {
		return nil, fmt.Errorf("out of range [%g, %g]", lo, hi)
	}
	return &v, nil
}

// generateID produces a deterministic ID from the row's raw key fields.
func generateID(datetime, lat, lon, city, shape string) string {
	input := strings.Join([]string{
		strings.TrimSpace(datetime),
		strings.TrimSpace(lat),
		strings.TrimSpace(lon),
		strings.TrimSpace(city),
		strings.TrimSpace(shape),
	}, "|")
	hash := sha256.Sum256([]byte(input))
	return "sighting-" + hex.EncodeToString(hash[:8])
}
