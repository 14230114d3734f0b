package domain

import "time"

// RawRecord is one ingested row before any parsing. Known columns are lifted
// into named fields; everything else is kept in Extra keyed by column name.
type RawRecord struct {
	Datetime  string
	Latitude  string
	Longitude string
	City      string
	Shape     string
	Duration  string

	Extra map[string]string
}

// Sighting is the normalized form of a RawRecord. Nil pointers mean the value
// was missing or unparseable.
type Sighting struct {
	ID  string `json:"id"`
	Row int    `json:"row"`

	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Year            *int       `json:"year,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Location        string     `json:"location"`
	Shape           string     `json:"shape"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`

	Extra map[string]string `json:"-"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (s Sighting) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// HasYear reports whether the timestamp parsed.
func (s Sighting) HasYear() bool {
	return s.Year != nil
}

// YearCount is the number of sightings reported in one calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// ClusteredSighting pairs a sighting with the cluster it was assigned to.
type ClusteredSighting struct {
	Sighting
	ClusterID int `json:"cluster_id"`
}
