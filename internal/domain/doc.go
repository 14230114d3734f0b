// Package domain models reported UFO sighting records.
//
// # Data Source
//
// Sightings come from the National UFO Reporting Center (NUFORC) export, a
// comma-delimited table with one report per row. The columns read here are:
//
//	datetime            "MM/DD/YYYY HH:MM", 24-hour, local time of the report
//	latitude, longitude decimal degrees
//	city                free-form location label
//	ufo_shape           free-form shape label ("circle", "disk", "light", ...)
//	encounter_duration  seconds, numeric
//
// Every other column is carried through untouched in [RawRecord.Extra].
//
// # Absent Values
//
// The export is hand-entered and noisy. A value that does not parse is not
// coerced to zero; the corresponding [Sighting] field is left nil. Zero would
// drag down duration averages and pull cluster centroids toward (0, 0).
//
// Time format:
//
//	Month, day and hour may be one or two digits: "6/7/2004 9:05" is valid.
//	Minutes are always two digits. "24:00" appears in the source and is
//	rejected, leaving the timestamp and year absent.
//
// Coordinates outside [-90, 90] / [-180, 180] and negative durations are
// treated like unparseable values.
//
// # Parse Warnings
//
// [Normalize] never fails. Each degraded field yields a [ParseWarning] so the
// caller can log or count it; the row itself is always kept.
//
// # ID Generation
//
// Sighting IDs are truncated SHA-256 hashes of datetime|lat|lon|city|shape
// taken from the raw strings. Identical rows hash to the same ID, so the row
// position is kept alongside in [Sighting.Row]. See [generateID].
package domain
