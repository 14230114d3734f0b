package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCity  = "san marcos"
	testShape = "cylinder"
)

func TestNormalize(t *testing.T) {
	t.Run("well-formed row", func(t *testing.T) {
		rows := []RawRecord{{
			Datetime:  "10/10/1949 20:30",
			Latitude:  "29.8830556",
			Longitude: "-97.9411111",
			City:      " " + testCity + " ",
			Shape:     testShape,
			Duration:  "2700",
			Extra:     map[string]string{"country": "us"},
		}}

		sightings, warnings := Normalize(rows)

		require.Len(t, sightings, 1)
		assert.Empty(t, warnings)
		s := sightings[0]
		require.NotNil(t, s.Timestamp)
		assert.Equal(t, time.Date(1949, 10, 10, 20, 30, 0, 0, time.UTC), *s.Timestamp)
		require.NotNil(t, s.Year)
		assert.Equal(t, 1949, *s.Year)
		require.True(t, s.HasCoordinates())
		assert.InDelta(t, 29.8830556, *s.Latitude, 1e-9)
		assert.InDelta(t, -97.9411111, *s.Longitude, 1e-9)
		assert.Equal(t, testCity, s.Location)
		assert.Equal(t, testShape, s.Shape)
		require.NotNil(t, s.DurationSeconds)
		assert.Equal(t, 2700.0, *s.DurationSeconds)
		assert.Equal(t, "us", s.Extra["country"])
		assert.True(t, strings.HasPrefix(s.ID, "sighting-"))
		assert.Equal(t, 0, s.Row)
	})

	t.Run("malformed fields degrade to absent", func(t *testing.T) {
		rows := []RawRecord{{
			Datetime:  "10/10/1949 24:00",
			Latitude:  "33q.200088",
			Longitude: "NaN",
			City:      "lackland afb",
			Shape:     "light",
			Duration:  "-5",
		}}

		sightings, warnings := Normalize(rows)

		require.Len(t, sightings, 1)
		s := sightings[0]
		assert.Nil(t, s.Timestamp)
		assert.Nil(t, s.Year)
		assert.Nil(t, s.Latitude)
		assert.Nil(t, s.Longitude)
		assert.Nil(t, s.DurationSeconds)
		assert.False(t, s.HasYear())
		assert.False(t, s.HasCoordinates())
		assert.Equal(t, "lackland afb", s.Location)

		fields := make([]string, 0, len(warnings))
		for _, w := range warnings {
			assert.Equal(t, 0, w.Row)
			fields = append(fields, w.Field)
		}
		assert.Equal(t, []string{FieldDatetime, FieldLatitude, FieldLongitude, FieldDuration}, fields)
	})

	t.Run("empty fields are absent without warnings", func(t *testing.T) {
		sightings, warnings := Normalize([]RawRecord{{}})

		require.Len(t, sightings, 1)
		assert.Empty(t, warnings)
		assert.Nil(t, sightings[0].Year)
		assert.Nil(t, sightings[0].Latitude)
		assert.Nil(t, sightings[0].DurationSeconds)
	})

	t.Run("preserves order and keeps duplicates", func(t *testing.T) {
		row := RawRecord{Datetime: "1/1/2000 1:00", City: "a"}
		bad := RawRecord{Datetime: "garbage", City: "b"}

		sightings, warnings := Normalize([]RawRecord{row, bad, row})

		require.Len(t, sightings, 3)
		assert.Len(t, warnings, 1)
		assert.Equal(t, 1, warnings[0].Row)
		assert.Equal(t, []string{"a", "b", "a"}, []string{sightings[0].Location, sightings[1].Location, sightings[2].Location})
		assert.Equal(t, sightings[0].ID, sightings[2].ID)
		assert.Equal(t, 2, sightings[2].Row)
	})

	t.Run("nil input", func(t *testing.T) {
		sightings, warnings := Normalize(nil)
		assert.Empty(t, sightings)
		assert.Empty(t, warnings)
	})
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected *time.Time
		wantErr  bool
	}{
		{"zero padded", "04/26/2024 15:10", ptr(time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)), false},
		{"single digit fields", "6/7/2004 9:05", ptr(time.Date(2004, 6, 7, 9, 5, 0, 0, time.UTC)), false},
		{"surrounding whitespace", "  12/31/1999 23:59 ", ptr(time.Date(1999, 12, 31, 23, 59, 0, 0, time.UTC)), false},
		{"empty", "", nil, false},
		{"hour 24", "10/10/1949 24:00", nil, true},
		{"ISO format", "2024-04-26T15:10:00Z", nil, true},
		{"date only", "04/26/2024", nil, true},
		{"trailing seconds", "04/26/2024 15:10:00", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimestamp(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "parse timestamp")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2004, 6, 7, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "06/07/2004 09:05", FormatTimestamp(&ts))
	assert.Empty(t, FormatTimestamp(nil))

	parsed, err := ParseTimestamp(FormatTimestamp(&ts))
	require.NoError(t, err)
	assert.Equal(t, ts, *parsed)
}

func TestParseBoundedFloat(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    *float64
		wantErr bool
	}{
		{"integer", "42", ptr(42.0), false},
		{"decimal with spaces", " -45.5 ", ptr(-45.5), false},
		{"lower bound", "-90", ptr(-90.0), false},
		{"empty", "", nil, false},
		{"text", "abc", nil, true},
		{"infinite", "+Inf", nil, true},
		{"below range", "-90.01", nil, true},
		{"above range", "91", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBoundedFloat(tt.value, -90, 90)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("longitude range", func(t *testing.T) {
		got, err := parseBoundedFloat(" -97.5 ", -180, 180)
		require.NoError(t, err)
		assert.Equal(t, ptr(-97.5), got)

		_, err = parseBoundedFloat(" -97.5 ", -90, 90)
		require.Error(t, err)
	})
}

func TestGenerateID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := generateID("10/10/1949 20:30", "29.88", "-97.94", testCity, testShape)
		id2 := generateID("10/10/1949 20:30", "29.88", "-97.94", testCity, testShape)
		assert.Equal(t, id1, id2)
	})

	t.Run("ignores surrounding whitespace", func(t *testing.T) {
		id1 := generateID("10/10/1949 20:30", "29.88", "-97.94", testCity, testShape)
		id2 := generateID(" 10/10/1949 20:30", "29.88 ", "-97.94", " "+testCity, testShape)
		assert.Equal(t, id1, id2)
	})

	t.Run("different inputs produce different IDs", func(t *testing.T) {
		id1 := generateID("10/10/1949 20:30", "29.88", "-97.94", testCity, testShape)
		id2 := generateID("10/10/1949 20:31", "29.88", "-97.94", testCity, testShape)
		assert.NotEqual(t, id1, id2)
	})
}

func ptr[T any](v T) *T { return &v }
