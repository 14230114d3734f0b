package mockdata_test

import (
	"testing"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/mockdata"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	opts := mockdata.Options{Rows: 50, Seed: 7, FirstYear: 2000, LastYear: 2005}

	a, err := mockdata.Generate(opts)
	require.NoError(t, err)
	b, err := mockdata.Generate(opts)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same options produced different tables (-a +b):\n%s", diff)
	}

	opts.Seed = 8
	c, err := mockdata.Generate(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Rows, c.Rows)
}

func TestGenerate_DefectsAndShape(t *testing.T) {
	tbl, err := mockdata.Generate(mockdata.Options{Rows: 200, Seed: 1, FirstYear: 1990, LastYear: 1999})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 200)
	for _, row := range tbl.Rows {
		require.Len(t, row, len(mockdata.Header))
	}

	recs, err := tbl.Records()
	require.NoError(t, err)
	sightings, warnings := domain.Normalize(recs)
	require.Len(t, sightings, 200)

	byField := map[string]int{}
	for _, w := range warnings {
		byField[w.Field]++
	}
	assert.Equal(t, 200/23, byField[domain.FieldDatetime])
	assert.Equal(t, 200/29, byField[domain.FieldDuration])

	withCoords := 0
	for _, s := range sightings {
		if s.HasCoordinates() {
			withCoords++
		}
		if s.Year != nil {
			assert.GreaterOrEqual(t, *s.Year, 1990)
			assert.LessOrEqual(t, *s.Year, 1999)
		}
	}
	assert.Equal(t, 200-200/17, withCoords)
}

func TestGenerate_InvalidOptions(t *testing.T) {
	_, err := mockdata.Generate(mockdata.Options{Rows: -1})
	require.Error(t, err)

	_, err = mockdata.Generate(mockdata.Options{Rows: 1, FirstYear: 2001, LastYear: 2000})
	require.Error(t, err)
}
