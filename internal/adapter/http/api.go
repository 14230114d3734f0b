package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/sighting-analytics-service/internal/aggregate"
	"github.com/couchcryptid/sighting-analytics-service/internal/analytics"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
)

type yearsResponse struct {
	Years   []int `json:"years"`
	Min     *int  `json:"min,omitempty"`
	Max     *int  `json:"max,omitempty"`
	Default *int  `json:"default,omitempty"`
}

type mapResponse struct {
	Year   int                  `json:"year"`
	Title  string               `json:"title"`
	Total  int                  `json:"total"`
	Points []analytics.MapPoint `json:"points"`
}

type topResponse struct {
	Year    int               `json:"year"`
	Mode    string            `json:"mode"`
	Title   string            `json:"title"`
	Entries []aggregate.Entry `json:"entries"`
}

type timeSeriesResponse struct {
	UpTo   int                `json:"up_to"`
	Series []domain.YearCount `json:"series"`
}

type clustersResponse struct {
	Year   int                      `json:"year"`
	Title  string                   `json:"title"`
	Points []analytics.ClusterPoint `json:"points"`
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	years := s.api.Years()
	resp := yearsResponse{Years: years}
	if len(years) > 0 {
		lo, hi := years[0], years[len(years)-1]
		resp.Min, resp.Max, resp.Default = &lo, &hi, &hi
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}
	total := s.api.Count(year)
	writeJSON(w, http.StatusOK, mapResponse{
		Year:   year,
		Title:  fmt.Sprintf("UFO Sightings in %d: %d", year, total),
		Total:  total,
		Points: s.api.MapPoints(year),
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}

	mode := aggregate.TopLocations
	if raw := r.URL.Query().Get("mode"); raw != "" {
		m, err := aggregate.ParseMode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		mode = m
	}

	n := s.topN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid n %q: must be a positive integer", raw))
			return
		}
		n = v
	}

	entries, err := s.api.Top(mode, year, n)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, aggregate.ErrInvalidMode) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("top query failed", "error", err, "mode", mode.String(), "year", year)
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, topResponse{
		Year:    year,
		Mode:    mode.String(),
		Title:   fmt.Sprintf("%s in %d", mode.Title(), year),
		Entries: entries,
	})
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	upTo, ok := s.yearParam(w, r, "up_to")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, timeSeriesResponse{UpTo: upTo, Series: s.api.TimeSeries(upTo)})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, clustersResponse{
		Year:   year,
		Title:  fmt.Sprintf("K-means Clustering of UFO Sightings in %d", year),
		Points: s.api.Clusters(year),
	})
}

// yearParam reads an integer year from the query. An absent value defaults to
// the latest indexed year. On a malformed value it writes a 400 and returns
// false.
func (s *Server) yearParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		years := s.api.Years()
		if len(years) == 0 {
			return 0, true
		}
		return years[len(years)-1], true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s %q: must be an integer", name, raw))
		return 0, false
	}
	return year, true
}
