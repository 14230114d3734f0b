// Package cluster partitions sightings into k geographic groups with k-means
// over standardized latitude/longitude.
//
// Each dimension is centred on its mean and divided by its population
// standard deviation (the divisor is n, not n-1). A dimension with zero
// variance is only centred. Centroids are seeded with k-means++ from a PCG
// source keyed by Options.Seed, so the same input and seed always produce the
// same assignment.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
)

// Defaults mirror the offline clustering job.
const (
	DefaultK             = 5
	DefaultSeed          = 42
	DefaultMaxIterations = 300
)

var (
	// ErrInvalidParameter is returned for k <= 0 or a negative iteration cap.
	ErrInvalidParameter = errors.New("invalid clustering parameter")
	// ErrInsufficientData is returned when fewer usable points than k remain.
	ErrInsufficientData = errors.New("insufficient data for clustering")
)

// Options configures a clustering run. A zero MaxIterations means
// DefaultMaxIterations.
type Options struct {
	K             int
	Seed          int64
	MaxIterations int
}

// Point is a position in standardized (lat, lon) space.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Scaler holds the per-dimension standardization parameters of one run.
type Scaler struct {
	MeanLat  float64 `json:"mean_lat"`
	MeanLon  float64 `json:"mean_lon"`
	ScaleLat float64 `json:"scale_lat"`
	ScaleLon float64 `json:"scale_lon"`
}

func (s Scaler) transform(lat, lon float64) Point {
	return Point{Lat: (lat - s.MeanLat) / s.ScaleLat, Lon: (lon - s.MeanLon) / s.ScaleLon}
}

// Inverse maps a standardized point back to degrees.
func (s Scaler) Inverse(p Point) Point {
	return Point{Lat: p.Lat*s.ScaleLat + s.MeanLat, Lon: p.Lon*s.ScaleLon + s.MeanLon}
}

// Result is the outcome of one clustering run.
type Result struct {
	// Assignments maps the index of a sighting in the input slice to its
	// cluster id in [0, k). Sightings without coordinates have no key.
	Assignments map[int]int
	Centroids   []Point
	Iterations  int
	Converged   bool
	Scaler      Scaler
}

// Sizes returns the number of points assigned to each cluster.
func (r *Result) Sizes() []int {
	sizes := make([]int, len(r.Centroids))
	for _, c := range r.Assignments {
		sizes[c]++
	}
	return sizes
}

// Run clusters the sightings that have both coordinates. It holds no state
// between calls.
func Run(sightings []domain.Sighting, opts Options) (*Result, error) {
	if opts.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidParameter, opts.K)
	}
	if opts.MaxIterations < 0 {
		return nil, fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidParameter, opts.MaxIterations)
	}
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = DefaultMaxIterations
	}

	var rows []int
	for i := range sightings {
		if sightings[i].HasCoordinates() {
			rows = append(rows, i)
		}
	}
	if len(rows) < opts.K {
		return nil, fmt.Errorf("%w: %d usable points for k=%d", ErrInsufficientData, len(rows), opts.K)
	}

	scaler := fitScaler(sightings, rows)
	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = scaler.transform(*sightings[r].Latitude, *sightings[r].Longitude)
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)^0x9e3779b97f4a7c15))
	centroids := initCentroids(points, opts.K, rng)
	labels, iterations, converged := lloyd(points, centroids, maxIter)

	assignments := make(map[int]int, len(rows))
	for i, r := range rows {
		assignments[r] = labels[i]
	}

	return &Result{
		Assignments: assignments,
		Centroids:   centroids,
		Iterations:  iterations,
		Converged:   converged,
		Scaler:      scaler,
	}, nil
}

// fitScaler computes mean and population standard deviation per dimension.
func fitScaler(sightings []domain.Sighting, rows []int) Scaler {
	n := float64(len(rows))
	var s Scaler
	for _, r := range rows {
		s.MeanLat += *sightings[r].Latitude
		s.MeanLon += *sightings[r].Longitude
	}
	s.MeanLat /= n
	s.MeanLon /= n

	var varLat, varLon float64
	for _, r := range rows {
		dLat := *sightings[r].Latitude - s.MeanLat
		dLon := *sightings[r].Longitude - s.MeanLon
		varLat += dLat * dLat
		varLon += dLon * dLon
	}
	s.ScaleLat = scale(math.Sqrt(varLat / n))
	s.ScaleLon = scale(math.Sqrt(varLon / n))
	return s
}

func scale(std float64) float64 {
	if std == 0 {
		return 1
	}
	return std
}

// initCentroids picks k distinct input points with k-means++: each next
// centroid is drawn with probability proportional to its squared distance
// from the nearest centroid chosen so far. If every remaining point coincides
// with a chosen centroid, an unchosen point is drawn uniformly.
func initCentroids(points []Point, k int, rng *rand.Rand) []Point {
	chosen := make([]bool, len(points))
	centroids := make([]Point, 0, k)

	first := rng.IntN(len(points))
	chosen[first] = true
	centroids = append(centroids, points[first])

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for i, d := range dist {
			if !chosen[i] {
				total += d
			}
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				if chosen[i] || d == 0 {
					continue
				}
				next = i
				target -= d
				if target < 0 {
					break
				}
			}
		} else {
			next = pickUnchosen(chosen, rng)
		}

		chosen[next] = true
		c := points[next]
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// pickUnchosen returns a uniformly drawn index with chosen[i] == false.
func pickUnchosen(chosen []bool, rng *rand.Rand) int {
	var free []int
	for i, c := range chosen {
		if !c {
			free = append(free, i)
		}
	}
	return free[rng.IntN(len(free))]
}

// lloyd refines centroids in place until no label changes or maxIter rounds
// have run. It returns the final labels, rounds run, and whether it converged.
func lloyd(points, centroids []Point, maxIter int) ([]int, int, bool) {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	sums := make([]Point, len(centroids))
	counts := make([]int, len(centroids))

	for iter := 1; iter <= maxIter; iter++ {
		changed := false
		for i, p := range points {
			c := nearest(p, centroids)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			return labels, iter, true
		}

		for c := range sums {
			sums[c] = Point{}
			counts[c] = 0
		}
		for i, p := range points {
			c := labels[i]
			sums[c].Lat += p.Lat
			sums[c].Lon += p.Lon
			counts[c]++
		}
		for c := range centroids {
			// An empty cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			centroids[c] = Point{Lat: sums[c].Lat / float64(counts[c]), Lon: sums[c].Lon / float64(counts[c])}
		}
	}

	// Labels may still be stale relative to the last centroid update.
	for i, p := range points {
		labels[i] = nearest(p, centroids)
	}
	return labels, maxIter, false
}

// nearest returns the index of the closest centroid; exact ties go to the
// lowest index.
func nearest(p Point, centroids []Point) int {
	best := 0
	bestDist := sqDist(p, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := sqDist(p, centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}
