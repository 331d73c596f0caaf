package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// DefaultMaxIter caps Lloyd iterations when KMeans.MaxIter is not set.
const DefaultMaxIter = 300

// ErrInvalidK is returned when the cluster count does not fit the data.
var ErrInvalidK = errors.New("invalid cluster count")

// KMeans partitions points into K clusters. With a fixed Seed, Fit is deterministic.
type KMeans struct {
	K       int
	MaxIter int
	Seed    int64

	Centroids  [][]float64
	Labels     []int
	Inertia    float64 // sum of squared distances to the assigned centroid
	Iterations int
}

// NewKMeans returns a model with the default iteration cap.
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{K: k, MaxIter: DefaultMaxIter, Seed: seed}
}

// Fit runs k-means++ seeding followed by Lloyd iterations until assignments
// stop changing or MaxIter is reached. Every label in 0..K-1 is used: an
// emptied cluster takes over the point farthest from its own centroid.
func (m *KMeans) Fit(X [][]float64) error {
	n := len(X)
	if n == 0 {
		return errors.New("kmeans: input data cannot be empty")
	}
	if m.K < 1 || m.K > n {
		return fmt.Errorf("kmeans: %w: k=%d with %d points", ErrInvalidK, m.K, n)
	}
	p := len(X[0])
	for i, x := range X {
		if len(x) != p {
			return fmt.Errorf("kmeans: point %d has %d dimensions, want %d", i, len(x), p)
		}
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	rng := rand.New(rand.NewSource(m.Seed))
	m.Centroids = initPlusPlus(X, m.K, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	prev := make([]int, n)
	for it := 0; it < maxIter; it++ {
		m.Iterations = it + 1
		copy(prev, labels)
		assign(X, m.Centroids, labels)
		relocateEmpty(X, m.Centroids, labels)
		updateCentroids(X, m.Centroids, labels)
		if equalLabels(prev, labels) {
			break
		}
	}

	m.Labels = labels
	m.Inertia = 0
	for i, x := range X {
		m.Inertia += euclidSquared(x, m.Centroids[labels[i]])
	}
	return nil
}

// Predict returns the nearest centroid index for x.
func (m *KMeans) Predict(x []float64) int {
	best, bestD := 0, math.MaxFloat64
	for k, c := range m.Centroids {
		if d := euclidSquared(x, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

// initPlusPlus picks the first centroid uniformly and each next one with
// probability proportional to its squared distance from the nearest chosen centroid.
func initPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(X[rng.Intn(n)]))
	dist := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, x := range X {
			d := math.MaxFloat64
			for _, c := range centroids {
				if dd := euclidSquared(x, c); dd < d {
					d = dd
				}
			}
			dist[i] = d
			total += d
		}
		idx := rng.Intn(n)
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 && d > 0 {
					idx = i
					break
				}
			}
		}
		centroids = append(centroids, clone(X[idx]))
	}
	return centroids
}

// assign labels each point with its nearest centroid; ties go to the lower index.
func assign(X, centroids [][]float64, labels []int) {
	for i, x := range X {
		best, bestD := 0, math.MaxFloat64
		for k, c := range centroids {
			if d := euclidSquared(x, c); d < bestD {
				best, bestD = k, d
			}
		}
		labels[i] = best
	}
}

// relocateEmpty moves, for each empty cluster, the point farthest from its
// centroid (taken from a cluster with more than one member) into it.
func relocateEmpty(X, centroids [][]float64, labels []int) {
	counts := make([]int, len(centroids))
	for _, l := range labels {
		counts[l]++
	}
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, x := range X {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := euclidSquared(x, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			break
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
		centroids[c] = clone(X[far])
	}
}

func updateCentroids(X, centroids [][]float64, labels []int) {
	p := len(X[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for k := range sums {
		sums[k] = make([]float64, p)
	}
	for i, x := range X {
		k := labels[i]
		counts[k]++
		for j, v := range x {
			sums[k][j] += v
		}
	}
	for k := range centroids {
		if counts[k] == 0 {
			continue
		}
		for j := range sums[k] {
			centroids[k][j] = sums[k][j] / float64(counts[k])
		}
	}
}

func euclidSquared(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone(x []float64) []float64 { return append([]float64(nil), x...) }

// Cluster assigns a cluster id in 0..k-1 to every genre of g and returns a
// clustered copy. k must be between 2 and the number of genres.
func Cluster(g *GenreTable, k int, seed int64) (*GenreTable, error) {
	if k < 2 || k > len(g.Rows) {
		return nil, fmt.Errorf("cluster: %w: k=%d, genres=%d (need 2 <= k <= genres)", ErrInvalidK, k, len(g.Rows))
	}
	X := make([][]float64, len(g.Rows))
	for i := range g.Rows {
		X[i] = g.Vector(i)
	}
	m := NewKMeans(k, seed)
	if err := m.Fit(X); err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	out := &GenreTable{
		Features:   append([]string(nil), g.Features...),
		Rows:       make([]GenreAggregate, len(g.Rows)),
		Clustered:  true,
		Inertia:    m.Inertia,
		Iterations: m.Iterations,
	}
	for i, r := range g.Rows {
		r.Cluster = m.Labels[i]
		out.Rows[i] = r
	}
	return out, nil
}
