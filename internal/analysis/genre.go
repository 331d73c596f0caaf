package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
)

// Unclustered marks a GenreAggregate that has not been through Cluster.
const Unclustered = -1

// GenreAggregate holds per-genre means of the feature columns.
type GenreAggregate struct {
	Genre   string             `json:"genre"`
	Tracks  int                `json:"tracks"`
	Means   map[string]float64 `json:"means"`
	Cluster int                `json:"cluster"`
}

// GenreTable is the derived one-row-per-genre table.
type GenreTable struct {
	Features  []string         `json:"features"`
	Rows      []GenreAggregate `json:"rows"`
	Clustered bool             `json:"clustered"`

	// Set by Cluster from the k-means fit.
	Inertia    float64 `json:"inertia,omitempty"`
	Iterations int     `json:"iterations,omitempty"`
}

// Aggregate groups t by genreCol and averages each feature column. Rows are
// sorted by genre name. Empty or non-numeric cells are skipped per feature; a
// genre without any value for a feature gets a mean of 0.
func Aggregate(t *dataset.Table, genreCol string, features []string) (*GenreTable, error) {
	gi, ok := t.ColumnIndex(genreCol)
	if !ok {
		return nil, fmt.Errorf("aggregate: %w: %s", dataset.ErrUnknownColumn, genreCol)
	}
	fidx := make([]int, len(features))
	for k, f := range features {
		j, ok := t.ColumnIndex(f)
		if !ok {
			return nil, fmt.Errorf("aggregate: %w: %s", dataset.ErrUnknownColumn, f)
		}
		fidx[k] = j
	}

	type gAcc struct {
		size int
		sum  []float64
		cnt  []int
	}
	groups := map[string]*gAcc{}
	for i, row := range t.Rows {
		key := row[gi]
		if key == "" {
			continue
		}
		ga := groups[key]
		if ga == nil {
			ga = &gAcc{sum: make([]float64, len(features)), cnt: make([]int, len(features))}
			groups[key] = ga
		}
		ga.size++
		for k, j := range fidx {
			x, ok := t.Float(i, j)
			if !ok {
				continue
			}
			ga.sum[k] += x
			ga.cnt[k]++
		}
	}

	out := &GenreTable{Features: append([]string(nil), features...)}
	for key, ga := range groups {
		agg := GenreAggregate{Genre: key, Tracks: ga.size, Means: make(map[string]float64, len(features)), Cluster: Unclustered}
		for k, f := range features {
			if ga.cnt[k] > 0 {
				agg.Means[f] = ga.sum[k] / float64(ga.cnt[k])
			} else {
				agg.Means[f] = 0
			}
		}
		out.Rows = append(out.Rows, agg)
	}
	sort.Slice(out.Rows, func(i, j int) bool { return out.Rows[i].Genre < out.Rows[j].Genre })
	return out, nil
}

// Find returns the aggregate for genre.
func (g *GenreTable) Find(genre string) (GenreAggregate, bool) {
	for _, r := range g.Rows {
		if r.Genre == genre {
			return r, true
		}
	}
	return GenreAggregate{}, false
}

// Vector returns row i's means in feature order.
func (g *GenreTable) Vector(i int) []float64 {
	v := make([]float64, len(g.Features))
	for k, f := range g.Features {
		v[k] = g.Rows[i].Means[f]
	}
	return v
}

// Ranked returns the aggregates sorted by the mean of feature, highest first,
// keeping at most n rows (n <= 0 keeps all). Ties are broken by genre name.
func (g *GenreTable) Ranked(feature string, n int) []GenreAggregate {
	out := append([]GenreAggregate(nil), g.Rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Means[feature], out[j].Means[feature]
		if a == b {
			return out[i].Genre < out[j].Genre
		}
		return a > b
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// ClusterSize is the number of genres assigned to one cluster.
type ClusterSize struct {
	Cluster int `json:"cluster"`
	Genres  int `json:"genres"`
}

// ClusterSizes counts genres per cluster, largest first.
func (g *GenreTable) ClusterSizes() []ClusterSize {
	counts := map[int]int{}
	for _, r := range g.Rows {
		if r.Cluster == Unclustered {
			continue
		}
		counts[r.Cluster]++
	}
	out := make([]ClusterSize, 0, len(counts))
	for c, n := range counts {
		out = append(out, ClusterSize{Cluster: c, Genres: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Genres == out[j].Genres {
			return out[i].Cluster < out[j].Cluster
		}
		return out[i].Genres > out[j].Genres
	})
	return out
}

// Members returns the genres of each cluster, indexed by cluster id, each list sorted.
func (g *GenreTable) Members() [][]string {
	maxID := -1
	for _, r := range g.Rows {
		if r.Cluster > maxID {
			maxID = r.Cluster
		}
	}
	out := make([][]string, maxID+1)
	for _, r := range g.Rows {
		if r.Cluster == Unclustered {
			continue
		}
		out[r.Cluster] = append(out[r.Cluster], r.Genre)
	}
	for _, m := range out {
		sort.Strings(m)
	}
	return out
}
