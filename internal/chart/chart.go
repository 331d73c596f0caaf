// Package chart maps genre aggregate tables to declarative Plotly figures.
// Builders are pure: they never touch the tables they read.
package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/analysis"
)

// ClusterSizeMax is the diameter in pixels of the largest cluster bubble.
const ClusterSizeMax = 100

// ErrUnknownGenre is returned when a chart is requested for a genre not in the table.
var ErrUnknownGenre = errors.New("unknown genre")

// Figure is a Plotly figure: a list of traces and a layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type        string    `json:"type"`
	Name        string    `json:"name,omitempty"`
	X           []any     `json:"x"`
	Y           []any     `json:"y"`
	Text        []string  `json:"text,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Orientation string    `json:"orientation,omitempty"`
	Marker      *Marker   `json:"marker,omitempty"`
	HoverInfo   string    `json:"hoverinfo,omitempty"`
	Values      []float64 `json:"-"`
}

type Marker struct {
	Size       []float64 `json:"size,omitempty"`
	SizeMode   string    `json:"sizemode,omitempty"`
	SizeRef    float64   `json:"sizeref,omitempty"`
	Color      []any     `json:"color,omitempty"`
	ColorScale string    `json:"colorscale,omitempty"`
	ShowScale  bool      `json:"showscale,omitempty"`
}

type Layout struct {
	Title      string `json:"title"`
	XAxis      Axis   `json:"xaxis"`
	YAxis      Axis   `json:"yaxis"`
	ShowLegend bool   `json:"showlegend"`
}

type Axis struct {
	Title   string    `json:"title,omitempty"`
	Range   []float64 `json:"range,omitempty"`
	Visible *bool     `json:"visible,omitempty"`
}

// GenreMetrics is a bar chart of one genre's feature means, one colored bar per feature.
// The y axis is fixed to [0,1] since the means come from normalized columns.
func GenreMetrics(genre string, g *analysis.GenreTable) (Figure, error) {
	row, ok := g.Find(genre)
	if !ok {
		return Figure{}, fmt.Errorf("%w: %s", ErrUnknownGenre, genre)
	}
	fig := Figure{Layout: Layout{
		Title:      fmt.Sprintf("Musical metrics for genre %s", genre),
		XAxis:      Axis{Title: "Metric"},
		YAxis:      Axis{Title: "Normalized value", Range: []float64{0, 1}},
		ShowLegend: true,
	}}
	for _, f := range g.Features {
		fig.Data = append(fig.Data, Trace{
			Type:   "bar",
			Name:   f,
			X:      []any{f},
			Y:      []any{row.Means[f]},
			Values: []float64{row.Means[f]},
		})
	}
	return fig, nil
}

// ClusterSizes is a bubble chart with one point per cluster at y=1 whose area
// is proportional to the number of genres in the cluster.
func ClusterSizes(g *analysis.GenreTable) Figure {
	sizes := g.ClusterSizes()
	tr := Trace{Type: "scatter", Mode: "markers", Marker: &Marker{SizeMode: "area", ColorScale: "Viridis", ShowScale: true}}
	largest := 0
	for _, s := range sizes {
		tr.X = append(tr.X, s.Cluster)
		tr.Y = append(tr.Y, 1)
		tr.Text = append(tr.Text, fmt.Sprintf("Number of genres: %d", s.Genres))
		tr.Marker.Size = append(tr.Marker.Size, float64(s.Genres))
		tr.Marker.Color = append(tr.Marker.Color, s.Cluster)
		tr.Values = append(tr.Values, float64(s.Genres))
		if s.Genres > largest {
			largest = s.Genres
		}
	}
	if largest > 0 {
		tr.Marker.SizeRef = 2 * float64(largest) / (ClusterSizeMax * ClusterSizeMax)
	}
	hidden := false
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title: "Cluster distribution (size proportional to the number of genres)",
			XAxis: Axis{Title: "Cluster"},
			YAxis: Axis{Visible: &hidden},
		},
	}
}

// ClusterGenres is a horizontal bar per cluster whose length is the number of
// genres and whose label lists them.
func ClusterGenres(g *analysis.GenreTable) Figure {
	tr := Trace{Type: "bar", Orientation: "h", HoverInfo: "text"}
	for id, members := range g.Members() {
		tr.Y = append(tr.Y, "Cluster "+strconv.Itoa(id))
		tr.X = append(tr.X, len(members))
		tr.Text = append(tr.Text, strings.Join(members, ", "))
		tr.Values = append(tr.Values, float64(len(members)))
	}
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title: "Genres per cluster",
			XAxis: Axis{Title: "Number of genres"},
			YAxis: Axis{Title: "Cluster"},
		},
	}
}
