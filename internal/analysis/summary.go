package analysis

import (
	"fmt"

	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
)

// PopularityFeature is the feature genres are ranked by.
const PopularityFeature = "popularity"

// Summarize min-max normalizes exactly the feature columns of t and
// aggregates the result per genre. t itself is not modified.
func Summarize(t *dataset.Table, genreCol string, features []string) (*GenreTable, error) {
	norm, err := dataset.Normalize(t, features)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	g, err := Aggregate(norm, genreCol, features)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return g, nil
}
