package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/analysis"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"go.uber.org/zap"
)

// loadTable reads the configured dataset.
func loadTable() (*dataset.Table, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	t, err := dataset.Load(c.DatasetPath, dataset.DefaultOptions())
	if err != nil {
		return nil, err
	}
	logger.Debug("dataset loaded", zap.String("path", c.DatasetPath), zap.Int("rows", t.Len()))
	return t, nil
}

// loadSummary reads the dataset and aggregates its normalized features per genre.
func loadSummary() (*analysis.GenreTable, error) {
	t, err := loadTable()
	if err != nil {
		return nil, err
	}
	return analysis.Summarize(t, cfg.GenreColumn, cfg.Features)
}

// printRecords writes each record as indented "column: value" lines in header order.
func printRecords(w io.Writer, columns []string, recs []dataset.Record) {
	for i, r := range recs {
		fmt.Fprintf(w, "[%d]\n", i+1)
		for _, c := range orderedKeys(columns, r) {
			fmt.Fprintf(w, "  %s: %s\n", c, r[c])
		}
	}
}

// orderedKeys lists the keys of r in columns order, then any extras sorted.
func orderedKeys(columns []string, r dataset.Record) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(r))
	for _, c := range columns {
		if _, ok := r[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []string
	for k := range r {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// parseAssignments turns ["col=value", ...] into a record.
func parseAssignments(sets []string) (dataset.Record, error) {
	rec := make(dataset.Record, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected column=value, got %q", dataset.ErrInvalidRecord, s)
		}
		rec[k] = strings.TrimSpace(v)
	}
	return rec, nil
}
