package dataset

import "strings"

// DefaultSearchLimit is the number of matches returned when no limit is given.
const DefaultSearchLimit = 3

// Search scans rows in table order and returns up to limit records whose
// rendered text contains query, case-insensitively. A row renders as one
// "column value" line per cell, so column names match too. A nil result
// means no row matched.
func Search(t *Table, query string, limit int) []Record {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := strings.ToLower(query)
	var out []Record
	for i, row := range t.Rows {
		if !strings.Contains(strings.ToLower(renderRow(t.Columns, row)), q) {
			continue
		}
		out = append(out, t.Record(i))
		if len(out) == limit {
			break
		}
	}
	return out
}

func renderRow(columns, row []string) string {
	var b strings.Builder
	for j, c := range columns {
		if j > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c)
		b.WriteByte(' ')
		b.WriteString(row[j])
	}
	return b.String()
}
