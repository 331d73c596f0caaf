package dataset

import (
	"errors"
	"fmt"
)

// ErrNotNumeric is returned when a column holds no numeric values.
var ErrNotNumeric = errors.New("column is not numeric")

// Normalize returns a copy of t where every value v of the named columns is
// replaced by (v-min)/(max-min) over that column. A constant column
// (max == min) becomes all zeros. Cells that do not parse as numbers are left
// untouched. t itself is not modified.
func Normalize(t *Table, columns []string) (*Table, error) {
	out := t.Clone()
	for _, name := range columns {
		j, ok := out.index[name]
		if !ok {
			return nil, fmt.Errorf("normalize: %w: %s", ErrUnknownColumn, name)
		}
		if out.Kinds[j] != KindNumeric {
			return nil, fmt.Errorf("normalize: %w: %s", ErrNotNumeric, name)
		}
		lo, hi, err := out.Range(name)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		span := hi - lo
		for i := range out.Rows {
			x, ok := out.Float(i, j)
			if !ok {
				continue
			}
			if span == 0 {
				out.Rows[i][j] = "0"
				continue
			}
			v := (x - lo) / span
			// guard rounding at the edges
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			out.Rows[i][j] = formatFloat(v)
		}
	}
	return out, nil
}
