package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/musicmax-cli/internal/utils"
)

var (
	// ErrLoad wraps every failure to read or parse the input file.
	ErrLoad = errors.New("load dataset")
	// ErrInvalidRecord marks a user-supplied row that cannot be appended.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnknownColumn is returned when a column name is not part of the table header.
	ErrUnknownColumn = errors.New("unknown column")
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// Record maps column name to the cell value of one row.
type Record map[string]string

// Options controls how a table is read from disk.
type Options struct {
	// Delimiter for CSV. If 0, ',' is used unless the file ends in .tsv.
	Delimiter rune
	// DecimalSeparator used when parsing numeric cells. If 0, auto-detect per value.
	DecimalSeparator rune
}

// DefaultOptions returns the options used for the bundled track datasets.
func DefaultOptions() Options {
	return Options{DecimalSeparator: '.'}
}

// Table is an in-memory track table. Rows keep header order.
type Table struct {
	Columns []string
	Kinds   []Kind
	Rows    [][]string

	delim rune
	opt   Options
	index map[string]int
}

// New builds a table from a header and rows, inferring column kinds.
// Rows shorter than the header are padded.
func New(columns []string, rows [][]string, opt Options) (*Table, error) {
	t := &Table{Columns: append([]string(nil), columns...), delim: ',', opt: opt}
	t.reindex()
	if len(t.index) != len(t.Columns) {
		return nil, errors.New("duplicate column names in header")
	}
	for i, r := range rows {
		if len(r) > len(columns) {
			return nil, fmt.Errorf("row %d: %d fields, header has %d", i+1, len(r), len(columns))
		}
		row := make([]string, len(columns))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	t.inferKinds()
	return t, nil
}

// Load reads a delimited file with a header row. An unnamed leading index
// column (empty header or "Unnamed: 0") is dropped.
func Load(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()
	t, err := Read(f, sniffDelimiter(path, opt.Delimiter), opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return t, nil
}

// Read parses CSV content from r using the given delimiter.
func Read(r io.Reader, delim rune, opt Options) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	skip := -1
	if len(header) > 0 && isIndexColumn(header[0]) {
		skip = 0
	}
	t := &Table{delim: delim, opt: opt}
	for i, h := range header {
		if i == skip {
			continue
		}
		t.Columns = append(t.Columns, strings.TrimSpace(h))
	}
	if len(t.Columns) == 0 {
		return nil, errors.New("header has no columns")
	}
	t.reindex()
	if len(t.index) != len(t.Columns) {
		return nil, errors.New("duplicate column names in header")
	}

	ncol := len(header)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("read row %d: %d fields, header has %d", len(t.Rows)+1, len(rec), ncol)
		}
		if len(rec) < ncol {
			// pad
			tmp := make([]string, ncol)
			copy(tmp, rec)
			rec = tmp
		}
		row := make([]string, 0, len(t.Columns))
		for i, v := range rec {
			if i == skip {
				continue
			}
			row = append(row, strings.TrimSpace(v))
		}
		t.Rows = append(t.Rows, row)
	}
	t.inferKinds()
	return t, nil
}

// Save rewrites the whole table to path (temp file + rename).
func Save(t *Table, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = sniffDelimiter(path, t.delim)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of a column by name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Kind returns the inferred kind of a column.
func (t *Table) Kind(name string) (Kind, bool) {
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.Kinds[i], true
}

// Float parses the numeric value at row i, column j.
func (t *Table) Float(i, j int) (float64, bool) {
	return parseNumeric(t.Rows[i][j], t.opt)
}

// Record returns row i as a column→value mapping.
func (t *Table) Record(i int) Record {
	rec := make(Record, len(t.Columns))
	for j, c := range t.Columns {
		rec[c] = t.Rows[i][j]
	}
	return rec
}

// Unique returns the distinct non-empty values of a column in first-seen order.
func (t *Table) Unique(name string) ([]string, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	seen := map[string]bool{}
	var out []string
	for _, row := range t.Rows {
		v := row[j]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// Range returns the min and max of a numeric column.
func (t *Table) Range(name string) (lo, hi float64, err error) {
	j, ok := t.index[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	found := false
	for i := range t.Rows {
		x, ok := t.Float(i, j)
		if !ok {
			continue
		}
		if !found || x < lo {
			lo = x
		}
		if !found || x > hi {
			hi = x
		}
		found = true
	}
	if !found {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotNumeric, name)
	}
	return lo, hi, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Kinds:   append([]Kind(nil), t.Kinds...),
		Rows:    make([][]string, len(t.Rows)),
		delim:   t.delim,
		opt:     t.opt,
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	out.reindex()
	return out
}

// Append adds rec as the last row. Unknown keys are rejected; missing keys
// become empty cells. Values are stored verbatim.
func (t *Table) Append(rec Record) error {
	if len(rec) == 0 {
		return fmt.Errorf("%w: empty record", ErrInvalidRecord)
	}
	for k := range rec {
		if _, ok := t.index[k]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidRecord, ErrUnknownColumn, k)
		}
	}
	row := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = rec[c]
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Validate checks that every numeric column in rec holds a parseable number.
// Append does not call it; callers that want type checks do.
func (t *Table) Validate(rec Record) error {
	for k, v := range rec {
		j, ok := t.index[k]
		if !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidRecord, ErrUnknownColumn, k)
		}
		if t.Kinds[j] != KindNumeric || strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := parseNumeric(v, t.opt); !ok {
			return fmt.Errorf("%w: %s: %q is not a number", ErrInvalidRecord, k, v)
		}
	}
	return nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// inferKinds marks a column numeric when parsed numbers predominate among non-empty cells.
func (t *Table) inferKinds() {
	t.Kinds = make([]Kind, len(t.Columns))
	for j := range t.Columns {
		var num, txt int
		for _, row := range t.Rows {
			v := row[j]
			if v == "" {
				continue
			}
			if _, ok := parseNumeric(v, t.opt); ok {
				num++
			} else {
				txt++
			}
		}
		if num > 0 && num >= txt {
			t.Kinds[j] = KindNumeric
		} else {
			t.Kinds[j] = KindText
		}
	}
}

func isIndexColumn(h string) bool {
	h = strings.TrimSpace(h)
	return h == "" || strings.HasPrefix(h, "Unnamed:")
}

func sniffDelimiter(path string, delim rune) rune {
	if delim != 0 {
		return delim
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
