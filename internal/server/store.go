package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/KaramelBytes/musicmax-cli/internal/analysis"
	"github.com/KaramelBytes/musicmax-cli/internal/dataset"
	"go.uber.org/zap"
)

// ErrNotLoaded is returned by data reads while no table is available.
var ErrNotLoaded = errors.New("dataset not loaded")

// Column describes one header field of the loaded table.
type Column struct {
	Name string       `json:"name"`
	Kind dataset.Kind `json:"kind"`
}

// Store owns the raw track table shared by all sessions and the genre
// summary derived from it. Reads take the read lock; Append and Reload swap
// both under the write lock.
type Store struct {
	path     string
	opt      dataset.Options
	genreCol string
	features []string
	logger   *zap.Logger

	mu         sync.RWMutex
	table      *dataset.Table
	loadErr    error
	summary    *analysis.GenreTable
	summaryErr error
}

// NewStore returns an empty store; call Reload to read the file.
func NewStore(path string, opt dataset.Options, genreCol string, features []string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:     path,
		opt:      opt,
		genreCol: genreCol,
		features: append([]string(nil), features...),
		logger:   logger,
		loadErr:  ErrNotLoaded,
	}
}

// Path returns the dataset file path.
func (s *Store) Path() string { return s.path }

// Reload reads the dataset file again. On failure the previously loaded
// table, if any, stays in place and the error is returned.
func (s *Store) Reload() error {
	t, err := dataset.Load(s.path, s.opt)
	if err != nil {
		s.mu.Lock()
		if s.table == nil {
			s.loadErr = err
		}
		s.mu.Unlock()
		s.logger.Warn("dataset load failed", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.swap(t)
	s.mu.Unlock()
	s.logger.Info("dataset loaded", zap.String("path", s.path), zap.Int("rows", t.Len()), zap.Int("columns", len(t.Columns)))
	return nil
}

// swap installs t and recomputes the summary. Caller holds the write lock.
func (s *Store) swap(t *dataset.Table) {
	s.table = t
	s.loadErr = nil
	s.summary, s.summaryErr = analysis.Summarize(t, s.genreCol, s.features)
	if s.summaryErr != nil {
		s.logger.Warn("genre summary unavailable", zap.Error(s.summaryErr))
	}
}

// Len returns the number of loaded rows, 0 when nothing is loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return 0
	}
	return s.table.Len()
}

// Summary returns the per-genre aggregate of the normalized table.
func (s *Store) Summary() (*analysis.GenreTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.summary, s.summaryErr
}

// Columns lists header fields with their inferred kinds.
func (s *Store) Columns() ([]Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]Column, len(s.table.Columns))
	for i, c := range s.table.Columns {
		out[i] = Column{Name: c, Kind: s.table.Kinds[i]}
	}
	return out, nil
}

// Search runs a substring search over the raw table.
func (s *Store) Search(query string, limit int) ([]dataset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return dataset.Search(s.table, query, limit), nil
}

// Append validates rec, writes the extended raw table to disk and only then
// makes it visible. It returns the new row count.
func (s *Store) Append(rec dataset.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return 0, s.loadErr
	}
	if err := s.table.Validate(rec); err != nil {
		return 0, err
	}
	next := s.table.Clone()
	if err := next.Append(rec); err != nil {
		return 0, err
	}
	if err := dataset.Save(next, s.path); err != nil {
		return 0, fmt.Errorf("save dataset: %w", err)
	}
	s.swap(next)
	s.logger.Info("track appended", zap.Int("rows", next.Len()))
	return next.Len(), nil
}
