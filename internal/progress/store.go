// Package progress persists the set of item ids exported by earlier runs.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/goliatone/go-egress/internal/fsutil"
	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// ErrPathRequired is returned when a store is created without a file path.
var ErrPathRequired = errors.New("progress: file path is required")

// document is the on-disk shape.
type document struct {
	ProcessedIDs []string `json:"processedIds"`
}

// Option customises a Store.
type Option func(*Store)

// WithLogger routes load diagnostics to logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the in-memory progress set backed by a JSON file. It is safe for
// concurrent use; every mutation rewrites the whole file.
type Store struct {
	mu     sync.Mutex
	path   string
	ids    []string
	seen   map[string]struct{}
	logger interfaces.Logger
}

// Load reads the progress file at path. A missing or unreadable file yields
// an empty set; only an empty path is an error.
func Load(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	s := &Store{
		path:   path,
		seen:   map[string]struct{}{},
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		s.logger.Warn("progress.load.unreadable", "path", path, "error", err)
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("progress.load.corrupt", "path", path, "error", err)
		return s, nil
	}
	for _, id := range doc.ProcessedIDs {
		s.add(id)
	}
	s.logger.Debug("progress.load.completed", "path", path, "count", len(s.ids))
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Has reports whether id was already exported.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of recorded ids.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the recorded ids in insertion order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// MarkDone records id and immediately rewrites the progress file.
func (s *Store) MarkDone(id string) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(id)
	return s.flush()
}

// Save rewrites the progress file with the current set.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *Store) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *Store) flush() error {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(document{ProcessedIDs: ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: encode: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("progress: save %s: %w", s.path, err)
	}
	return nil
}
