// Package manifest loads, merges and writes the curriculum manifest.
package manifest

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/goliatone/go-egress/internal/fsutil"
	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// ErrPathRequired is returned when no manifest path is supplied.
var ErrPathRequired = errors.New("manifest: file path is required")

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	logger interfaces.Logger
}

// WithLogger routes load diagnostics to logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Load reads the manifest at path. A missing or corrupt file yields an empty
// list; entries that fail the record schema are dropped with a warning.
func Load(path string, opts ...Option) ([]Record, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	cfg := loadOptions{logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return []Record{}, nil
	case err != nil:
		cfg.logger.Warn("manifest.load.unreadable", "path", path, "error", err)
		return []Record{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		cfg.logger.Warn("manifest.load.corrupt", "path", path, "error", err)
		return []Record{}, nil
	}

	records := make([]Record, 0, len(raw))
	for i, entry := range raw {
		if err := validateRecord(entry); err != nil {
			cfg.logger.Warn("manifest.load.record_invalid", "path", path, "index", i, "error", err)
			continue
		}
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			cfg.logger.Warn("manifest.load.record_invalid", "path", path, "index", i, "error", err)
			continue
		}
		records = append(records, rec)
	}
	cfg.logger.Debug("manifest.load.completed", "path", path, "count", len(records))
	return records, nil
}

// Dedup keeps the first record for every Key.
func Dedup(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Sort orders records by secondary id. Equal ids keep their relative order.
func Sort(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(a.SecondaryID, b.SecondaryID)
	})
}

// Finalize dedups and sorts records into manifest order.
func Finalize(records []Record) []Record {
	out := Dedup(records)
	Sort(out)
	return out
}

// Write encodes records as one indented JSON array and atomically replaces
// the file at path.
func Write(path string, records []Record) error {
	if path == "" {
		return ErrPathRequired
	}
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}
