package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-egress/internal/fsutil"
)

const sourceSchemaName = "egress-source-cache.json"

const sourceSchemaSource = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "minLength": 1}
    }
  }
}`

var sourceSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(sourceSchemaName, bytes.NewReader([]byte(sourceSchemaSource))); err != nil {
		panic(err)
	}
	return compiler.MustCompile(sourceSchemaName)
}()

// CachePath is where the item collection of sourceID is cached.
func CachePath(cacheDir, sourceID string) string {
	return filepath.Join(cacheDir, sourceID+".json")
}

// loadSource returns the cached collection when a valid cache file exists,
// otherwise queries the source and caches the result. fromCache reports
// which path was taken.
func (o *Orchestrator) loadSource(ctx context.Context) (pages []json.RawMessage, fromCache bool, err error) {
	cachePath := CachePath(o.cfg.CacheDir, o.cfg.SourceID)

	cached, err := readCache(cachePath)
	switch {
	case err == nil:
		o.logger.Info("export.source.cache_hit", "path", cachePath, "count", len(cached))
		return cached, true, nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		o.logger.Warn("export.source.cache_invalid", "path", cachePath, "error", err)
	}

	pages, err = o.source.QueryDatabase(ctx, o.cfg.SourceID)
	if err != nil {
		return nil, false, err
	}
	data, err := json.Marshal(pages)
	if err != nil {
		return nil, false, fmt.Errorf("export: encode source cache: %w", err)
	}
	if err := fsutil.WriteFileAtomic(cachePath, data, 0o644); err != nil {
		o.logger.Warn("export.source.cache_write_failed", "path", cachePath, "error", err)
	}
	return pages, false, nil
}

func readCache(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("export: decode source cache: %w", err)
	}
	if err := sourceSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("export: source cache shape: %w", err)
	}

	var pages []json.RawMessage
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("export: decode source cache: %w", err)
	}
	return pages, nil
}
