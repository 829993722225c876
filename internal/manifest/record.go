package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-egress/internal/identity"
)

// Reserved manifest keys. Everything else in a record object is an attribute.
const (
	KeyStableID    = "notionId"
	KeySecondaryID = "ft-id"
	KeyPath        = "repo_path"
)

// Placeholder is the secondary id assigned to items without a usable one. It
// never participates in lookups or dedup.
const Placeholder = "NA"

// Record is one exported item.
type Record struct {
	StableID    string
	SecondaryID string
	Path        string
	Attributes  map[string]any
}

// HasSecondaryID reports whether the record carries a real secondary id.
func (r Record) HasSecondaryID() bool {
	id := strings.TrimSpace(r.SecondaryID)
	return id != "" && id != Placeholder
}

// Key is the dedup identity: the secondary id when present, then the stable
// id, then a digest of the encoded record.
func (r Record) Key() string {
	if r.HasSecondaryID() {
		return "secondary:" + r.SecondaryID
	}
	if strings.TrimSpace(r.StableID) != "" {
		return "stable:" + r.StableID
	}
	data, err := json.Marshal(r)
	if err != nil {
		data = fmt.Appendf(nil, "%v", r)
	}
	return "hash:" + identity.ContentKey(data)
}

// MarshalJSON flattens attributes next to the reserved keys. Keys come out
// sorted, which keeps the manifest byte-stable across runs.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Attributes)+3)
	maps.Copy(flat, r.Attributes)
	flat[KeyStableID] = r.StableID
	flat[KeySecondaryID] = r.SecondaryID
	flat[KeyPath] = r.Path
	return json.Marshal(flat)
}

// UnmarshalJSON reads a flat record object. Numbers are kept as json.Number
// so re-encoding reproduces the original text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}
	if flat == nil {
		return fmt.Errorf("manifest: record is not an object")
	}

	r.StableID = stringValue(flat[KeyStableID])
	r.SecondaryID = stringValue(flat[KeySecondaryID])
	r.Path = stringValue(flat[KeyPath])
	delete(flat, KeyStableID)
	delete(flat, KeySecondaryID)
	delete(flat, KeyPath)
	r.Attributes = flat
	return nil
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}
