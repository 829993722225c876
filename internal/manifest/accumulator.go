package manifest

import (
	"slices"
	"sync"
)

// Accumulator collects records produced during a run. Put replaces by
// stable id in place, so a record registered twice keeps its first slot.
type Accumulator struct {
	mu      sync.Mutex
	records []Record
	index   map[string]int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{index: map[string]int{}}
}

// Put registers rec. Records without a stable id are always appended.
func (a *Accumulator) Put(rec Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rec.StableID == "" {
		a.records = append(a.records, rec)
		return
	}
	if i, ok := a.index[rec.StableID]; ok {
		a.records[i] = rec
		return
	}
	a.index[rec.StableID] = len(a.records)
	a.records = append(a.records, rec)
}

// Len returns the number of registered records.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Records returns a copy in registration order.
func (a *Accumulator) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.records)
}

// Index looks up records from a previous manifest.
type Index struct {
	byStable    map[string]Record
	bySecondary map[string]Record
}

// NewIndex indexes records by stable and secondary id. The first record
// wins on collisions; placeholder secondary ids are not indexed.
func NewIndex(records []Record) *Index {
	idx := &Index{
		byStable:    make(map[string]Record, len(records)),
		bySecondary: make(map[string]Record, len(records)),
	}
	for _, rec := range records {
		if rec.StableID != "" {
			if _, ok := idx.byStable[rec.StableID]; !ok {
				idx.byStable[rec.StableID] = rec
			}
		}
		if rec.HasSecondaryID() {
			if _, ok := idx.bySecondary[rec.SecondaryID]; !ok {
				idx.bySecondary[rec.SecondaryID] = rec
			}
		}
	}
	return idx
}

// Lookup matches by stable id first, then by secondary id.
func (i *Index) Lookup(stableID, secondaryID string) (Record, bool) {
	if i == nil {
		return Record{}, false
	}
	if rec, ok := i.byStable[stableID]; ok && stableID != "" {
		return rec, true
	}
	candidate := Record{SecondaryID: secondaryID}
	if candidate.HasSecondaryID() {
		if rec, ok := i.bySecondary[secondaryID]; ok {
			return rec, true
		}
	}
	return Record{}, false
}
