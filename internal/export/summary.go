package export

import "time"

// Summary reports the outcome of one Run.
type Summary struct {
	RunID             string
	SourceID          string
	FromCache         bool
	Total             int
	InvalidPages      int
	AlreadyDone       int
	Processed         int
	Exported          int
	Skipped           int
	Failed            int
	PermanentlyFailed []string
	Rounds            int
	Cooldowns         []time.Duration
	Records           int
	ManifestPath      string
	ProgressPath      string
	Duration          time.Duration
}

// Complete reports whether every item considered is now exported.
func (s Summary) Complete() bool {
	return s.Skipped == 0 && s.Failed == 0 && len(s.PermanentlyFailed) == 0 && s.InvalidPages == 0
}
