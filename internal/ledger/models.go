package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RunRecord is one export run.
type RunRecord struct {
	bun.BaseModel `bun:"table:egress_runs,alias:er"`

	ID                uuid.UUID `bun:",pk,type:uuid" json:"id"`
	SourceID          string    `bun:"source_id,notnull" json:"source_id"`
	StartedAt         time.Time `bun:"started_at,notnull" json:"started_at"`
	FinishedAt        time.Time `bun:"finished_at,nullzero" json:"finished_at"`
	Total             int       `bun:"total,notnull,default:0" json:"total"`
	AlreadyDone       int       `bun:"already_done,notnull,default:0" json:"already_done"`
	Exported          int       `bun:"exported,notnull,default:0" json:"exported"`
	Skipped           int       `bun:"skipped,notnull,default:0" json:"skipped"`
	Failed            int       `bun:"failed,notnull,default:0" json:"failed"`
	PermanentlyFailed int       `bun:"permanently_failed,notnull,default:0" json:"permanently_failed"`
	Rounds            int       `bun:"rounds,notnull,default:0" json:"rounds"`
	Records           int       `bun:"records,notnull,default:0" json:"records"`
}

// ItemRecord is the latest outcome of one source item across runs.
type ItemRecord struct {
	bun.BaseModel `bun:"table:egress_item_outcomes,alias:eio"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ItemKey   string    `bun:"item_key,notnull,unique" json:"item_key"`
	SourceID  string    `bun:"source_id,notnull" json:"source_id"`
	ItemID    string    `bun:"item_id,notnull" json:"item_id"`
	RunID     string    `bun:"run_id" json:"run_id"`
	Name      string    `bun:"name" json:"name"`
	Path      string    `bun:"path" json:"path,omitempty"`
	Status    string    `bun:"status,notnull" json:"status"`
	LastError string    `bun:"last_error" json:"last_error,omitempty"`
	Attempts  int       `bun:"attempts,notnull,default:0" json:"attempts"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

func itemKey(sourceID, itemID string) string {
	return sourceID + ":" + itemID
}
