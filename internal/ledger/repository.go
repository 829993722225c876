package ledger

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewRunRepository creates a repository for run records.
func NewRunRepository(db *bun.DB) repository.Repository[*RunRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*RunRecord]{
		NewRecord: func() *RunRecord { return &RunRecord{} },
		GetID: func(r *RunRecord) uuid.UUID {
			return r.ID
		},
		SetID: func(r *RunRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *RunRecord) string {
			return r.ID.String()
		},
	})
}

// NewItemRepository creates a repository for item outcomes, identified by
// their source-scoped item key.
func NewItemRepository(db *bun.DB) repository.Repository[*ItemRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*ItemRecord]{
		NewRecord: func() *ItemRecord { return &ItemRecord{} },
		GetID: func(r *ItemRecord) uuid.UUID {
			return r.ID
		},
		SetID: func(r *ItemRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "item_key"
		},
		GetIdentifierValue: func(r *ItemRecord) string {
			return r.ItemKey
		},
	})
}
