// Package ledger keeps an optional SQLite history of export runs and the
// latest outcome of every item.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-egress/internal/identity"
	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

var ErrNotFound = errors.New("ledger: record not found")

var (
	_ interfaces.RunLedger   = (*Ledger)(nil)
	_ interfaces.ItemHistory = (*Ledger)(nil)
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger overrides the ledger logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithCache routes item reads and writes through a go-repository-cache
// decorator keyed by item key. Writes invalidate the cached rows.
func WithCache(service cache.CacheService, serializer cache.KeySerializer) Option {
	return func(l *Ledger) {
		if service != nil && serializer != nil {
			l.lookups = repositorycache.NewWithIdentifierFields(l.items, service, serializer, "ItemKey")
		}
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger records run and item outcomes.
type Ledger struct {
	db      *bun.DB
	owned   bool
	runs    repository.Repository[*RunRecord]
	items   repository.Repository[*ItemRecord]
	lookups repository.Repository[*ItemRecord]
	logger  interfaces.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// New wraps an existing database handle. Call EnsureSchema before use.
func New(db *bun.DB, opts ...Option) *Ledger {
	items := NewItemRepository(db)
	l := &Ledger{
		db:      db,
		runs:    NewRunRepository(db),
		items:   items,
		lookups: items,
		logger:  logging.NoOp(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Open connects to the SQLite database at cfg.DSN and creates the tables.
// A positive cfg.CacheTTL enables the lookup cache.
func Open(ctx context.Context, cfg runtimeconfig.LedgerConfig, opts ...Option) (*Ledger, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, runtimeconfig.ErrLedgerDSNRequired
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", dsn, err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())

	if cfg.CacheTTL > 0 {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.TTL = cfg.CacheTTL
		if service, err := cache.NewCacheService(cacheCfg); err == nil {
			opts = append([]Option{WithCache(service, cache.NewDefaultKeySerializer())}, opts...)
		}
	}

	l := New(db, opts...)
	l.owned = true
	if err := l.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// EnsureSchema creates the ledger tables when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	for _, model := range []any{(*RunRecord)(nil), (*ItemRecord)(nil)} {
		if _, err := l.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("ledger: create table: %w", err)
		}
	}
	return nil
}

// Close releases the database when the ledger opened it.
func (l *Ledger) Close() error {
	if l == nil || !l.owned {
		return nil
	}
	return l.db.Close()
}

// RecordItem upserts the latest outcome of an item and bumps its attempt
// counter.
func (l *Ledger) RecordItem(ctx context.Context, outcome interfaces.ItemOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := outcome.At
	if at.IsZero() {
		at = l.now()
	}
	key := itemKey(outcome.SourceID, outcome.ItemID)

	existing, err := l.lookups.GetByIdentifier(ctx, key)
	switch {
	case err == nil:
		copied := *existing
		existing = &copied
		existing.RunID = outcome.RunID
		existing.Name = outcome.Name
		existing.Status = string(outcome.Status)
		existing.LastError = outcome.Error
		existing.Attempts++
		existing.UpdatedAt = at
		if outcome.Path != "" {
			existing.Path = outcome.Path
		}
		_, err = l.lookups.Update(ctx, existing,
			repository.UpdateByID(existing.ID.String()),
			repository.UpdateColumns("run_id", "name", "path", "status", "last_error", "attempts", "updated_at"),
		)
	case goerrors.IsCategory(err, repository.CategoryDatabaseNotFound):
		_, err = l.lookups.Create(ctx, &ItemRecord{
			ID:        identity.ItemUUID(outcome.SourceID, outcome.ItemID),
			ItemKey:   key,
			SourceID:  outcome.SourceID,
			ItemID:    outcome.ItemID,
			RunID:     outcome.RunID,
			Name:      outcome.Name,
			Path:      outcome.Path,
			Status:    string(outcome.Status),
			LastError: outcome.Error,
			Attempts:  1,
			CreatedAt: at,
			UpdatedAt: at,
		})
	}
	if err != nil {
		return fmt.Errorf("ledger: record item %s: %w", outcome.ItemID, err)
	}
	l.logger.Debug("ledger.item.recorded", "item_id", outcome.ItemID, "status", outcome.Status)
	return nil
}

// RecordRun stores a run summary.
func (l *Ledger) RecordRun(ctx context.Context, run interfaces.RunSummary) error {
	id, err := parseRunID(run)
	if err != nil {
		return err
	}
	_, err = l.runs.Create(ctx, &RunRecord{
		ID:                id,
		SourceID:          run.SourceID,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		Total:             run.Total,
		AlreadyDone:       run.AlreadyDone,
		Exported:          run.Exported,
		Skipped:           run.Skipped,
		Failed:            run.Failed,
		PermanentlyFailed: run.PermanentlyFailed,
		Rounds:            run.Rounds,
		Records:           run.Records,
	})
	if err != nil {
		return fmt.Errorf("ledger: record run %s: %w", id, err)
	}
	l.logger.Info("ledger.run.recorded", "run_id", id.String(), "exported", run.Exported, "failed", run.Failed)
	return nil
}

// Item returns the latest outcome of itemID.
func (l *Ledger) Item(ctx context.Context, sourceID, itemID string) (*ItemRecord, error) {
	record, err := l.lookups.GetByIdentifier(ctx, itemKey(sourceID, itemID))
	if err != nil {
		return nil, mapRepositoryError(err, itemID)
	}
	return record, nil
}

// LastOutcome returns the latest recorded outcome of itemID. The boolean is
// false when the item has never been recorded.
func (l *Ledger) LastOutcome(ctx context.Context, sourceID, itemID string) (interfaces.ItemOutcome, bool, error) {
	record, err := l.Item(ctx, sourceID, itemID)
	if errors.Is(err, ErrNotFound) {
		return interfaces.ItemOutcome{}, false, nil
	}
	if err != nil {
		return interfaces.ItemOutcome{}, false, err
	}
	return interfaces.ItemOutcome{
		RunID:    record.RunID,
		SourceID: record.SourceID,
		ItemID:   record.ItemID,
		Name:     record.Name,
		Path:     record.Path,
		Status:   interfaces.ItemStatus(record.Status),
		Error:    record.LastError,
		Attempts: record.Attempts,
		At:       record.UpdatedAt,
	}, true, nil
}

// Outcomes lists the item outcomes of sourceID ordered by item id. An empty
// status lists every outcome.
func (l *Ledger) Outcomes(ctx context.Context, sourceID string, status interfaces.ItemStatus) ([]*ItemRecord, error) {
	records, _, err := l.items.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("?TableAlias.source_id = ?", sourceID)
		if status != "" {
			q = q.Where("?TableAlias.status = ?", string(status))
		}
		return q.Order("item_id ASC")
	}))
	return records, err
}

// Runs lists the runs of sourceID, most recent first.
func (l *Ledger) Runs(ctx context.Context, sourceID string) ([]*RunRecord, error) {
	records, _, err := l.runs.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.source_id = ?", sourceID).Order("started_at DESC")
	}))
	return records, err
}

func parseRunID(run interfaces.RunSummary) (uuid.UUID, error) {
	if id, err := uuid.Parse(run.RunID); err == nil {
		return id, nil
	}
	if run.SourceID == "" {
		return uuid.Nil, fmt.Errorf("ledger: run id %q is invalid", run.RunID)
	}
	return identity.RunUUID(run.SourceID, run.StartedAt), nil
}

func mapRepositoryError(err error, key string) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("ledger: %s: %w", key, err)
}
