// Package export drives a resumable export of a curriculum collection into
// Markdown files, a manifest and a progress checkpoint.
package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-egress/internal/curriculum"
	"github.com/goliatone/go-egress/internal/identity"
	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/manifest"
	"github.com/goliatone/go-egress/internal/progress"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/scheduler"
	"github.com/goliatone/go-egress/internal/slugs"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

var (
	ErrSourceRequired   = errors.New("export: content source is required")
	ErrRendererRequired = errors.New("export: renderer is required")
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithImageLocalizer enables image localization.
func WithImageLocalizer(l interfaces.ImageLocalizer) Option {
	return func(o *Orchestrator) {
		o.images = l
	}
}

// WithLedger records item and run outcomes.
func WithLedger(l interfaces.RunLedger) Option {
	return func(o *Orchestrator) {
		o.ledger = l
	}
}

// WithLogger overrides the orchestrator logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOutput sets where progress lines are printed. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.out = newPrinter(w)
	}
}

// WithClock overrides the clock used for durations and run ids.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSanitizer overrides the path sanitizer.
func WithSanitizer(s *slugs.Sanitizer) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.slugs = s
		}
	}
}

// WithSchedulerOptions appends scheduler options after the ones derived from
// the configuration.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(o *Orchestrator) {
		o.schedulerOpts = append(o.schedulerOpts, opts...)
	}
}

// Orchestrator runs one export. It is not safe for concurrent Runs.
type Orchestrator struct {
	cfg           runtimeconfig.Config
	source        interfaces.ContentSource
	renderer      interfaces.PageRenderer
	images        interfaces.ImageLocalizer
	ledger        interfaces.RunLedger
	logger        interfaces.Logger
	out           *printer
	slugs         *slugs.Sanitizer
	now           func() time.Time
	schedulerOpts []scheduler.Option
}

// New validates the run arguments and wires the collaborators.
func New(cfg runtimeconfig.Config, source interfaces.ContentSource, renderer interfaces.PageRenderer, opts ...Option) (*Orchestrator, error) {
	switch {
	case strings.TrimSpace(cfg.SourceID) == "":
		return nil, runtimeconfig.ErrSourceIDRequired
	case strings.TrimSpace(cfg.TargetDir) == "":
		return nil, runtimeconfig.ErrTargetDirRequired
	case source == nil:
		return nil, ErrSourceRequired
	case renderer == nil:
		return nil, ErrRendererRequired
	}

	defaults := runtimeconfig.DefaultConfig()
	if cfg.ProgressFile == "" {
		cfg.ProgressFile = defaults.ProgressFile
	}
	if cfg.ManifestFile == "" {
		cfg.ManifestFile = defaults.ManifestFile
	}
	if cfg.SolutionsDir == "" {
		cfg.SolutionsDir = defaults.SolutionsDir
	}

	o := &Orchestrator{
		cfg:      cfg,
		source:   source,
		renderer: renderer,
		logger:   logging.NoOp(),
		out:      newPrinter(nil),
		slugs:    slugs.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// ManifestPath is the manifest location inside the target directory.
func (o *Orchestrator) ManifestPath() string {
	return filepath.Join(o.cfg.TargetDir, o.cfg.ManifestFile)
}

// ProgressPath is the progress checkpoint inside the target directory.
func (o *Orchestrator) ProgressPath() string {
	return filepath.Join(o.cfg.TargetDir, o.cfg.ProgressFile)
}

// Run exports every item not yet recorded as done. Item failures never abort
// the run; the returned error covers setup failures and cancellation. On
// cancellation the manifest and progress are still persisted so a re-run
// resumes.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	started := o.now()
	runID := identity.RunUUID(o.cfg.SourceID, started).String()
	logger := logging.WithFields(o.logger, map[string]any{"run_id": runID, "source_id": o.cfg.SourceID})
	summary := Summary{
		RunID:        runID,
		SourceID:     o.cfg.SourceID,
		ManifestPath: o.ManifestPath(),
		ProgressPath: o.ProgressPath(),
	}

	if err := os.MkdirAll(o.cfg.TargetDir, 0o755); err != nil {
		return summary, err
	}
	o.out.line("Starting egress with max concurrent operations: %d", o.concurrency())

	done, err := progress.Load(o.ProgressPath(), progress.WithLogger(logger))
	if err != nil {
		return summary, err
	}
	existing, err := manifest.Load(o.ManifestPath(), manifest.WithLogger(logger))
	if err != nil {
		return summary, err
	}

	pages, fromCache, err := o.loadSource(ctx)
	if err != nil {
		return summary, err
	}
	summary.FromCache = fromCache
	if fromCache {
		o.out.line("Reading local file")
	} else {
		o.out.line("Fetching from source...")
	}

	items := make([]curriculum.Item, 0, len(pages))
	for i, raw := range pages {
		item, err := curriculum.FromPage(raw)
		if err != nil {
			summary.InvalidPages++
			logger.Warn("export.item.invalid", "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	summary.Total = len(items)

	acc := manifest.NewAccumulator()
	index := manifest.NewIndex(existing)
	todo := make([]curriculum.Item, 0, len(items))
	for _, item := range items {
		if !done.Has(item.ID) {
			todo = append(todo, item)
			continue
		}
		summary.AlreadyDone++
		if rec, ok := index.Lookup(item.ID, item.SecondaryID()); ok {
			acc.Put(rec)
		} else {
			logger.Debug("export.item.record_missing", "item_id", item.ID)
		}
	}
	summary.Processed = len(todo)
	if summary.AlreadyDone > 0 {
		o.out.line("Skipping %d already processed items...", summary.AlreadyDone)
	}
	o.out.line("Processing %d items...", len(todo))
	logger.Info("export.run.started", "total", summary.Total, "already_done", summary.AlreadyDone, "to_process", len(todo), "from_cache", fromCache)

	w := &itemWorker{
		cfg:      o.cfg,
		runID:    runID,
		source:   o.source,
		renderer: o.renderer,
		images:   o.images,
		ledger:   o.ledger,
		slugs:    o.slugs,
		acc:      acc,
		progress: done,
		logger:   logger,
		out:      o.out,
		now:      o.now,
	}

	sched := scheduler.New[curriculum.Item](o.schedulerOptions(logger)...)
	report, runErr := sched.Run(ctx, todo, w.run)

	summary.Exported = report.Succeeded
	summary.Skipped = report.Skipped
	summary.Failed = report.Failed
	summary.Rounds = report.Rounds
	summary.Cooldowns = report.Cooldowns
	for _, item := range report.PermanentlyFailed {
		summary.PermanentlyFailed = append(summary.PermanentlyFailed, item.ID)
		w.record(ctx, item, "", interfaces.ItemPermanentlyFailed, nil)
	}
	if len(report.PermanentlyFailed) > 0 {
		o.out.line("\n⚠️  Some items failed after %d retry attempts.", sched.Config().MaxRounds)
		logger.Warn("export.run.permanently_failed", "count", len(report.PermanentlyFailed), "ids", summary.PermanentlyFailed)
	}

	records := manifest.Finalize(acc.Records())
	summary.Records = len(records)
	if err := manifest.Write(o.ManifestPath(), records); err != nil {
		return summary, err
	}
	o.out.line("\nJSON file written to: %s", o.ManifestPath())
	if err := done.Save(); err != nil {
		return summary, err
	}

	summary.Duration = o.now().Sub(started)
	o.recordRun(ctx, summary, started)
	if runErr != nil {
		logger.Warn("export.run.interrupted", "error", runErr, "exported", summary.Exported)
		return summary, runErr
	}

	o.out.line("DONE! Processed %d items in %.2f seconds", summary.Total, summary.Duration.Seconds())
	logger.Info("export.run.completed",
		"total", summary.Total,
		"exported", summary.Exported,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"permanently_failed", len(summary.PermanentlyFailed),
		"rounds", summary.Rounds,
		"records", summary.Records,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (o *Orchestrator) concurrency() int {
	if o.cfg.Concurrency > 0 {
		return o.cfg.Concurrency
	}
	return scheduler.DefaultMaxConcurrency
}

func (o *Orchestrator) schedulerOptions(logger interfaces.Logger) []scheduler.Option {
	opts := []scheduler.Option{
		scheduler.WithMaxConcurrency(o.concurrency()),
		scheduler.WithLogger(logger),
		scheduler.WithCooldownObserver(func(round int, wait time.Duration, pending int) {
			o.out.line("\n⏳ Rate limited. Waiting %d seconds before retrying %d items...", int((wait+time.Second-1)/time.Second), pending)
			o.out.line("🔄 Retrying %d items (attempt %d)...\n", pending, round+1)
		}),
	}
	if o.cfg.Scheduler.MaxRounds > 0 {
		opts = append(opts, scheduler.WithMaxRounds(o.cfg.Scheduler.MaxRounds))
	}
	if o.cfg.Scheduler.DefaultCooldown > 0 {
		opts = append(opts, scheduler.WithDefaultCooldown(o.cfg.Scheduler.DefaultCooldown))
	}
	return append(opts, o.schedulerOpts...)
}

func (o *Orchestrator) recordRun(ctx context.Context, s Summary, started time.Time) {
	if o.ledger == nil {
		return
	}
	err := o.ledger.RecordRun(context.WithoutCancel(ctx), interfaces.RunSummary{
		RunID:             s.RunID,
		SourceID:          s.SourceID,
		StartedAt:         started,
		FinishedAt:        started.Add(s.Duration),
		Total:             s.Total,
		AlreadyDone:       s.AlreadyDone,
		Exported:          s.Exported,
		Skipped:           s.Skipped,
		Failed:            s.Failed,
		PermanentlyFailed: len(s.PermanentlyFailed),
		Rounds:            s.Rounds,
		Records:           s.Records,
	})
	if err != nil {
		o.logger.Warn("export.ledger.run_failed", "run_id", s.RunID, "error", err)
	}
}
