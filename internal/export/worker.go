package export

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-egress/internal/curriculum"
	"github.com/goliatone/go-egress/internal/fsutil"
	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/manifest"
	"github.com/goliatone/go-egress/internal/progress"
	"github.com/goliatone/go-egress/internal/render"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/scheduler"
	"github.com/goliatone/go-egress/internal/slugs"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

type itemWorker struct {
	cfg      runtimeconfig.Config
	runID    string
	source   interfaces.ContentSource
	renderer interfaces.PageRenderer
	images   interfaces.ImageLocalizer
	ledger   interfaces.RunLedger
	slugs    *slugs.Sanitizer
	acc      *manifest.Accumulator
	progress *progress.Store
	logger   interfaces.Logger
	out      *printer
	now      func() time.Time
}

// run exports one item. Skips are returned as scheduler.Skip, rate limits
// propagate unchanged so the scheduler can requeue the item.
func (w *itemWorker) run(ctx context.Context, item curriculum.Item, index, total int) (err error) {
	logger := logging.WithItemContext(w.logger, item.ID, item.DisplayName(), "")
	rel := ""
	defer func() {
		w.report(ctx, item, rel, index, err)
	}()

	if err := item.Validate(); err != nil {
		logger.Warn("export.item.missing_fields", "error", err)
		return scheduler.Skip(fmt.Sprintf("missing required properties for page ID %s", item.ID))
	}

	body, err := w.renderer.RenderPage(ctx, item.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return scheduler.Skip(fmt.Sprintf("no content found for page ID %s", item.ID))
	}

	unit, chapter, name := item.Coordinates()
	rel = w.slugs.Path(unit, chapter, name) + ".md"
	if err := w.write(ctx, item, body, rel); err != nil {
		return err
	}
	logger.Debug("export.item.written", "path", rel)

	if err := w.solution(ctx, item, rel, logger); err != nil {
		return err
	}

	w.acc.Put(item.Record(rel))
	if err := w.progress.MarkDone(item.ID); err != nil {
		return err
	}
	w.out.line("%d/%d: %s ✓", index+1, total, item.DisplayName())
	return nil
}

// write localizes images in body and writes the document for item at rel.
func (w *itemWorker) write(ctx context.Context, item curriculum.Item, body, rel string) error {
	file := filepath.Join(w.cfg.TargetDir, filepath.FromSlash(rel))
	if w.images != nil {
		localized, report, err := w.images.Localize(ctx, body, file, w.cfg.TargetDir)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			w.logger.Warn("export.item.images_failed", "item_id", item.ID, "path", rel, "failed", report.Failed, "found", report.Found)
		}
		body = localized
	}

	doc, err := render.Document(item, body)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(file, doc, 0o644)
}

// solution exports the first child page of item beside the solutions root.
// Only rate limits are returned; other failures are logged and dropped.
func (w *itemWorker) solution(ctx context.Context, item curriculum.Item, rel string, logger interfaces.Logger) error {
	ids, err := w.source.ChildPageIDs(ctx, item.ID)
	if err == nil && len(ids) == 0 {
		return nil
	}

	var body string
	if err == nil {
		body, err = w.renderer.RenderPage(ctx, ids[0])
	}
	if err == nil && strings.TrimSpace(body) == "" {
		return nil
	}

	solutionRel := path.Join(w.cfg.SolutionsDir, rel)
	if err == nil {
		err = w.write(ctx, item, body, solutionRel)
	}
	if err != nil {
		if scheduler.IsRateLimited(err) {
			return err
		}
		logger.Warn("export.solution.failed", "error", err)
		return nil
	}

	w.out.line("  └─ Solution saved: %s", solutionRel)
	return nil
}

func (w *itemWorker) report(ctx context.Context, item curriculum.Item, rel string, index int, err error) {
	status := interfaces.ItemExported
	switch {
	case err == nil:
	case scheduler.IsRateLimited(err):
		status = interfaces.ItemRateLimited
		w.out.line("⚠️  Rate limited for item %d - %s", index+1, item.DisplayName())
	case isSkip(err):
		status = interfaces.ItemSkipped
		w.out.line("%s. Skipping.", capitalize(strings.TrimPrefix(err.Error(), scheduler.ErrSkipped.Error()+": ")))
	default:
		status = interfaces.ItemFailed
		w.out.line("Error processing item %d - %s: %v", index+1, item.DisplayName(), err)
	}
	w.record(ctx, item, rel, status, err)
}

func (w *itemWorker) record(ctx context.Context, item curriculum.Item, rel string, status interfaces.ItemStatus, err error) {
	if w.ledger == nil {
		return
	}
	outcome := interfaces.ItemOutcome{
		RunID:    w.runID,
		SourceID: w.cfg.SourceID,
		ItemID:   item.ID,
		Name:     item.DisplayName(),
		Path:     rel,
		Status:   status,
		At:       w.now(),
	}
	if err != nil {
		outcome.Error = err.Error()
	}
	if status == interfaces.ItemExported {
		w.recovered(ctx, item)
	}
	if lerr := w.ledger.RecordItem(context.WithoutCancel(ctx), outcome); lerr != nil {
		w.logger.Warn("export.ledger.item_failed", "item_id", item.ID, "error", lerr)
	}
}

// recovered logs items exported after an earlier recorded failure.
func (w *itemWorker) recovered(ctx context.Context, item curriculum.Item) {
	history, ok := w.ledger.(interfaces.ItemHistory)
	if !ok {
		return
	}
	prev, found, err := history.LastOutcome(context.WithoutCancel(ctx), w.cfg.SourceID, item.ID)
	if err != nil {
		w.logger.Warn("export.ledger.history_failed", "item_id", item.ID, "error", err)
		return
	}
	if !found || prev.Status == interfaces.ItemExported {
		return
	}
	w.logger.Info("export.item.recovered",
		"item_id", item.ID,
		"previous_status", prev.Status,
		"previous_attempts", prev.Attempts,
		"previous_run_id", prev.RunID,
	)
}
