package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-egress/internal/export"
	"github.com/goliatone/go-egress/internal/ledger"
	"github.com/goliatone/go-egress/internal/logging/console"
	"github.com/goliatone/go-egress/internal/manifest"
	"github.com/goliatone/go-egress/internal/progress"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/scheduler"
	"github.com/goliatone/go-egress/internal/slugs"
	"github.com/goliatone/go-egress/pkg/interfaces"
	"github.com/goliatone/go-egress/pkg/testsupport"
)

type fakeSource struct {
	mu       sync.Mutex
	pages    []json.RawMessage
	children map[string][]string
	childErr map[string]error
	queries  int
}

func (s *fakeSource) QueryDatabase(context.Context, string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	return s.pages, nil
}

func (s *fakeSource) ChildPageIDs(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.childErr[id]; err != nil {
		delete(s.childErr, id)
		return nil, err
	}
	return s.children[id], nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	bodies   map[string]string
	failures map[string][]error
	calls    map[string]int
}

func newRenderer() *fakeRenderer {
	return &fakeRenderer{bodies: map[string]string{}, failures: map[string][]error{}, calls: map[string]int{}}
}

func (r *fakeRenderer) RenderPage(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id]++
	if errs := r.failures[id]; len(errs) > 0 {
		r.failures[id] = errs[1:]
		return "", errs[0]
	}
	return r.bodies[id], nil
}

func (r *fakeRenderer) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	cfg      runtimeconfig.Config
	source   *fakeSource
	renderer *fakeRenderer
	sleeper  *recordingSleeper
	out      *lockedBuffer
}

func newFixture(t *testing.T, pages ...testsupport.Page) *fixture {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.SourceID = "db-1"
	cfg.TargetDir = t.TempDir()
	cfg.CacheDir = t.TempDir()
	cfg.Concurrency = 5

	f := &fixture{
		cfg:      cfg,
		source:   &fakeSource{pages: testsupport.Pages(pages...), children: map[string][]string{}, childErr: map[string]error{}},
		renderer: newRenderer(),
		sleeper:  &recordingSleeper{},
		out:      &lockedBuffer{},
	}
	for _, p := range pages {
		f.renderer.bodies[p.ID] = "# " + p.Name + "\n\nBody of " + p.ID
	}
	return f
}

func (f *fixture) run(t *testing.T, opts ...export.Option) export.Summary {
	t.Helper()
	base := []export.Option{
		export.WithOutput(f.out),
		export.WithSanitizer(slugs.New(slugs.WithNormalizer(nil))),
		export.WithSchedulerOptions(scheduler.WithSleeper(f.sleeper.Sleep)),
	}
	o, err := export.New(f.cfg, f.source, f.renderer, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return summary
}

func (f *fixture) manifest(t *testing.T) []manifest.Record {
	t.Helper()
	records, err := manifest.Load(filepath.Join(f.cfg.TargetDir, f.cfg.ManifestFile))
	if err != nil {
		t.Fatalf("manifest.Load returned error: %v", err)
	}
	return records
}

func (f *fixture) progressIDs(t *testing.T) []string {
	t.Helper()
	store, err := progress.Load(filepath.Join(f.cfg.TargetDir, f.cfg.ProgressFile))
	if err != nil {
		t.Fatalf("progress.Load returned error: %v", err)
	}
	ids := store.IDs()
	slices.Sort(ids)
	return ids
}

func page(n int, ftID string) testsupport.Page {
	return testsupport.Page{
		ID:      fmt.Sprintf("page-%02d", n),
		Unit:    "Unit 1",
		Chapter: "Basics",
		Name:    fmt.Sprintf("Item %02d", n),
		FTID:    ftID,
		PTID:    "PT-1",
	}
}

func secondaryIDs(records []manifest.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.SecondaryID)
	}
	return out
}

func TestNewValidatesArguments(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if _, err := export.New(cfg, &fakeSource{}, newRenderer()); !errors.Is(err, runtimeconfig.ErrSourceIDRequired) {
		t.Fatalf("expected ErrSourceIDRequired, got %v", err)
	}
	cfg.SourceID = "db-1"
	if _, err := export.New(cfg, &fakeSource{}, newRenderer()); !errors.Is(err, runtimeconfig.ErrTargetDirRequired) {
		t.Fatalf("expected ErrTargetDirRequired, got %v", err)
	}
	cfg.TargetDir = t.TempDir()
	if _, err := export.New(cfg, nil, newRenderer()); !errors.Is(err, export.ErrSourceRequired) {
		t.Fatalf("expected ErrSourceRequired, got %v", err)
	}
	if _, err := export.New(cfg, &fakeSource{}, nil); !errors.Is(err, export.ErrRendererRequired) {
		t.Fatalf("expected ErrRendererRequired, got %v", err)
	}
}

func TestRunExportsItemsAndWritesSortedManifest(t *testing.T) {
	f := newFixture(t, page(3, "FT-03"), page(1, "FT-01"), page(2, "FT-02"))

	summary := f.run(t)
	if summary.Total != 3 || summary.Exported != 3 || summary.Records != 3 || summary.FromCache {
		t.Fatalf("unexpected summary %+v", summary)
	}

	records := f.manifest(t)
	if got := strings.Join(secondaryIDs(records), ","); got != "FT-01,FT-02,FT-03" {
		t.Fatalf("expected manifest sorted by secondary id, got %s", got)
	}
	if records[0].Path != "unit-1/basics/item-01.md" || records[0].StableID != "page-01" {
		t.Fatalf("unexpected first record %+v", records[0])
	}

	data, err := os.ReadFile(filepath.Join(f.cfg.TargetDir, "unit-1", "basics", "item-02.md"))
	if err != nil {
		t.Fatalf("expected markdown file: %v", err)
	}
	doc := string(data)
	if !strings.HasPrefix(doc, "---\ntitle: Item 02\n") || !strings.HasSuffix(doc, "---\n\n# Item 02\n\nBody of page-02\n") {
		t.Fatalf("unexpected document:\n%s", doc)
	}

	if got := f.progressIDs(t); strings.Join(got, ",") != "page-01,page-02,page-03" {
		t.Fatalf("unexpected progress %v", got)
	}
	if _, err := os.Stat(export.CachePath(f.cfg.CacheDir, "db-1")); err != nil {
		t.Fatalf("expected source cache file: %v", err)
	}

	out := f.out.String()
	for _, want := range []string{"Processing 3 items...", "1/3: ", "DONE! Processed 3 items in"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"), page(2, "FT-02"), page(3, "FT-03"))
	manifestPath := filepath.Join(f.cfg.TargetDir, f.cfg.ManifestFile)
	progressPath := filepath.Join(f.cfg.TargetDir, f.cfg.ProgressFile)

	f.run(t)
	firstManifest, _ := os.ReadFile(manifestPath)
	firstProgress, _ := os.ReadFile(progressPath)

	second := f.run(t)
	if second.AlreadyDone != 3 || second.Processed != 0 || !second.FromCache {
		t.Fatalf("unexpected second summary %+v", second)
	}
	secondManifest, _ := os.ReadFile(manifestPath)
	secondProgress, _ := os.ReadFile(progressPath)
	if !bytes.Equal(firstManifest, secondManifest) {
		t.Fatalf("manifest changed between runs:\n%s\n---\n%s", firstManifest, secondManifest)
	}
	if !bytes.Equal(firstProgress, secondProgress) {
		t.Fatalf("progress changed between runs")
	}
	if f.renderer.count("page-01") != 1 || f.source.queries != 1 {
		t.Fatalf("expected no re-render and cached source, calls=%d queries=%d", f.renderer.count("page-01"), f.source.queries)
	}
	if !strings.Contains(f.out.String(), "Skipping 3 already processed items...") {
		t.Fatalf("expected skip line in output:\n%s", f.out.String())
	}
}

func TestRunResumesRemainingItems(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"), page(2, "FT-02"), page(3, "FT-03"))
	f.renderer.failures["page-03"] = []error{errors.New("connection reset")}

	first := f.run(t)
	if first.Exported != 2 || first.Failed != 1 {
		t.Fatalf("unexpected first summary %+v", first)
	}
	if got := f.progressIDs(t); len(got) != 2 {
		t.Fatalf("expected two ids in progress, got %v", got)
	}

	second := f.run(t)
	if second.AlreadyDone != 2 || second.Processed != 1 || second.Exported != 1 {
		t.Fatalf("unexpected second summary %+v", second)
	}
	if f.renderer.count("page-01") != 1 || f.renderer.count("page-03") != 2 {
		t.Fatalf("unexpected render calls %v", f.renderer.calls)
	}
	if got := strings.Join(secondaryIDs(f.manifest(t)), ","); got != "FT-01,FT-02,FT-03" {
		t.Fatalf("expected all records after resume, got %s", got)
	}
}

func TestRunCarriesRecordsBySecondaryID(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"))
	err := manifest.Write(filepath.Join(f.cfg.TargetDir, f.cfg.ManifestFile), []manifest.Record{{
		StableID:    "old-page",
		SecondaryID: "FT-01",
		Path:        "legacy/item.md",
	}})
	if err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	store, _ := progress.Load(filepath.Join(f.cfg.TargetDir, f.cfg.ProgressFile))
	if err := store.MarkDone("page-01"); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	summary := f.run(t)
	if summary.AlreadyDone != 1 || summary.Records != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	records := f.manifest(t)
	if records[0].Path != "legacy/item.md" {
		t.Fatalf("expected carried record, got %+v", records[0])
	}
}

func TestRunDedupsBySecondaryIDKeepingFirst(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"), page(2, "FT-01"), page(3, "N/A"), page(4, ""))
	f.cfg.Concurrency = 1

	f.run(t)
	records := f.manifest(t)
	var matches []manifest.Record
	for _, r := range records {
		if r.SecondaryID == "FT-01" {
			matches = append(matches, r)
		}
	}
	if len(matches) != 1 || matches[0].StableID != "page-01" {
		t.Fatalf("expected the first FT-01 record only, got %+v", matches)
	}
	if len(records) != 3 {
		t.Fatalf("expected placeholder ids to stay distinct, got %d records", len(records))
	}
}

func TestRunSkipsItemsMissingRequiredFields(t *testing.T) {
	incomplete := page(2, "FT-02")
	incomplete.Unit = ""
	f := newFixture(t, page(1, "FT-01"), incomplete)

	summary := f.run(t)
	if summary.Skipped != 1 || summary.Exported != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := f.progressIDs(t); strings.Join(got, ",") != "page-01" {
		t.Fatalf("skipped item must not be in progress, got %v", got)
	}
	if len(f.manifest(t)) != 1 {
		t.Fatalf("skipped item must not be in the manifest")
	}
	if f.renderer.count("page-02") != 0 {
		t.Fatalf("skipped item must not be rendered")
	}
	if !strings.Contains(f.out.String(), "Missing required properties for page ID page-02. Skipping.") {
		t.Fatalf("expected skip warning in output:\n%s", f.out.String())
	}
}

func TestRunSkipsEmptyContent(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"))
	f.renderer.bodies["page-01"] = "  "

	summary := f.run(t)
	if summary.Skipped != 1 || summary.Records != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.TargetDir, "unit-1", "basics", "item-01.md")); !os.IsNotExist(err) {
		t.Fatalf("expected no file for empty content, got %v", err)
	}
}

func TestRunRequeuesRateLimitedItem(t *testing.T) {
	pages := make([]testsupport.Page, 0, 12)
	for i := 1; i <= 12; i++ {
		pages = append(pages, page(i, fmt.Sprintf("FT-%02d", i)))
	}
	f := newFixture(t, pages...)
	f.renderer.failures["page-07"] = []error{scheduler.RateLimited("", "2", nil)}

	summary := f.run(t)
	if summary.Records != 12 || summary.Exported != 12 || summary.Rounds != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(f.sleeper.waits) != 1 || f.sleeper.waits[0] < 2*time.Second {
		t.Fatalf("expected one cooldown of at least 2s, got %v", f.sleeper.waits)
	}
	if got := f.progressIDs(t); len(got) != 12 {
		t.Fatalf("expected 12 ids in progress, got %d", len(got))
	}
	out := f.out.String()
	for _, want := range []string{"Rate limited for item 7 - Item 07", "Waiting 2 seconds before retrying 1 items"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunReportsPermanentlyFailedItems(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"), page(2, "FT-02"))
	f.cfg.Scheduler.MaxRounds = 3
	limited := scheduler.RateLimited("", "1", nil)
	f.renderer.failures["page-02"] = []error{limited, limited, limited}

	summary := f.run(t)
	if len(summary.PermanentlyFailed) != 1 || summary.PermanentlyFailed[0] != "page-02" {
		t.Fatalf("unexpected permanently failed %v", summary.PermanentlyFailed)
	}
	if got := f.progressIDs(t); strings.Join(got, ",") != "page-01" {
		t.Fatalf("unexpected progress %v", got)
	}
	if len(f.sleeper.waits) != 2 {
		t.Fatalf("expected two cooldowns, got %v", f.sleeper.waits)
	}
}

func TestRunWritesFirstChildAsSolution(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"))
	f.source.children["page-01"] = []string{"child-1", "child-2"}
	f.renderer.bodies["child-1"] = "Solution body"
	f.renderer.bodies["child-2"] = "Ignored"

	f.run(t)
	data, err := os.ReadFile(filepath.Join(f.cfg.TargetDir, "solutions", "unit-1", "basics", "item-01.md"))
	if err != nil {
		t.Fatalf("expected solution file: %v", err)
	}
	if !strings.HasSuffix(string(data), "\nSolution body\n") || !strings.HasPrefix(string(data), "---\n") {
		t.Fatalf("unexpected solution document:\n%s", data)
	}
	if f.renderer.count("child-2") != 0 {
		t.Fatalf("only the first child page is rendered")
	}
	if !strings.Contains(f.out.String(), "Solution saved: solutions/unit-1/basics/item-01.md") {
		t.Fatalf("expected solution line in output:\n%s", f.out.String())
	}
}

func TestRunChildFailures(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"), page(2, "FT-02"))
	f.source.childErr["page-01"] = errors.New("child listing failed")
	f.source.childErr["page-02"] = scheduler.RateLimited("", "3", nil)

	summary := f.run(t)
	if summary.Exported != 2 || summary.Rounds != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(f.sleeper.waits) != 1 || f.sleeper.waits[0] != 3*time.Second {
		t.Fatalf("expected child rate limit to requeue the item, got %v", f.sleeper.waits)
	}
	if f.renderer.count("page-02") != 2 {
		t.Fatalf("expected page-02 to be rendered again after the cooldown")
	}
}

func TestRunUsesValidCacheAndRefetchesCorruptOne(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"))
	cachePath := export.CachePath(f.cfg.CacheDir, "db-1")

	cached, _ := json.Marshal(testsupport.Pages(page(1, "FT-01"), page(2, "FT-02")))
	f.renderer.bodies["page-02"] = "cached body"
	if err := os.WriteFile(cachePath, cached, 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	summary := f.run(t)
	if !summary.FromCache || summary.Total != 2 || f.source.queries != 0 {
		t.Fatalf("expected cached collection, summary=%+v queries=%d", summary, f.source.queries)
	}

	g := newFixture(t, page(1, "FT-01"))
	if err := os.WriteFile(export.CachePath(g.cfg.CacheDir, "db-1"), []byte(`[{"object":"page"}]`), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	summary = g.run(t)
	if summary.FromCache || g.source.queries != 1 || summary.Total != 1 {
		t.Fatalf("expected live fetch for invalid cache, summary=%+v queries=%d", summary, g.source.queries)
	}
}

type fakeLocalizer struct {
	mu    sync.Mutex
	files []string
}

func (l *fakeLocalizer) Localize(_ context.Context, markdown, filePath, rootDir string) (string, interfaces.ImageReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rel, _ := filepath.Rel(rootDir, filePath)
	l.files = append(l.files, filepath.ToSlash(rel))
	return strings.ReplaceAll(markdown, "https://remote/cat.png", "images/cat.png"), interfaces.ImageReport{Found: 1, Downloaded: 1}, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	outcomes []interfaces.ItemOutcome
	runs     []interfaces.RunSummary
}

func (l *fakeLedger) RecordItem(_ context.Context, o interfaces.ItemOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, o)
	return nil
}

func (l *fakeLedger) RecordRun(_ context.Context, r interfaces.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, r)
	return errors.New("ledger offline")
}

func TestRunLocalizesImagesAndRecordsLedger(t *testing.T) {
	incomplete := page(2, "FT-02")
	incomplete.Name = ""
	f := newFixture(t, page(1, "FT-01"), incomplete)
	f.renderer.bodies["page-01"] = "![cat](https://remote/cat.png)"
	localizer := &fakeLocalizer{}
	ledger := &fakeLedger{}

	summary := f.run(t, export.WithImageLocalizer(localizer), export.WithLedger(ledger))
	if summary.Exported != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	data, _ := os.ReadFile(filepath.Join(f.cfg.TargetDir, "unit-1", "basics", "item-01.md"))
	if !strings.Contains(string(data), "![cat](images/cat.png)") {
		t.Fatalf("expected localized image reference:\n%s", data)
	}
	if len(localizer.files) != 1 || localizer.files[0] != "unit-1/basics/item-01.md" {
		t.Fatalf("unexpected localizer calls %v", localizer.files)
	}

	statuses := map[string]interfaces.ItemStatus{}
	for _, o := range ledger.outcomes {
		statuses[o.ItemID] = o.Status
		if o.RunID != summary.RunID {
			t.Fatalf("outcome carries run id %q, want %q", o.RunID, summary.RunID)
		}
	}
	if statuses["page-01"] != interfaces.ItemExported || statuses["page-02"] != interfaces.ItemSkipped {
		t.Fatalf("unexpected ledger statuses %v", statuses)
	}
	if len(ledger.runs) != 1 || ledger.runs[0].Exported != 1 || ledger.runs[0].Records != 1 {
		t.Fatalf("unexpected ledger runs %+v", ledger.runs)
	}
}

func TestRunLogsItemsRecoveredFromEarlierFailures(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"))
	f.renderer.failures["page-01"] = []error{errors.New("upstream exploded")}

	store, err := ledger.Open(context.Background(), runtimeconfig.LedgerConfig{
		Enabled:  true,
		DSN:      "file:" + filepath.Join(t.TempDir(), "ledger.db"),
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("ledger.Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logs := &lockedBuffer{}
	logger := console.NewProvider(logs).GetLogger("egress.export")

	first := f.run(t, export.WithLedger(store), export.WithLogger(logger))
	if first.Failed != 1 || first.Exported != 0 {
		t.Fatalf("unexpected first summary %+v", first)
	}
	if strings.Contains(logs.String(), "export.item.recovered") {
		t.Fatalf("did not expect a recovery on the failing run:\n%s", logs.String())
	}

	second := f.run(t, export.WithLedger(store), export.WithLogger(logger))
	if second.Exported != 1 {
		t.Fatalf("unexpected second summary %+v", second)
	}
	out := logs.String()
	if !strings.Contains(out, "export.item.recovered") || !strings.Contains(out, "previous_status=failed") ||
		!strings.Contains(out, "previous_attempts=1") {
		t.Fatalf("expected recovery log line:\n%s", out)
	}

	rec, err := store.Item(context.Background(), "db-1", "page-01")
	if err != nil {
		t.Fatalf("Item returned error: %v", err)
	}
	if rec.Attempts != 2 || rec.Status != string(interfaces.ItemExported) {
		t.Fatalf("unexpected ledger record %+v", rec)
	}
}

func TestRunStopsOnCancellationAndPersists(t *testing.T) {
	f := newFixture(t, page(1, "FT-01"), page(2, "FT-02"))
	f.cfg.Concurrency = 1
	ctx, cancel := context.WithCancel(context.Background())
	f.renderer.bodies["page-01"] = "first"
	cancelling := &cancelRenderer{fakeRenderer: f.renderer, cancel: cancel, after: "page-01"}

	o, err := export.New(f.cfg, f.source, cancelling, export.WithSanitizer(slugs.New(slugs.WithNormalizer(nil))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	summary, err := o.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Exported != 1 || len(f.manifest(t)) != 1 {
		t.Fatalf("expected finished item to be persisted, summary=%+v", summary)
	}
	if got := f.progressIDs(t); strings.Join(got, ",") != "page-01" {
		t.Fatalf("unexpected progress %v", got)
	}
}

type cancelRenderer struct {
	*fakeRenderer
	cancel context.CancelFunc
	after  string
}

func (r *cancelRenderer) RenderPage(ctx context.Context, id string) (string, error) {
	body, err := r.fakeRenderer.RenderPage(ctx, id)
	if id == r.after {
		r.cancel()
	}
	return body, err
}
