package verify_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-egress/internal/manifest"
	"github.com/goliatone/go-egress/internal/progress"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/verify"
)

func writeDoc(t *testing.T, dir, rel, ftID string) {
	t.Helper()
	file := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "---\ntitle: Loops\nft-id: \"" + ftID + "\"\n---\n\nBody\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
}

func setup(t *testing.T, records []manifest.Record, done ...string) (string, *verify.Verifier) {
	t.Helper()
	dir := t.TempDir()
	cfg := runtimeconfig.DefaultConfig()
	cfg.TargetDir = dir

	if records != nil {
		if err := manifest.Write(filepath.Join(dir, cfg.ManifestFile), records); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
	}
	store, err := progress.Load(filepath.Join(dir, cfg.ProgressFile))
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	for _, id := range done {
		if err := store.MarkDone(id); err != nil {
			t.Fatalf("mark done: %v", err)
		}
	}

	v, err := verify.New(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return dir, v
}

func kinds(report verify.Report) map[verify.Kind]int {
	out := map[verify.Kind]int{}
	for _, issue := range report.Issues {
		out[issue.Kind]++
	}
	return out
}

func TestNewRequiresTargetDir(t *testing.T) {
	if _, err := verify.New(runtimeconfig.Config{}); err != runtimeconfig.ErrTargetDirRequired {
		t.Fatalf("expected ErrTargetDirRequired, got %v", err)
	}
}

func TestRunReportsMissingManifest(t *testing.T) {
	_, v := setup(t, nil)
	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.OK() || kinds(report)[verify.KindManifestMissing] != 1 {
		t.Fatalf("expected manifest_missing issue, got %+v", report.Issues)
	}
}

func TestRunAcceptsConsistentExport(t *testing.T) {
	records := []manifest.Record{
		{StableID: "page-01", SecondaryID: "FT-1", Path: "unit-1/basics/loops.md"},
		{StableID: "page-02", SecondaryID: "FT-2", Path: "unit-1/basics/maps.md"},
	}
	dir, v := setup(t, records, "page-01", "page-02")
	writeDoc(t, dir, records[0].Path, "FT-1")
	writeDoc(t, dir, records[1].Path, "FT-2")

	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.OK() || len(report.Issues) != 0 {
		t.Fatalf("expected clean report, got %+v", report.Issues)
	}
	if report.Records != 2 || report.Checked != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
}

func TestRunFindsInconsistencies(t *testing.T) {
	records := []manifest.Record{
		{StableID: "page-01", SecondaryID: "FT-1", Path: "a/one.md"},
		{StableID: "page-02", SecondaryID: "FT-1", Path: "a/two.md"},
		{StableID: "page-03", SecondaryID: "FT-3", Path: "a/three.md"},
		{StableID: "page-04", SecondaryID: "FT-4", Path: "a/missing.md"},
	}
	dir, v := setup(t, records, "page-01", "page-99")
	writeDoc(t, dir, "a/one.md", "FT-1")
	writeDoc(t, dir, "a/two.md", "FT-1")
	writeDoc(t, dir, "a/three.md", "FT-30")

	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.OK() {
		t.Fatalf("expected failing report")
	}
	got := kinds(report)
	want := map[verify.Kind]int{
		verify.KindDuplicateSecondary: 1,
		verify.KindSecondaryMismatch:  1,
		verify.KindMissingFile:        1,
		verify.KindOrphanProgress:     1,
	}
	for kind, n := range want {
		if got[kind] != n {
			t.Fatalf("expected %d %s issues, got %+v", n, kind, report.Issues)
		}
	}
	if report.Issues[0].Severity != verify.SeverityError {
		t.Fatalf("expected errors to sort first, got %+v", report.Issues[0])
	}
}

func TestRunIgnoresPlaceholderDuplicates(t *testing.T) {
	records := []manifest.Record{
		{StableID: "page-01", SecondaryID: manifest.Placeholder, Path: "a/one.md"},
		{StableID: "page-02", SecondaryID: manifest.Placeholder, Path: "a/two.md"},
	}
	dir, v := setup(t, records)
	writeDoc(t, dir, "a/one.md", manifest.Placeholder)
	writeDoc(t, dir, "a/two.md", manifest.Placeholder)

	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected placeholders to be accepted, got %+v", report.Issues)
	}
}

func TestRunFlagsMissingFrontMatter(t *testing.T) {
	records := []manifest.Record{{StableID: "page-01", SecondaryID: "FT-1", Path: "plain.md"}}
	dir, v := setup(t, records)
	if err := os.WriteFile(filepath.Join(dir, "plain.md"), []byte("# no header\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if kinds(report)[verify.KindInvalidFrontMatter] != 1 {
		t.Fatalf("expected invalid front matter issue, got %+v", report.Issues)
	}
}
