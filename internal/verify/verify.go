// Package verify checks an export directory against its manifest.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/manifest"
	"github.com/goliatone/go-egress/internal/progress"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// Kind classifies an Issue.
type Kind string

const (
	KindManifestMissing    Kind = "manifest_missing"
	KindMissingFile        Kind = "missing_file"
	KindInvalidFrontMatter Kind = "invalid_front_matter"
	KindSecondaryMismatch  Kind = "secondary_id_mismatch"
	KindDuplicateSecondary Kind = "duplicate_secondary_id"
	KindUnsorted           Kind = "unsorted_manifest"
	KindOrphanProgress     Kind = "orphan_progress_id"
)

// Severity tells whether an Issue fails verification.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one verification finding.
type Issue struct {
	Kind     Kind
	Severity Severity
	StableID string
	Path     string
	Detail   string
}

func (i Issue) String() string {
	parts := []string{string(i.Severity), string(i.Kind)}
	if i.StableID != "" {
		parts = append(parts, "id="+i.StableID)
	}
	if i.Path != "" {
		parts = append(parts, "path="+i.Path)
	}
	if i.Detail != "" {
		parts = append(parts, i.Detail)
	}
	return strings.Join(parts, " ")
}

// Report is the outcome of Run.
type Report struct {
	Records int
	Checked int
	Issues  []Issue
}

// OK reports whether no error-level issue was found.
func (r Report) OK() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors counts error-level issues.
func (r Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

type header struct {
	FTID string `yaml:"ft-id"`
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger overrides the verifier logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Verifier checks one target directory.
type Verifier struct {
	targetDir    string
	manifestFile string
	progressFile string
	logger       interfaces.Logger
}

// New builds a verifier for cfg.TargetDir.
func New(cfg runtimeconfig.Config, opts ...Option) (*Verifier, error) {
	if strings.TrimSpace(cfg.TargetDir) == "" {
		return nil, runtimeconfig.ErrTargetDirRequired
	}
	defaults := runtimeconfig.DefaultConfig()
	v := &Verifier{
		targetDir:    cfg.TargetDir,
		manifestFile: cmpOr(cfg.ManifestFile, defaults.ManifestFile),
		progressFile: cmpOr(cfg.ProgressFile, defaults.ProgressFile),
		logger:       logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Run checks that every manifest record points at an exported file whose
// front matter carries the record's secondary id, that secondary ids are
// unique and sorted, and that every progress id has a record.
func (v *Verifier) Run(ctx context.Context) (Report, error) {
	var report Report
	manifestPath := filepath.Join(v.targetDir, v.manifestFile)
	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		report.Issues = append(report.Issues, Issue{Kind: KindManifestMissing, Severity: SeverityError, Path: v.manifestFile})
		return report, nil
	}

	records, err := manifest.Load(manifestPath, manifest.WithLogger(v.logger))
	if err != nil {
		return report, err
	}
	report.Records = len(records)

	seen := map[string]string{}
	stable := map[string]bool{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stable[rec.StableID] = true
		if rec.HasSecondaryID() {
			if first, dup := seen[rec.SecondaryID]; dup {
				report.Issues = append(report.Issues, Issue{
					Kind: KindDuplicateSecondary, Severity: SeverityError, StableID: rec.StableID,
					Path: rec.Path, Detail: fmt.Sprintf("%s also used by %s", rec.SecondaryID, first),
				})
			} else {
				seen[rec.SecondaryID] = rec.StableID
			}
		}
		if i > 0 && records[i-1].SecondaryID > rec.SecondaryID {
			report.Issues = append(report.Issues, Issue{
				Kind: KindUnsorted, Severity: SeverityWarning, StableID: rec.StableID,
				Detail: fmt.Sprintf("%s after %s", rec.SecondaryID, records[i-1].SecondaryID),
			})
		}
		if issue, ok := v.checkFile(rec); ok {
			report.Issues = append(report.Issues, issue)
		}
		report.Checked++
	}

	done, err := progress.Load(filepath.Join(v.targetDir, v.progressFile), progress.WithLogger(v.logger))
	if err != nil {
		return report, err
	}
	for _, id := range done.IDs() {
		if !stable[id] {
			report.Issues = append(report.Issues, Issue{Kind: KindOrphanProgress, Severity: SeverityWarning, StableID: id})
		}
	}

	slices.SortStableFunc(report.Issues, func(a, b Issue) int {
		return strings.Compare(string(a.Severity), string(b.Severity))
	})
	v.logger.Info("verify.completed", "records", report.Records, "issues", len(report.Issues), "errors", report.Errors())
	return report, nil
}

func (v *Verifier) checkFile(rec manifest.Record) (Issue, bool) {
	file := filepath.Join(v.targetDir, filepath.FromSlash(rec.Path))
	data, err := os.ReadFile(file)
	if err != nil {
		return Issue{Kind: KindMissingFile, Severity: SeverityError, StableID: rec.StableID, Path: rec.Path, Detail: err.Error()}, true
	}

	var h header
	if _, err := frontmatter.MustParse(bytes.NewReader(data), &h); err != nil {
		return Issue{Kind: KindInvalidFrontMatter, Severity: SeverityError, StableID: rec.StableID, Path: rec.Path, Detail: err.Error()}, true
	}
	if h.FTID != rec.SecondaryID {
		return Issue{
			Kind: KindSecondaryMismatch, Severity: SeverityError, StableID: rec.StableID, Path: rec.Path,
			Detail: fmt.Sprintf("front matter %q, manifest %q", h.FTID, rec.SecondaryID),
		}, true
	}
	return Issue{}, false
}

func cmpOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
