// Package images localizes remote images referenced by exported Markdown.
package images

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/slugs"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// Option configures a Localizer.
type Option func(*Localizer)

// WithHTTPClient overrides the HTTP client. Automatic redirects are disabled
// on a copy of the client.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Localizer) {
		if client != nil {
			l.client = noRedirects(client)
		}
	}
}

// WithLogger overrides the localizer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(l *Localizer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithAuthToken sets the bearer token sent to non object-storage origins.
func WithAuthToken(token string) Option {
	return func(l *Localizer) {
		l.token = strings.TrimSpace(token)
	}
}

// WithPublicBaseURL sets the base rewritten references are resolved
// against. An empty base rewrites to paths relative to the Markdown file.
func WithPublicBaseURL(base string) Option {
	return func(l *Localizer) {
		l.publicBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithSanitizer overrides the filename sanitizer.
func WithSanitizer(s *slugs.Sanitizer) Option {
	return func(l *Localizer) {
		if s != nil {
			l.slugs = s
		}
	}
}

// Localizer downloads remote images beside the Markdown that references them
// and rewrites the references.
type Localizer struct {
	client       *http.Client
	logger       interfaces.Logger
	slugs        *slugs.Sanitizer
	token        string
	publicBase   string
	dirName      string
	objectHosts  []string
	maxRedirects int
}

// Report summarises one Localize call.
type Report = interfaces.ImageReport

var _ interfaces.ImageLocalizer = (*Localizer)(nil)

// New builds a localizer from cfg.
func New(cfg runtimeconfig.ImagesConfig, opts ...Option) *Localizer {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "images"
	}
	l := &Localizer{
		client:       noRedirects(&http.Client{Timeout: cfg.Timeout}),
		logger:       logging.NoOp(),
		slugs:        slugs.New(),
		dirName:      dir,
		objectHosts:  append([]string(nil), cfg.ObjectStorageHosts...),
		maxRedirects: max(cfg.MaxRedirects, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Localize downloads every remote image in markdown once into an images
// directory beside filePath and rewrites successful references. rootDir is
// the export root public URLs are computed from. Download failures leave the
// remote URL in place; only cancellation or an unwritable images directory
// is returned as an error.
func (l *Localizer) Localize(ctx context.Context, markdown, filePath, rootDir string) (string, Report, error) {
	refs := Refs(markdown)
	var urls []string
	for _, ref := range refs {
		if !slices.Contains(urls, ref.URL) {
			urls = append(urls, ref.URL)
		}
	}
	report := Report{Found: len(urls)}
	if len(urls) == 0 {
		return markdown, report, nil
	}

	dir := filepath.Join(filepath.Dir(filePath), l.dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return markdown, report, fmt.Errorf("images: create %s: %w", dir, err)
	}

	claimed := map[string]string{}
	rewrites := map[string]string{}
	for _, raw := range urls {
		if err := ctx.Err(); err != nil {
			return markdown, report, err
		}
		name := l.filename(raw, claimed)
		dest := filepath.Join(dir, name)
		if err := l.download(ctx, raw, dest, 0); err != nil {
			if ctx.Err() != nil {
				return markdown, report, ctx.Err()
			}
			report.Failed++
			l.logger.Warn("images.download.failed", "file", filePath, "image", name, "error", err)
			continue
		}
		report.Downloaded++
		rewrites[raw] = l.publicURL(dest, filePath, rootDir)
		l.logger.Debug("images.download.completed", "file", filePath, "image", name)
	}

	return rewrite(markdown, refs, rewrites), report, nil
}

// rewrite replaces the destination range of every ref that has a target.
// Reference definitions shared by several images are replaced once.
func rewrite(markdown string, refs []Ref, targets map[string]string) string {
	ordered := slices.Clone(refs)
	slices.SortStableFunc(ordered, func(a, b Ref) int { return a.Start - b.Start })

	var b strings.Builder
	b.Grow(len(markdown))
	cursor := 0
	for _, ref := range ordered {
		target, ok := targets[ref.URL]
		if !ok || ref.Start < cursor {
			continue
		}
		b.WriteString(markdown[cursor:ref.Start])
		b.WriteString(target)
		cursor = ref.Stop
	}
	b.WriteString(markdown[cursor:])
	return b.String()
}

// filename derives the local name for raw. Two URLs in one document that
// sanitise to the same name are told apart by a short URL hash.
func (l *Localizer) filename(raw string, claimed map[string]string) string {
	name := l.slugs.Filename(raw)
	if owner, taken := claimed[name]; taken && owner != raw {
		sum := sha256.Sum256([]byte(stripQuery(raw)))
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext) + "-" + hex.EncodeToString(sum[:4]) + ext
	}
	claimed[name] = raw
	return name
}

func (l *Localizer) publicURL(dest, filePath, rootDir string) string {
	if l.publicBase == "" {
		rel, err := filepath.Rel(filepath.Dir(filePath), dest)
		if err != nil {
			return filepath.ToSlash(dest)
		}
		return filepath.ToSlash(rel)
	}
	rel, err := filepath.Rel(rootDir, dest)
	if err != nil {
		rel = filepath.Base(dest)
	}
	return l.publicBase + "/" + filepath.ToSlash(rel)
}

func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

func noRedirects(client *http.Client) *http.Client {
	clone := *client
	clone.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &clone
}
