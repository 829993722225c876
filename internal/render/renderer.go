package render

import (
	"context"
	"strings"

	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/notion"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

var _ interfaces.PageRenderer = (*Renderer)(nil)

// DefaultEmbedTitle is the iframe title used for embeds.
const DefaultEmbedTitle = "WBS Coding Playground"

// BlockSource resolves the full block tree below a page.
type BlockSource interface {
	BlockTree(ctx context.Context, rootID string) ([]*notion.Block, error)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger overrides the renderer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEmbedTitle overrides the iframe title used for embed blocks.
func WithEmbedTitle(title string) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(title) != "" {
			r.embedTitle = title
		}
	}
}

// Renderer turns page content into Markdown.
type Renderer struct {
	source     BlockSource
	logger     interfaces.Logger
	embedTitle string
}

// New builds a renderer reading blocks from source.
func New(source BlockSource, opts ...Option) *Renderer {
	r := &Renderer{
		source:     source,
		logger:     logging.NoOp(),
		embedTitle: DefaultEmbedTitle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RenderPage fetches the block tree of pageID and renders it. An empty
// string means the page has no renderable content.
func (r *Renderer) RenderPage(ctx context.Context, pageID string) (string, error) {
	tree, err := r.source.BlockTree(ctx, pageID)
	if err != nil {
		return "", err
	}
	md := r.Markdown(tree)
	r.logger.Debug("render.page.rendered", "page_id", pageID, "blocks", len(tree), "bytes", len(md))
	return md, nil
}

// Markdown renders an already resolved block tree.
func (r *Renderer) Markdown(blocks []*notion.Block) string {
	c := &converter{
		embedTitle: r.embedTitle,
		logger:     r.logger,
		onPath:     map[string]bool{},
	}
	return strings.TrimSpace(c.blocks(blocks))
}
