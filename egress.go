// Package egress exports a Notion curriculum database to Markdown files and
// a JSON manifest. Runs are resumable and bounded in concurrency.
package egress

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/goliatone/go-egress/internal/commands"
	egresscmd "github.com/goliatone/go-egress/internal/commands/egress"
	"github.com/goliatone/go-egress/internal/export"
	"github.com/goliatone/go-egress/internal/images"
	"github.com/goliatone/go-egress/internal/ledger"
	"github.com/goliatone/go-egress/internal/logging"
	"github.com/goliatone/go-egress/internal/logging/console"
	"github.com/goliatone/go-egress/internal/logging/gologger"
	"github.com/goliatone/go-egress/internal/notion"
	"github.com/goliatone/go-egress/internal/render"
	"github.com/goliatone/go-egress/internal/scheduler"
	"github.com/goliatone/go-egress/internal/verify"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

type (
	// Summary reports the outcome of one export run.
	Summary = export.Summary
	// VerifyReport reports the outcome of one verify run.
	VerifyReport = verify.Report
	// ExportCommand requests an export through the command handler.
	ExportCommand = egresscmd.ExportCommand
	// VerifyCommand requests a verification through the command handler.
	VerifyCommand = egresscmd.VerifyCommand
)

// Option configures a Module.
type Option func(*Module)

// WithLoggerProvider overrides the provider built from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(m *Module) {
		if provider != nil {
			m.provider = provider
		}
	}
}

// WithOutput sets the writer that receives progress lines. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Module) {
		if w != nil {
			m.output = w
		}
	}
}

// WithHTTPClient sets the client used for the content API and image downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Module) {
		m.httpClient = client
	}
}

// WithSchedulerOptions forwards options to the export scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(m *Module) {
		m.schedulerOpts = append(m.schedulerOpts, opts...)
	}
}

// Module wires the content client, renderer, image localizer, ledger and
// export orchestrator from one Config.
type Module struct {
	cfg           Config
	provider      interfaces.LoggerProvider
	output        io.Writer
	httpClient    *http.Client
	schedulerOpts []scheduler.Option
}

var _ egresscmd.Service = (*Module)(nil)

// New builds a module. The config is validated per run, not here, so one
// module can serve commands that override source and target.
func New(cfg Config, opts ...Option) (*Module, error) {
	m := &Module{cfg: cfg, output: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.provider == nil {
		provider, err := NewLoggerProvider(cfg.Logging, nil)
		if err != nil {
			return nil, err
		}
		m.provider = provider
	}
	return m, nil
}

// Config returns the base configuration.
func (m *Module) Config() Config {
	return m.cfg
}

// Export runs one export for cfg.
func (m *Module) Export(ctx context.Context, cfg Config) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	notionOpts := []notion.Option{notion.WithLogger(logging.NotionLogger(m.provider))}
	if m.httpClient != nil {
		notionOpts = append(notionOpts, notion.WithHTTPClient(m.httpClient))
	}
	client, err := notion.New(cfg.Notion, notionOpts...)
	if err != nil {
		return Summary{}, err
	}
	renderer := render.New(client, render.WithLogger(logging.RenderLogger(m.provider)))

	opts := []export.Option{
		export.WithLogger(logging.ExportLogger(m.provider)),
		export.WithOutput(m.output),
		export.WithSchedulerOptions(append([]scheduler.Option{
			scheduler.WithLogger(logging.SchedulerLogger(m.provider)),
		}, m.schedulerOpts...)...),
	}

	if cfg.Images.Enabled {
		imageOpts := []images.Option{
			images.WithLogger(logging.ImagesLogger(m.provider)),
			images.WithAuthToken(cfg.Notion.Secret),
			images.WithPublicBaseURL(cfg.PublicBaseURL),
		}
		if m.httpClient != nil {
			imageOpts = append(imageOpts, images.WithHTTPClient(m.httpClient))
		}
		opts = append(opts, export.WithImageLocalizer(images.New(cfg.Images, imageOpts...)))
	}

	if cfg.Ledger.Enabled {
		ledgerLogger := logging.LedgerLogger(m.provider)
		store, err := ledger.Open(ctx, cfg.Ledger, ledger.WithLogger(ledgerLogger))
		if err != nil {
			ledgerLogger.Warn("ledger.open.failed", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, export.WithLedger(store))
		}
	}

	orchestrator, err := export.New(cfg, client, renderer, opts...)
	if err != nil {
		return Summary{}, err
	}
	return orchestrator.Run(ctx)
}

// Verify checks the export in cfg.TargetDir.
func (m *Module) Verify(ctx context.Context, cfg Config) (VerifyReport, error) {
	v, err := verify.New(cfg, verify.WithLogger(logging.VerifyLogger(m.provider)))
	if err != nil {
		return VerifyReport{}, err
	}
	return v.Run(ctx)
}

// ExportHandler returns a command handler bound to the module config.
func (m *Module) ExportHandler(opts ...egresscmd.ExportOption) *egresscmd.ExportHandler {
	logger := commands.CommandLogger(m.provider, "export")
	return egresscmd.NewExportHandler(m, m.cfg, logger, opts...)
}

// VerifyHandler returns a command handler bound to the module config.
func (m *Module) VerifyHandler(onReport func(VerifyReport)) *egresscmd.VerifyHandler {
	logger := commands.CommandLogger(m.provider, "verify")
	return egresscmd.NewVerifyHandler(m, m.cfg, logger, onReport)
}

// NewLoggerProvider builds the provider named by cfg. The console provider
// writes to w, or stderr when w is nil.
func NewLoggerProvider(cfg LoggingConfig, w io.Writer) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{Level: cfg.Level, Format: cfg.Format})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "", "console":
		return console.NewProvider(w, console.WithMinLevel(console.ParseLevel(cfg.Level))), nil
	default:
		return nil, ErrLoggingProviderUnknown
	}
}
