package egresscmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-egress/internal/commands"
	"github.com/goliatone/go-egress/internal/export"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/verify"
	"github.com/goliatone/go-egress/pkg/interfaces"
	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

// TextCodeVerifyFailed tags verify runs that found error-level issues.
const TextCodeVerifyFailed = "EGRESS_VERIFY_FAILED"

// Service runs exports and verifications for a fully resolved config.
type Service interface {
	Export(ctx context.Context, cfg runtimeconfig.Config) (export.Summary, error)
	Verify(ctx context.Context, cfg runtimeconfig.Config) (verify.Report, error)
}

// ExportHandler runs export commands through the shared handler.
type ExportHandler struct {
	inner    *commands.Handler[ExportCommand]
	onResult func(export.Summary)
}

// ExportOption customises an ExportHandler.
type ExportOption func(*exportOptions)

type exportOptions struct {
	onResult func(export.Summary)
	handler  []commands.HandlerOption[ExportCommand]
}

// OnExportResult receives the summary of every run, including failed ones.
func OnExportResult(fn func(export.Summary)) ExportOption {
	return func(o *exportOptions) {
		o.onResult = fn
	}
}

// WithExportHandlerOptions appends shared handler options.
func WithExportHandlerOptions(opts ...commands.HandlerOption[ExportCommand]) ExportOption {
	return func(o *exportOptions) {
		o.handler = append(o.handler, opts...)
	}
}

// NewExportHandler builds a handler that overlays each message onto base and
// hands the result to service. Exports are not time bounded by default.
func NewExportHandler(service Service, base runtimeconfig.Config, logger interfaces.Logger, opts ...ExportOption) *ExportHandler {
	if service == nil {
		panic("egresscmd: service cannot be nil")
	}
	cfg := exportOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	h := &ExportHandler{onResult: cfg.onResult}
	exec := func(ctx context.Context, msg ExportCommand) error {
		summary, err := service.Export(ctx, ApplyExport(base, msg))
		if h.onResult != nil {
			h.onResult(summary)
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[ExportCommand]{
		commands.WithLogger[ExportCommand](logger),
		commands.WithOperation[ExportCommand]("egress.export"),
		commands.WithTimeout[ExportCommand](0),
		commands.WithTelemetry[ExportCommand](commands.DefaultTelemetry[ExportCommand](logger)),
	}
	handlerOpts = append(handlerOpts, cfg.handler...)
	h.inner = commands.NewHandler[ExportCommand](exec, handlerOpts...)
	return h
}

// Execute satisfies command.Commander[ExportCommand].
func (h *ExportHandler) Execute(ctx context.Context, msg ExportCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *ExportHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for exports.
func (h *ExportHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"export"},
		Group:       "egress",
		Description: "Export a content database to Markdown files and a manifest",
	}
}

// ApplyExport overlays the non-zero message fields onto base.
func ApplyExport(base runtimeconfig.Config, msg ExportCommand) runtimeconfig.Config {
	cfg := base
	if v := strings.TrimSpace(msg.SourceID); v != "" {
		cfg.SourceID = v
	}
	if v := strings.TrimSpace(msg.TargetDir); v != "" {
		cfg.TargetDir = v
	}
	if v := strings.TrimSpace(msg.PublicBaseURL); v != "" {
		cfg.PublicBaseURL = v
	}
	if msg.Concurrency > 0 {
		cfg.Concurrency = msg.Concurrency
	}
	return cfg
}

// VerifyHandler runs verify commands through the shared handler.
type VerifyHandler struct {
	inner *commands.Handler[VerifyCommand]
}

// NewVerifyHandler builds a verify handler. onReport may be nil.
func NewVerifyHandler(service Service, base runtimeconfig.Config, logger interfaces.Logger, onReport func(verify.Report), opts ...commands.HandlerOption[VerifyCommand]) *VerifyHandler {
	if service == nil {
		panic("egresscmd: service cannot be nil")
	}
	exec := func(ctx context.Context, msg VerifyCommand) error {
		cfg := base
		cfg.TargetDir = strings.TrimSpace(msg.TargetDir)
		report, err := service.Verify(ctx, cfg)
		if err != nil {
			return err
		}
		if onReport != nil {
			onReport(report)
		}
		if !report.OK() {
			return goerrors.New(fmt.Sprintf("verify found %d error(s) in %s", report.Errors(), cfg.TargetDir), goerrors.CategoryValidation).
				WithTextCode(TextCodeVerifyFailed).
				WithMetadata(map[string]any{"issues": len(report.Issues)})
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[VerifyCommand]{
		commands.WithLogger[VerifyCommand](logger),
		commands.WithOperation[VerifyCommand]("egress.verify"),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &VerifyHandler{inner: commands.NewHandler[VerifyCommand](exec, handlerOpts...)}
}

// Execute satisfies command.Commander[VerifyCommand].
func (h *VerifyHandler) Execute(ctx context.Context, msg VerifyCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *VerifyHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for verify.
func (h *VerifyHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"verify"},
		Group:       "egress",
		Description: "Check an export directory against its manifest",
	}
}
