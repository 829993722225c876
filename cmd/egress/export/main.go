package main

import (
	"context"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-egress/cmd/egress/internal/bootstrap"
	egresscmd "github.com/goliatone/go-egress/internal/commands/egress"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
)

const program = "egress-export"

var moduleBuilder = bootstrap.BuildModule

type cli struct {
	SourceID      string `arg:"" optional:"" name:"source-id" help:"Database id to export."`
	TargetDir     string `arg:"" optional:"" name:"target-dir" help:"Directory receiving the Markdown tree and manifest."`
	PublicBaseURL string `arg:"" optional:"" name:"public-base-url" help:"Base URL used for localized image links (falls back to REPO_URL)."`

	Concurrency int    `help:"Maximum concurrent item workers (overrides EGRESS_CONCURRENCY)."`
	LedgerDSN   string `name:"ledger-dsn" help:"SQLite DSN for the run ledger (overrides EGRESS_LEDGER_DSN)."`
	NoImages    bool   `name:"no-images" help:"Keep remote image references as-is."`
}

func main() {
	ctx, stop := bootstrap.SignalContext()
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup runtimeconfig.LookupFunc) int {
	var opts cli
	parser, err := kong.New(&opts,
		kong.Name(program),
		kong.Description("Export a curriculum database to Markdown files and a manifest."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return bootstrap.Fail(stderr, program, err)
	}
	if _, err := parser.Parse(args); err != nil {
		return bootstrap.Fail(stderr, program, err)
	}

	module, err := moduleBuilder(bootstrap.Options{
		SourceID:      opts.SourceID,
		TargetDir:     opts.TargetDir,
		PublicBaseURL: opts.PublicBaseURL,
		Concurrency:   opts.Concurrency,
		LedgerDSN:     opts.LedgerDSN,
		NoImages:      opts.NoImages,
		Lookup:        lookup,
		Stdout:        stdout,
		Stderr:        stderr,
	})
	if err != nil {
		return bootstrap.Fail(stderr, program, err)
	}
	if err := module.Config.Validate(); err != nil {
		return bootstrap.Fail(stderr, program, err)
	}

	handler := module.Module.ExportHandler()
	msg := egresscmd.ExportCommand{
		SourceID:      module.Config.SourceID,
		TargetDir:     module.Config.TargetDir,
		PublicBaseURL: module.Config.PublicBaseURL,
		Concurrency:   module.Config.Concurrency,
	}
	if err := handler.Execute(ctx, msg); err != nil {
		module.Logger.Error("export.command.failed", "error", err)
		return bootstrap.Fail(stderr, program, err)
	}
	return 0
}
