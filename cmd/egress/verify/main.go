package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-egress/cmd/egress/internal/bootstrap"
	egresscmd "github.com/goliatone/go-egress/internal/commands/egress"
	"github.com/goliatone/go-egress/internal/verify"
)

const program = "egress-verify"

var moduleBuilder = bootstrap.BuildModule

type cli struct {
	TargetDir string `arg:"" name:"target-dir" help:"Export directory holding the manifest."`
	Quiet     bool   `short:"q" help:"Only print the summary line."`
}

func main() {
	ctx, stop := bootstrap.SignalContext()
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts cli
	parser, err := kong.New(&opts,
		kong.Name(program),
		kong.Description("Check an export directory against its manifest and progress file."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return bootstrap.Fail(stderr, program, err)
	}
	if _, err := parser.Parse(args); err != nil {
		return bootstrap.Fail(stderr, program, err)
	}

	module, err := moduleBuilder(bootstrap.Options{
		TargetDir: opts.TargetDir,
		Stdout:    stdout,
		Stderr:    stderr,
	})
	if err != nil {
		return bootstrap.Fail(stderr, program, err)
	}

	var report verify.Report
	handler := module.Module.VerifyHandler(func(r verify.Report) { report = r })
	execErr := handler.Execute(ctx, egresscmd.VerifyCommand{TargetDir: module.Config.TargetDir})

	if !opts.Quiet {
		for _, issue := range report.Issues {
			fmt.Fprintln(stdout, issue.String())
		}
	}
	fmt.Fprintf(stdout, "%d records, %d checked, %d issue(s)\n", report.Records, report.Checked, len(report.Issues))

	if execErr != nil {
		return bootstrap.Fail(stderr, program, execErr)
	}
	return 0
}
