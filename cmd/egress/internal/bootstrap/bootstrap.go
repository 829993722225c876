package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-egress"
	"github.com/goliatone/go-egress/internal/commands"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// Options captures what the egress binaries resolve from arguments and the
// environment before building a module.
type Options struct {
	SourceID       string
	TargetDir      string
	PublicBaseURL  string
	Concurrency    int
	LedgerDSN      string
	NoImages       bool
	Lookup         egress.LookupFunc
	Stdout         io.Writer
	Stderr         io.Writer
	LoggerProvider interfaces.LoggerProvider
}

// Module bundles the egress module with its resolved config and a logger
// for the binary itself.
type Module struct {
	Module *egress.Module
	Config egress.Config
	Logger interfaces.Logger
}

// ResolveConfig overlays the environment and then the explicit options onto
// the defaults. Positional arguments win over REPO_URL.
func ResolveConfig(opts Options) (egress.Config, error) {
	cfg := egress.DefaultConfig()
	cfg.SourceID = strings.TrimSpace(opts.SourceID)
	cfg.TargetDir = strings.TrimSpace(opts.TargetDir)
	cfg.PublicBaseURL = strings.TrimSpace(opts.PublicBaseURL)

	cfg, err := egress.FromEnv(cfg, opts.Lookup)
	if err != nil {
		return cfg, err
	}
	if opts.Concurrency > 0 {
		cfg.Concurrency = opts.Concurrency
	}
	if dsn := strings.TrimSpace(opts.LedgerDSN); dsn != "" {
		cfg.Ledger.Enabled = true
		cfg.Ledger.DSN = dsn
	}
	if opts.NoImages {
		cfg.Images.Enabled = false
	}
	return cfg, nil
}

// BuildModule resolves the config and constructs the egress module.
func BuildModule(opts Options) (*Module, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}

	provider := opts.LoggerProvider
	if provider == nil {
		provider, err = egress.NewLoggerProvider(cfg.Logging, opts.Stderr)
		if err != nil {
			return nil, fmt.Errorf("logger provider: %w", err)
		}
	}

	moduleOpts := []egress.Option{egress.WithLoggerProvider(provider)}
	if opts.Stdout != nil {
		moduleOpts = append(moduleOpts, egress.WithOutput(opts.Stdout))
	}
	module, err := egress.New(cfg, moduleOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise egress module: %w", err)
	}

	return &Module{
		Module: module,
		Config: cfg,
		Logger: commands.CommandLogger(provider, "cli"),
	}, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Fail prints err to w the way every egress binary reports setup errors and
// returns the exit status.
func Fail(w io.Writer, program string, err error) int {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s: %v\n", program, err)
	return 1
}
